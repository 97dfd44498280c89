package model

import (
	"encoding/json"
	"strings"
)

const (
	ContentTypeText = "text"
)

// Message is one entry of an OpenAI chat `messages` array.
type Message struct {
	Role string `json:"role,omitempty"`
	// Content is either a plain string or an array of content parts.
	Content any     `json:"content,omitempty"`
	Name    *string `json:"name,omitempty"`

	// Raw is the message exactly as decoded, unknown fields included
	// (tool_calls, tool_call_id, vendor keys). Empty for messages built in code.
	Raw json.RawMessage `json:"-"`
}

func (m *Message) UnmarshalJSON(data []byte) error {
	type plain Message
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = Message(p)
	m.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// StringContent flattens Content into plain text. Text parts of a multi-part
// content array are concatenated in order; other part types are ignored.
func (m Message) StringContent() string {
	switch content := m.Content.(type) {
	case string:
		return content
	case []any:
		var sb strings.Builder
		for _, item := range content {
			part, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if part["type"] != ContentTypeText {
				continue
			}
			if text, ok := part["text"].(string); ok {
				sb.WriteString(text)
			}
		}
		return sb.String()
	}
	return ""
}

// GeneralOpenAIRequest is the inbound chat completion body. Fields other than
// model and messages are accepted for compatibility and ignored.
type GeneralOpenAIRequest struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages" binding:"required,min=1"`
	Stream      bool      `json:"stream,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}
