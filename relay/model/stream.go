package model

const (
	ChatCompletionChunkObject = "chat.completion.chunk"
	FinishReasonStop          = "stop"
)

// ChatCompletionsStreamResponse is one OpenAI-compatible `chat.completion.chunk`.
type ChatCompletionsStreamResponse struct {
	Id      string                                `json:"id"`
	Object  string                                `json:"object"`
	Created int64                                 `json:"created"`
	Model   string                                `json:"model"`
	Choices []ChatCompletionsStreamResponseChoice `json:"choices"`
}

type ChatCompletionsStreamResponseChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// Delta always serializes `content`, so an empty delta still reads as `{"content":""}`.
type Delta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content"`
}

// NewStreamChunk builds a single-choice chunk. finishReason may be empty.
func NewStreamChunk(id string, created int64, modelName, content, finishReason string) *ChatCompletionsStreamResponse {
	choice := ChatCompletionsStreamResponseChoice{
		Delta: Delta{Content: content},
	}
	if finishReason != "" {
		choice.FinishReason = &finishReason
	}
	return &ChatCompletionsStreamResponse{
		Id:      id,
		Object:  ChatCompletionChunkObject,
		Created: created,
		Model:   modelName,
		Choices: []ChatCompletionsStreamResponseChoice{choice},
	}
}

// FinishReason returns the finish reason of the first choice, or "".
func (r *ChatCompletionsStreamResponse) FinishReason() string {
	if r == nil || len(r.Choices) == 0 || r.Choices[0].FinishReason == nil {
		return ""
	}
	return *r.Choices[0].FinishReason
}

// Content returns the delta content of the first choice.
func (r *ChatCompletionsStreamResponse) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Delta.Content
}

// Model listing, https://platform.openai.com/docs/api-reference/models/list

type OpenAIModel struct {
	Id      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type OpenAIModelList struct {
	Object string        `json:"object"`
	Data   []OpenAIModel `json:"data"`
}
