package enginelabs

import (
	"encoding/json"

	"github.com/Laisky/errors/v2"
)

// Upstream event and payload tags.
const (
	EventTypeState  = "state"
	EventTypeUpdate = "update"

	PayloadTypeChat = "chat"
)

// Event is one message received on the upstream event channel. The set of
// variants is closed: StateEvent, UpdateEvent and UnknownEvent.
type Event interface {
	isEvent()
}

// StateEvent reports the generation state. InProgress=false ends the stream.
type StateEvent struct {
	InProgress bool
}

// UpdateEvent carries a decoded nested payload.
type UpdateEvent struct {
	Payload Payload
}

// UnknownEvent is any event whose type tag is not understood. It is dropped.
type UnknownEvent struct {
	Type string
}

func (StateEvent) isEvent()   {}
func (UpdateEvent) isEvent()  {}
func (UnknownEvent) isEvent() {}

// Payload is the nested content of an UpdateEvent: ChatPayload or OtherPayload.
type Payload interface {
	isPayload()
}

// ChatPayload is a chat text delta.
type ChatPayload struct {
	Content string
}

// OtherPayload is any well-formed payload that is not a chat delta. Upstream
// emits several of these (tool progress, file edits); they are dropped.
type OtherPayload struct {
	Type string
}

func (ChatPayload) isPayload()  {}
func (OtherPayload) isPayload() {}

type wireEvent struct {
	Type  string `json:"type"`
	State *struct {
		InProgress bool `json:"inProgress"`
	} `json:"state,omitempty"`
	// Buffer is a JSON document encoded as a string. An inline object is
	// accepted too.
	Buffer json.RawMessage `json:"buffer,omitempty"`
}

type wirePayload struct {
	Type string `json:"type"`
	Chat *struct {
		Content string `json:"content"`
	} `json:"chat,omitempty"`
}

// DecodeEvent parses one raw channel message. A malformed message or a
// malformed update payload yields a KindDecode error; callers skip the message.
func DecodeEvent(raw []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, newError(KindDecode, errors.Wrap(err, "decode event"))
	}

	switch w.Type {
	case EventTypeState:
		ev := StateEvent{}
		if w.State != nil {
			ev.InProgress = w.State.InProgress
		}
		return ev, nil
	case EventTypeUpdate:
		payload, err := decodePayload(w.Buffer)
		if err != nil {
			return nil, newError(KindDecode, err)
		}
		return UpdateEvent{Payload: payload}, nil
	default:
		return UnknownEvent{Type: w.Type}, nil
	}
}

func decodePayload(buffer json.RawMessage) (Payload, error) {
	doc := []byte(buffer)
	if len(doc) == 0 || string(doc) == "null" {
		doc = []byte("{}")
	} else if doc[0] == '"' {
		var s string
		if err := json.Unmarshal(doc, &s); err != nil {
			return nil, errors.Wrap(err, "decode buffer string")
		}
		doc = []byte(s)
	}

	var p wirePayload
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, errors.Wrapf(err, "decode buffer %q", truncate(string(doc), 128))
	}
	if p.Type == PayloadTypeChat {
		content := ""
		if p.Chat != nil {
			content = p.Chat.Content
		}
		return ChatPayload{Content: content}, nil
	}
	return OtherPayload{Type: p.Type}, nil
}
