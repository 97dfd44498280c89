package streaming

import (
	"fmt"

	relaymodel "github.com/e2bridge/e2bridge/relay/model"
)

// Emitter hands one chunk to the consumer. It returns false once the consumer
// is gone; nothing more should be emitted after that.
type Emitter func(*relaymodel.ChatCompletionsStreamResponse) bool

// Finalizer frames one chat completion stream: an optional stream-open chunk,
// content deltas, at most one error chunk and exactly one terminal chunk.
// It is not safe for concurrent use; one goroutine owns a stream.
type Finalizer struct {
	id          string
	model       string
	createdTime int64
	emit        Emitter

	failed    bool
	finalSent bool
	closed    bool
}

func NewFinalizer(id, model string, createdTime int64, emit Emitter) *Finalizer {
	return &Finalizer{
		id:          id,
		model:       model,
		createdTime: createdTime,
		emit:        emit,
	}
}

// Open emits the empty stream-open chunk.
func (f *Finalizer) Open() bool {
	return f.send("", "")
}

// Content emits one delta. Empty content is not a delta and is ignored.
func (f *Finalizer) Content(content string) bool {
	if content == "" {
		return !f.closed
	}
	return f.send(content, "")
}

// Fail emits the error chunk for err. Only the first failure is reported.
func (f *Finalizer) Fail(err error) bool {
	if f.failed {
		return !f.closed
	}
	f.failed = true
	return f.send(fmt.Sprintf("Internal error: %s", err), relaymodel.FinishReasonStop)
}

// Finish emits the empty terminal chunk. Calling it again is a no-op.
func (f *Finalizer) Finish() bool {
	if f.finalSent {
		return !f.closed
	}
	ok := f.send("", relaymodel.FinishReasonStop)
	f.finalSent = true
	return ok
}

// Failed reports whether an error chunk has been emitted.
func (f *Finalizer) Failed() bool { return f.failed }

func (f *Finalizer) send(content, finishReason string) bool {
	if f.closed || f.finalSent {
		return false
	}
	chunk := relaymodel.NewStreamChunk(f.id, f.createdTime, f.model, content, finishReason)
	if f.emit != nil && !f.emit(chunk) {
		f.closed = true
		return false
	}
	return true
}
