package ctxkey

const (
	// RequestModel is the model name resolved for the current chat completion
	// (request value or DEFAULT_MODEL).
	// Set in: controller.ChatCompletions.
	RequestModel = "request_model"

	// CompletionId is the `id` carried by every chunk of the current stream.
	// Set in: controller.ChatCompletions.
	CompletionId = "completion_id"
)
