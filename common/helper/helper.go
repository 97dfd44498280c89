package helper

import (
	"fmt"

	"github.com/e2bridge/e2bridge/common/random"
)

// RequestIdKey is both the gin context key and the response header carrying the request id.
const RequestIdKey = "X-Request-Id"

// GenRequestID returns a time-prefixed unique id for one inbound HTTP request.
func GenRequestID() string {
	return GetTimeString() + random.GetRandomNumberString(8)
}

// GenCompletionID returns the `id` shared by every chunk of one chat completion stream.
func GenCompletionID() string {
	return "chatcmpl-" + random.GetUUID()
}

func MessageWithRequestId(message string, id string) string {
	if id == "" {
		return message
	}
	return fmt.Sprintf("%s (request id: %s)", message, id)
}
