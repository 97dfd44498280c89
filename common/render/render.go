package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/gin-gonic/gin"
)

const (
	DataPrefix = "data: "
	// Done is the sentinel frame payload that closes an OpenAI-compatible stream.
	Done = "[DONE]"
)

// SetEventStreamHeaders prepares the response for Server-Sent Events.
func SetEventStreamHeaders(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Transfer-Encoding", "chunked")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
}

// StringData writes one `data: ...` frame and flushes it.
func StringData(c *gin.Context, str string) error {
	str = strings.TrimPrefix(str, DataPrefix)
	if _, err := fmt.Fprintf(c.Writer, "%s%s\n\n", DataPrefix, str); err != nil {
		return errors.Wrap(err, "write sse frame")
	}
	c.Writer.Flush()
	return nil
}

// ObjectData marshals object as JSON and writes it as one frame.
func ObjectData(c *gin.Context, object any) error {
	payload, err := json.Marshal(object)
	if err != nil {
		return errors.Wrap(err, "marshal sse payload")
	}
	return StringData(c, string(payload))
}

// DoneData writes the terminating `data: [DONE]` frame.
func DoneData(c *gin.Context) error {
	return StringData(c, Done)
}
