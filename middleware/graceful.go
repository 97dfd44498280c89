package middleware

import (
	"net/http"

	"github.com/Laisky/errors/v2"
	"github.com/gin-gonic/gin"

	"github.com/e2bridge/e2bridge/common/graceful"
)

// GracefulTracker counts in-flight requests for the shutdown drain and turns
// new requests away once draining has started.
func GracefulTracker() gin.HandlerFunc {
	return func(c *gin.Context) {
		if graceful.IsDraining() {
			c.Header("Connection", "close")
			AbortWithError(c, http.StatusServiceUnavailable, errors.New("server is shutting down"))
			return
		}
		end := graceful.BeginRequest()
		defer end()
		c.Next()
	}
}
