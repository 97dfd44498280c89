package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/Laisky/errors/v2"
	"github.com/gin-gonic/gin"
)

// MasterKeyAuth gates a route group behind a static bearer key. An empty key
// disables the gate.
func MasterKeyAuth(masterKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if masterKey == "" {
			c.Next()
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			AbortWithError(c, http.StatusUnauthorized,
				errors.New("a master API key is required (Authorization: Bearer <key>)"))
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(masterKey)) != 1 {
			AbortWithError(c, http.StatusForbidden, errors.New("invalid master API key"))
			return
		}
		c.Next()
	}
}
