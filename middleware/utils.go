package middleware

import (
	"strings"

	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/e2bridge/e2bridge/common/helper"
	relaymodel "github.com/e2bridge/e2bridge/relay/model"
)

const errorTypeBridge = "e2bridge_error"

// AbortWithError aborts the request with an OpenAI-shaped error body.
func AbortWithError(c *gin.Context, statusCode int, err error) {
	logger := gmw.GetLogger(c)
	if statusCode < 500 {
		logger.Warn("server abort",
			zap.Int("status_code", statusCode),
			zap.Error(err))
	} else {
		logger.Error("server abort",
			zap.Int("status_code", statusCode),
			zap.Error(err))
	}

	c.JSON(statusCode, gin.H{
		"error": relaymodel.Error{
			Message: helper.MessageWithRequestId(err.Error(), c.GetString(helper.RequestIdKey)),
			Type:    errorTypeBridge,
			Code:    statusCode,
		},
	})
	c.Abort()
}

// bearerToken extracts the credential of an `Authorization: Bearer <key>`
// header. ok is false when the header is missing or not a bearer header.
func bearerToken(c *gin.Context) (token string, ok bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	return strings.TrimSpace(token), true
}
