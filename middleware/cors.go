package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/e2bridge/e2bridge/common/helper"
)

// CORS lets browser-based OpenAI clients call the bridge directly.
func CORS() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "Accept", "OpenAI-Organization", "OpenAI-Beta"}
	cfg.ExposeHeaders = []string{helper.RequestIdKey}
	cfg.MaxAge = 12 * time.Hour
	return cors.New(cfg)
}
