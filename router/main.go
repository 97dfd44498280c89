package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/e2bridge/e2bridge/common/config"
	"github.com/e2bridge/e2bridge/controller"
	"github.com/e2bridge/e2bridge/middleware"
)

// SetRouter mounts every route of the bridge on server.
func SetRouter(server *gin.Engine, ctl *controller.Controller) {
	server.GET("/", ctl.GetStatus)
	if config.EnablePrometheusMetrics {
		server.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	SetRelayRouter(server, ctl)
}

func SetRelayRouter(server *gin.Engine, ctl *controller.Controller) {
	v1 := server.Group("/v1")
	v1.Use(
		middleware.RelayPanicRecover(),
		middleware.GracefulTracker(),
		middleware.MasterKeyAuth(config.APIMasterKey),
	)
	{
		v1.GET("/models", ctl.ListModels)
		v1.POST("/chat/completions", ctl.ChatCompletions)
	}
}
