package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"

	"github.com/e2bridge/e2bridge/common/config"
	"github.com/e2bridge/e2bridge/common/graceful"
	"github.com/e2bridge/e2bridge/common/logger"
	"github.com/e2bridge/e2bridge/controller"
	"github.com/e2bridge/e2bridge/middleware"
	"github.com/e2bridge/e2bridge/relay/adaptor/enginelabs"
	"github.com/e2bridge/e2bridge/router"
)

func main() {
	logger.SetupLogger()
	logger.Logger.Info("e2bridge started",
		zap.String("app", config.AppName),
		zap.String("version", config.AppVersion))

	if config.GinMode != gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	bridge, err := enginelabs.NewBridge(enginelabs.OptionsFromConfig())
	if err != nil {
		logger.Logger.Fatal("invalid configuration", zap.Error(err))
	}
	logger.Logger.Info("upstream configured",
		zap.String("api", config.EngineAPIBaseURL),
		zap.String("stream", config.EngineStreamBaseURL),
		zap.String("default_model", config.DefaultModel),
		zap.Strings("models", config.KnownModels),
		zap.Bool("master_key", config.APIMasterKey != ""))

	// Initialize HTTP server
	server := gin.New()
	server.RedirectTrailingSlash = false
	server.Use(
		gin.Recovery(),
		gmw.NewLoggerMiddleware(
			gmw.WithLoggerMwColored(),
			gmw.WithLevel(logger.Level().String()),
			gmw.WithLogger(logger.Logger.Named("gin")),
		),
	)
	// gzip would buffer SSE frames, keep it off
	server.Use(middleware.RequestId())
	server.Use(middleware.CORS())

	router.SetRouter(server, controller.New(bridge, config.AppName, config.AppVersion))
	if config.EnablePrometheusMetrics {
		logger.Logger.Info("Prometheus metrics endpoint available at /metrics")
	}

	srv := &http.Server{
		Addr:              ":" + config.ServerPort,
		Handler:           server,
		ReadHeaderTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Logger.Info("server started", zap.String("address", "http://localhost:"+config.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Logger.Info("shutdown signal received, draining in-flight streams",
		zap.Int64("in_flight", graceful.InFlight()))
	graceful.SetDraining()

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(config.ShutdownTimeoutSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Warn("streams still open at shutdown deadline, closing them", zap.Error(err))
		// cancels the request contexts, which closes the upstream channels
		_ = srv.Close()
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelDrain()
	if err := graceful.Drain(drainCtx); err != nil {
		logger.Logger.Error("in-flight requests did not drain", zap.Error(err))
	}
	logger.Logger.Info("server exited")
}
