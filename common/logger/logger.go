package logger

import (
	"fmt"
	"os"
	"sync"

	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"

	"github.com/e2bridge/e2bridge/common/config"
)

var (
	Logger       glog.Logger
	setupLogOnce sync.Once
	initLogOnce  sync.Once
)

// init initializes the logger automatically when the package is imported
func init() {
	initLogger()
}

func initLogger() {
	initLogOnce.Do(func() {
		var err error
		Logger, err = glog.NewConsoleWithName(config.AppName, Level())
		if err != nil {
			panic(fmt.Sprintf("failed to create logger: %+v", err))
		}
	})
}

// Level returns the configured log level.
func Level() glog.Level {
	if config.DebugEnabled {
		return glog.LevelDebug
	}
	return glog.LevelInfo
}

// SetupLogger decorates the process logger with host and version context.
// It is safe to call more than once; only the first call has an effect.
func SetupLogger() {
	setupLogOnce.Do(func() {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}

		Logger = Logger.With(
			zap.String("host", hostname),
			zap.String("version", config.AppVersion),
		)

		if config.DebugEnabled {
			_ = Logger.ChangeLevel("debug")
			Logger.Info("running in debug mode")
		}
	})
}
