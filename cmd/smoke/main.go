// Command smoke drives a running bridge with a two-turn streaming conversation
// per model and checks the OpenAI streaming contract of each reply.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/Laisky/errors/v2"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"
	_ "github.com/joho/godotenv/autoload"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger, err := glog.NewConsoleWithName("e2bridge-smoke", glog.LevelInfo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %+v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("smoke run failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("all models passed")
}

func run(ctx context.Context, logger glog.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	logger.Info("starting bridge smoke run",
		zap.String("base_url", cfg.APIBase),
		zap.Strings("models", cfg.Models),
		zap.Int("concurrency", cfg.Concurrency))

	results := sweep(ctx, &http.Client{Timeout: 5 * time.Minute}, cfg, logger)
	if failed := renderReport(os.Stdout, results); failed > 0 {
		return errors.Errorf("%d of %d streams failed", failed, len(results))
	}
	return nil
}

// sweep runs one conversation per model, at most cfg.Concurrency at a time.
func sweep(ctx context.Context, client *http.Client, cfg config, logger glog.Logger) []testResult {
	var (
		mu      sync.Mutex
		results = make([]testResult, 0, len(cfg.Models))
	)

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(cfg.Concurrency)
	for _, model := range cfg.Models {
		grp.Go(func() error {
			turns := conversation(grpCtx, client, cfg, model)
			for _, res := range turns {
				if res.Success {
					logger.Info("stream succeeded",
						zap.String("model", res.Model),
						zap.Int("turn", res.Turn),
						zap.Int("chunks", res.Chunks),
						zap.Duration("duration", res.Duration))
				} else {
					logger.Warn("stream failed",
						zap.String("model", res.Model),
						zap.Int("turn", res.Turn),
						zap.Int("status", res.StatusCode),
						zap.String("error", res.Error))
				}
			}

			mu.Lock()
			results = append(results, turns...)
			mu.Unlock()
			return nil
		})
	}
	_ = grp.Wait()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Model != results[j].Model {
			return results[i].Model < results[j].Model
		}
		return results[i].Turn < results[j].Turn
	})
	return results
}
