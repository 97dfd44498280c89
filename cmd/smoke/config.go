package main

import (
	"strings"

	"github.com/Laisky/errors/v2"

	cfg "github.com/e2bridge/e2bridge/common/config"
	"github.com/e2bridge/e2bridge/common/env"
)

const (
	defaultAPIBase      = "http://localhost:8000"
	defaultPrompt       = "Reply with the single word: pong"
	followUpPrompt      = "Now repeat your previous answer in upper case"
	maxResponseBodySize = 1 << 20 // 1 MiB
)

// config captures the harness configuration derived from environment variables.
type config struct {
	APIBase     string
	APIKey      string
	Models      []string
	Prompt      string
	Concurrency int
}

func loadConfig() (config, error) {
	c := config{
		APIBase:     strings.TrimSuffix(strings.TrimSpace(env.String("E2B_API_BASE", defaultAPIBase)), "/"),
		APIKey:      strings.TrimSpace(env.String("E2B_API_KEY", "")),
		Models:      env.StringSlice("E2B_MODELS", cfg.KnownModels),
		Prompt:      env.String("E2B_PROMPT", defaultPrompt),
		Concurrency: env.Int("E2B_CONCURRENCY", 4),
	}
	if c.APIBase == "" {
		return config{}, errors.New("E2B_API_BASE must not be blank")
	}
	if len(c.Models) == 0 {
		return config{}, errors.New("E2B_MODELS must name at least one model")
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	return c, nil
}
