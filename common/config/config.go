package config

import (
	"strings"
	"time"

	"github.com/e2bridge/e2bridge/common/env"
)

var (
	// AppName identifies the service in logs, the root status message and `owned_by` of listed models.
	AppName = env.String("APP_NAME", "e2bridge")
	// AppVersion is reported by the root status endpoint.
	AppVersion = env.String("APP_VERSION", "1.0.0")

	// ServerPort is the listen port of the HTTP front door.
	ServerPort = strings.TrimSpace(env.String("PORT", "8000"))
	// GinMode allows forcing Gin into debug mode without recompiling.
	GinMode = strings.TrimSpace(env.String("GIN_MODE", ""))

	// DebugEnabled toggles verbose structured logging when DEBUG=true.
	DebugEnabled = env.Bool("DEBUG", false)

	// ShutdownTimeoutSec bounds graceful shutdown, including the wait for in-flight streams (seconds).
	ShutdownTimeoutSec = env.Int("SHUTDOWN_TIMEOUT", 30)

	// EnablePrometheusMetrics exposes the /metrics endpoint for Prometheus scrapers when true.
	EnablePrometheusMetrics = env.Bool("ENABLE_PROMETHEUS_METRICS", true)
)

// Front door
var (
	// APIMasterKey gates /v1/* behind a bearer key. Empty disables the gate.
	APIMasterKey = strings.TrimSpace(env.String("API_MASTER_KEY", ""))
	// RequestTimeout is the ceiling for one whole chat completion, upstream calls and streaming included.
	RequestTimeout = time.Duration(env.Int("API_REQUEST_TIMEOUT", 300)) * time.Second
)

// Upstream identity provider
var (
	// ClerkCookie is the long-lived browser session credential. Required.
	ClerkCookie = strings.TrimSpace(env.String("CLERK_COOKIE", ""))
	// ClerkSessionID addresses the token endpoint of the session. Required.
	ClerkSessionID = strings.TrimSpace(env.String("CLERK_SESSION_ID", ""))
	// ClerkOrganizationID is the organization context sent with every mint. Required.
	ClerkOrganizationID = strings.TrimSpace(env.String("CLERK_ORGANIZATION_ID", ""))
	ClerkBaseURL        = strings.TrimRight(env.String("CLERK_BASE_URL", "https://clerk.cto.new"), "/")
	ClerkAPIVersion     = env.String("CLERK_API_VERSION", "2025-04-10")
)

// Upstream chat engine
var (
	EngineAPIBaseURL    = strings.TrimRight(env.String("ENGINE_API_BASE_URL", "https://api.enginelabs.ai"), "/")
	EngineStreamBaseURL = strings.TrimRight(env.String("ENGINE_STREAM_BASE_URL", "wss://api.enginelabs.ai"), "/")
	// EngineOrigin is sent as Origin/Referer on every upstream call; the upstream rejects unknown origins.
	EngineOrigin = strings.TrimRight(env.String("ENGINE_ORIGIN", "https://cto.new"), "/")
)

// Models
var (
	// DefaultModel is used when a chat completion request omits `model`.
	DefaultModel = env.String("DEFAULT_MODEL", "ClaudeSonnet4_5")
	// KnownModels is the static catalog served by /v1/models.
	KnownModels = env.StringSlice("KNOWN_MODELS", []string{"ClaudeSonnet4_5", "GPT5"})
)
