package enginelabs

import (
	"net/http"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/go-playground/validator/v10"

	"github.com/e2bridge/e2bridge/common/client"
	"github.com/e2bridge/e2bridge/common/config"
	"github.com/e2bridge/e2bridge/common/logger"
)

// Options configures a Bridge. Zero values of optional fields are filled from
// package defaults by NewBridge.
type Options struct {
	// Cookie is the long-lived session credential.
	Cookie         string `validate:"required"`
	SessionID      string `validate:"required"`
	OrganizationID string `validate:"required"`

	ClerkBaseURL    string `validate:"required,url"`
	ClerkAPIVersion string `validate:"required"`
	APIBaseURL      string `validate:"required,url"`
	StreamBaseURL   string `validate:"required,url"`
	Origin          string `validate:"required,url"`

	DefaultModel string   `validate:"required"`
	KnownModels  []string `validate:"min=1,dive,required"`
	AppName      string

	// RequestTimeout bounds one whole chat completion. Zero disables the ceiling.
	RequestTimeout time.Duration `validate:"min=0"`

	HTTPClient *http.Client       `validate:"-"`
	Dialer     Dialer             `validate:"-"`
	Cache      *ConversationCache `validate:"-"`
	Logger     glog.Logger        `validate:"-"`
}

// OptionsFromConfig builds Options from the process configuration.
func OptionsFromConfig() Options {
	return Options{
		Cookie:          config.ClerkCookie,
		SessionID:       config.ClerkSessionID,
		OrganizationID:  config.ClerkOrganizationID,
		ClerkBaseURL:    config.ClerkBaseURL,
		ClerkAPIVersion: config.ClerkAPIVersion,
		APIBaseURL:      config.EngineAPIBaseURL,
		StreamBaseURL:   config.EngineStreamBaseURL,
		Origin:          config.EngineOrigin,
		DefaultModel:    config.DefaultModel,
		KnownModels:     config.KnownModels,
		AppName:         config.AppName,
		RequestTimeout:  config.RequestTimeout,
	}
}

var validate = validator.New()

// fillDefaults sets optional collaborators and validates opts. Any failure is a
// KindConfiguration error.
func (opts *Options) fillDefaults() error {
	if opts.HTTPClient == nil {
		opts.HTTPClient = client.HTTPClient
	}
	if opts.Logger == nil {
		opts.Logger = logger.Logger
	}
	if opts.Dialer == nil {
		opts.Dialer = NewWebsocketDialer(opts.StreamBaseURL, opts.Origin)
	}
	if opts.Cache == nil {
		opts.Cache = NewConversationCache()
	}
	if opts.AppName == "" {
		opts.AppName = "e2bridge"
	}

	for _, required := range []struct{ env, value string }{
		{"CLERK_COOKIE", opts.Cookie},
		{"CLERK_SESSION_ID", opts.SessionID},
		{"CLERK_ORGANIZATION_ID", opts.OrganizationID},
	} {
		if strings.TrimSpace(required.value) == "" {
			return newError(KindConfiguration, errors.Errorf("%s must be set", required.env))
		}
	}

	if err := validate.Struct(opts); err != nil {
		return newError(KindConfiguration, errors.Wrap(err, "invalid bridge options"))
	}
	return nil
}
