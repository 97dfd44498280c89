package enginelabs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Laisky/errors/v2"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"
	"github.com/golang-jwt/jwt"

	"github.com/e2bridge/e2bridge/monitor"
)

const maxTokenResponseSize = 1 << 20

// AccessToken is a short-lived bearer token minted for one request.
type AccessToken struct {
	Raw string
	// Subject is the `sub` claim, used to address the event channel.
	// It is empty when the token payload could not be decoded.
	Subject string
}

// CredentialManager exchanges the long-lived session credential for a fresh
// access token. Tokens are never cached: every call performs one exchange.
type CredentialManager struct {
	cookie         string
	organizationID string
	tokenURL       string
	origin         string
	httpClient     *http.Client
	logger         glog.Logger
}

// NewCredentialManager builds a manager from validated options.
func NewCredentialManager(opts Options) (*CredentialManager, error) {
	if strings.TrimSpace(opts.Cookie) == "" {
		return nil, newError(KindConfiguration, errors.New("session credential must not be empty"))
	}

	tokenURL, err := url.Parse(opts.ClerkBaseURL)
	if err != nil {
		return nil, newError(KindConfiguration, errors.Wrap(err, "parse clerk base url"))
	}
	tokenURL = tokenURL.JoinPath("v1", "client", "sessions", opts.SessionID, "tokens")
	tokenURL.RawQuery = url.Values{"__clerk_api_version": {opts.ClerkAPIVersion}}.Encode()

	return &CredentialManager{
		cookie:         strings.TrimSpace(opts.Cookie),
		organizationID: strings.TrimSpace(opts.OrganizationID),
		tokenURL:       tokenURL.String(),
		origin:         opts.Origin,
		httpClient:     opts.HTTPClient,
		logger:         opts.Logger,
	}, nil
}

type tokenResponse struct {
	JWT string `json:"jwt"`
}

// Mint performs one token exchange. Every failure (transport, non-2xx status,
// unreadable body or missing `jwt` field) is a KindAuthenticationFailed error.
// No retry is attempted.
func (m *CredentialManager) Mint(ctx context.Context) (*AccessToken, error) {
	raw, err := m.exchange(ctx)
	monitor.RecordTokenMint(err == nil)
	if err != nil {
		m.logger.Error("failed to mint access token", zap.Error(err))
		return nil, newError(KindAuthenticationFailed, err)
	}

	subject, err := decodeSubject(raw)
	if err != nil {
		// the relay fails downstream when the subject is missing
		m.logger.Warn("failed to decode access token payload", zap.Error(err))
	}

	m.logger.Debug("minted access token", zap.Bool("has_subject", subject != ""))
	return &AccessToken{Raw: raw, Subject: subject}, nil
}

func (m *CredentialManager) exchange(ctx context.Context) (string, error) {
	form := url.Values{"organization_id": {m.organizationID}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "new token request")
	}
	req.Header.Set("Cookie", m.cookie)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", m.origin)
	req.Header.Set("Referer", m.origin+"/")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "request token")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	if err != nil {
		return "", errors.Wrap(err, "read token response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.Errorf("token endpoint returned status %d: %s", resp.StatusCode, truncate(string(body), 256))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", errors.Wrap(err, "decode token response")
	}
	if tr.JWT == "" {
		return "", errors.New("missing 'jwt' field in token response")
	}
	return tr.JWT, nil
}

// decodeSubject reads the `sub` claim without verifying the signature; this
// bridge is not the token's trust boundary.
func decodeSubject(raw string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(raw, claims); err != nil {
		return "", errors.Wrap(err, "parse token")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", errors.New("token has no sub claim")
	}
	return sub, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
