package enginelabs

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/Laisky/errors/v2"
)

const triggerPath = "/engine-agent/chat"

// TriggerRequest starts generation of one assistant turn upstream.
type TriggerRequest struct {
	Prompt        string `json:"prompt"`
	ChatHistoryID string `json:"chatHistoryId"`
	AdapterName   string `json:"adapterName"`
}

// Upstream issues trigger calls against the chat engine.
type Upstream struct {
	chatURL    string
	origin     string
	httpClient *http.Client
}

func NewUpstream(opts Options) *Upstream {
	return &Upstream{
		chatURL:    opts.APIBaseURL + triggerPath,
		origin:     opts.Origin,
		httpClient: opts.HTTPClient,
	}
}

// Trigger posts the newest user turn. The success body is ignored; any
// transport failure or non-2xx status is a KindUpstreamTriggerFailed error.
func (u *Upstream) Trigger(ctx context.Context, token *AccessToken, payload TriggerRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return newError(KindUpstreamTriggerFailed, errors.Wrap(err, "marshal trigger request"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.chatURL, bytes.NewReader(body))
	if err != nil {
		return newError(KindUpstreamTriggerFailed, errors.Wrap(err, "new trigger request"))
	}
	req.Header.Set("Authorization", "Bearer "+token.Raw)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", u.origin)
	req.Header.Set("Referer", u.origin+"/"+payload.ChatHistoryID)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return newError(KindUpstreamTriggerFailed, errors.Wrap(err, "send trigger request"))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return newError(KindUpstreamTriggerFailed,
			errors.Errorf("trigger returned status %d: %s", resp.StatusCode, string(snippet)))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxTokenResponseSize))
	return nil
}
