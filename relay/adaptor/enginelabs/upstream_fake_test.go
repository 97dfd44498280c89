package enginelabs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/golang-jwt/jwt"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/e2bridge/e2bridge/common/logger"
	relaymodel "github.com/e2bridge/e2bridge/relay/model"
)

const (
	testSessionID = "sess_test"
	testOrgID     = "org_test"
	testCookie    = "__session=abc; __client=def"
	testSubject   = "user_2test"
)

func signedTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-our-key"))
	require.NoError(t, err)
	return tok
}

// fakeUpstream serves the identity provider, the trigger endpoint and the
// event channel from one httptest server.
type fakeUpstream struct {
	srv *httptest.Server

	mu sync.Mutex
	// tokenBody is the raw token endpoint response; tokenStatus its status.
	tokenBody   string
	tokenStatus int
	tokenForms  []string
	cookies     []string

	triggerStatus int
	triggers      []TriggerRequest

	// frames are written to every event channel, in order, before it is closed.
	frames      []string
	holdChannel bool
	channelURLs []string
	channelDone chan struct{}
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{
		tokenStatus:   http.StatusOK,
		triggerStatus: http.StatusOK,
		channelDone:   make(chan struct{}, 16),
	}
	f.tokenBody = `{"jwt":"` + signedTestToken(t, jwt.MapClaims{"sub": testSubject}) + `"}`

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/client/sessions/{session}/tokens", f.handleToken)
	mux.HandleFunc("POST /engine-agent/chat", f.handleTrigger)
	mux.HandleFunc("GET /engine-agent/chat-histories/{handle}/buffer/stream", f.handleChannel)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeUpstream) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("session") != testSessionID || r.URL.Query().Get("__clerk_api_version") == "" {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.tokenForms = append(f.tokenForms, string(body))
	f.cookies = append(f.cookies, r.Header.Get("Cookie"))
	status, respBody := f.tokenStatus, f.tokenBody
	f.mu.Unlock()

	w.WriteHeader(status)
	_, _ = io.WriteString(w, respBody)
}

func (f *fakeUpstream) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		http.Error(w, "missing bearer", http.StatusUnauthorized)
		return
	}
	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.triggers = append(f.triggers, req)
	status := f.triggerStatus
	f.mu.Unlock()

	w.WriteHeader(status)
	_, _ = io.WriteString(w, `{"ok":true}`)
}

func (f *fakeUpstream) handleChannel(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() {
		_ = conn.Close()
		select {
		case f.channelDone <- struct{}{}:
		default:
		}
	}()

	f.mu.Lock()
	f.channelURLs = append(f.channelURLs, r.URL.String())
	frames := append([]string(nil), f.frames...)
	hold := f.holdChannel
	f.mu.Unlock()

	for _, frame := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			return
		}
	}
	if hold {
		// block until the client hangs up
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

func (f *fakeUpstream) options() Options {
	base := f.srv.URL
	return Options{
		Cookie:          testCookie,
		SessionID:       testSessionID,
		OrganizationID:  testOrgID,
		ClerkBaseURL:    base,
		ClerkAPIVersion: "2025-04-10",
		APIBaseURL:      base,
		StreamBaseURL:   "ws" + strings.TrimPrefix(base, "http"),
		Origin:          "https://cto.new",
		DefaultModel:    "ClaudeSonnet4_5",
		KnownModels:     []string{"ClaudeSonnet4_5", "GPT5"},
		AppName:         "e2bridge",
		RequestTimeout:  10 * time.Second,
		HTTPClient:      f.srv.Client(),
		Logger:          logger.Logger,
	}
}

func (f *fakeUpstream) triggerRequests() []TriggerRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]TriggerRequest(nil), f.triggers...)
}

func (f *fakeUpstream) mints() (forms, cookies []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokenForms...), append([]string(nil), f.cookies...)
}

func (f *fakeUpstream) setFrames(frames ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = frames
}

// scriptedChannel replays frames and then fails with err (or blocks until
// closed when block is set).
type scriptedChannel struct {
	mu     sync.Mutex
	frames []string
	err    error
	block  bool
	closed chan struct{}
	once   sync.Once
}

func newScriptedChannel(frames ...string) *scriptedChannel {
	return &scriptedChannel{
		frames: frames,
		err:    newError(KindChannel, errors.New("channel closed by upstream")),
		closed: make(chan struct{}),
	}
}

func (c *scriptedChannel) Recv() ([]byte, error) {
	c.mu.Lock()
	if len(c.frames) > 0 {
		frame := c.frames[0]
		c.frames = c.frames[1:]
		c.mu.Unlock()
		return []byte(frame), nil
	}
	block := c.block
	c.mu.Unlock()

	if block {
		<-c.closed
		return nil, newError(KindChannel, errors.New("use of closed connection"))
	}
	return nil, c.err
}

func (c *scriptedChannel) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *scriptedChannel) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// scriptedDialer hands out one scripted channel per Dial and closes it when
// the dial context ends, like the websocket dialer does.
type scriptedDialer struct {
	mu       sync.Mutex
	channels []*scriptedChannel
	dials    []string
	err      error
}

func (d *scriptedDialer) Dial(ctx context.Context, handle, subject string) (Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials = append(d.dials, handle+"|"+subject)
	if d.err != nil {
		return nil, d.err
	}
	if len(d.channels) == 0 {
		return nil, newError(KindChannel, errors.New("no scripted channel left"))
	}
	ch := d.channels[0]
	d.channels = d.channels[1:]
	context.AfterFunc(ctx, func() { _ = ch.Close() })
	return ch, nil
}

func (d *scriptedDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dials)
}

func stateFrame(inProgress bool) string {
	if inProgress {
		return `{"type":"state","state":{"inProgress":true}}`
	}
	return `{"type":"state","state":{"inProgress":false}}`
}

func chatFrame(content string) string {
	buffer, _ := json.Marshal(map[string]any{"type": "chat", "chat": map[string]any{"content": content}})
	frame, _ := json.Marshal(map[string]any{"type": "update", "buffer": string(buffer)})
	return string(frame)
}

func collect(t *testing.T, stream *Stream) []*relaymodel.ChatCompletionsStreamResponse {
	t.Helper()
	var chunks []*relaymodel.ChatCompletionsStreamResponse
	timeout := time.After(10 * time.Second)
	for {
		select {
		case chunk, ok := <-stream.Chunks:
			if !ok {
				return chunks
			}
			chunks = append(chunks, chunk)
		case <-timeout:
			t.Fatalf("stream did not terminate, got %d chunks", len(chunks))
		}
	}
}

func contents(chunks []*relaymodel.ChatCompletionsStreamResponse) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.Content())
	}
	return out
}

func requireSingleTerminal(t *testing.T, chunks []*relaymodel.ChatCompletionsStreamResponse) {
	t.Helper()
	require.NotEmpty(t, chunks)
	last := chunks[len(chunks)-1]
	require.Equal(t, relaymodel.FinishReasonStop, last.FinishReason())
	require.Equal(t, "", last.Content())

	terminals := 0
	for _, c := range chunks {
		if c.FinishReason() == relaymodel.FinishReasonStop && c.Content() == "" {
			terminals++
		}
	}
	require.Equal(t, 1, terminals, "exactly one empty stop chunk")
}

func userMessages(contents ...string) []relaymodel.Message {
	msgs := make([]relaymodel.Message, 0, len(contents))
	for i, c := range contents {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		msgs = append(msgs, relaymodel.Message{Role: role, Content: c})
	}
	return msgs
}
