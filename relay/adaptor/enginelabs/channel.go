package enginelabs

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/gorilla/websocket"
)

// Channel is an open upstream event channel.
type Channel interface {
	// Recv blocks until the next message arrives or the channel fails.
	Recv() ([]byte, error)
	Close() error
}

// Dialer opens the event channel of one conversation.
type Dialer interface {
	Dial(ctx context.Context, handle, subject string) (Channel, error)
}

// WebsocketDialer opens event channels over WebSocket.
type WebsocketDialer struct {
	baseURL string
	origin  string
	dialer  *websocket.Dialer
}

func NewWebsocketDialer(baseURL, origin string) *WebsocketDialer {
	return &WebsocketDialer{
		baseURL: baseURL,
		origin:  origin,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// StreamURL returns the channel address for handle, authenticated by subject.
func (d *WebsocketDialer) StreamURL(handle, subject string) (string, error) {
	u, err := url.Parse(d.baseURL)
	if err != nil {
		return "", errors.Wrap(err, "parse stream base url")
	}
	u = u.JoinPath("engine-agent", "chat-histories", handle, "buffer", "stream")
	u.RawQuery = url.Values{"token": {subject}}.Encode()
	return u.String(), nil
}

// Dial connects to the channel. The connection is closed when ctx is done,
// which unblocks a pending Recv.
func (d *WebsocketDialer) Dial(ctx context.Context, handle, subject string) (Channel, error) {
	if subject == "" {
		return nil, newError(KindChannel, errors.New("access token carries no subject, cannot address event channel"))
	}
	streamURL, err := d.StreamURL(handle, subject)
	if err != nil {
		return nil, newError(KindChannel, err)
	}

	header := http.Header{}
	header.Set("Origin", d.origin)

	conn, resp, err := d.dialer.DialContext(ctx, streamURL, header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return nil, newError(KindChannel, errors.Wrapf(err, "dial event channel, status %d", resp.StatusCode))
		}
		return nil, newError(KindChannel, errors.Wrap(err, "dial event channel"))
	}

	ch := &websocketChannel{conn: conn}
	stop := context.AfterFunc(ctx, func() { _ = ch.closeConn() })
	ch.mu.Lock()
	ch.stop = stop
	ch.mu.Unlock()
	return ch, nil
}

type websocketChannel struct {
	conn *websocket.Conn

	mu   sync.Mutex
	stop func() bool

	closeOnce sync.Once
	closeErr  error
}

// Recv returns the next data frame; control frames are handled by the connection.
func (c *websocketChannel) Recv() ([]byte, error) {
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		return nil, newError(KindChannel, errors.Wrap(err, "read event channel"))
	}
	return msg, nil
}

func (c *websocketChannel) Close() error {
	c.mu.Lock()
	stop := c.stop
	c.mu.Unlock()
	if stop != nil {
		stop()
	}
	return c.closeConn()
}

func (c *websocketChannel) closeConn() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
