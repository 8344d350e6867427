/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/karanwg/draWG/internal/game"
	"github.com/rs/zerolog"
)

// WSConn is a participant's WebSocket channel to a host.
type WSConn struct {
	id   string
	ws   *websocket.Conn
	log  zerolog.Logger
	mu   sync.Mutex
	once sync.Once
}

type DialOption func(*dialOptions)

type dialOptions struct {
	log    zerolog.Logger
	dialer *websocket.Dialer
}

func WithDialLogger(log zerolog.Logger) DialOption {
	return func(o *dialOptions) { o.log = log }
}

func WithDialer(d *websocket.Dialer) DialOption {
	return func(o *dialOptions) { o.dialer = d }
}

// Dial opens a channel to room code on the server at baseURL. An empty id
// gets a fresh one.
func Dial(ctx context.Context, baseURL, code, id string, opts ...DialOption) (*WSConn, error) {
	o := dialOptions{
		log:    zerolog.Nop(),
		dialer: websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if id == "" {
		id = uuid.NewString()
	}

	target, err := roomURL(baseURL, game.NormalizeRoomCode(code), id)
	if err != nil {
		return nil, err
	}

	ws, resp, err := o.dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			switch resp.StatusCode {
			case http.StatusNotFound:
				return nil, ErrRoomNotFound
			case http.StatusConflict:
				return nil, ErrDuplicateID
			}
		}
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}

	return &WSConn{
		id:  id,
		ws:  ws,
		log: o.log.With().Str("room", code).Str("player", id).Logger(),
	}, nil
}

func roomURL(baseURL, code, id string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid host url %q: %w", baseURL, err)
	}
	switch u.Scheme {
	case "http", "ws", "":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid host url %q: unsupported scheme %q", baseURL, u.Scheme)
	}
	u.Path += "/rooms/" + url.PathEscape(code) + "/ws"
	u.RawQuery = url.Values{"id": {id}}.Encode()
	return u.String(), nil
}

func (c *WSConn) ID() string {
	return c.id
}

// Send writes one envelope. Safe for concurrent use.
func (c *WSConn) Send(env game.Envelope) error {
	data, err := game.MarshalEnvelope(env)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Listen hands every envelope from the host to handle until the channel
// closes. A channel closed from the far side reports game.ErrRoomClosed.
func (c *WSConn) Listen(ctx context.Context, handle func(game.Envelope)) error {
	stop := context.AfterFunc(ctx, c.Close)
	defer stop()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Debug().Err(err).Msg("CLIENT: channel closed")
			return game.ErrRoomClosed
		}

		env, err := game.UnmarshalEnvelope(data)
		if err != nil {
			c.log.Debug().Err(err).Msg("CLIENT: dropped message")
			continue
		}
		handle(env)
	}
}

// Close says goodbye to the host and drops the connection.
func (c *WSConn) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		_ = c.ws.SetWriteDeadline(time.Now().Add(time.Second))
		_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.mu.Unlock()
		_ = c.ws.Close()
	})
}
