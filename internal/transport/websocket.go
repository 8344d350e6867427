/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package transport

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/karanwg/draWG/internal/game"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendQueue  = 64

	// drawings travel as data URLs, so frames can be large
	DefaultMaxMessageBytes   = 4 << 20
	DefaultMessagesPerSecond = 10
	defaultBurst             = 20
)

// Listener accepts participant WebSocket channels and hands them to the
// room they name.
type Listener struct {
	rooms    *Registry
	log      zerolog.Logger
	readMax  int64
	perSec   rate.Limit
	burst    int
	upgrader websocket.Upgrader
}

type ListenerOption func(*Listener)

func WithListenerLogger(log zerolog.Logger) ListenerOption {
	return func(l *Listener) { l.log = log }
}

// WithReadLimit caps the size of a single inbound frame.
func WithReadLimit(n int64) ListenerOption {
	return func(l *Listener) { l.readMax = n }
}

// WithRateLimit caps how many envelopes per second one channel may send.
// Excess envelopes are dropped.
func WithRateLimit(perSecond float64, burst int) ListenerOption {
	return func(l *Listener) {
		l.perSec = rate.Limit(perSecond)
		l.burst = burst
	}
}

func NewListener(rooms *Registry, opts ...ListenerOption) *Listener {
	l := &Listener{
		rooms:   rooms,
		log:     zerolog.Nop(),
		readMax: DefaultMaxMessageBytes,
		perSec:  DefaultMessagesPerSecond,
		burst:   defaultBurst,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Routes registers the channel endpoint under prefix.
func (l *Listener) Routes(prefix string, mux *httprouter.Router) {
	mux.GET(prefix+"/rooms/:code/ws", l.ServeWS())
}

func (l *Listener) ServeWS() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := game.NormalizeRoomCode(ps.ByName("code"))

		id := r.URL.Query().Get("id")
		if _, err := uuid.Parse(id); err != nil {
			http.Error(w, "missing or invalid player id", http.StatusBadRequest)
			return
		}

		hub, err := l.rooms.claim(code, id)
		switch {
		case errors.Is(err, ErrRoomNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		defer l.rooms.release(code, id)

		conn, err := l.upgrader.Upgrade(w, r, nil)
		if err != nil {
			l.log.Debug().Err(err).Str("room", code).Msg("SERVE: upgrade failed")
			return
		}

		c := &client{
			id:      id,
			conn:    conn,
			send:    make(chan []byte, sendQueue),
			done:    make(chan struct{}),
			limiter: rate.NewLimiter(l.perSec, l.burst),
			log:     l.log.With().Str("room", code).Str("peer", id).Logger(),
		}
		conn.SetReadLimit(l.readMax)

		c.log.Info().Str("ip", r.RemoteAddr).Msg("SERVE: channel open")

		hub.Connect(c)

		go c.writePump()
		c.readPump(hub)

		c.log.Info().Msg("SERVE: channel closed")
	}
}

// client is the host's end of one WebSocket channel.
type client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
	log     zerolog.Logger
}

func (c *client) ID() string {
	return c.id
}

// Send queues env without blocking. A participant that cannot keep up is
// disconnected instead of stalling the room.
func (c *client) Send(env game.Envelope) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	data, err := game.MarshalEnvelope(env)
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.Close()
		return ErrSlowConsumer
	}
}

func (c *client) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *client) readPump(hub Hub) {
	defer func() {
		hub.Disconnect(c.id)
		c.Close()
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		if !c.limiter.Allow() {
			c.log.Debug().Msg("SERVE: rate limited, dropped message")
			continue
		}

		env, err := game.UnmarshalEnvelope(data)
		if err != nil {
			c.log.Debug().Err(err).Msg("SERVE: dropped message")
			continue
		}

		hub.Deliver(c.id, env)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.flush()
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "room closed"))
			return
		}
	}
}

// flush writes whatever was queued before the channel was closed.
func (c *client) flush() {
	for {
		select {
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *client) write(messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}
