/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package transport

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/karanwg/draWG/internal/game"
)

// MemoryConn is an in-process channel to a host, for tests and local play.
type MemoryConn struct {
	id     string
	code   string
	hub    Hub
	rooms  *Registry
	in     chan game.Envelope
	closed chan struct{}
	once   sync.Once
}

// Dial opens an in-process channel to room code. An empty id gets a fresh one.
func (r *Registry) Dial(code, id string) (*MemoryConn, error) {
	if id == "" {
		id = uuid.NewString()
	}
	hub, err := r.claim(code, id)
	if err != nil {
		return nil, err
	}

	c := &MemoryConn{
		id:     id,
		code:   code,
		hub:    hub,
		rooms:  r,
		in:     make(chan game.Envelope, sendQueue),
		closed: make(chan struct{}),
	}
	hub.Connect(memoryPeer{c})
	return c, nil
}

func (c *MemoryConn) ID() string {
	return c.id
}

func (c *MemoryConn) Send(env game.Envelope) error {
	select {
	case <-c.closed:
		return game.ErrRoomClosed
	default:
	}
	c.hub.Deliver(c.id, env)
	return nil
}

// Listen delivers envelopes from the host in order until the channel closes.
// Anything already queued when the host goes away is still delivered.
func (c *MemoryConn) Listen(ctx context.Context, handle func(game.Envelope)) error {
	for {
		select {
		case env := <-c.in:
			handle(env)
		case <-c.closed:
			for {
				select {
				case env := <-c.in:
					handle(env)
				default:
					return game.ErrRoomClosed
				}
			}
		case <-ctx.Done():
			c.Close()
			return ctx.Err()
		}
	}
}

// Close leaves the room.
func (c *MemoryConn) Close() {
	if c.shut() {
		c.hub.Disconnect(c.id)
		c.rooms.release(c.code, c.id)
	}
}

func (c *MemoryConn) shut() bool {
	first := false
	c.once.Do(func() {
		close(c.closed)
		first = true
	})
	return first
}

// memoryPeer is the host's end of a MemoryConn.
type memoryPeer struct {
	c *MemoryConn
}

func (p memoryPeer) ID() string {
	return p.c.id
}

func (p memoryPeer) Send(env game.Envelope) error {
	select {
	case <-p.c.closed:
		return ErrClosed
	default:
	}
	select {
	case p.c.in <- env:
		return nil
	default:
		p.Close()
		return ErrSlowConsumer
	}
}

func (p memoryPeer) Close() {
	if p.c.shut() {
		p.c.rooms.release(p.c.code, p.c.id)
		// called on the host goroutine, which cannot receive its own Disconnect
		go p.c.hub.Disconnect(p.c.id)
	}
}
