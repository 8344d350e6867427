/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/karanwg/draWG/internal/game"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrDuplicateID  = errors.New("player id already connected to this room")
	ErrSlowConsumer = errors.New("send queue full")
	ErrClosed       = errors.New("channel closed")
)

// Hub is the host side of a room as the transport sees it. *game.Host
// satisfies it.
type Hub interface {
	Code() string
	ID() string
	Connect(game.Peer)
	Disconnect(id string)
	Deliver(id string, env game.Envelope)
	Done() <-chan struct{}
}

// Channel is a participant's open channel to a host.
type Channel interface {
	game.Sender
	ID() string
	Listen(ctx context.Context, handle func(game.Envelope)) error
	Close()
}

type room struct {
	hub Hub
	ids map[string]struct{}
}

// Registry maps room codes to running hosts and tracks which participant ids
// hold a channel to each of them.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*room
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*room),
	}
}

// Add makes hub reachable under its room code until it stops. The hosting
// player's id is claimed up front so no participant can connect under it.
func (r *Registry) Add(hub Hub) {
	code := hub.Code()

	r.mu.Lock()
	r.rooms[code] = &room{
		hub: hub,
		ids: map[string]struct{}{hub.ID(): {}},
	}
	r.mu.Unlock()

	go func() {
		<-hub.Done()
		r.remove(code, hub)
	}()
}

// Lookup returns the running hub for code.
func (r *Registry) Lookup(code string) (Hub, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[game.NormalizeRoomCode(code)]
	if !ok {
		return nil, false
	}
	return rm.hub, true
}

// Len is the number of open rooms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.rooms)
}

func (r *Registry) remove(code string, hub Hub) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rm, ok := r.rooms[code]; ok && rm.hub == hub {
		delete(r.rooms, code)
	}
}

func (r *Registry) claim(code, id string) (Hub, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[game.NormalizeRoomCode(code)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if _, taken := rm.ids[id]; taken {
		return nil, ErrDuplicateID
	}
	rm.ids[id] = struct{}{}
	return rm.hub, nil
}

func (r *Registry) release(code, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rm, ok := r.rooms[game.NormalizeRoomCode(code)]; ok {
		delete(rm.ids, id)
	}
}
