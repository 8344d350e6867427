/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrRoomClosed = errors.New("room closed")

// Peer is the host's end of one participant's channel. Send must not block
// for long; a transport that cannot deliver should drop the peer instead.
type Peer interface {
	ID() string
	Send(Envelope) error
	Close()
}

// TickerFunc starts a ticker and returns its channel and a stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func systemTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

type inbound struct {
	from string
	env  Envelope
}

type command struct {
	apply func(e *engine) (bool, error)
	reply chan error
}

// Host is the single authority for one room. Every mutation runs on the
// goroutine started by Run, one event at a time.
type Host struct {
	id       string
	code     string
	eng      *engine
	log      zerolog.Logger
	peers    map[string]Peer
	onUpdate func(GameState)

	register chan Peer
	unreg    chan string
	inbox    chan inbound
	commands chan command

	newTicker TickerFunc
	tick      <-chan time.Time
	stopTick  func()

	snapMu sync.RWMutex
	snap   GameState

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type hostOptions struct {
	roomCode string
	hostID   string
	quiz     []Question
	timing   Timing
	rng      *rand.Rand
	log      zerolog.Logger
	ticker   TickerFunc
	onUpdate func(GameState)
}

type Option func(*hostOptions)

func WithRoomCode(code string) Option {
	return func(o *hostOptions) { o.roomCode = code }
}

func WithHostID(id string) Option {
	return func(o *hostOptions) { o.hostID = id }
}

func WithQuiz(questions []Question) Option {
	return func(o *hostOptions) { o.quiz = questions }
}

func WithTiming(t Timing) Option {
	return func(o *hostOptions) { o.timing = t }
}

func WithRand(rng *rand.Rand) Option {
	return func(o *hostOptions) { o.rng = rng }
}

func WithLogger(log zerolog.Logger) Option {
	return func(o *hostOptions) { o.log = log }
}

// WithTicker replaces the per-second phase ticker, mostly for tests.
func WithTicker(fn TickerFunc) Option {
	return func(o *hostOptions) { o.ticker = fn }
}

// WithOnUpdate registers the host's local reader. It is called on the host
// goroutine after every published change with a private copy of the state.
func WithOnUpdate(fn func(GameState)) Option {
	return func(o *hostOptions) { o.onUpdate = fn }
}

// NewHost creates a room in the lobby with hostName as its hosting player.
func NewHost(hostName string, opts ...Option) *Host {
	o := hostOptions{
		quiz:   DefaultQuiz(),
		timing: DefaultTiming(),
		log:    zerolog.Nop(),
		ticker: systemTicker,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.roomCode == "" {
		o.roomCode = NewRoomCode()
	}
	if o.hostID == "" {
		o.hostID = uuid.NewString()
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	log := o.log.With().Str("room", o.roomCode).Logger()

	h := &Host{
		id:        o.hostID,
		code:      o.roomCode,
		log:       log,
		peers:     make(map[string]Peer),
		onUpdate:  o.onUpdate,
		register:  make(chan Peer),
		unreg:     make(chan string),
		inbox:     make(chan inbound, 256),
		commands:  make(chan command),
		newTicker: o.ticker,
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	h.eng = newEngine(o.roomCode, Player{ID: o.hostID, Name: hostName}, o.quiz, o.timing, o.rng, log)
	h.snap = h.eng.state.Clone()
	return h
}

// ID is the hosting player's id.
func (h *Host) ID() string {
	return h.id
}

// Code is the room code participants use to reach this host.
func (h *Host) Code() string {
	return h.code
}

// State returns a copy of the most recently published snapshot.
func (h *Host) State() GameState {
	h.snapMu.RLock()
	defer h.snapMu.RUnlock()
	return h.snap.Clone()
}

// Done is closed once Run has returned.
func (h *Host) Done() <-chan struct{} {
	return h.done
}

// Close ends the room. Every participant channel is closed.
func (h *Host) Close() {
	h.closeOnce.Do(func() {
		close(h.quit)
	})
}

// Connect registers a freshly opened participant channel.
func (h *Host) Connect(p Peer) {
	select {
	case h.register <- p:
	case <-h.done:
		p.Close()
	}
}

// Disconnect reports that a participant channel closed.
func (h *Host) Disconnect(id string) {
	select {
	case h.unreg <- id:
	case <-h.done:
	}
}

// Deliver hands an envelope received on peer id's channel to the host.
func (h *Host) Deliver(id string, env Envelope) {
	select {
	case h.inbox <- inbound{from: id, env: env}:
	case <-h.done:
	}
}

// Start moves the room from the lobby to sentence submission.
func (h *Host) Start() error {
	return h.do(func(e *engine) (bool, error) {
		return true, e.start()
	})
}

// BeginQuiz moves on from sentence submission. Without force every player
// must have written a sentence.
func (h *Host) BeginQuiz(force bool) error {
	return h.do(func(e *engine) (bool, error) {
		return true, e.beginQuiz(force)
	})
}

// PlayAgain resets the room to the lobby after the leaderboard.
func (h *Host) PlayAgain() error {
	return h.do(func(e *engine) (bool, error) {
		return true, e.playAgain()
	})
}

// Submit applies an intent on behalf of the hosting player.
func (h *Host) Submit(msg Message) error {
	return h.do(func(e *engine) (bool, error) {
		return e.apply(h.id, msg), nil
	})
}

func (h *Host) do(fn func(e *engine) (bool, error)) error {
	cmd := command{apply: fn, reply: make(chan error, 1)}
	select {
	case h.commands <- cmd:
	case <-h.done:
		return ErrRoomClosed
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-h.done:
		return ErrRoomClosed
	}
}

// Run processes events until ctx is cancelled or Close is called.
func (h *Host) Run(ctx context.Context) error {
	defer close(h.done)
	defer h.shutdown()

	h.log.Info().Str("host", h.id).Msg("ROOM: open")

	for {
		select {
		case p := <-h.register:
			if p.ID() == h.id {
				h.log.Warn().Str("peer", p.ID()).Msg("ROOM: refused channel using the host id")
				p.Close()
				continue
			}
			h.peers[p.ID()] = p
			h.log.Debug().Str("peer", p.ID()).Int("peers", len(h.peers)).Msg("ROOM: channel open")

		case id := <-h.unreg:
			if _, ok := h.peers[id]; !ok {
				continue
			}
			delete(h.peers, id)
			h.log.Debug().Str("peer", id).Int("peers", len(h.peers)).Msg("ROOM: channel closed")
			h.mutate(func(e *engine) bool { return e.leave(id) })

		case in := <-h.inbox:
			h.handleInbound(in)

		case cmd := <-h.commands:
			var err error
			h.mutate(func(e *engine) bool {
				var changed bool
				changed, err = cmd.apply(e)
				return changed && err == nil
			})
			cmd.reply <- err

		case <-h.tick:
			h.mutate(func(e *engine) bool { return e.tick() })

		case <-h.quit:
			return nil

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *Host) handleInbound(in inbound) {
	if _, ok := h.peers[in.from]; !ok {
		// channel already gone; a late join must not resurrect the player
		return
	}
	msg, err := Decode(in.env)
	if err != nil {
		h.log.Debug().Err(err).Str("peer", in.from).Msg("ROOM: dropped message")
		return
	}
	if in.env.SenderID != "" && in.env.SenderID != in.from {
		h.log.Debug().Str("peer", in.from).Str("claimed", in.env.SenderID).Msg("ROOM: sender id does not match channel")
	}

	switch msg.(type) {
	case RequestSync:
		h.sendSnapshot(in.from)
	case GameStateUpdate:
		h.log.Debug().Str("peer", in.from).Msg("ROOM: ignored snapshot sent to host")
	default:
		h.mutate(func(e *engine) bool { return e.apply(in.from, msg) })
	}
}

// mutate runs fn against the engine, keeps the phase ticker in step with the
// phase and publishes the result if anything changed.
func (h *Host) mutate(fn func(e *engine) bool) {
	prev := h.eng.state.Phase
	changed := fn(h.eng)
	h.syncTicker(prev)
	if changed {
		h.publish()
	}
}

func (h *Host) syncTicker(prev Phase) {
	phase := h.eng.state.Phase
	if phase == prev && (h.tick != nil) == IsTimed(phase) {
		return
	}
	h.stopTicker()
	if IsTimed(phase) {
		h.tick, h.stopTick = h.newTicker(time.Second)
	}
}

func (h *Host) stopTicker() {
	if h.stopTick != nil {
		h.stopTick()
	}
	h.tick, h.stopTick = nil, nil
}

func (h *Host) publish() {
	h.eng.state.Version++
	snap := h.eng.state.Clone()

	h.snapMu.Lock()
	h.snap = snap
	h.snapMu.Unlock()

	env, err := Encode(h.id, GameStateUpdate{State: snap})
	if err != nil {
		h.log.Error().Err(err).Msg("ROOM: encode snapshot")
		return
	}
	for id, p := range h.peers {
		if err := p.Send(env); err != nil {
			h.log.Warn().Err(err).Str("peer", id).Msg("ROOM: broadcast failed")
		}
	}

	h.log.Debug().Uint64("version", snap.Version).Str("phase", string(snap.Phase)).Int("peers", len(h.peers)).Msg("ROOM: broadcast")

	if h.onUpdate != nil {
		h.onUpdate(snap.Clone())
	}
}

func (h *Host) sendSnapshot(id string) {
	p, ok := h.peers[id]
	if !ok {
		return
	}
	env, err := Encode(h.id, GameStateUpdate{State: h.eng.state.Clone()})
	if err != nil {
		h.log.Error().Err(err).Msg("ROOM: encode snapshot")
		return
	}
	if err := p.Send(env); err != nil {
		h.log.Warn().Err(err).Str("peer", id).Msg("ROOM: sync failed")
	}
}

func (h *Host) shutdown() {
	h.stopTicker()
	for id, p := range h.peers {
		p.Close()
		delete(h.peers, id)
	}
	h.log.Info().Msg("ROOM: closed")
}
