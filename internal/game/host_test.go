/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type fakePeer struct {
	id     string
	out    chan Envelope
	closed chan struct{}
	once   sync.Once
}

func newFakePeer(id string) *fakePeer {
	return &fakePeer{
		id:     id,
		out:    make(chan Envelope, 64),
		closed: make(chan struct{}),
	}
}

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Send(env Envelope) error {
	select {
	case p.out <- env:
		return nil
	default:
		return errors.New("queue full")
	}
}

func (p *fakePeer) Close() {
	p.once.Do(func() { close(p.closed) })
}

func (p *fakePeer) next(t *testing.T) GameState {
	t.Helper()
	select {
	case env := <-p.out:
		require.Equal(t, TypeGameStateUpdate, env.Type)
		msg, err := Decode(env)
		require.NoError(t, err)
		return msg.(GameStateUpdate).State
	case <-time.After(waitFor):
		t.Fatalf("peer %s: no snapshot received", p.id)
		return GameState{}
	}
}

type fakeTicker struct {
	mu      sync.Mutex
	c       chan time.Time
	started int
	stopped int
}

func (f *fakeTicker) new(time.Duration) (<-chan time.Time, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.c = make(chan time.Time)
	f.started++
	return f.c, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.stopped++
	}
}

func (f *fakeTicker) fire(t *testing.T) {
	t.Helper()
	f.mu.Lock()
	c := f.c
	f.mu.Unlock()
	require.NotNil(t, c, "no ticker started")
	select {
	case c <- time.Now():
	case <-time.After(waitFor):
		t.Fatal("ticker not being read")
	}
}

func (f *fakeTicker) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started, f.stopped
}

func startHost(t *testing.T, opts ...Option) (*Host, *fakeTicker) {
	t.Helper()
	ticker := &fakeTicker{}
	opts = append([]Option{
		WithRoomCode("ABCD"),
		WithHostID("host"),
		WithRand(rand.New(rand.NewPCG(5, 6))),
		WithTicker(ticker.new),
	}, opts...)
	h := NewHost("Hana", opts...)

	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})
	return h, ticker
}

func send(t *testing.T, h *Host, from string, msg Message) {
	t.Helper()
	env, err := Encode(from, msg)
	require.NoError(t, err)
	h.Deliver(from, env)
}

func joinPeer(t *testing.T, h *Host, id string) *fakePeer {
	t.Helper()
	p := newFakePeer(id)
	h.Connect(p)
	send(t, h, id, RequestSync{})
	p.next(t)
	send(t, h, id, PlayerJoined{PlayerName: id})
	p.next(t)
	return p
}

func TestNewHostState(t *testing.T) {
	h := NewHost("Hana", WithRoomCode("WXYZ"))

	s := h.State()
	assert.Equal(t, "WXYZ", h.Code())
	assert.Equal(t, PhaseLobby, s.Phase)
	assert.Zero(t, s.Version)
	require.Len(t, s.Players, 1)
	assert.Equal(t, h.ID(), s.Players[0].ID)
	assert.True(t, s.Players[0].IsHost)
	assert.True(t, ValidRoomCode(NewHost("Hana").Code()))
}

func TestResyncRepliesToSenderOnly(t *testing.T) {
	h, _ := startHost(t)
	ana := joinPeer(t, h, "ana")

	bo := newFakePeer("bo")
	h.Connect(bo)
	send(t, h, "bo", RequestSync{})

	s := bo.next(t)
	assert.Equal(t, uint64(1), s.Version)
	assert.Len(t, s.Players, 2)
	assert.Empty(t, ana.out, "resync must not broadcast")
}

func TestOneBroadcastPerMutation(t *testing.T) {
	h, _ := startHost(t)
	ana := joinPeer(t, h, "ana")
	bo := joinPeer(t, h, "bo")
	assert.Equal(t, uint64(2), ana.next(t).Version, "ana sees bo join")

	require.NoError(t, h.Start())
	require.Len(t, ana.out, 1)
	require.Len(t, bo.out, 1)
	assert.Equal(t, PhaseSentenceSubmission, ana.next(t).Phase)
	assert.Equal(t, uint64(3), bo.next(t).Version)

	// rejected commands publish nothing
	assert.ErrorIs(t, h.Start(), ErrWrongPhase)
	assert.Empty(t, ana.out)

	require.NoError(t, h.Submit(SubmitSentence{Sentence: "a dog on a bike"}))
	require.Len(t, ana.out, 1)
	s := ana.next(t)
	assert.Equal(t, uint64(4), s.Version)
	host, _ := s.Host()
	assert.Equal(t, "a dog on a bike", host.Sentence)

	// an unchanged submission publishes nothing either
	require.NoError(t, h.Submit(SubmitSentence{Sentence: "a dog on a bike"}))
	assert.Empty(t, ana.out)
	assert.Equal(t, uint64(4), h.State().Version)
}

func TestInboundFromUnknownChannelIsDropped(t *testing.T) {
	h, _ := startHost(t)
	ana := joinPeer(t, h, "ana")

	send(t, h, "ghost", PlayerJoined{PlayerName: "ghost"})
	send(t, h, "ana", RequestSync{})

	s := ana.next(t)
	assert.Len(t, s.Players, 2)
	assert.Empty(t, ana.out)
}

func TestSpoofedSenderIsAttributedToChannel(t *testing.T) {
	h, _ := startHost(t)
	ana := joinPeer(t, h, "ana")
	require.NoError(t, h.Start())
	ana.next(t)

	env, err := Encode("host", SubmitSentence{Sentence: "not from the host"})
	require.NoError(t, err)
	h.Deliver("ana", env)

	s := ana.next(t)
	p, _ := s.Player("ana")
	assert.Equal(t, "not from the host", p.Sentence)
	host, _ := s.Host()
	assert.Empty(t, host.Sentence)
}

func TestChannelWithHostIDIsRefused(t *testing.T) {
	h, _ := startHost(t)
	require.NoError(t, h.Start())
	ana := joinPeer(t, h, "ana")

	mallory := newFakePeer("host")
	h.Connect(mallory)
	select {
	case <-mallory.closed:
	case <-time.After(waitFor):
		t.Fatal("channel using the host id was not closed")
	}

	send(t, h, "host", SubmitSentence{Sentence: "written by mallory"})
	send(t, h, "ana", RequestSync{})

	s := ana.next(t)
	host, _ := s.Host()
	assert.Empty(t, host.Sentence)
	assert.Empty(t, mallory.out)
}

func TestDisconnectRemovesPlayer(t *testing.T) {
	h, _ := startHost(t)
	ana := joinPeer(t, h, "ana")
	bo := joinPeer(t, h, "bo")
	ana.next(t)

	h.Disconnect("bo")
	s := ana.next(t)
	assert.Len(t, s.Players, 2)
	_, ok := s.Player("bo")
	assert.False(t, ok)
	assert.Empty(t, bo.out)
}

func TestTickerFollowsTimedPhases(t *testing.T) {
	h, ticker := startHost(t, WithTiming(Timing{QuizSeconds: 2, DrawingSeconds: 1, SlideSeconds: 1}))
	ana := joinPeer(t, h, "ana")

	require.NoError(t, h.Start())
	started, _ := ticker.counts()
	assert.Zero(t, started, "sentence submission is not timed")

	require.NoError(t, h.BeginQuiz(true))
	started, _ = ticker.counts()
	assert.Equal(t, 1, started)
	ana.next(t)
	s := ana.next(t)
	require.Equal(t, PhaseQuiz, s.Phase)
	assert.Equal(t, 2, s.QuizTimeRemaining)

	ticker.fire(t)
	assert.Equal(t, 1, ana.next(t).QuizTimeRemaining)

	ticker.fire(t)
	s = ana.next(t)
	assert.Equal(t, PhaseDrawing, s.Phase)
	started, stopped := ticker.counts()
	assert.Equal(t, 2, started, "drawing gets a fresh ticker")
	assert.Equal(t, 1, stopped)

	// nobody drew, so the slideshow is empty and the game ends
	ticker.fire(t)
	s = ana.next(t)
	assert.Equal(t, PhaseLeaderboard, s.Phase)
	started, stopped = ticker.counts()
	assert.Equal(t, 2, started)
	assert.Equal(t, 2, stopped)

	require.NoError(t, h.PlayAgain())
	s = ana.next(t)
	assert.Equal(t, PhaseLobby, s.Phase)
	assert.Equal(t, "ABCD", s.RoomCode)
	assert.Equal(t, uint64(7), s.Version, "versions keep counting across games")
}

func TestOnUpdateSeesEveryPublish(t *testing.T) {
	var mu sync.Mutex
	var versions []uint64
	h, _ := startHost(t, WithOnUpdate(func(s GameState) {
		mu.Lock()
		defer mu.Unlock()
		versions = append(versions, s.Version)
	}))
	joinPeer(t, h, "ana")
	require.NoError(t, h.Start())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uint64{1, 2}, versions)
}

func TestCloseEndsRoom(t *testing.T) {
	h, _ := startHost(t)
	ana := joinPeer(t, h, "ana")

	h.Close()
	select {
	case <-h.Done():
	case <-time.After(waitFor):
		t.Fatal("host did not stop")
	}
	select {
	case <-ana.closed:
	default:
		t.Fatal("peer channel left open")
	}

	assert.ErrorIs(t, h.Start(), ErrRoomClosed)
	assert.ErrorIs(t, h.Submit(SubmitSentence{Sentence: "late"}), ErrRoomClosed)

	late := newFakePeer("late")
	h.Connect(late)
	select {
	case <-late.closed:
	default:
		t.Fatal("late peer should be closed immediately")
	}
}
