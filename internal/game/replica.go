/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"sync"

	"github.com/rs/zerolog"
)

// Sender is a participant's end of its channel to the host.
type Sender interface {
	Send(Envelope) error
}

// Replica is a participant's read-only copy of the room. It never mutates
// shared state; it sends intents and overwrites its copy with whatever the
// host broadcasts.
type Replica struct {
	id       string
	conn     Sender
	log      zerolog.Logger
	onUpdate func(GameState)

	mu     sync.RWMutex
	state  GameState
	synced bool
	err    error
}

type ReplicaOption func(*Replica)

func WithReplicaLogger(log zerolog.Logger) ReplicaOption {
	return func(r *Replica) { r.log = log }
}

// WithReplicaUpdates is called with every snapshot the replica accepts.
func WithReplicaUpdates(fn func(GameState)) ReplicaOption {
	return func(r *Replica) { r.onUpdate = fn }
}

func NewReplica(id string, conn Sender, opts ...ReplicaOption) *Replica {
	r := &Replica{
		id:   id,
		conn: conn,
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With().Str("player", id).Logger()
	return r
}

// ID is this participant's player id.
func (r *Replica) ID() string {
	return r.id
}

// Open runs the join handshake once the channel to the host is up: ask for
// the current snapshot, then announce the player.
func (r *Replica) Open(name string) error {
	if err := r.RequestSync(); err != nil {
		return err
	}
	return r.send(PlayerJoined{PlayerName: name})
}

// Handle applies one envelope received from the host.
func (r *Replica) Handle(env Envelope) {
	if env.Type != TypeGameStateUpdate {
		r.log.Debug().Str("type", string(env.Type)).Msg("REPLICA: ignored non-snapshot message")
		return
	}
	msg, err := Decode(env)
	if err != nil {
		r.log.Debug().Err(err).Msg("REPLICA: dropped snapshot")
		return
	}
	snap := msg.(GameStateUpdate).State

	r.mu.Lock()
	if r.synced && snap.Version < r.state.Version {
		current := r.state.Version
		r.mu.Unlock()
		r.log.Debug().Uint64("version", snap.Version).Uint64("current", current).Msg("REPLICA: discarded stale snapshot")
		return
	}
	r.state = snap
	r.synced = true
	r.mu.Unlock()

	if r.onUpdate != nil {
		r.onUpdate(snap.Clone())
	}
}

// Close records that the channel to the host is gone. The room is over for
// this participant.
func (r *Replica) Close(err error) {
	if err == nil {
		err = ErrRoomClosed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
}

// Err reports why the replica stopped, or nil while it is live.
func (r *Replica) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// State returns the last snapshot and whether one has arrived yet.
func (r *Replica) State() (GameState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.synced {
		return GameState{}, false
	}
	return r.state.Clone(), true
}

// Self returns this participant's own entry in the last snapshot.
func (r *Replica) Self() (Player, bool) {
	state, ok := r.State()
	if !ok {
		return Player{}, false
	}
	return state.Player(r.id)
}

func (r *Replica) RequestSync() error {
	return r.send(RequestSync{})
}

func (r *Replica) SubmitSentence(sentence string) error {
	return r.send(SubmitSentence{Sentence: sentence})
}

func (r *Replica) SubmitQuizAnswer(questionIndex, answerIndex int) error {
	return r.send(SubmitQuizAnswer{QuestionIndex: questionIndex, AnswerIndex: answerIndex})
}

func (r *Replica) SubmitDrawing(dataURL string) error {
	return r.send(SubmitDrawing{DrawingDataURL: dataURL})
}

func (r *Replica) SubmitReaction(targetPlayerID, reactionType string) error {
	return r.send(SubmitReaction{TargetPlayerID: targetPlayerID, ReactionType: reactionType})
}

func (r *Replica) send(msg Message) error {
	if err := r.Err(); err != nil {
		return err
	}
	env, err := Encode(r.id, msg)
	if err != nil {
		return err
	}
	return r.conn.Send(env)
}
