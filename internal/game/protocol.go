/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType tags an envelope's payload.
type MessageType string

const (
	TypePlayerJoined     MessageType = "player_joined"
	TypeSubmitSentence   MessageType = "submit_sentence"
	TypeSubmitQuizAnswer MessageType = "submit_quiz_answer"
	TypeSubmitDrawing    MessageType = "submit_drawing"
	TypeSubmitReaction   MessageType = "submit_reaction"
	TypeRequestSync      MessageType = "request_sync"
	TypeGameStateUpdate  MessageType = "game_state_update"
)

var ErrUnknownMessage = errors.New("unknown message type")

// Envelope is the wire form of every message exchanged with the host.
type Envelope struct {
	Type     MessageType     `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	SenderID string          `json:"senderId"`
}

// Message is one of the payload shapes below, keyed by its type.
type Message interface {
	Type() MessageType
}

// Intent payloads, participant -> host.
type (
	PlayerJoined struct {
		PlayerName string `json:"playerName"`
	}

	SubmitSentence struct {
		Sentence string `json:"sentence"`
	}

	SubmitQuizAnswer struct {
		QuestionIndex int `json:"questionIndex"`
		AnswerIndex   int `json:"answerIndex"`
	}

	SubmitDrawing struct {
		DrawingDataURL string `json:"drawingDataUrl"`
	}

	SubmitReaction struct {
		TargetPlayerID string `json:"targetPlayerId"`
		ReactionType   string `json:"reactionType"`
	}

	RequestSync struct{}
)

// GameStateUpdate carries a full snapshot, host -> participant. On the wire
// its payload is the GameState itself.
type GameStateUpdate struct {
	State GameState
}

func (PlayerJoined) Type() MessageType     { return TypePlayerJoined }
func (SubmitSentence) Type() MessageType   { return TypeSubmitSentence }
func (SubmitQuizAnswer) Type() MessageType { return TypeSubmitQuizAnswer }
func (SubmitDrawing) Type() MessageType    { return TypeSubmitDrawing }
func (SubmitReaction) Type() MessageType   { return TypeSubmitReaction }
func (RequestSync) Type() MessageType      { return TypeRequestSync }
func (GameStateUpdate) Type() MessageType  { return TypeGameStateUpdate }

// Encode wraps msg in an envelope from senderID.
func Encode(senderID string, msg Message) (Envelope, error) {
	if msg == nil {
		return Envelope{}, errors.New("nil message")
	}
	var body any = msg
	if update, ok := msg.(GameStateUpdate); ok {
		body = update.State
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", msg.Type(), err)
	}
	return Envelope{
		Type:     msg.Type(),
		Payload:  payload,
		SenderID: senderID,
	}, nil
}

// Decode turns an envelope back into its typed payload.
func Decode(env Envelope) (Message, error) {
	switch env.Type {
	case TypePlayerJoined:
		return decodeAs[PlayerJoined](env)
	case TypeSubmitSentence:
		return decodeAs[SubmitSentence](env)
	case TypeSubmitQuizAnswer:
		return decodeAs[SubmitQuizAnswer](env)
	case TypeSubmitDrawing:
		return decodeAs[SubmitDrawing](env)
	case TypeSubmitReaction:
		return decodeAs[SubmitReaction](env)
	case TypeRequestSync:
		return RequestSync{}, nil
	case TypeGameStateUpdate:
		state, err := decodeAs[GameState](env)
		if err != nil {
			return nil, err
		}
		return GameStateUpdate{State: state}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}
}

func decodeAs[T any](env Envelope) (T, error) {
	var out T
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(env.Payload, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return out, nil
}

// MarshalEnvelope and UnmarshalEnvelope convert to and from the JSON text
// carried by the transport.
func MarshalEnvelope(env Envelope) ([]byte, error) {
	if env.Payload == nil {
		env.Payload = json.RawMessage("{}")
	}
	return json.Marshal(env)
}

func UnmarshalEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, errors.New("decode envelope: missing type")
	}
	return env, nil
}
