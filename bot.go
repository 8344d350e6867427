/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"math/rand/v2"
	"slices"
	"strconv"
	"sync"

	"github.com/karanwg/draWG/internal/game"
	"github.com/rs/zerolog"
)

// botDrawing is a 1x1 transparent PNG.
const botDrawing = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

const botAnswerOptions = 4

var botSentences = []string{
	"A cat conducting an orchestra of pigeons",
	"The moon losing a game of chess",
	"A snowman on a beach holiday",
	"Two robots sharing an umbrella",
	"A giraffe stuck in an elevator",
	"Grandma winning a skateboarding contest",
}

// bot plays for a participant that has nobody at the keyboard.
type bot struct {
	id  string
	log zerolog.Logger

	mu   sync.Mutex
	rng  *rand.Rand
	sent map[string]bool
}

func newBot(id string, rng *rand.Rand, log zerolog.Logger) *bot {
	return &bot{
		id:   id,
		log:  log,
		rng:  rng,
		sent: make(map[string]bool),
	}
}

// moves returns the intents the bot wants to send for a snapshot. A move is
// only returned once per round, so repeated snapshots do not repeat it.
func (b *bot) moves(s game.GameState) []game.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	me, ok := s.Player(b.id)
	if !ok {
		return nil
	}

	var out []game.Message
	once := func(key string, msg game.Message) {
		if b.sent[key] {
			return
		}
		b.sent[key] = true
		out = append(out, msg)
	}

	switch s.Phase {
	case game.PhaseLobby:
		clear(b.sent)
	case game.PhaseSentenceSubmission:
		if me.Sentence == "" {
			once("sentence", game.SubmitSentence{Sentence: botSentences[b.rng.IntN(len(botSentences))]})
		}
	case game.PhaseQuiz:
		q := s.CurrentQuestionIndex
		sheet := s.QuizAnswers[b.id]
		if q >= len(sheet) || sheet[q] == game.Unanswered {
			once("quiz/"+strconv.Itoa(q), game.SubmitQuizAnswer{QuestionIndex: q, AnswerIndex: b.rng.IntN(botAnswerOptions)})
		}
	case game.PhaseDrawing:
		if me.DrawingDataURL == "" {
			once("drawing", game.SubmitDrawing{DrawingDataURL: botDrawing})
		}
	case game.PhaseSlideshow:
		slide, ok := game.CurrentSlide(s)
		if !ok {
			break
		}
		if slices.Contains(s.Reactions[slide.ID].ThumbsUp, b.id) {
			break
		}
		once("react/"+slide.ID, game.SubmitReaction{TargetPlayerID: slide.ID, ReactionType: game.ReactionThumbsUp})
	}

	return out
}

// play sends the bot's moves through the replica.
func (b *bot) play(r *game.Replica, s game.GameState) {
	for _, msg := range b.moves(s) {
		if err := submit(r, msg); err != nil {
			b.log.Debug().Err(err).Str("type", string(msg.Type())).Msg("BOT: move not sent")
			return
		}
		b.log.Debug().Str("type", string(msg.Type())).Msg("BOT: move sent")
	}
}

func submit(r *game.Replica, msg game.Message) error {
	switch m := msg.(type) {
	case game.RequestSync:
		return r.RequestSync()
	case game.SubmitSentence:
		return r.SubmitSentence(m.Sentence)
	case game.SubmitQuizAnswer:
		return r.SubmitQuizAnswer(m.QuestionIndex, m.AnswerIndex)
	case game.SubmitDrawing:
		return r.SubmitDrawing(m.DrawingDataURL)
	case game.SubmitReaction:
		return r.SubmitReaction(m.TargetPlayerID, m.ReactionType)
	default:
		return nil
	}
}
