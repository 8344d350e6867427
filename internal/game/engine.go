/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// engine is the host's canonical state and the rules that mutate it. It is
// not safe for concurrent use; Host serializes every call onto one goroutine.
type engine struct {
	state  GameState
	quiz   []Question
	timing Timing
	rng    *rand.Rand
	log    zerolog.Logger
}

func newEngine(roomCode string, host Player, quiz []Question, timing Timing, rng *rand.Rand, log zerolog.Logger) *engine {
	e := &engine{
		state:  newGameState(roomCode),
		quiz:   quiz,
		timing: timing,
		rng:    rng,
		log:    log,
	}
	host.IsHost = true
	host.Name = cleanName(host.Name)
	if host.Name == "" {
		host.Name = "Host"
	}
	e.state.Players = append(e.state.Players, host)
	return e
}

// apply runs the reducer for one intent and reports whether state changed.
func (e *engine) apply(senderID string, msg Message) bool {
	switch m := msg.(type) {
	case PlayerJoined:
		return e.join(senderID, m.PlayerName)
	case SubmitSentence:
		return e.submitSentence(senderID, m)
	case SubmitQuizAnswer:
		return e.submitQuizAnswer(senderID, m)
	case SubmitDrawing:
		return e.submitDrawing(senderID, m)
	case SubmitReaction:
		return e.submitReaction(senderID, m)
	default:
		// request_sync never mutates and game_state_update is never accepted
		return false
	}
}

func (e *engine) join(id, name string) bool {
	if id == "" || e.state.playerIndex(id) >= 0 {
		return false
	}
	name = cleanName(name)
	if name == "" {
		name = "Player " + strconv.Itoa(len(e.state.Players)+1)
	}
	p := Player{
		ID:   id,
		Name: name,
	}
	if e.state.Phase == PhaseDrawing {
		p.AssignedSentence = e.lateSentence()
	}
	e.state.Players = append(e.state.Players, p)
	return true
}

// lateSentence picks one of the round's sentences for a player who joined
// after they were handed out. The joiner wrote none, so it is never theirs.
func (e *engine) lateSentence() string {
	var sentences []string
	for _, p := range e.state.Players {
		if hasSentence(p) {
			sentences = append(sentences, p.Sentence)
		}
	}
	if len(sentences) == 0 {
		return ""
	}
	return sentences[e.rng.IntN(len(sentences))]
}

// cleanName trims a display name and cuts it to MaxNameLength characters.
func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if runes := []rune(name); len(runes) > MaxNameLength {
		name = strings.TrimSpace(string(runes[:MaxNameLength]))
	}
	return name
}

// leave drops a departed player. Their answers and votes stay behind but no
// longer count towards anything.
func (e *engine) leave(id string) bool {
	i := e.state.playerIndex(id)
	if i < 0 || e.state.Players[i].IsHost {
		return false
	}
	e.state.Players = slices.Delete(e.state.Players, i, i+1)
	if deck := len(SlideDeck(e.state)); e.state.Phase == PhaseSlideshow && e.state.CurrentSlideIndex >= deck && deck > 0 {
		e.state.CurrentSlideIndex = deck - 1
	}
	e.advanceIfComplete()
	return true
}

func (e *engine) submitSentence(id string, m SubmitSentence) bool {
	if e.state.Phase != PhaseSentenceSubmission {
		return false
	}
	i := e.state.playerIndex(id)
	if i < 0 {
		return false
	}
	if e.state.Players[i].Sentence == m.Sentence {
		return false
	}
	e.state.Players[i].Sentence = m.Sentence
	e.advanceIfComplete()
	return true
}

func (e *engine) submitQuizAnswer(id string, m SubmitQuizAnswer) bool {
	if e.state.Phase != PhaseQuiz {
		return false
	}
	if m.QuestionIndex < 0 || m.QuestionIndex >= len(e.quiz) || m.AnswerIndex < 0 {
		return false
	}
	i := e.state.playerIndex(id)
	if i < 0 {
		return false
	}

	answers := e.state.QuizAnswers[id]
	if m.QuestionIndex < len(answers) && answers[m.QuestionIndex] == m.AnswerIndex {
		return false
	}
	for len(answers) <= m.QuestionIndex {
		answers = append(answers, Unanswered)
	}
	answers[m.QuestionIndex] = m.AnswerIndex
	e.state.QuizAnswers[id] = answers

	// recomputed from the whole sheet so replays and duplicates cannot drift
	e.state.Players[i].QuizScore = scoreAnswers(e.quiz, answers)
	e.state.CurrentQuestionIndex = min(e.firstOpenQuestion(), max(len(e.quiz)-1, 0))
	e.advanceIfComplete()
	return true
}

func (e *engine) submitDrawing(id string, m SubmitDrawing) bool {
	if e.state.Phase != PhaseDrawing || m.DrawingDataURL == "" {
		return false
	}
	i := e.state.playerIndex(id)
	if i < 0 || e.state.Players[i].DrawingDataURL != "" {
		return false
	}
	e.state.Players[i].DrawingDataURL = m.DrawingDataURL
	e.advanceIfComplete()
	return true
}

func (e *engine) submitReaction(id string, m SubmitReaction) bool {
	if e.state.Phase != PhaseSlideshow {
		return false
	}
	if m.ReactionType != ReactionThumbsUp && m.ReactionType != ReactionThumbsDown {
		return false
	}
	if e.state.playerIndex(id) < 0 {
		return false
	}
	target := e.state.playerIndex(m.TargetPlayerID)
	if target < 0 {
		return false
	}

	current := e.state.Reactions[m.TargetPlayerID]
	chosen := current.ThumbsDown
	if m.ReactionType == ReactionThumbsUp {
		chosen = current.ThumbsUp
	}
	if slices.Contains(chosen, id) {
		return false
	}
	next := Reactions{
		ThumbsUp:   removeVoter(current.ThumbsUp, id),
		ThumbsDown: removeVoter(current.ThumbsDown, id),
	}
	if m.ReactionType == ReactionThumbsUp {
		next.ThumbsUp = append(next.ThumbsUp, id)
	} else {
		next.ThumbsDown = append(next.ThumbsDown, id)
	}
	e.state.Reactions[m.TargetPlayerID] = next
	e.state.Players[target].ThumbsUp = len(next.ThumbsUp)
	e.state.Players[target].ThumbsDown = len(next.ThumbsDown)
	return true
}

func removeVoter(voters []string, id string) []string {
	out := make([]string, 0, len(voters)+1)
	for _, v := range voters {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
