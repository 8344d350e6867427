/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"errors"
	"slices"
)

var (
	ErrWrongPhase       = errors.New("command not allowed in this phase")
	ErrSentencesMissing = errors.New("not every player has written a sentence")
)

// Timing holds the countdown lengths, in seconds, of the timed phases.
type Timing struct {
	QuizSeconds    int
	DrawingSeconds int
	SlideSeconds   int
}

func DefaultTiming() Timing {
	return Timing{
		QuizSeconds:    60,
		DrawingSeconds: 90,
		SlideSeconds:   8,
	}
}

type phaseEntry struct {
	enter func(e *engine)
	// timed phases own a one second ticker while they are active
	timed bool
}

var phaseEntries = map[Phase]phaseEntry{
	PhaseLobby: {
		enter: func(e *engine) {
			e.resetRound()
		},
	},
	PhaseSentenceSubmission: {
		enter: func(e *engine) {
			e.resetRound()
		},
	},
	PhaseQuiz: {
		enter: func(e *engine) {
			e.state.CurrentQuestionIndex = 0
			e.state.QuizTimeRemaining = e.timing.QuizSeconds
		},
		timed: true,
	},
	PhaseDrawing: {
		enter: func(e *engine) {
			e.state.QuizTimeRemaining = 0
			assignSentences(e.state.Players, e.rng)
			e.state.DrawingTimeRemaining = e.timing.DrawingSeconds
		},
		timed: true,
	},
	PhaseSlideshow: {
		enter: func(e *engine) {
			e.state.DrawingTimeRemaining = 0
			e.state.CurrentSlideIndex = 0
			e.state.SlideTimeRemaining = e.timing.SlideSeconds
		},
		timed: true,
	},
	PhaseLeaderboard: {
		enter: func(e *engine) {
			e.state.QuizTimeRemaining = 0
			e.state.DrawingTimeRemaining = 0
			e.state.SlideTimeRemaining = 0
		},
	},
}

// IsTimed reports whether the host runs a countdown during p.
func IsTimed(p Phase) bool {
	return phaseEntries[p].timed
}

func (e *engine) enter(p Phase) {
	e.log.Debug().Str("from", string(e.state.Phase)).Str("to", string(p)).Msg("PHASE: transition")
	e.state.Phase = p
	if entry, ok := phaseEntries[p]; ok && entry.enter != nil {
		entry.enter(e)
	}
	// a phase can be complete the moment it starts
	e.advanceIfComplete()
}

// resetRound clears everything a single game wrote, keeping who is in the room.
func (e *engine) resetRound() {
	for i := range e.state.Players {
		p := &e.state.Players[i]
		p.Sentence = ""
		p.QuizScore = 0
		p.DrawingDataURL = ""
		p.AssignedSentence = ""
		p.ThumbsUp = 0
		p.ThumbsDown = 0
	}
	e.state.CurrentQuestionIndex = 0
	e.state.QuizAnswers = make(map[string][]int)
	e.state.QuizTimeRemaining = 0
	e.state.DrawingTimeRemaining = 0
	e.state.SlideTimeRemaining = 0
	e.state.CurrentSlideIndex = 0
	e.state.Reactions = make(map[string]Reactions)
}

func (e *engine) start() error {
	if e.state.Phase != PhaseLobby {
		return ErrWrongPhase
	}
	e.enter(PhaseSentenceSubmission)
	return nil
}

func (e *engine) beginQuiz(force bool) error {
	if e.state.Phase != PhaseSentenceSubmission {
		return ErrWrongPhase
	}
	if !force && !e.allSentences() {
		return ErrSentencesMissing
	}
	e.enter(PhaseQuiz)
	return nil
}

func (e *engine) playAgain() error {
	if e.state.Phase != PhaseLeaderboard {
		return ErrWrongPhase
	}
	e.enter(PhaseLobby)
	return nil
}

// advanceIfComplete moves on once every current player has done what the
// phase asks for. Departed players are not counted.
func (e *engine) advanceIfComplete() bool {
	switch e.state.Phase {
	case PhaseSentenceSubmission:
		if e.allSentences() {
			e.enter(PhaseQuiz)
			return true
		}
	case PhaseQuiz:
		if e.allAnswered() {
			e.enter(PhaseDrawing)
			return true
		}
	case PhaseDrawing:
		if e.allDrawn() {
			e.enter(PhaseSlideshow)
			return true
		}
	case PhaseSlideshow:
		if len(SlideDeck(e.state)) == 0 {
			e.enter(PhaseLeaderboard)
			return true
		}
	}
	return false
}

func (e *engine) allSentences() bool {
	return len(e.state.Players) > 0 && !slices.ContainsFunc(e.state.Players, func(p Player) bool {
		return !hasSentence(p)
	})
}

func (e *engine) allAnswered() bool {
	if len(e.state.Players) == 0 {
		return false
	}
	return e.firstOpenQuestion() >= len(e.quiz)
}

func (e *engine) allDrawn() bool {
	return len(e.state.Players) > 0 && !slices.ContainsFunc(e.state.Players, func(p Player) bool {
		return p.DrawingDataURL == ""
	})
}

// firstOpenQuestion is the lowest question index some current player has
// not answered yet.
func (e *engine) firstOpenQuestion() int {
	for i := range e.quiz {
		for _, p := range e.state.Players {
			answers := e.state.QuizAnswers[p.ID]
			if i >= len(answers) || answers[i] == Unanswered {
				return i
			}
		}
	}
	return len(e.quiz)
}

// tick is one host second in a timed phase.
func (e *engine) tick() bool {
	switch e.state.Phase {
	case PhaseQuiz:
		e.state.QuizTimeRemaining--
		if e.state.QuizTimeRemaining <= 0 {
			e.state.QuizTimeRemaining = 0
			e.enter(PhaseDrawing)
		}
	case PhaseDrawing:
		e.state.DrawingTimeRemaining--
		if e.state.DrawingTimeRemaining <= 0 {
			e.state.DrawingTimeRemaining = 0
			e.enter(PhaseSlideshow)
		}
	case PhaseSlideshow:
		e.state.SlideTimeRemaining--
		if e.state.SlideTimeRemaining <= 0 {
			e.nextSlide()
		}
	default:
		return false
	}
	return true
}

func (e *engine) nextSlide() {
	if e.state.CurrentSlideIndex+1 < len(SlideDeck(e.state)) {
		e.state.CurrentSlideIndex++
		e.state.SlideTimeRemaining = e.timing.SlideSeconds
		return
	}
	e.enter(PhaseLeaderboard)
}
