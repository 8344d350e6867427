/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"cmp"
	"slices"
	"strings"
)

// Phase is a step of the party game loop.
type Phase string

const (
	PhaseLobby              Phase = "lobby"
	PhaseSentenceSubmission Phase = "sentence_submission"
	PhaseQuiz               Phase = "quiz"
	PhaseDrawing            Phase = "drawing"
	PhaseSlideshow          Phase = "slideshow"
	PhaseLeaderboard        Phase = "leaderboard"
)

// MaxNameLength is the longest display name kept, in characters.
const MaxNameLength = 32

// Unanswered marks a hole in a player's answer sheet.
const Unanswered = -1

const (
	ReactionThumbsUp   = "thumbsUp"
	ReactionThumbsDown = "thumbsDown"
)

// Player is one participant as seen in a snapshot. The host engine owns it;
// replicas only ever hold copies.
type Player struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	IsHost           bool   `json:"isHost"`
	Sentence         string `json:"sentence,omitempty"`
	QuizScore        int    `json:"quizScore"`
	DrawingDataURL   string `json:"drawingDataUrl,omitempty"`
	AssignedSentence string `json:"assignedSentence,omitempty"`
	ThumbsUp         int    `json:"thumbsUp"`
	ThumbsDown       int    `json:"thumbsDown"`
}

// Reactions holds the voter ids for one drawing. A voter is in at most one set.
type Reactions struct {
	ThumbsUp   []string `json:"thumbsUp"`
	ThumbsDown []string `json:"thumbsDown"`
}

// GameState is the complete snapshot broadcast after every mutation.
type GameState struct {
	Version              uint64               `json:"version"`
	Phase                Phase                `json:"phase"`
	RoomCode             string               `json:"roomCode"`
	Players              []Player             `json:"players"`
	CurrentQuestionIndex int                  `json:"currentQuestionIndex"`
	QuizAnswers          map[string][]int     `json:"quizAnswers"`
	QuizTimeRemaining    int                  `json:"quizTimeRemaining"`
	DrawingTimeRemaining int                  `json:"drawingTimeRemaining"`
	SlideTimeRemaining   int                  `json:"slideTimeRemaining"`
	CurrentSlideIndex    int                  `json:"currentSlideIndex"`
	Reactions            map[string]Reactions `json:"reactions"`
}

func newGameState(roomCode string) GameState {
	return GameState{
		Phase:       PhaseLobby,
		RoomCode:    roomCode,
		Players:     []Player{},
		QuizAnswers: make(map[string][]int),
		Reactions:   make(map[string]Reactions),
	}
}

// Clone returns a deep copy that shares nothing with s.
func (s GameState) Clone() GameState {
	out := s
	out.Players = slices.Clone(s.Players)
	if out.Players == nil {
		out.Players = []Player{}
	}
	out.QuizAnswers = make(map[string][]int, len(s.QuizAnswers))
	for id, answers := range s.QuizAnswers {
		out.QuizAnswers[id] = slices.Clone(answers)
	}
	out.Reactions = make(map[string]Reactions, len(s.Reactions))
	for id, r := range s.Reactions {
		out.Reactions[id] = Reactions{
			ThumbsUp:   slices.Clone(r.ThumbsUp),
			ThumbsDown: slices.Clone(r.ThumbsDown),
		}
	}
	return out
}

// Player looks up a player by id.
func (s GameState) Player(id string) (Player, bool) {
	if i := s.playerIndex(id); i >= 0 {
		return s.Players[i], true
	}
	return Player{}, false
}

// Host returns the hosting player.
func (s GameState) Host() (Player, bool) {
	for _, p := range s.Players {
		if p.IsHost {
			return p, true
		}
	}
	return Player{}, false
}

func (s GameState) playerIndex(id string) int {
	return slices.IndexFunc(s.Players, func(p Player) bool { return p.ID == id })
}

// SlideDeck lists, in join order, the players whose drawing is shown during
// the slideshow. CurrentSlideIndex indexes into it.
func SlideDeck(s GameState) []Player {
	deck := make([]Player, 0, len(s.Players))
	for _, p := range s.Players {
		if p.DrawingDataURL != "" {
			deck = append(deck, p)
		}
	}
	return deck
}

// CurrentSlide returns the player whose drawing is on screen.
func CurrentSlide(s GameState) (Player, bool) {
	deck := SlideDeck(s)
	if s.CurrentSlideIndex < 0 || s.CurrentSlideIndex >= len(deck) {
		return Player{}, false
	}
	return deck[s.CurrentSlideIndex], true
}

// Standing is one row of the leaderboard.
type Standing struct {
	Rank   int    `json:"rank"`
	Player Player `json:"player"`
}

// Standings ranks players by quiz score, then thumbs up, then fewest thumbs
// down. Ties keep join order and share a rank.
func Standings(s GameState) []Standing {
	players := slices.Clone(s.Players)
	slices.SortStableFunc(players, func(a, b Player) int {
		if c := cmp.Compare(b.QuizScore, a.QuizScore); c != 0 {
			return c
		}
		if c := cmp.Compare(b.ThumbsUp, a.ThumbsUp); c != 0 {
			return c
		}
		return cmp.Compare(a.ThumbsDown, b.ThumbsDown)
	})
	out := make([]Standing, 0, len(players))
	for i, p := range players {
		rank := i + 1
		if i > 0 {
			prev := out[i-1]
			if prev.Player.QuizScore == p.QuizScore && prev.Player.ThumbsUp == p.ThumbsUp && prev.Player.ThumbsDown == p.ThumbsDown {
				rank = prev.Rank
			}
		}
		out = append(out, Standing{Rank: rank, Player: p})
	}
	return out
}

func hasSentence(p Player) bool {
	return strings.TrimSpace(p.Sentence) != ""
}
