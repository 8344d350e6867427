/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"sync"
	"time"

	"github.com/karanwg/draWG/internal/archive"
	"github.com/karanwg/draWG/internal/game"
	"github.com/rs/zerolog"
)

const recordTimeout = 10 * time.Second

// console logs what changed between two snapshots, from the point of view of
// one player.
type console struct {
	log  zerolog.Logger
	self string

	mu   sync.Mutex
	last game.GameState
	seen bool
}

func newConsole(log zerolog.Logger, self string) *console {
	return &console{log: log, self: self}
}

func (c *console) show(s game.GameState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, first := c.last, !c.seen
	c.last, c.seen = s, true

	if first || len(prev.Players) != len(s.Players) {
		c.log.Info().Str("room", s.RoomCode).Int("players", len(s.Players)).Msg("ROOM: players changed")
	}

	if first || prev.Phase != s.Phase {
		c.log.Info().Str("room", s.RoomCode).Str("phase", string(s.Phase)).Msg("ROOM: now in " + phaseTitle(s.Phase))
		c.enter(s)
	}

	if s.Phase == game.PhaseQuiz && (first || prev.CurrentQuestionIndex != s.CurrentQuestionIndex) {
		c.log.Info().Int("question", s.CurrentQuestionIndex+1).Msg("QUIZ: open question")
	}

	if s.Phase == game.PhaseSlideshow && (first || prev.Phase != s.Phase || prev.CurrentSlideIndex != s.CurrentSlideIndex) {
		if p, ok := game.CurrentSlide(s); ok {
			c.log.Info().
				Str("artist", p.Name).
				Str("sentence", sentenceFor(s, p.ID)).
				Msg("SLIDE: now showing")
		}
	}
}

func (c *console) enter(s game.GameState) {
	switch s.Phase {
	case game.PhaseDrawing:
		if me, ok := s.Player(c.self); ok && me.AssignedSentence != "" {
			c.log.Info().Str("sentence", me.AssignedSentence).Msg("DRAW: your sentence")
		}
	case game.PhaseLeaderboard:
		for _, st := range game.Standings(s) {
			c.log.Info().
				Int("rank", st.Rank).
				Str("name", st.Player.Name).
				Int("score", st.Player.QuizScore).
				Int("up", st.Player.ThumbsUp).
				Int("down", st.Player.ThumbsDown).
				Msg("RANK:")
		}
	}
}

// sentenceFor returns the sentence the given artist was asked to draw.
func sentenceFor(s game.GameState, artist string) string {
	p, ok := s.Player(artist)
	if !ok {
		return ""
	}
	return p.AssignedSentence
}

// recorder archives every game that reaches the leaderboard.
// observe is only called from the host goroutine.
type recorder struct {
	ctx   context.Context
	arch  *archive.Archive
	log   zerolog.Logger
	phase game.Phase

	wg sync.WaitGroup
}

func newRecorder(ctx context.Context, arch *archive.Archive, log zerolog.Logger) *recorder {
	return &recorder{ctx: context.WithoutCancel(ctx), arch: arch, log: log}
}

func (r *recorder) observe(s game.GameState) {
	entered := s.Phase == game.PhaseLeaderboard && r.phase != game.PhaseLeaderboard
	r.phase = s.Phase

	if !entered || !r.arch.Enabled() {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(r.ctx, recordTimeout)
		defer cancel()

		if err := r.arch.Record(ctx, s); err != nil {
			r.log.Error().Err(err).Str("room", s.RoomCode).Msg("ARCHIVE: failed to record game")
		}
	}()
}

func (r *recorder) wait() {
	r.wg.Wait()
}
