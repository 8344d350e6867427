/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/karanwg/draWG/internal/game"
	"github.com/karanwg/draWG/internal/transport"
)

var errNotNow = errors.New("nothing to answer right now")

// JoinRoom takes part in a room hosted elsewhere until the room closes or ctx
// is cancelled.
func JoinRoom(ctx context.Context, cfg *Config) error {
	conn, err := transport.Dial(ctx, cfg.hostURL, cfg.room, "", transport.WithDialLogger(cfg.log))
	if err != nil {
		return err
	}
	defer conn.Close()

	screen := newConsole(cfg.log, conn.ID())

	var b *bot
	if cfg.bot {
		b = newBot(conn.ID(), rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), cfg.log)
	}

	var replica *game.Replica
	replica = game.NewReplica(conn.ID(), conn,
		game.WithReplicaLogger(cfg.log),
		game.WithReplicaUpdates(func(s game.GameState) {
			screen.show(s)
			if b != nil {
				b.play(replica, s)
			}
		}),
	)

	listened := make(chan error, 1)
	go func() {
		listened <- conn.Listen(ctx, replica.Handle)
	}()

	if err := replica.Open(cfg.name); err != nil {
		return err
	}

	cfg.log.Info().Str("room", game.NormalizeRoomCode(cfg.room)).Str("id", conn.ID()).Msg("JOIN: connected")

	if !cfg.bot {
		go prompt(os.Stdin, replica, cfg)
	}

	err = <-listened
	replica.Close(err)

	switch {
	case errors.Is(err, context.Canceled):
		return nil
	case errors.Is(err, game.ErrRoomClosed):
		cfg.log.Info().Msg("JOIN: room closed by host")
		return nil
	default:
		return err
	}
}

// prompt turns lines typed by the player into intents.
func prompt(in io.Reader, r *game.Replica, cfg *Config) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		s, ok := r.State()
		if !ok {
			cfg.log.Info().Msg("JOIN: still waiting for the first snapshot")
			continue
		}

		msg, err := parseLine(s, r.ID(), line)
		if err != nil {
			cfg.log.Info().Err(err).Msg("JOIN: input ignored")
			continue
		}

		if err := submit(r, msg); err != nil {
			cfg.log.Error().Err(err).Msg("JOIN: failed to send")
			return
		}
	}
}

// parseLine reads one line of player input in the context of the current
// phase:
//   - "sync" asks the host for a fresh snapshot in any phase
//   - sentence writing takes the line as the sentence
//   - the quiz takes an option number, starting at 1, for the open question
//   - drawing takes the path of an image file
//   - the slideshow takes "+" or "-" for the drawing on screen
func parseLine(s game.GameState, self, line string) (game.Message, error) {
	if line == "sync" {
		return game.RequestSync{}, nil
	}

	switch s.Phase {
	case game.PhaseSentenceSubmission:
		return game.SubmitSentence{Sentence: line}, nil
	case game.PhaseQuiz:
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("not an option number: %q", line)
		}
		return game.SubmitQuizAnswer{QuestionIndex: s.CurrentQuestionIndex, AnswerIndex: n - 1}, nil
	case game.PhaseDrawing:
		url, err := drawingFromFile(line)
		if err != nil {
			return nil, err
		}
		return game.SubmitDrawing{DrawingDataURL: url}, nil
	case game.PhaseSlideshow:
		slide, ok := game.CurrentSlide(s)
		if !ok {
			return nil, errNotNow
		}
		switch line {
		case "+", "up":
			return game.SubmitReaction{TargetPlayerID: slide.ID, ReactionType: game.ReactionThumbsUp}, nil
		case "-", "down":
			return game.SubmitReaction{TargetPlayerID: slide.ID, ReactionType: game.ReactionThumbsDown}, nil
		default:
			return nil, fmt.Errorf("react with + or -, not %q", line)
		}
	default:
		return nil, errNotNow
	}
}

// drawingFromFile encodes an image file as a data URL.
func drawingFromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("not an image: %s (%s)", path, mime)
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
