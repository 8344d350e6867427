/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/karanwg/draWG/internal/game"
	"github.com/skip2/go-qrcode"
)

const (
	hostTokenHeader = "X-Host-Token"
	qrSize          = 320
	maxIntentBytes  = 8 << 20
)

// registerControl sets up the routes of the room this process hosts:
//   - /rooms/:code             join instructions
//   - /rooms/:code/qr.png      QR code of the join page
//   - /rooms/:code/state       current snapshot (host only)
//   - /rooms/:code/start       lobby to sentence writing (host only)
//   - /rooms/:code/quiz        sentence writing to quiz, ?force=true skips the check (host only)
//   - /rooms/:code/play-again  leaderboard to lobby (host only)
//   - /rooms/:code/intents     an intent played by the host themselves (host only)
func registerControl(cfg *Config, host *game.Host, mux *httprouter.Router, errs chan<- error) {
	base := cfg.prefix + "/rooms/:code"

	mux.GET(base, serveRoomPage(cfg, host, errs))
	mux.GET(base+"/qr.png", serveQR(cfg, host, errs))
	mux.GET(base+"/state", requireHost(cfg, host, serveState(cfg, host, errs)))

	mux.POST(base+"/start", requireHost(cfg, host, runCommand(cfg, host, errs, "start", func(*http.Request) error {
		return host.Start()
	})))
	mux.POST(base+"/quiz", requireHost(cfg, host, runCommand(cfg, host, errs, "quiz", func(r *http.Request) error {
		force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
		return host.BeginQuiz(force)
	})))
	mux.POST(base+"/play-again", requireHost(cfg, host, runCommand(cfg, host, errs, "play again", func(*http.Request) error {
		return host.PlayAgain()
	})))
	mux.POST(base+"/intents", requireHost(cfg, host, runCommand(cfg, host, errs, "intent", func(r *http.Request) error {
		return submitIntent(host, r)
	})))
}

// requireHost rejects requests for other rooms and requests without the
// host token.
func requireHost(cfg *Config, host *game.Host, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if game.NormalizeRoomCode(ps.ByName("code")) != host.Code() {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		token := r.Header.Get(hostTokenHeader)
		if subtle.ConstantTimeCompare([]byte(token), []byte(cfg.hostToken)) != 1 {
			cfg.log.Warn().Str("ip", realIP(r)).Str("path", r.URL.Path).Msg("SERVE: rejected host request")
			http.Error(w, "invalid host token", http.StatusUnauthorized)
			return
		}

		next(w, r, ps)
	}
}

var errBadIntent = errors.New("bad intent")

func submitIntent(host *game.Host, r *http.Request) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxIntentBytes))
	if err != nil {
		return err
	}
	env, err := game.UnmarshalEnvelope(data)
	if err != nil {
		return errors.Join(errBadIntent, err)
	}
	msg, err := game.Decode(env)
	if err != nil {
		return errors.Join(errBadIntent, err)
	}
	switch msg.(type) {
	case game.RequestSync, game.GameStateUpdate:
		return errors.Join(errBadIntent, errors.New("not an intent: "+string(env.Type)))
	}
	return host.Submit(msg)
}

func commandStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, errBadIntent):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrWrongPhase), errors.Is(err, game.ErrSentencesMissing):
		return http.StatusConflict
	case errors.Is(err, game.ErrRoomClosed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func runCommand(cfg *Config, host *game.Host, errs chan<- error, name string, fn func(*http.Request) error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		if err := fn(r); err != nil {
			cfg.log.Debug().Err(err).Str("command", name).Msg("SERVE: host command refused")
			http.Error(w, err.Error(), commandStatus(err))
			return
		}

		cfg.log.Debug().
			Str("command", name).
			Dur("took", time.Since(startTime).Round(time.Microsecond)).
			Msg("SERVE: host command")

		writeState(cfg, w, host.State(), errs)
	}
}

func serveState(cfg *Config, host *game.Host, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeState(cfg, w, host.State(), errs)
	}
}

func writeState(cfg *Config, w http.ResponseWriter, s game.GameState, errs chan<- error) {
	data, err := json.Marshal(s)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	securityHeaders(cfg, w)

	if _, err := w.Write(data); err != nil {
		errs <- err
	}
}

// serveQR renders a PNG QR code pointing at the room's join page.
func serveQR(cfg *Config, host *game.Host, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		code := game.NormalizeRoomCode(ps.ByName("code"))
		if code != host.Code() {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		png, err := qrcode.Encode(scheme+"://"+r.Host+cfg.prefix+"/rooms/"+code, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		securityHeaders(cfg, w)

		written, err := w.Write(png)
		if err != nil {
			errs <- err

			return
		}

		cfg.log.Debug().
			Str("size", humanReadableSize(int64(written))).
			Str("ip", realIP(r)).
			Dur("took", time.Since(startTime).Round(time.Microsecond)).
			Msg("SERVE: room qr code")
	}
}
