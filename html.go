/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/karanwg/draWG/internal/game"
)

func serveHomePage(cfg *Config, host *game.Host) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		http.Redirect(w, r, cfg.prefix+"/rooms/"+host.Code(), http.StatusTemporaryRedirect)
	}
}

// serveRoomPage tells a visitor, usually one who scanned the QR code, how to
// join the room.
func serveRoomPage(cfg *Config, host *game.Host, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := game.NormalizeRoomCode(ps.ByName("code"))
		if code != host.Code() {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			securityHeaders(cfg, w)
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(newPage("Room not found", "No room is open under that code.")))
			return
		}

		state := host.State()
		base := cfg.scheme() + "://" + r.Host + cfg.prefix

		var body strings.Builder
		body.WriteString("<h1>Room " + html.EscapeString(code) + "</h1>")
		body.WriteString("<p>" + strconv.Itoa(len(state.Players)) + " in the room, now in " + html.EscapeString(phaseTitle(state.Phase)) + ".</p>")
		body.WriteString(`<p><img src="` + html.EscapeString(cfg.prefix+"/rooms/"+code+"/qr.png") + `" alt="QR code for this room" width="240" height="240"></p>`)
		body.WriteString("<p>Join with:</p><pre>drawg join --host-url " + html.EscapeString(base) + " --room " + html.EscapeString(code) + " --name YOURNAME</pre>")

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(newPage("Room "+code, body.String())))
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveHealthCheck(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data := `User-agent: *
Disallow: /`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(data))
		if err != nil {
			errs <- err

			return
		}
	}
}

func phaseTitle(p game.Phase) string {
	switch p {
	case game.PhaseLobby:
		return "the lobby"
	case game.PhaseSentenceSubmission:
		return "sentence writing"
	case game.PhaseQuiz:
		return "the quiz"
	case game.PhaseDrawing:
		return "drawing"
	case game.PhaseSlideshow:
		return "the slideshow"
	case game.PhaseLeaderboard:
		return "the leaderboard"
	default:
		return string(p)
	}
}
