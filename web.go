/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/karanwg/draWG/internal/archive"
	"github.com/karanwg/draWG/internal/game"
	"github.com/karanwg/draWG/internal/transport"
	"github.com/skip2/go-qrcode"
)

const (
	timeout time.Duration = 10 * time.Second
)

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Embedder-Policy", "require-corp")
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func serveVersion(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("drawg v" + releaseVersion + "\n"))
		if err != nil {
			errs <- err

			return
		}

		cfg.log.Debug().
			Str("size", humanReadableSize(int64(written))).
			Str("ip", realIP(r)).
			Dur("took", time.Since(startTime).Round(time.Microsecond)).
			Msg("SERVE: version page")
	}
}

// joinURL is the address participants are pointed at, printed and encoded
// into the room's QR code.
func joinURL(cfg *Config, code string) string {
	host := cfg.bind
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = outboundIP()
	}
	return cfg.scheme() + "://" + net.JoinHostPort(host, strconv.Itoa(cfg.port)) + cfg.prefix + "/rooms/" + code
}

func outboundIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "localhost"
	}
	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok && !ipNet.IP.IsLoopback() && ipNet.IP.To4() != nil {
			return ipNet.IP.String()
		}
	}
	return "localhost"
}

// ServeRoom hosts one room until ctx is cancelled or the room closes.
func ServeRoom(ctx context.Context, cfg *Config) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	cfg.log.Info().Msgf("START: drawg v%s", releaseVersion)

	quiz := game.DefaultQuiz()
	if cfg.quizFile != "" {
		quiz, err = game.LoadQuiz(cfg.quizFile)
		if err != nil {
			return err
		}
		cfg.log.Info().Str("file", cfg.quizFile).Int("questions", len(quiz)).Msg("START: loaded quiz")
	}

	arch, err := archive.Open(cfg.databaseURL, archive.WithLogger(cfg.log))
	if err != nil {
		return err
	}
	defer arch.Close()
	if err := arch.Migrate(); err != nil {
		return err
	}

	if cfg.hostToken == "" {
		cfg.hostToken = strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	name := strings.TrimSpace(cfg.name)
	if name == "" {
		name = "Host"
	}

	hostID := uuid.NewString()
	screen := newConsole(cfg.log, hostID)
	rec := newRecorder(ctx, arch, cfg.log)

	host := game.NewHost(name,
		game.WithHostID(hostID),
		game.WithQuiz(quiz),
		game.WithTiming(cfg.timing()),
		game.WithLogger(cfg.log),
		game.WithOnUpdate(func(s game.GameState) {
			screen.show(s)
			rec.observe(s)
		}),
	)

	rooms := transport.NewRegistry()
	rooms.Add(host)

	listener := transport.NewListener(rooms,
		transport.WithListenerLogger(cfg.log),
		transport.WithReadLimit(cfg.maxMessageBytes),
		transport.WithRateLimit(cfg.messagesPerSecond, max(int(cfg.messagesPerSecond)*2, 4)),
	)

	mux := httprouter.New()

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           mux,
		IdleTimeout:       10 * time.Minute,
		ReadHeaderTimeout: timeout,
	}

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusInternalServerError)

		io.WriteString(w, newPage("Server Error", "An error has occurred. Please try again."))
	}

	errs := make(chan error, 64)

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	mux.GET(cfg.prefix+"/", serveHomePage(cfg, host))

	mux.GET(cfg.prefix+"/healthz", serveHealthCheck(cfg, errs))

	mux.GET(cfg.prefix+"/robots.txt", serveRobots(cfg, errs))

	mux.GET(cfg.prefix+"/version", serveVersion(cfg, errs))

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	listener.Routes(cfg.prefix, mux)

	registerControl(cfg, host, mux, errs)

	go func() {
		for err := range errs {
			cfg.log.Debug().Err(err).Msg("SERVE: write failed")
		}
	}()

	runErr := make(chan error, 1)
	go func() {
		runErr <- host.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		var err error
		cfg.log.Info().Msgf("SERVE: Listening on %s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			host.Close()
		}
	}()

	link := joinURL(cfg, host.Code())
	announceRoom(os.Stdout, host.Code(), link, cfg.hostToken)

	select {
	case <-ctx.Done():
		host.Close()
	case <-host.Done():
	}
	err = <-runErr

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	rec.wait()

	select {
	case err := <-serveErr:
		return err
	default:
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// announceRoom prints how to reach the room, with a QR code for phones.
func announceRoom(w io.Writer, code, link, token string) {
	qr, err := qrcode.New(link, qrcode.Medium)
	if err == nil {
		io.WriteString(w, qr.ToSmallString(false))
	}
	io.WriteString(w, "\n  Room code:  "+code+"\n")
	io.WriteString(w, "  Join page:  "+link+"\n")
	io.WriteString(w, "  Host token: "+token+"\n\n")
}
