/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/karanwg/draWG/internal/game"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "secret"

func stillTicker(time.Duration) (<-chan time.Time, func()) {
	return make(chan time.Time), func() {}
}

func testConfig() *Config {
	return &Config{
		hostToken: testToken,
		port:      8080,
		log:       zerolog.Nop(),
	}
}

func startControl(t *testing.T) (*game.Host, *httptest.Server) {
	t.Helper()

	host := game.NewHost("Hana",
		game.WithRoomCode("ABCD"),
		game.WithHostID("host"),
		game.WithTicker(stillTicker),
	)
	ctx, cancel := context.WithCancel(context.Background())
	go host.Run(ctx)

	mux := httprouter.New()
	errs := make(chan error, 16)
	registerControl(testConfig(), host, mux, errs)
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-host.Done()
	})
	return host, srv
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body io.Reader) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set(hostTokenHeader, token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decodeState(t *testing.T, data []byte) game.GameState {
	t.Helper()
	var s game.GameState
	require.NoError(t, json.Unmarshal(data, &s))
	return s
}

func intent(t *testing.T, msg game.Message) io.Reader {
	t.Helper()
	env, err := game.Encode("host", msg)
	require.NoError(t, err)
	data, err := game.MarshalEnvelope(env)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func TestStateRequiresHostToken(t *testing.T) {
	_, srv := startControl(t)

	code, _ := call(t, srv, http.MethodGet, "/rooms/ABCD/state", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = call(t, srv, http.MethodGet, "/rooms/ABCD/state", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = call(t, srv, http.MethodGet, "/rooms/WXYZ/state", testToken, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, data := call(t, srv, http.MethodGet, "/rooms/abcd/state", testToken, nil)
	require.Equal(t, http.StatusOK, code)
	s := decodeState(t, data)
	assert.Equal(t, game.PhaseLobby, s.Phase)
	assert.Equal(t, "ABCD", s.RoomCode)
	require.Len(t, s.Players, 1)
	assert.True(t, s.Players[0].IsHost)
}

func TestHostCommands(t *testing.T) {
	_, srv := startControl(t)

	code, _ := call(t, srv, http.MethodPost, "/rooms/ABCD/play-again", testToken, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, data := call(t, srv, http.MethodPost, "/rooms/ABCD/start", testToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, game.PhaseSentenceSubmission, decodeState(t, data).Phase)

	code, _ = call(t, srv, http.MethodPost, "/rooms/ABCD/start", testToken, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = call(t, srv, http.MethodPost, "/rooms/ABCD/quiz", testToken, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, data = call(t, srv, http.MethodPost, "/rooms/ABCD/quiz?force=true", testToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, game.PhaseQuiz, decodeState(t, data).Phase)
}

func TestHostIntents(t *testing.T) {
	host, srv := startControl(t)
	require.NoError(t, host.Start())

	code, data := call(t, srv, http.MethodPost, "/rooms/ABCD/intents", testToken, intent(t, game.SubmitSentence{Sentence: "a duck in a tuxedo"}))
	require.Equal(t, http.StatusOK, code)
	s := decodeState(t, data)
	assert.Equal(t, "a duck in a tuxedo", s.Players[0].Sentence)
	assert.Equal(t, game.PhaseQuiz, s.Phase, "the only sentence completes the phase")

	code, _ = call(t, srv, http.MethodPost, "/rooms/ABCD/intents", testToken, intent(t, game.RequestSync{}))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, srv, http.MethodPost, "/rooms/ABCD/intents", testToken, strings.NewReader(`{"type":"dance"}`))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, srv, http.MethodPost, "/rooms/ABCD/intents", testToken, strings.NewReader(`not json`))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCommandsAfterClose(t *testing.T) {
	host, srv := startControl(t)
	host.Close()
	<-host.Done()

	code, _ := call(t, srv, http.MethodPost, "/rooms/ABCD/start", testToken, nil)
	assert.Equal(t, http.StatusGone, code)
}

func TestRoomPageAndQR(t *testing.T) {
	_, srv := startControl(t)

	code, data := call(t, srv, http.MethodGet, "/rooms/abcd", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(data), "Room ABCD")
	assert.Contains(t, string(data), "/rooms/ABCD/qr.png")

	code, _ = call(t, srv, http.MethodGet, "/rooms/WXYZ", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, data = call(t, srv, http.MethodGet, "/rooms/ABCD/qr.png", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	code, _ = call(t, srv, http.MethodGet, "/rooms/WXYZ/qr.png", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCommandStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, commandStatus(nil))
	assert.Equal(t, http.StatusConflict, commandStatus(game.ErrWrongPhase))
	assert.Equal(t, http.StatusConflict, commandStatus(game.ErrSentencesMissing))
	assert.Equal(t, http.StatusGone, commandStatus(game.ErrRoomClosed))
	assert.Equal(t, http.StatusBadRequest, commandStatus(errBadIntent))
	assert.Equal(t, http.StatusInternalServerError, commandStatus(io.ErrUnexpectedEOF))
}
