/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validHostConfig() *Config {
	return &Config{
		port:              8080,
		quizSeconds:       60,
		drawingSeconds:    90,
		slideSeconds:      8,
		maxMessageBytes:   4 << 20,
		messagesPerSecond: 10,
	}
}

func TestValidateHost(t *testing.T) {
	require.NoError(t, validHostConfig().validateHost())

	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"port too low", func(c *Config) { c.port = 0 }},
		{"port too high", func(c *Config) { c.port = 70000 }},
		{"cert without key", func(c *Config) { c.tlsCert = "cert.pem" }},
		{"key without cert", func(c *Config) { c.tlsKey = "key.pem" }},
		{"zero quiz timer", func(c *Config) { c.quizSeconds = 0 }},
		{"negative slide timer", func(c *Config) { c.slideSeconds = -1 }},
		{"tiny messages", func(c *Config) { c.maxMessageBytes = 512 }},
		{"no rate", func(c *Config) { c.messagesPerSecond = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validHostConfig()
			tt.modify(c)
			assert.Error(t, c.validateHost())
		})
	}
}

func TestValidateJoinAndName(t *testing.T) {
	c := &Config{hostURL: "http://localhost:8080", room: "abcd"}
	assert.NoError(t, c.validateJoin())

	c.room = "AB1D"
	assert.Error(t, c.validateJoin(), "1 is not in the room alphabet")

	c.room, c.hostURL = "ABCD", ""
	assert.Error(t, c.validateJoin())

	c.name = strings.Repeat("é", maxNameLength)
	assert.NoError(t, c.validate())
	c.name += "x"
	assert.Error(t, c.validate())
}

func TestSchemeAndTiming(t *testing.T) {
	c := validHostConfig()
	assert.Equal(t, "http", c.scheme())
	c.tlsCert, c.tlsKey = "cert.pem", "key.pem"
	assert.Equal(t, "https", c.scheme())

	timing := c.timing()
	assert.Equal(t, 60, timing.QuizSeconds)
	assert.Equal(t, 90, timing.DrawingSeconds)
	assert.Equal(t, 8, timing.SlideSeconds)
}

func TestBindEnv(t *testing.T) {
	t.Setenv("DRAWG_PORT", "9090")
	t.Setenv("DRAWG_QUIZ_SECONDS", "30")
	t.Setenv("DRAWG_SLIDE_SECONDS", "3")

	var port, quiz, slide int
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.SetNormalizeFunc(normalizeFlags)
	fs.IntVar(&port, "port", 8080, "")
	fs.IntVar(&quiz, "quiz-seconds", 60, "")
	fs.IntVar(&slide, "slide-seconds", 8, "")
	require.NoError(t, fs.Parse([]string{"--slide-seconds=5"}))

	v := viper.New()
	v.SetEnvPrefix("DRAWG")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	bindEnv(v, fs)

	assert.Equal(t, 9090, port)
	assert.Equal(t, 30, quiz)
	assert.Equal(t, 5, slide, "flags on the command line beat the environment")
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, loadEnvFile(""))
	assert.NoError(t, loadEnvFile(filepath.Join(dir, "missing.env")))

	const key = "DRAWG_LOAD_ENV_FILE_TEST"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := filepath.Join(dir, "drawg.env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=WXYZ\n"), 0o600))
	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "WXYZ", os.Getenv(key))
}

func TestCommandRejectsBadInput(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "none.env")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad room", []string{"join", "--room", "bad"}, "invalid room code"},
		{"long name", []string{"join", "--room", "ABCD", "--name", strings.Repeat("n", maxNameLength+1)}, "--name"},
		{"bad port", []string{"host", "--port", "0"}, "invalid port"},
		{"lonely cert", []string{"host", "--tls-cert", "cert.pem"}, "--tls-key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newCmd(&Config{})
			cmd.SetArgs(append(tt.args, "--env-file", envFile))
			cmd.SetOut(&strings.Builder{})
			cmd.SetErr(&strings.Builder{})

			err := cmd.ExecuteContext(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEnvFileFromEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "party.env")
	require.NoError(t, os.WriteFile(path, []byte("DRAWG_ROOM=bad\n"), 0o600))

	t.Setenv("DRAWG_ENV_FILE", path)
	t.Cleanup(func() { os.Unsetenv("DRAWG_ROOM") })

	cmd := newCmd(&Config{})
	cmd.SetArgs([]string{"join"})
	cmd.SetOut(&strings.Builder{})
	cmd.SetErr(&strings.Builder{})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid room code: "bad"`)
}
