/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/karanwg/draWG/internal/game"
	"github.com/karanwg/draWG/internal/transport"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const maxNameLength = game.MaxNameLength

type Config struct {
	bind              string
	databaseURL       string
	drawingSeconds    int
	envFile           string
	hostToken         string
	maxMessageBytes   int64
	messagesPerSecond float64
	name              string
	port              int
	prefix            string
	profile           bool
	quizFile          string
	quizSeconds       int
	slideSeconds      int
	tlsCert           string
	tlsKey            string
	verbose           bool

	// join only
	bot     bool
	hostURL string
	room    string

	log zerolog.Logger
}

func (c *Config) validate() error {
	if n := utf8.RuneCountInString(c.name); n > maxNameLength {
		return fmt.Errorf("invalid --name (must be at most %d characters): %d", maxNameLength, n)
	}
	return nil
}

func (c *Config) validateHost() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.quizSeconds < 1 || c.drawingSeconds < 1 || c.slideSeconds < 1 {
		return errors.New("phase timers must be at least one second")
	}
	if c.maxMessageBytes < 1024 {
		return fmt.Errorf("invalid --max-message-bytes (must be at least 1024): %d", c.maxMessageBytes)
	}
	if c.messagesPerSecond <= 0 {
		return fmt.Errorf("invalid --messages-per-second (must be positive): %v", c.messagesPerSecond)
	}
	return nil
}

func (c *Config) validateJoin() error {
	if c.hostURL == "" {
		return errors.New("--host-url is required")
	}
	if !game.ValidRoomCode(game.NormalizeRoomCode(c.room)) {
		return fmt.Errorf("invalid room code: %q", c.room)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func (c *Config) timing() game.Timing {
	return game.Timing{
		QuizSeconds:    c.quizSeconds,
		DrawingSeconds: c.drawingSeconds,
		SlideSeconds:   c.slideSeconds,
	}
}

// loadEnvFile reads a .env file into the environment. A missing file is not
// an error, and variables that are already set win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// bindEnv fills every flag the user did not set from its DRAWG_ variable.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func normalizeFlags(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("DRAWG")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "drawg",
		Short:         "A party game of quizzes, doodles and thumbs, hosted from one machine.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// once for DRAWG_ENV_FILE itself, again for what the file set
			bindEnv(v, cmd.Flags())
			if err := loadEnvFile(cfg.envFile); err != nil {
				return err
			}
			bindEnv(v, cmd.Flags())
			cfg.log = newLogger(os.Stderr, cfg.verbose)
			return cfg.validate()
		},
	}

	pfs := cmd.PersistentFlags()
	pfs.SetNormalizeFunc(normalizeFlags)

	pfs.StringVar(&cfg.envFile, "env-file", ".env", "file of KEY=value pairs loaded into the environment (env: DRAWG_ENV_FILE)")
	pfs.StringVarP(&cfg.name, "name", "n", "", "display name of this player, generated if empty (env: DRAWG_NAME)")
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: DRAWG_VERBOSE)")

	cmd.AddCommand(newHostCmd(cfg), newJoinCmd(cfg))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("drawg v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func newHostCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Open a room and serve it to participants.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validateHost(); err != nil {
				return err
			}
			return ServeRoom(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(normalizeFlags)

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: DRAWG_BIND)")
	fs.StringVar(&cfg.databaseURL, "database-url", "", "postgres url for the finished-game archive, disabled if empty (env: DRAWG_DATABASE_URL)")
	fs.IntVar(&cfg.drawingSeconds, "drawing-seconds", 90, "length of the drawing phase (env: DRAWG_DRAWING_SECONDS)")
	fs.StringVar(&cfg.hostToken, "host-token", "", "token required by the host control endpoints, random if empty (env: DRAWG_HOST_TOKEN)")
	fs.Int64Var(&cfg.maxMessageBytes, "max-message-bytes", transport.DefaultMaxMessageBytes, "largest message accepted from a participant (env: DRAWG_MAX_MESSAGE_BYTES)")
	fs.Float64Var(&cfg.messagesPerSecond, "messages-per-second", transport.DefaultMessagesPerSecond, "messages accepted per participant per second (env: DRAWG_MESSAGES_PER_SECOND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: DRAWG_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: DRAWG_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: DRAWG_PROFILE)")
	fs.StringVar(&cfg.quizFile, "quiz-file", "", "json file of quiz questions, built-in quiz if empty (env: DRAWG_QUIZ_FILE)")
	fs.IntVar(&cfg.quizSeconds, "quiz-seconds", 60, "length of the quiz phase (env: DRAWG_QUIZ_SECONDS)")
	fs.IntVar(&cfg.slideSeconds, "slide-seconds", 8, "time each drawing is shown in the slideshow (env: DRAWG_SLIDE_SECONDS)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: DRAWG_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: DRAWG_TLS_KEY)")

	return cmd
}

func newJoinCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join a room hosted elsewhere.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validateJoin(); err != nil {
				return err
			}
			return JoinRoom(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(normalizeFlags)

	fs.BoolVar(&cfg.bot, "bot", false, "answer every prompt automatically (env: DRAWG_BOT)")
	fs.StringVar(&cfg.hostURL, "host-url", "http://localhost:8080", "base url of the hosting server, including any prefix (env: DRAWG_HOST_URL)")
	fs.StringVarP(&cfg.room, "room", "r", "", "room code to join (env: DRAWG_ROOM)")

	return cmd
}
