package cmds

import (
	"io"
	"os"
	"strings"

	"github.com/go-go-golems/chatwidget/pkg/chatapi"
	"github.com/go-go-golems/chatwidget/pkg/config"
	"github.com/go-go-golems/chatwidget/pkg/exchange"
	"github.com/go-go-golems/chatwidget/pkg/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// interactiveCommands draw on the terminal, so their logs must not go to stderr.
var interactiveCommands = map[string]bool{"run": true}

// logFile is the --log-file handle opened by InitLogger, closed by CloseLogger.
var logFile *os.File

// InitLogger configures the global zerolog logger from --log-level and
// --log-file (or their CHATWIDGET_ environment variables).
func InitLogger(cmd *cobra.Command) error {
	v, err := config.NewViper(cmd)
	if err != nil {
		return err
	}

	level := zerolog.InfoLevel
	if s := strings.TrimSpace(v.GetString(config.KeyLogLevel)); s != "" {
		level, err = zerolog.ParseLevel(s)
		if err != nil {
			return errors.Wrapf(err, "invalid log level %q", s)
		}
	}
	zerolog.SetGlobalLevel(level)

	if err := CloseLogger(); err != nil {
		return err
	}
	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if path := strings.TrimSpace(v.GetString(config.KeyLogFile)); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrapf(err, "failed to open log file %s", path)
		}
		logFile = f
		w = f
	} else if interactiveCommands[cmd.Name()] {
		w = io.Discard
	}

	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return nil
}

// CloseLogger closes the --log-file handle, if any, and points the global
// logger back at stderr.
func CloseLogger() error {
	if logFile == nil {
		return nil
	}
	f := logFile
	logFile = nil
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	return errors.Wrap(f.Close(), "failed to close log file")
}

func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	v, err := config.NewViper(cmd)
	if err != nil {
		return nil, err
	}
	s, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("base_url", s.BaseURL).
		Str("variant", s.Variant).
		Str("failure_policy", s.FailurePolicy).
		Str("render", s.Render).
		Msg("settings loaded")
	return s, nil
}

// stack is the client side of a widget: one backend client and the thread it talks on.
type stack struct {
	client   *chatapi.Client
	sessions *session.Manager
}

func newStack(s *config.Settings) (*stack, error) {
	client, err := chatapi.NewClient(s.BaseURL,
		chatapi.WithTimeout(s.Timeout),
		chatapi.WithRetries(s.Retries),
		chatapi.WithLogger(log.Logger),
	)
	if err != nil {
		return nil, err
	}
	return &stack{client: client, sessions: session.NewManager(client, session.WithCreateTimeout(s.Timeout))}, nil
}

func exchangeOptions(s *config.Settings) []exchange.Option {
	return []exchange.Option{
		exchange.WithFailurePolicy(s.Policy()),
		exchange.WithFallbackMessage(s.FallbackMessage),
		exchange.WithTimeout(s.Timeout),
	}
}
