package logsvc

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/trezcool/mentorship/core"
)

// Config holds the zerolog configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Pretty bool   // console output instead of JSON
	Out    io.Writer
}

// NewZerolog creates a structured logger.
func NewZerolog(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// ZeroLogger is the development core.Logger.
type ZeroLogger struct {
	log zerolog.Logger
}

var _ core.Logger = (*ZeroLogger)(nil)

func NewZeroLogger(log zerolog.Logger) *ZeroLogger {
	return &ZeroLogger{log: log}
}

// Zerolog returns the underlying logger, with its own level & fields.
func (l ZeroLogger) Zerolog() zerolog.Logger {
	return l.log
}

// expected fmt: msg | error, map[string]interface{}, core.Person
func (l ZeroLogger) write(evt *zerolog.Event, msg string, args []interface{}) {
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			evt = evt.Err(a)
		case map[string]interface{}:
			evt = evt.Fields(a)
		case core.Person:
			evt = evt.Str("user_id", a.ID).Str("username", a.Username)
		default:
			evt = evt.Interface("extra", a)
		}
	}
	evt.Msg(msg)
}

func (l ZeroLogger) Debug(msg string, args ...interface{}) {
	l.write(l.log.Debug(), msg, args)
}

func (l ZeroLogger) Info(msg string, args ...interface{}) {
	l.write(l.log.Info(), msg, args)
}

func (l ZeroLogger) Warn(msg string, args ...interface{}) {
	l.write(l.log.Warn(), msg, args)
}

func (l ZeroLogger) Error(msg string, args ...interface{}) {
	l.write(l.log.Error(), msg, args)
}

func (l ZeroLogger) Fatal(msg string, args ...interface{}) {
	l.write(l.log.Fatal(), msg, args)
}
