// Package logger defines the logging contract used across the client and a
// zerolog-backed default implementation.
package logger

import (
	"io"

	"github.com/rs/zerolog"
)

// Logger accepts a message followed by alternating key/value pairs.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
}

type ZeroLogger struct {
	logger zerolog.Logger
}

func New(w io.Writer) *ZeroLogger {
	return &ZeroLogger{
		logger: zerolog.New(w).With().Timestamp().Logger(),
	}
}

func (z *ZeroLogger) Error(msg string, args ...any) {
	withFields(z.logger.Error(), args).Msg(msg)
}

func (z *ZeroLogger) Warn(msg string, args ...any) {
	withFields(z.logger.Warn(), args).Msg(msg)
}

func (z *ZeroLogger) Info(msg string, args ...any) {
	withFields(z.logger.Info(), args).Msg(msg)
}

func (z *ZeroLogger) Debug(msg string, args ...any) {
	withFields(z.logger.Debug(), args).Msg(msg)
}

func withFields(ev *zerolog.Event, args []any) *zerolog.Event {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, args[i+1])
	}
	return ev
}

// Noop discards everything. Used when no logger is configured.
type Noop struct{}

func (Noop) Error(string, ...any) {}
func (Noop) Warn(string, ...any)  {}
func (Noop) Info(string, ...any)  {}
func (Noop) Debug(string, ...any) {}
