// Package zerolog adapts an rs/zerolog logger to the workstream.Logger
// contract, mapping Field pairs onto zerolog event fields.
package zerolog

import (
	"github.com/rs/zerolog"

	"github.com/workstream/workstream/pkg/workstream"
)

// Logger forwards pipeline log entries to a zerolog.Logger.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger wraps an existing zerolog.Logger. Level filtering stays with
// the wrapped logger; disabled levels cost one nil check.
func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (l *Logger) Debug(msg string, fields ...workstream.Field) {
	l.emit(l.logger.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...workstream.Field) {
	l.emit(l.logger.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...workstream.Field) {
	l.emit(l.logger.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...workstream.Field) {
	l.emit(l.logger.Error(), msg, fields)
}

func (l *Logger) emit(event *zerolog.Event, msg string, fields []workstream.Field) {
	if event == nil {
		return
	}
	for _, f := range fields {
		event = event.Interface(f.Key, f.Value)
	}
	event.Msg(msg)
}
