package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/uyan/internal/logging"
)

// Log writes notifications to the structured log. It is always ready and
// is the sink of last resort when no broker is configured.
type Log struct {
	logger zerolog.Logger
}

var _ Sink = (*Log)(nil)

// NewLog creates a log sink.
func NewLog() *Log {
	return &Log{logger: logging.GetLogger("notify")}
}

func (l *Log) NotifyOnce(_ context.Context, title, body string) error {
	l.logger.Info().Str("title", title).Str("body", body).Msg("Notification")
	return nil
}

func (l *Log) ShowPersistent(_ context.Context, id, title, body string) error {
	l.logger.Debug().Str("tag", id).Str("title", title).Str("body", body).Msg("Persistent notification")
	return nil
}

func (l *Log) Clear(_ context.Context, id string) error {
	l.logger.Debug().Str("tag", id).Msg("Persistent notification cleared")
	return nil
}

func (l *Log) Ready() bool { return true }
