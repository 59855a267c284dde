// Package slogsink bridges turn lifecycle events onto a structured logger.
package slogsink

import (
	"context"
	"log/slog"

	"turnflow/turn"
)

// Sink logs every published event at debug level.
type Sink struct {
	logger *slog.Logger
}

// New wraps the logger; a nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{logger: logger}
}

var _ turn.EventSink = (*Sink)(nil)

func (s *Sink) Publish(ctx context.Context, event turn.Event) error {
	if ctx == nil {
		return turn.ErrContextNil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	attrs := []any{
		slog.String("turn_id", event.TurnID),
		slog.String("type", string(event.Type)),
	}
	if event.Capability != "" {
		attrs = append(attrs, slog.String("capability", string(event.Capability)))
	}
	if event.ErrorKind != "" {
		attrs = append(attrs, slog.String("error_kind", string(event.ErrorKind)))
	}
	if event.Description != "" {
		attrs = append(attrs, slog.String("description", event.Description))
	}
	s.logger.Debug("turn event", attrs...)
	return nil
}
