// Package audit writes audit events to the structured log. The sink is fire
// and forget; callers never block on it.
package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mvigliero/celushop/internal/domain"
)

type Logger struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Logger {
	return &Logger{log: log.With().Str("component", "audit").Logger()}
}

func (l *Logger) Record(_ context.Context, ev domain.AuditEvent) {
	l.log.Info().
		Str("actor", ev.Actor).
		Str("action", ev.Action).
		Str("entity", ev.Entity).
		Str("ref", ev.Ref).
		Time("at", ev.At).
		Msg("audit")
}
