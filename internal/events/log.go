package events

import (
	"context"

	"github.com/dmitrijs2005/gophmsg/internal/logging"
)

// LogRecorder writes events to the structured log, failures at warn level.
type LogRecorder struct {
	log logging.Logger
}

func NewLogRecorder(log logging.Logger) *LogRecorder {
	return &LogRecorder{log: log.With("module", "events")}
}

func (r *LogRecorder) Record(ctx context.Context, e Event) {
	args := []any{
		"event_id", e.ID,
		"op", e.Operation,
		"actor", e.Actor,
		"outcome", e.Outcome,
		"duration", e.Duration,
	}
	if e.Peer != 0 {
		args = append(args, "peer", e.Peer)
	}
	if e.Envelope != 0 {
		args = append(args, "envelope_id", e.Envelope)
	}
	if e.Count != 0 {
		args = append(args, "count", e.Count)
	}

	if e.Outcome == OutcomeError {
		r.log.Warn(ctx, "operation failed", append(args, "error", e.Error)...)
		return
	}
	r.log.Info(ctx, "operation completed", args...)
}
