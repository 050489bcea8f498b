// Package events records one structured Event per messaging operation and
// fans it out to sinks: the application log, a JSON Lines audit file and
// Prometheus counters. Events never carry key material or plaintext.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Operation names.
const (
	OpRegister      = "register"
	OpLogin         = "login"
	OpSend          = "send"
	OpOpen          = "open"
	OpInbox         = "inbox"
	OpNotifications = "notifications"
	OpStatus        = "status"
)

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

type Event struct {
	ID        string        `json:"id"`
	Time      time.Time     `json:"ts"`
	Operation string        `json:"op"`
	Actor     int64         `json:"actor,omitempty"`
	Peer      int64         `json:"peer,omitempty"`
	Envelope  int64         `json:"envelope,omitempty"`
	Count     int           `json:"count,omitempty"`
	Outcome   string        `json:"outcome"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
}

// Recorder consumes events. Implementations must be safe for concurrent use
// and must not fail the operation that produced the event.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

// Start opens an event for op performed by actor.
func Start(op string, actor int64) Event {
	return Event{
		ID:        uuid.NewString(),
		Time:      time.Now().UTC(),
		Operation: op,
		Actor:     actor,
	}
}

// Finish stamps the outcome and elapsed time.
func (e Event) Finish(err error) Event {
	e.Duration = time.Since(e.Time)
	if err != nil {
		e.Outcome = OutcomeError
		e.Error = err.Error()
	} else {
		e.Outcome = OutcomeOK
	}
	return e
}

// Multi fans an event out to every recorder in order.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, e Event) {
	for _, r := range m {
		if r != nil {
			r.Record(ctx, e)
		}
	}
}

// Nop drops every event.
type Nop struct{}

func (Nop) Record(context.Context, Event) {}
