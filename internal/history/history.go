package history

import (
	"context"
	"fmt"
	"time"

	"github.com/loykin/acqsim/internal/yield"
)

// EventType defines the kind of history event.
type EventType string

const (
	EventTick EventType = "tick"
)

// Event is one yield snapshot exported to external systems.
type Event struct {
	Type       EventType     `json:"type"`
	OccurredAt time.Time     `json:"occurred_at"`
	RunID      string        `json:"run_id"`
	Summary    yield.Summary `json:"summary"`
}

// Sink is a destination for history events (analytics/statistics systems).
// Implementations must be safe for concurrent use. Sinks are write-only:
// nothing is ever read back into the simulator.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

// SinkName returns a short label for s, used in logs and metrics.
func SinkName(s Sink) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}

// Close closes s if it holds resources.
func Close(s Sink) error {
	if c, ok := s.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
