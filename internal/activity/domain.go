package activity

import (
	"context"
	"time"
)

// Entry is one activity-log record. OldValues/NewValues carry the mutated
// attributes for update-style actions; either may be nil.
type Entry struct {
	ActorID     int64          `json:"actor_id"`
	Action      string         `json:"action"`
	Entity      string         `json:"entity"`
	EntityID    string         `json:"entity_id"`
	OldValues   map[string]any `json:"old_values,omitempty"`
	NewValues   map[string]any `json:"new_values,omitempty"`
	Description string         `json:"description,omitempty"`
	At          time.Time      `json:"at"`
}

// Recorder is the write-only sink the authorization core reports into after
// every mutation. Implementations are fire-and-forget: a failing sink never
// blocks or fails the mutation that triggered it.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}
