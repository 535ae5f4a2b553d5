// Package logsink stores an append-only log of completed test cycles.
package logsink

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is a single record of a completed test cycle
type Entry struct {
	Description string `json:"description"`
	Platform    string `json:"platform"`
	Timestamp   string `json:"timestamp"` // RFC3339 in UTC
	Cycle       string `json:"cycle,omitempty"`
}

func NewEntry(description, platform string, when time.Time, cycle uuid.UUID) Entry {
	e := Entry{
		Description: description,
		Platform:    platform,
		Timestamp:   when.UTC().Format(time.RFC3339),
	}
	if cycle != uuid.Nil {
		e.Cycle = cycle.String()
	}
	return e
}

// Sink appends entries to a log
type Sink interface {
	Append(ctx context.Context, entry Entry) error
}

type SinkCloser interface {
	Sink
	Close() error
}

// Viewer returns the raw lines of a log, a log which does not exist yet is empty
type Viewer interface {
	Lines(ctx context.Context) ([]string, error)
}
