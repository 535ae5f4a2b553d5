// Package checkin records source code check-ins, which gate the execution
// of test cycles.
package checkin

import (
	"context"
	"errors"
	"time"
)

// ErrNoNewCommit is returned when a repository HEAD did not move since
// the last accepted check-in
var ErrNoNewCommit = errors.New("no new commit since the last check-in")

// Revision identifies an accepted check-in
type Revision struct {
	Hash   string
	Branch string
	When   time.Time
}

// Committer performs or verifies a check-in
type Committer interface {
	Commit(ctx context.Context, message string) (Revision, error)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
