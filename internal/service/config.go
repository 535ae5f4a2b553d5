package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/CZERTAINLY/Testbed/internal/checkin"
	"github.com/CZERTAINLY/Testbed/internal/command"
	"github.com/CZERTAINLY/Testbed/internal/lifecycle"
	"github.com/CZERTAINLY/Testbed/internal/logsink"
	"github.com/CZERTAINLY/Testbed/internal/metrics"
	"github.com/CZERTAINLY/Testbed/internal/model"
)

// ManagerFromConfig initializes a manager with the check-in backend, log
// sinks, observers and the recurring trigger described by cfg. Human
// readable progress is printed to out.
func ManagerFromConfig(ctx context.Context, cfg model.Config, out io.Writer, rec *metrics.Recorder, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	committer, err := CommitterFromConfig(cfg.CheckIn)
	if err != nil {
		return nil, fmt.Errorf("initializing check-in: %w", err)
	}

	sinks, err := logsink.Open(ctx, cfg.Sinks, out)
	if err != nil {
		return nil, fmt.Errorf("initializing sinks: %w", err)
	}

	names := cfg.Observers
	if names == nil {
		names = model.DefaultObservers
	}
	observers := make([]lifecycle.Observer, 0, len(names))
	for _, name := range names {
		observers = append(observers, lifecycle.NewNamedObserver(name, out))
	}

	var pipeline model.Pipeline
	if cfg.Pipeline != nil {
		pipeline = *cfg.Pipeline
	}

	m := NewManager(append([]Option{
		WithCommitter(committer),
		WithSinks(sinks...),
		WithObservers(observers...),
		WithPolicy(command.Policy(model.GetOr(pipeline.Policy, model.PolicyContinue))),
		WithAutoCheckIn(model.Get(pipeline.AutoCheckIn)),
		WithMetrics(rec),
		WithOutput(out),
	}, opts...)...)

	scheduler, err := NewScheduler(ctx, cfg.Trigger, time.Now(), m.Trigger)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("initializing trigger: %w", err), logsink.Close(sinks...))
	}
	m.scheduler = scheduler
	return m, nil
}

// CommitterFromConfig returns the check-in backend, an in-memory repository
// by default
func CommitterFromConfig(cfg *model.CheckIn) (checkin.Committer, error) {
	if cfg == nil {
		return checkin.NewMemoryRepo()
	}

	switch cfg.Mode {
	case model.CheckInMemory:
		var delay time.Duration
		if d := model.Get(cfg.Delay); d != "" {
			var err error
			delay, err = model.ParseISODuration(d)
			if err != nil {
				return nil, fmt.Errorf("parsing checkin.delay: %w", err)
			}
		}
		return checkin.NewMemoryRepo(
			checkin.WithDelay(delay),
			checkin.WithAuthor(model.Get(cfg.Author), model.Get(cfg.Email)),
		)
	case model.CheckInRepository:
		path := model.Get(cfg.Repository)
		if path == "" {
			return nil, errors.New("checkin.repository is required for repository mode")
		}
		return checkin.NewHeadWatcher(path, nil), nil
	default:
		return nil, fmt.Errorf("unsupported checkin.mode %q", cfg.Mode)
	}
}
