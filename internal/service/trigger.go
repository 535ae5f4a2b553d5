package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gocron "github.com/go-co-op/gocron/v2"

	"github.com/CZERTAINLY/Testbed/internal/model"
)

// Trigger asks the event loop to run all scheduled executions. This is a
// signal only: it returns immediately and a trigger arriving while one is
// already pending is coalesced.
func (m *Manager) Trigger() {
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

// Do runs the manager event loop.
// It multiplexes two concerns:
//  1. Run triggers (manual Trigger calls or scheduler fires): RunAll drains
//     the registry and runs an execution pipeline per request.
//  2. Context cancellation: terminates the loop and begins shutdown.
//
// Startup: starts the scheduler (if present).
// Shutdown: stops the scheduler and waits for its running jobs.
// Errors of individual runs are only logged; Do returns nil on cancellation.
func (m *Manager) Do(ctx context.Context) error {
	slog.DebugContext(ctx, "starting a manager")

	if m.scheduler != nil {
		m.scheduler.Start()
		defer m.stopScheduler(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.trigger:
			results, err := m.RunAll(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "run returned", "error", err)
			}
			slog.DebugContext(ctx, "run finished", "executions", len(results))
		}
	}
}

func (m *Manager) stopScheduler(ctx context.Context) {
	if m.scheduler == nil {
		return
	}
	m.stopOnce.Do(func() {
		err := m.scheduler.Shutdown()
		if err != nil {
			slog.ErrorContext(ctx, "shutting down gocron has failed", "error", err)
		}
	})
}

// NextFire returns the first fire time of a recurring trigger which starts
// at first and repeats each period. It is first when it is after now,
// otherwise the first instant first+k*period strictly after now. Missed
// fires are skipped.
func NextFire(now, first time.Time, period time.Duration) time.Time {
	if first.After(now) || period <= 0 {
		return first
	}
	k := now.Sub(first)/period + 1
	return first.Add(k * period)
}

// NewScheduler returns a scheduler calling fire according to cfg, nil when
// the trigger is disabled. Cron has a precedence over duration.
func NewScheduler(ctx context.Context, cfg *model.Trigger, now time.Time, fire func()) (gocron.Scheduler, error) {
	if cfg == nil || !model.GetOr(cfg.Enabled, true) {
		return nil, nil
	}

	var job gocron.JobDefinition
	var opts []gocron.JobOption
	switch {
	case model.Get(cfg.Cron) != "":
		expr := *cfg.Cron
		schedule, err := model.ParseCron(expr)
		if err != nil {
			return nil, fmt.Errorf("parsing trigger.cron: %w", err)
		}
		job = gocron.CronJob(expr, false)
		slog.DebugContext(ctx, "successfully parsed", "cron", expr, "next", schedule.Next(now), "interval", model.CronInterval(schedule, now).String())
	case model.Get(cfg.Duration) != "":
		d, err := model.ParseISODuration(*cfg.Duration)
		if err != nil {
			return nil, fmt.Errorf("parsing trigger.duration: %w", err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("trigger.duration must be positive: got %s", d)
		}
		first := now.Add(d)
		if start := model.Get(cfg.Start); start != "" {
			first, err = time.Parse(time.RFC3339, start)
			if err != nil {
				return nil, fmt.Errorf("parsing trigger.start: %w", err)
			}
		}
		next := NextFire(now, first, d)
		job = gocron.DurationJob(d)
		opts = append(opts, gocron.WithStartAt(gocron.WithStartDateTime(next)))
		slog.DebugContext(ctx, "successfully parsed", "duration", d.String(), "next", next)
	default:
		return nil, errors.New("both cron and duration are empty")
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("initializing gocron scheduler: %w", err)
	}
	opts = append(opts, gocron.WithSingletonMode(gocron.LimitModeReschedule))
	_, err = s.NewJob(
		job,
		gocron.NewTask(fire),
		opts...,
	)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("initializing gocron job: %w", err), s.Shutdown())
	}
	return s, nil
}
