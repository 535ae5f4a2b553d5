package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/CZERTAINLY/Testbed/internal/model"
	"github.com/CZERTAINLY/Testbed/internal/service"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestNextFire(t *testing.T) {
	t.Parallel()
	// Monday 2026-10-19 10:00 UTC
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	week := 7 * 24 * time.Hour
	type given struct {
		first  time.Time
		period time.Duration
	}
	cases := []struct {
		scenario string
		given    given
		then     time.Time
	}{
		{
			scenario: "monday 9am already passed",
			given:    given{time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC), week},
			then:     time.Date(2026, 10, 26, 9, 0, 0, 0, time.UTC),
		},
		{
			scenario: "future first fire",
			given:    given{time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC), week},
			then:     time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC),
		},
		{
			scenario: "first equals now",
			given:    given{now, time.Hour},
			then:     now.Add(time.Hour),
		},
		{
			scenario: "no catch up",
			given:    given{now.Add(-10*time.Hour - time.Minute), time.Hour},
			then:     now.Add(59 * time.Minute),
		},
		{
			scenario: "exact multiple is skipped",
			given:    given{now.Add(-3 * time.Hour), time.Hour},
			then:     now.Add(time.Hour),
		},
		{
			scenario: "zero period",
			given:    given{now.Add(-time.Hour), 0},
			then:     now.Add(-time.Hour),
		},
	}
	for _, tc := range cases {
		t.Run(tc.scenario, func(t *testing.T) {
			got := service.NextFire(now, tc.given.first, tc.given.period)
			require.Equal(t, tc.then, got)
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}

func TestNewScheduler(t *testing.T) {
	t.Parallel()
	// gocron refuses a start in the past, so the wall clock is used here
	now := time.Now()
	past := now.Add(-26 * time.Hour).UTC().Format(time.RFC3339)
	noop := func() {}
	cases := []struct {
		scenario string
		given    *model.Trigger
		nilSched bool
		err      string
	}{
		{"nil", nil, true, ""},
		{"disabled", &model.Trigger{Enabled: ptr(false), Cron: ptr(model.DefaultCron)}, true, ""},
		{"cron", &model.Trigger{Cron: ptr(model.DefaultCron)}, false, ""},
		{"macro", &model.Trigger{Cron: ptr("@weekly")}, false, ""},
		{"duration with past start", &model.Trigger{Duration: ptr("P7D"), Start: ptr(past)}, false, ""},
		{"duration", &model.Trigger{Duration: ptr("PT1H")}, false, ""},
		{"bad cron", &model.Trigger{Cron: ptr("* * 32 * *")}, true, "parsing trigger.cron"},
		{"bad duration", &model.Trigger{Duration: ptr("7 days")}, true, "parsing trigger.duration"},
		{"bad start", &model.Trigger{Duration: ptr("P7D"), Start: ptr("monday")}, true, "parsing trigger.start"},
		{"empty", &model.Trigger{}, true, "both cron and duration are empty"},
	}
	for _, tc := range cases {
		t.Run(tc.scenario, func(t *testing.T) {
			s, err := service.NewScheduler(t.Context(), tc.given, now, noop)
			if tc.err != "" {
				require.ErrorContains(t, err, tc.err)
			} else {
				require.NoError(t, err)
			}
			if tc.nilSched {
				require.Nil(t, s)
				return
			}
			require.NotNil(t, s)
			require.Len(t, s.Jobs(), 1)
			require.NoError(t, s.Shutdown())
		})
	}
}

func TestDo(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m, sink := newManager(t)
	ctx, cancel := context.WithCancel(t.Context())

	var wg sync.WaitGroup
	wg.Go(func() {
		err := m.Do(ctx)
		require.NoError(t, err)
	})

	_, err := m.CheckIn(ctx)
	require.NoError(t, err)
	m.Schedule(plan(t, "AIX", "GUI"))
	m.Trigger()
	m.Trigger()

	require.Eventually(t, func() bool {
		entries, err := sink.Entries(ctx)
		return err == nil && len(entries) == 1 && len(m.Pending()) == 0
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	wg.Wait()
	require.NoError(t, m.Close())
}

func TestDoScheduler(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m, sink := newManager(t, service.WithAutoCheckIn(true))
	s, err := service.NewScheduler(t.Context(), &model.Trigger{Duration: ptr("PT0.05S")}, time.Now(), m.Trigger)
	require.NoError(t, err)
	service.WithScheduler(s)(m)

	m.Schedule(plan(t, "macOS", "Network"))
	m.Schedule(plan(t, "AIX", "All"))

	ctx, cancel := context.WithCancel(t.Context())
	var wg sync.WaitGroup
	wg.Go(func() {
		require.NoError(t, m.Do(ctx))
	})

	require.Eventually(t, func() bool {
		entries, err := sink.Entries(ctx)
		return err == nil && len(entries) == 2
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	wg.Wait()
	require.NoError(t, m.Close())
}

func TestManagerFromConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := model.DefaultConfig()
	cfg.Sinks = []model.Sink{
		{Type: model.SinkJSON, Path: ptr(filepath.Join(dir, "test_log.json"))},
		{Type: model.SinkSQLite, Path: ptr(filepath.Join(dir, "test_log.db"))},
	}
	cfg.Pipeline.AutoCheckIn = ptr(true)

	var out safeBuffer
	m, err := service.ManagerFromConfig(t.Context(), cfg, &out, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	require.Equal(t, model.DefaultObservers, m.Subject().Observers())

	m.Schedule(plan(t, "AIX", "GUI"))
	results, err := m.RunAll(t.Context())
	require.NoError(t, err)
	require.True(t, results[0].Executed)

	lines, err := m.ViewLogs(t.Context())
	require.NoError(t, err)
	require.Equal(t, "[", lines[0])
	require.Contains(t, out.String(), "[Observer] Project Manager has been notified.")
	require.Contains(t, out.String(), "[Observer] QA Team has been notified.")

	cfg.Trigger = &model.Trigger{Cron: ptr("not a cron")}
	_, err = service.ManagerFromConfig(t.Context(), cfg, &out, nil)
	require.ErrorContains(t, err, "initializing trigger")

	cfg.Trigger = nil
	cfg.CheckIn = &model.CheckIn{Mode: model.CheckInRepository, Repository: ptr(dir)}
	_, err = service.ManagerFromConfig(t.Context(), cfg, &out, nil)
	require.ErrorIs(t, err, model.ErrConflict)
}

func TestCommitterFromConfig(t *testing.T) {
	t.Parallel()
	c, err := service.CommitterFromConfig(nil)
	require.NoError(t, err)
	require.NotNil(t, c)

	c, err = service.CommitterFromConfig(&model.CheckIn{Mode: model.CheckInMemory, Delay: ptr("PT2S"), Author: ptr("QA")})
	require.NoError(t, err)
	require.NotNil(t, c)

	_, err = service.CommitterFromConfig(&model.CheckIn{Mode: model.CheckInMemory, Delay: ptr("2s")})
	require.ErrorContains(t, err, "checkin.delay")

	c, err = service.CommitterFromConfig(&model.CheckIn{Mode: model.CheckInRepository, Repository: ptr(t.TempDir())})
	require.NoError(t, err)
	require.NotNil(t, c)

	_, err = service.CommitterFromConfig(&model.CheckIn{Mode: model.CheckInRepository})
	require.ErrorContains(t, err, "checkin.repository")

	_, err = service.CommitterFromConfig(&model.CheckIn{Mode: "svn"})
	require.Error(t, err)
}
