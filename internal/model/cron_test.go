package model_test

import (
	"testing"
	"time"

	"github.com/CZERTAINLY/Testbed/internal/model"

	"github.com/stretchr/testify/require"
)

func TestParseCron(t *testing.T) {
	t.Parallel()
	// Monday
	now := time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC)

	type then struct {
		next time.Time
		err  string
	}
	cases := []struct {
		scenario string
		given    string
		then     then
	}{
		{"monday_morning", "0 9 * * 1", then{next: time.Date(2026, time.October, 26, 9, 0, 0, 0, time.UTC)}},
		{"before_fire_same_day", "30 10 * * 1", then{next: time.Date(2026, time.October, 19, 10, 30, 0, 0, time.UTC)}},
		{"macro_hourly", "@hourly", then{next: time.Date(2026, time.October, 19, 11, 0, 0, 0, time.UTC)}},
		{"macro_every", "@every 5m", then{next: now.Add(5 * time.Minute)}},
		{"empty", "  ", then{err: "empty cron expression"}},
		{"invalid_field_count", "* * * *", then{err: "expected exactly 5 fields, found 4: [* * * *]"}},
		{"invalid_token", "* * 32 * *", then{err: "end of range (32) above maximum (31): 32"}},
	}

	for _, tc := range cases {
		t.Run(tc.scenario, func(t *testing.T) {
			schedule, err := model.ParseCron(tc.given)
			if tc.then.err != "" {
				require.EqualError(t, err, tc.then.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.then.next, schedule.Next(now))
		})
	}
}

func TestCronInterval(t *testing.T) {
	t.Parallel()
	schedule, err := model.ParseCron(model.DefaultCron)
	require.NoError(t, err)
	now := time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC)
	require.Equal(t, 7*24*time.Hour, model.CronInterval(schedule, now))
}

func TestParseISODuration(t *testing.T) {
	t.Parallel()
	cases := []struct {
		scenario string
		given    string
		then     time.Duration
		err      error
	}{
		{"week", "P7D", 7 * 24 * time.Hour, nil},
		{"hours_minutes", "PT1H30M", 90 * time.Minute, nil},
		{"fraction", "PT1.5S", 1500 * time.Millisecond, nil},
		{"days_and_time", "P1DT2H", 26 * time.Hour, nil},
		{"empty", "", 0, model.ErrISOFormat},
		{"only_p", "P", 0, model.ErrISOFormat},
		{"ambiguous_minutes", "P2M", 0, model.ErrISOFormat},
		{"trailing_t", "P2DT", 0, model.ErrISOFormat},
	}
	for _, tc := range cases {
		t.Run(tc.scenario, func(t *testing.T) {
			d, err := model.ParseISODuration(tc.given)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.then, d)
		})
	}
}
