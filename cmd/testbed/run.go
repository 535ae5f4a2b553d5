package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/CZERTAINLY/Testbed/internal/execution"
	"github.com/CZERTAINLY/Testbed/internal/log"
	"github.com/CZERTAINLY/Testbed/internal/logsink"
	"github.com/CZERTAINLY/Testbed/internal/metrics"
	"github.com/CZERTAINLY/Testbed/internal/service"
	"github.com/CZERTAINLY/Testbed/internal/shell"
	"github.com/CZERTAINLY/Testbed/internal/suite"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	flagPlans   []string // values of --plan flag
	flagCheckIn bool     // value of --checkin flag
	flagOnce    bool     // value of --once flag
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "interactive console reading operations from stdin",
	RunE:  doShell,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run executes scheduled tests on the configured trigger until interrupted",
	RunE:  doRun,
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "logs prints the test log",
	RunE:  doLogs,
}

func doShell(cmd *cobra.Command, _ []string) error {
	ctx := log.ContextAttrs(cmd.Context(), slog.Group("testbed",
		slog.String("cmd", "shell"),
		slog.Int("pid", os.Getpid()),
	))
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m, serveMetrics, err := newManager(ctx)
	if err != nil {
		return err
	}
	defer closeManager(ctx, m)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.Do(gctx)
	})
	g.Go(func() error {
		return serveMetrics(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return shell.New(m, cmd.OutOrStdout()).Run(gctx, cmd.InOrStdin())
	})
	return g.Wait()
}

func doRun(cmd *cobra.Command, _ []string) error {
	ctx := log.ContextAttrs(cmd.Context(), slog.Group("testbed",
		slog.String("cmd", "run"),
		slog.Int("pid", os.Getpid()),
	))

	m, serveMetrics, err := newManager(ctx)
	if err != nil {
		return err
	}
	defer closeManager(ctx, m)

	for _, p := range flagPlans {
		platform, typ, ok := strings.Cut(p, ":")
		if !ok {
			return fmt.Errorf("invalid --plan %q: use platform:type", p)
		}
		req, err := execution.Plan(execution.PlanInput{Platform: platform, TestType: typ})
		if err != nil {
			return err
		}
		m.Schedule(req)
	}

	if flagCheckIn {
		if _, err := m.CheckIn(ctx); err != nil {
			return err
		}
	}

	if flagOnce {
		_, err := m.RunAll(ctx)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.Do(gctx)
	})
	g.Go(func() error {
		return serveMetrics(gctx)
	})
	return g.Wait()
}

func doLogs(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	sinks, err := logsink.Open(ctx, config.Sinks, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() {
		if err := logsink.Close(sinks...); err != nil {
			slog.WarnContext(ctx, "closing sinks", "error", err)
		}
	}()

	viewer, ok := logsink.FirstViewer(sinks)
	var lines []string
	if ok {
		lines, err = viewer.Lines(ctx)
		if err != nil {
			return err
		}
	}
	if len(lines) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No logs found.")
		return nil
	}
	for _, line := range lines {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}

// newManager returns the manager and a function serving metrics when enabled
func newManager(ctx context.Context) (*service.Manager, func(context.Context) error, error) {
	serve := func(context.Context) error { return nil }

	var rec *metrics.Recorder
	if config.Metrics != nil {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		rec = metrics.New(reg)
		addr := config.Metrics.Addr
		serve = func(ctx context.Context) error {
			return metrics.Serve(ctx, addr, reg)
		}
	}

	m, err := service.ManagerFromConfig(ctx, config, os.Stdout, rec,
		service.WithTracer(suite.NewWriterTracer(os.Stdout)),
	)
	if err != nil {
		return nil, nil, err
	}
	return m, serve, nil
}

func closeManager(ctx context.Context, m *service.Manager) {
	if err := m.Close(); err != nil {
		slog.WarnContext(ctx, "closing manager", "error", err)
	}
}
