package shell

import (
	"fmt"
	"strings"

	"github.com/CZERTAINLY/Testbed/internal/execution"
	"github.com/CZERTAINLY/Testbed/internal/suite"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func (s *Shell) planCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <AIX|macOS> <GUI|Network|All>",
		Short: "Plan a test execution",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			req, err := execution.Plan(execution.PlanInput{
				Platform: args[0],
				TestType: args[1],
			})
			if err != nil {
				return err
			}
			s.m.Schedule(req)
			s.println(s.green("✔ Test execution successfully planned: " + req.Description()))
			return nil
		},
	}
}

func (s *Shell) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List planned executions",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			pending := s.m.Pending()
			if len(pending) == 0 {
				s.println("No tests currently scheduled.")
				return nil
			}
			t := s.table("Planned Test Executions")
			t.AppendHeader(table.Row{"#", "Description", "Platform", "Test cases", "ID"})
			for i, req := range pending {
				t.AppendRow(table.Row{i + 1, req.Description(), req.Platform(), suite.Leaves(req.Tree()), req.ID()})
			}
			t.Render()
			return nil
		},
	}
}

func (s *Shell) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run all scheduled tests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s.println("--- Running All Scheduled Tests ---")
			results, err := s.m.RunAll(cmd.Context())
			if len(results) == 0 && err == nil {
				s.println("No tests currently scheduled.")
				return nil
			}

			t := s.table("Test Cycles")
			t.AppendHeader(table.Row{"Description", "Platform", "Status", "Test cases", "Cycle"})
			for _, r := range results {
				status := s.yellow("NOT CHECKED IN")
				cycle := "-"
				switch {
				case r.Executed && r.SinkErr != nil:
					status = s.yellow("COMPLETED (log failed)")
					cycle = r.Cycle.String()
				case r.Executed:
					status = s.green("COMPLETED")
					cycle = r.Cycle.String()
				}
				t.AppendRow(table.Row{r.Request.Description(), r.Request.Platform(), status, r.Leaves, cycle})
			}
			t.Render()
			return err
		},
	}
}

func (s *Shell) checkInCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkin",
		Short: "Simulate a source code check-in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rev, err := s.m.CheckIn(cmd.Context())
			if err != nil {
				return err
			}
			hash := rev.Hash
			if len(hash) > 12 {
				hash = hash[:12]
			}
			s.println(s.green(fmt.Sprintf("✔ Source code checked in: %s (%s)", hash, rev.Branch)))
			return nil
		},
	}
}

func (s *Shell) reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Report results of planned executions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s.println("--- Reporting Test Results ---")
			if len(s.m.Pending()) == 0 {
				s.println("No tests currently scheduled.")
				return nil
			}
			return s.m.ReportAll(cmd.Context())
		},
	}
}

func (s *Shell) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all scheduled tests",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			s.m.Clear()
			s.println(s.green("✔ All scheduled tests have been cleared."))
			return nil
		},
	}
}

func (s *Shell) restoreCmd() *cobra.Command {
	var schedule bool
	cmd := &cobra.Command{
		Use:   "restore <description>",
		Short: "Restore a saved execution state",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.Flags().BoolVar(&schedule, "schedule", false, "schedule the restored execution again")
	cmd.RunE = func(_ *cobra.Command, args []string) error {
		desc := strings.Join(args, " ")
		req, ok := s.m.Restore(desc)
		if !ok {
			s.println(s.red("✘ No saved state found for: " + desc))
			return nil
		}
		s.println(s.green("✔ Test state successfully restored:"))
		s.printf("  Description: %s\n", req.Description())
		s.printf("  Platform: %s\n", req.Platform())
		if schedule {
			s.m.Schedule(req)
			s.println(s.green("✔ Test execution successfully planned: " + req.Description()))
		}
		return nil
	}
	return cmd
}

func (s *Shell) viewStatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view-states",
		Short: "View saved execution states",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			states := s.m.SavedStates()
			if len(states) == 0 {
				s.println("No saved states found.")
				return nil
			}
			for i, desc := range states {
				s.printf("%d. %s\n", i+1, desc)
			}
			return nil
		},
	}
}

func (s *Shell) viewLogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view-logs",
		Short: "Print the test log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lines, err := s.m.ViewLogs(cmd.Context())
			if err != nil {
				return err
			}
			if len(lines) == 0 {
				s.println("No logs found.")
				return nil
			}
			for _, line := range lines {
				s.println(line)
			}
			return nil
		},
	}
}

func (s *Shell) viewSuiteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view-suite <AIX|macOS> <GUI|Network|All>",
		Short: "View test cases of a suite",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			platform, typ, err := parse(args)
			if err != nil {
				return err
			}
			g, err := suite.Build(platform, typ)
			if err != nil {
				return err
			}
			s.println("Test Suite: " + g.Name())
			children := g.Children()
			if len(children) == 0 {
				s.println("No test cases found.")
				return nil
			}
			for i, c := range children {
				s.printf("%d. Test case: %s\n", i+1, c.Name())
			}
			return nil
		},
	}
}

func (s *Shell) unitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unit <AIX|macOS> <GUI|Network>",
		Short: "Run a single platform unit test",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, typ, err := parse(args)
			if err != nil {
				return err
			}
			u, err := suite.Unit(platform, typ)
			if err != nil {
				return err
			}
			u.Run(cmd.Context(), suite.Tracers(suite.NewWriterTracer(s.out), suite.LogTracer{}))
			return nil
		},
	}
}

func (s *Shell) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the orchestrator state",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			t := s.table("Status")
			t.AppendRows([]table.Row{
				{"State", s.m.State()},
				{"Phase", s.m.Phase()},
				{"Checked in", s.m.CheckedIn()},
				{"Pending", len(s.m.Pending())},
				{"Observers", strings.Join(s.m.Subject().Observers(), ", ")},
			})
			t.Render()
			return nil
		},
	}
}

func (s *Shell) table(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(s.out)
	t.SetTitle(title)
	t.SetStyle(table.StyleLight)
	return t
}

func parse(args []string) (suite.Platform, suite.TestType, error) {
	platform, err := suite.ParsePlatform(args[0])
	if err != nil {
		return "", "", err
	}
	typ, err := suite.ParseTestType(args[1])
	if err != nil {
		return "", "", err
	}
	return platform, typ, nil
}
