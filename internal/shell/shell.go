// Package shell implements the interactive operator console of testbed.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/CZERTAINLY/Testbed/internal/service"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// ErrExit is returned by the exit operation
var ErrExit = errors.New("exit")

const prompt = "testbed> "

// Shell executes operator commands against a manager
type Shell struct {
	m   *service.Manager
	out io.Writer

	green  func(a ...any) string
	red    func(a ...any) string
	yellow func(a ...any) string
	cyan   func(a ...any) string
}

func New(m *service.Manager, out io.Writer) *Shell {
	return &Shell{
		m:      m,
		out:    out,
		green:  color.New(color.FgGreen).SprintFunc(),
		red:    color.New(color.FgRed).SprintFunc(),
		yellow: color.New(color.FgYellow).SprintFunc(),
		cyan:   color.New(color.FgCyan, color.Bold).SprintFunc(),
	}
}

// Run reads operations from in line by line until exit, EOF or a canceled
// context. Failed operations are reported and the shell continues.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.println(s.cyan("***********************"))
	s.println(s.cyan("Test Execution Framework"))
	s.println(s.cyan("***********************"))
	s.println("Type help for the list of operations.")

	lines := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				errCh <- nil
				return
			}
		}
		errCh <- scanner.Err()
	}()

	s.printf(prompt)
	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
			if !ok {
				return <-errCh
			}
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			s.printf(prompt)
			continue
		}

		err := s.Exec(ctx, strings.Fields(line)...)
		switch {
		case errors.Is(err, ErrExit):
			s.println("Exiting the system. Goodbye!")
			return nil
		case err != nil:
			slog.DebugContext(ctx, "operation failed", "line", line, "error", err)
			s.println(s.red("✘ " + err.Error()))
		}
		s.printf(prompt)
	}
}

// Exec runs a single operation
func (s *Shell) Exec(ctx context.Context, args ...string) error {
	root := s.command()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(""))
	root.SetOut(s.out)
	root.SetErr(s.out)
	return root.ExecuteContext(ctx)
}

func (s *Shell) command() *cobra.Command {
	root := &cobra.Command{
		Use:           "testbed",
		Short:         "Test execution operations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(
		s.planCmd(),
		s.listCmd(),
		s.runCmd(),
		s.checkInCmd(),
		s.reportCmd(),
		s.clearCmd(),
		s.restoreCmd(),
		s.viewStatesCmd(),
		s.viewLogsCmd(),
		s.viewSuiteCmd(),
		s.unitCmd(),
		s.statusCmd(),
		&cobra.Command{
			Use:   "exit",
			Short: "Leave the shell",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return ErrExit
			},
		},
	)
	return root
}

func (s *Shell) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

func (s *Shell) println(args ...any) {
	_, _ = fmt.Fprintln(s.out, args...)
}
