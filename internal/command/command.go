package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/CZERTAINLY/Testbed/internal/execution"
	"github.com/CZERTAINLY/Testbed/internal/model"
)

// Command is a single step of an execution pipeline
type Command interface {
	Name() string
	Execute(ctx context.Context) error
}

type Policy string

const (
	// PolicyContinue runs every command and joins all errors
	PolicyContinue Policy = model.PolicyContinue
	// PolicyAbort stops on the first error
	PolicyAbort Policy = model.PolicyAbort
)

// Invoker runs commands strictly in the insertion order. It is not safe
// for a concurrent use.
type Invoker struct {
	policy   Policy
	commands []Command
}

func NewInvoker(policy Policy, commands ...Command) *Invoker {
	if policy == "" {
		policy = PolicyContinue
	}
	inv := &Invoker{policy: policy}
	for _, c := range commands {
		inv.Add(c)
	}
	return inv
}

func (i *Invoker) Add(c Command) {
	if c == nil {
		return
	}
	i.commands = append(i.commands, c)
}

func (i *Invoker) Len() int {
	return len(i.commands)
}

func (i *Invoker) Clear() {
	i.commands = nil
}

// ExecuteAll runs all commands in order
func (i *Invoker) ExecuteAll(ctx context.Context) error {
	var errs []error
	for idx, c := range i.commands {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		err := c.Execute(ctx)
		if err == nil {
			continue
		}
		slog.WarnContext(ctx, "command failed", "command", c.Name(), "index", idx, "error", err)
		err = fmt.Errorf("%s: %w", c.Name(), err)
		if i.policy == PolicyAbort {
			return err
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Gate records a source code check-in
type Gate interface {
	CheckIn(ctx context.Context) error
}

// Cycler runs a gated test cycle of a request
type Cycler interface {
	StartCycle(ctx context.Context, req *execution.Request) error
}

// Reporter reports on a request, it is not gated by a check-in
type Reporter interface {
	Report(ctx context.Context, req *execution.Request) error
}

type CheckIn struct {
	Gate Gate
}

func (CheckIn) Name() string {
	return "checkin"
}

func (c CheckIn) Execute(ctx context.Context) error {
	return c.Gate.CheckIn(ctx)
}

type Execute struct {
	Cycler  Cycler
	Request *execution.Request
}

func (Execute) Name() string {
	return "execute"
}

// Execute starts the test cycle. A missing check-in is not a pipeline
// failure: the request is skipped with a warning.
func (c Execute) Execute(ctx context.Context) error {
	err := c.Cycler.StartCycle(ctx, c.Request)
	if errors.Is(err, model.ErrGateViolation) {
		slog.WarnContext(ctx, "source code not checked in: cannot start testing cycle",
			"description", c.Request.Description(),
		)
		return nil
	}
	return err
}

type Report struct {
	Reporter Reporter
	Request  *execution.Request
}

func (Report) Name() string {
	return "report"
}

func (c Report) Execute(ctx context.Context) error {
	return c.Reporter.Report(ctx, c.Request)
}
