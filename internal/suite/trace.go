package suite

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Trace collects the steps in memory
type Trace struct {
	mx    sync.Mutex
	steps []Step
}

func (t *Trace) Trace(_ context.Context, step Step) {
	t.mx.Lock()
	defer t.mx.Unlock()
	t.steps = append(t.steps, step)
}

func (t *Trace) Steps() []Step {
	t.mx.Lock()
	defer t.mx.Unlock()
	return append([]Step(nil), t.steps...)
}

// Names returns names of all traced steps in the execution order
func (t *Trace) Names() []string {
	steps := t.Steps()
	ret := make([]string, 0, len(steps))
	for _, s := range steps {
		ret = append(ret, s.Name)
	}
	return ret
}

// Leaves returns a number of executed leaves
func (t *Trace) Leaves() int {
	n := 0
	for _, s := range t.Steps() {
		if s.Kind == KindLeaf {
			n++
		}
	}
	return n
}

// LogTracer logs every step on a debug level
type LogTracer struct{}

func (LogTracer) Trace(ctx context.Context, step Step) {
	slog.DebugContext(ctx, "executing",
		slog.String("kind", string(step.Kind)),
		slog.String("name", step.Name),
		slog.Int("depth", step.Depth),
	)
}

// WriterTracer prints a human readable execution trace
type WriterTracer struct {
	w io.Writer
}

func NewWriterTracer(w io.Writer) WriterTracer {
	return WriterTracer{w: w}
}

func (t WriterTracer) Trace(_ context.Context, step Step) {
	if t.w == nil {
		return
	}
	_, _ = fmt.Fprintln(t.w, FormatStep(step))
}

// FormatStep renders a step as an indented trace line
func FormatStep(step Step) string {
	label := "[TestCase]"
	if step.Kind == KindGroup {
		label = "[TestSuite]"
	}
	return strings.Repeat("  ", step.Depth) + label + " Executing: " + step.Name
}

type multiTracer []Tracer

func (m multiTracer) Trace(ctx context.Context, step Step) {
	for _, t := range m {
		t.Trace(ctx, step)
	}
}

// Tracers fans a step out to all non nil tracers
func Tracers(tracers ...Tracer) Tracer {
	ret := make(multiTracer, 0, len(tracers))
	for _, t := range tracers {
		if t != nil {
			ret = append(ret, t)
		}
	}
	return ret
}
