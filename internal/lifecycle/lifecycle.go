package lifecycle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
)

type Phase string

const (
	Idle      Phase = "Idle"
	Running   Phase = "Running"
	Completed Phase = "Test cycle completed."
)

type Observer interface {
	Name() string
	Notify(ctx context.Context, phase Phase)
}

// Subject stores the current phase and notifies attached observers about
// every change synchronously in the attachment order.
type Subject struct {
	mx        sync.Mutex
	phase     Phase
	observers []Observer
}

func NewSubject(observers ...Observer) *Subject {
	s := &Subject{phase: Idle}
	for _, o := range observers {
		s.Attach(o)
	}
	return s
}

// Attach adds an observer, the same observer may be attached several times
func (s *Subject) Attach(o Observer) {
	if o == nil {
		return
	}
	s.mx.Lock()
	defer s.mx.Unlock()
	s.observers = append(s.observers, o)
}

// Detach removes the first attached occurrence of o
func (s *Subject) Detach(o Observer) bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	idx := slices.IndexFunc(s.observers, func(x Observer) bool {
		return x == o
	})
	if idx < 0 {
		return false
	}
	s.observers = slices.Delete(s.observers, idx, idx+1)
	return true
}

// SetPhase stores the phase and then notifies every observer. Observers
// attached or detached during a notification take effect on the next change.
func (s *Subject) SetPhase(ctx context.Context, phase Phase) {
	s.mx.Lock()
	s.phase = phase
	observers := slices.Clone(s.observers)
	s.mx.Unlock()

	slog.DebugContext(ctx, "phase changed", "phase", phase, "observers", len(observers))
	for _, o := range observers {
		o.Notify(ctx, phase)
	}
}

func (s *Subject) Phase() Phase {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.phase
}

// Observers returns names of attached observers
func (s *Subject) Observers() []string {
	s.mx.Lock()
	defer s.mx.Unlock()
	ret := make([]string, 0, len(s.observers))
	for _, o := range s.observers {
		ret = append(ret, o.Name())
	}
	return ret
}

// NamedObserver logs every notification and optionally prints it to w
type NamedObserver struct {
	name string
	w    io.Writer
}

func NewNamedObserver(name string, w io.Writer) *NamedObserver {
	return &NamedObserver{name: name, w: w}
}

func (o *NamedObserver) Name() string {
	return o.name
}

func (o *NamedObserver) Notify(ctx context.Context, phase Phase) {
	slog.InfoContext(ctx, "observer notified", "observer", o.name, "phase", phase)
	if o.w == nil {
		return
	}
	_, _ = fmt.Fprintf(o.w, "[Observer] %s has been notified.\n", o.name)
}

// ObserverFunc adapts a function to an Observer
type ObserverFunc struct {
	ObserverName string
	F            func(ctx context.Context, phase Phase)
}

func (f *ObserverFunc) Name() string {
	return f.ObserverName
}

func (f *ObserverFunc) Notify(ctx context.Context, phase Phase) {
	if f.F != nil {
		f.F(ctx, phase)
	}
}
