package logsink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/CZERTAINLY/Testbed/internal/model"
)

// Open initializes configured sinks. With no configuration the log is
// kept in model.DefaultLogPath. On error all already opened sinks are closed.
func Open(ctx context.Context, cfgs []model.Sink, stdout io.Writer) ([]Sink, error) {
	if len(cfgs) == 0 {
		cfgs = []model.Sink{{Type: model.SinkJSON}}
	}
	if stdout == nil {
		stdout = os.Stdout
	}

	var sinks []Sink
	for idx, cfg := range cfgs {
		var sink Sink
		var err error
		switch cfg.Type {
		case model.SinkJSON:
			sink, err = NewJSONFile(model.GetOr(cfg.Path, model.DefaultLogPath))
		case model.SinkSQLite:
			sink, err = NewSQLite(ctx, model.GetOr(cfg.Path, "test_log.db"))
		case model.SinkStdout:
			sink = NewWriter(stdout)
		default:
			err = fmt.Errorf("unsupported sink type %q", cfg.Type)
		}
		if err != nil {
			return nil, errors.Join(fmt.Errorf("sinks[%d]: %w", idx, err), Close(sinks...))
		}
		sinks = append(sinks, sink)
	}
	return sinks, nil
}

// Close closes all sinks which support it
func Close(sinks ...Sink) error {
	var errs []error
	for _, s := range sinks {
		if closer, ok := s.(SinkCloser); ok {
			errs = append(errs, closer.Close())
		}
	}
	return errors.Join(errs...)
}

// FirstViewer returns the first sink which can be viewed
func FirstViewer(sinks []Sink) (Viewer, bool) {
	for _, s := range sinks {
		if v, ok := s.(Viewer); ok {
			return v, true
		}
	}
	return nil, false
}
