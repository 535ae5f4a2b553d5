package logsink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/CZERTAINLY/Testbed/internal/model"
)

// Writer prints every entry as a JSON line
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) Writer {
	return Writer{w: w}
}

func (u Writer) Append(_ context.Context, entry Entry) error {
	if u.w == nil {
		u.w = os.Stdout
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding log entry: %w", err)
	}
	if _, err := u.w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("%w: %w", model.ErrIOFault, err)
	}
	return nil
}
