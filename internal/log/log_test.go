package log_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/CZERTAINLY/Testbed/internal/log"

	"github.com/stretchr/testify/require"
)

func TestContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithWriter(&buf, false, log.FormatJSON)

	ctx := log.ContextAttrs(t.Context(), slog.String("cycle", "c1"))
	child := log.ContextAttrs(ctx, slog.String("platform", "AIX"))

	logger.InfoContext(child, "child")
	logger.InfoContext(ctx, "parent")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))

	require.Equal(t, "c1", first["cycle"])
	require.Equal(t, "AIX", first["platform"])
	require.Equal(t, "c1", second["cycle"])
	require.NotContains(t, second, "platform")
}

func TestNewWithWriter(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := log.NewWithWriter(&buf, false, log.FormatText)
	logger.Debug("hidden")
	logger.Info("visible", "k", "v")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "msg=visible")
	require.Contains(t, out, "k=v")

	buf.Reset()
	verbose := log.NewWithWriter(&buf, true, log.FormatJSON).With("component", "test")
	verbose.Debug("shown")
	require.Contains(t, buf.String(), `"msg":"shown"`)
	require.Contains(t, buf.String(), `"component":"test"`)
}
