package shell_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CZERTAINLY/Testbed/internal/checkin"
	"github.com/CZERTAINLY/Testbed/internal/lifecycle"
	"github.com/CZERTAINLY/Testbed/internal/logsink"
	"github.com/CZERTAINLY/Testbed/internal/model"
	"github.com/CZERTAINLY/Testbed/internal/service"
	"github.com/CZERTAINLY/Testbed/internal/shell"
	"github.com/CZERTAINLY/Testbed/internal/suite"

	"github.com/stretchr/testify/require"
)

func newShell(t *testing.T) (*shell.Shell, *service.Manager, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	sink, err := logsink.NewJSONFile(filepath.Join(t.TempDir(), "test_log.json"))
	require.NoError(t, err)
	repo, err := checkin.NewMemoryRepo()
	require.NoError(t, err)
	m := service.NewManager(
		service.WithCommitter(repo),
		service.WithSinks(sink),
		service.WithOutput(&out),
		service.WithTracer(suite.NewWriterTracer(&out)),
		service.WithObservers(lifecycle.NewNamedObserver("Test Lead", &out)),
	)
	t.Cleanup(func() { _ = m.Close() })
	return shell.New(m, &out), m, &out
}

func TestShellScenario(t *testing.T) {
	t.Parallel()
	sh, m, out := newShell(t)

	script := strings.Join([]string{
		"view-logs",
		"list",
		"plan aix gui",
		"plan macOS All",
		"list",
		"run",
		"# comment",
		"",
		"checkin",
		"plan AIX Network",
		"run",
		"view-states",
		"restore AIX - Network Test Execution",
		"restore nope",
		"view-logs",
		"exit",
		"list",
	}, "\n")

	err := sh.Run(t.Context(), strings.NewReader(script))
	require.NoError(t, err)

	got := out.String()
	require.Contains(t, got, "No logs found.")
	require.Contains(t, got, "No tests currently scheduled.")
	require.Contains(t, got, "✔ Test execution successfully planned: AIX - GUI Test Execution")
	require.Contains(t, got, "✔ Test execution successfully planned: macOS - All Test Execution")
	require.Contains(t, got, "[Manager] Source code not checked in. Cannot start testing cycle.")
	require.Contains(t, got, "NOT CHECKED IN")
	require.Contains(t, got, "✔ Source code checked in:")
	require.Contains(t, got, "[TestSuite] Executing: AIX Network Test Suite\n  [TestCase] Executing: AIX Network Connectivity Test")
	require.Contains(t, got, "[Observer] Test Lead has been notified.")
	require.Contains(t, got, "COMPLETED")
	require.Contains(t, got, "1. AIX - GUI Test Execution")
	require.Contains(t, got, "3. AIX - Network Test Execution")
	require.Contains(t, got, "  Platform: AIX")
	require.Contains(t, got, "✘ No saved state found for: nope")
	require.Contains(t, got, `"description": "AIX - Network Test Execution"`)
	require.Contains(t, got, "Exiting the system. Goodbye!")

	require.Empty(t, m.Pending())
	require.False(t, m.CheckedIn())
}

func TestShellErrors(t *testing.T) {
	t.Parallel()
	sh, m, out := newShell(t)

	err := sh.Exec(t.Context(), "plan", "Windows", "GUI")
	require.ErrorIs(t, err, model.ErrInvalidInput)
	err = sh.Exec(t.Context(), "plan", "AIX")
	require.Error(t, err)
	err = sh.Exec(t.Context(), "unknown")
	require.Error(t, err)
	err = sh.Exec(t.Context(), "exit")
	require.ErrorIs(t, err, shell.ErrExit)
	require.Empty(t, m.Pending())

	out.Reset()
	require.NoError(t, sh.Run(t.Context(), strings.NewReader("plan Linux GUI\n")))
	require.Contains(t, out.String(), "✘ invalid input")
}

func TestShellViews(t *testing.T) {
	t.Parallel()
	sh, m, out := newShell(t)

	require.NoError(t, sh.Exec(t.Context(), "view-suite", "macos", "gui"))
	require.Contains(t, out.String(), "Test Suite: macOS GUI Test Suite\n1. Test case: macOS GUI Login Test\n2. Test case: macOS GUI Navigation Test\n")

	out.Reset()
	require.NoError(t, sh.Exec(t.Context(), "unit", "AIX", "Network"))
	require.Equal(t, "[TestCase] Executing: AIX Network Test\n", out.String())

	err := sh.Exec(t.Context(), "unit", "AIX", "All")
	require.ErrorIs(t, err, model.ErrInvalidInput)

	out.Reset()
	require.NoError(t, sh.Exec(t.Context(), "plan", "AIX", "GUI"))
	require.NoError(t, sh.Exec(t.Context(), "report"))
	require.Contains(t, out.String(), "[Execution] Reporting results for: AIX - GUI Test Execution")
	require.Len(t, m.Pending(), 1)

	out.Reset()
	require.NoError(t, sh.Exec(t.Context(), "status"))
	require.Contains(t, out.String(), "Awaiting check-in")
	require.Contains(t, out.String(), "Test Lead")

	require.NoError(t, sh.Exec(t.Context(), "clear"))
	require.Empty(t, m.Pending())

	out.Reset()
	require.NoError(t, sh.Exec(t.Context(), "view-states"))
	require.Contains(t, out.String(), "No saved states found.")
}

func TestShellRestoreSchedule(t *testing.T) {
	t.Parallel()
	sh, m, _ := newShell(t)
	require.NoError(t, sh.Exec(t.Context(), "plan", "macOS", "Network"))
	require.NoError(t, sh.Exec(t.Context(), "run"))
	require.Empty(t, m.Pending())

	require.NoError(t, sh.Exec(t.Context(), "restore", "--schedule", "macOS", "-", "Network", "Test", "Execution"))
	require.Len(t, m.Pending(), 1)
	require.Equal(t, "macOS - Network Test Execution", m.Pending()[0].Description())
}
