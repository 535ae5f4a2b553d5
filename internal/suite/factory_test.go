package suite_test

import (
	"testing"

	"github.com/CZERTAINLY/Testbed/internal/model"
	"github.com/CZERTAINLY/Testbed/internal/suite"

	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	t.Parallel()
	type then struct {
		description string
		leaves      []string
	}
	cases := []struct {
		scenario string
		platform suite.Platform
		typ      suite.TestType
		then     then
	}{
		{"aix_gui", suite.AIX, suite.GUI, then{"AIX GUI Test Suite", []string{"AIX GUI Login Test", "AIX GUI Navigation Test"}}},
		{"aix_network", suite.AIX, suite.Network, then{"AIX Network Test Suite", []string{"AIX Network Connectivity Test", "AIX Network Latency Test"}}},
		{"macos_gui", suite.MacOS, suite.GUI, then{"macOS GUI Test Suite", []string{"macOS GUI Login Test", "macOS GUI Navigation Test"}}},
		{"macos_all", suite.MacOS, suite.All, then{"macOS All Tests", []string{
			"macOS GUI Login Test", "macOS GUI Navigation Test",
			"macOS Network Speed Test", "macOS Network Security Test",
		}}},
	}

	for _, tc := range cases {
		t.Run(tc.scenario, func(t *testing.T) {
			g, err := suite.Build(tc.platform, tc.typ)
			require.NoError(t, err)
			require.Equal(t, tc.then.description, g.Name())

			var trace suite.Trace
			g.Execute(t.Context(), &trace)
			require.Equal(t, append([]string{tc.then.description}, tc.then.leaves...), trace.Names())
		})
	}
}

func TestBuildIndependentTrees(t *testing.T) {
	t.Parallel()
	a, err := suite.Build(suite.AIX, suite.GUI)
	require.NoError(t, err)
	b, err := suite.Build(suite.AIX, suite.GUI)
	require.NoError(t, err)
	a.Add(suite.NewLeaf("extra"))
	require.Equal(t, 3, a.Len())
	require.Equal(t, 2, b.Len())
}

func TestBuildInvalid(t *testing.T) {
	t.Parallel()
	_, err := suite.Build("Windows", suite.GUI)
	require.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = suite.Build(suite.AIX, "Unit")
	require.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = suite.Unit(suite.AIX, suite.All)
	require.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestUnit(t *testing.T) {
	t.Parallel()
	u, err := suite.Unit(suite.MacOS, suite.Network)
	require.NoError(t, err)
	require.Equal(t, "macOS Network Test", u.Name())

	var trace suite.Trace
	u.Run(t.Context(), &trace)
	require.Equal(t, []string{"macOS Network Test"}, trace.Names())
}

func TestCanonical(t *testing.T) {
	t.Parallel()
	require.Equal(t, suite.AIX, suite.CanonicalPlatform(" aix "))
	require.Equal(t, suite.MacOS, suite.CanonicalPlatform("MACOS"))
	require.Equal(t, suite.Platform("linux"), suite.CanonicalPlatform("linux"))
	require.Equal(t, suite.Network, suite.CanonicalTestType("network"))
	require.Equal(t, suite.All, suite.CanonicalTestType("ALL"))
	require.Equal(t, suite.TestType("smoke"), suite.CanonicalTestType("smoke"))
}

func TestParse(t *testing.T) {
	t.Parallel()
	p, err := suite.ParsePlatform("aix")
	require.NoError(t, err)
	require.Equal(t, suite.AIX, p)

	_, err = suite.ParsePlatform("windows")
	require.ErrorIs(t, err, model.ErrInvalidInput)

	typ, err := suite.ParseTestType("gui")
	require.NoError(t, err)
	require.Equal(t, suite.GUI, typ)

	_, err = suite.ParseTestType("unit")
	require.ErrorIs(t, err, model.ErrInvalidInput)
}
