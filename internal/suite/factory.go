package suite

import (
	"context"
	"fmt"
	"strings"

	"github.com/CZERTAINLY/Testbed/internal/model"
)

type Platform string

const (
	AIX   Platform = "AIX"
	MacOS Platform = "macOS"
)

type TestType string

const (
	GUI     TestType = "GUI"
	Network TestType = "Network"
	All     TestType = "All"
)

var (
	Platforms = []Platform{AIX, MacOS}
	TestTypes = []TestType{GUI, Network, All}
)

// CanonicalPlatform returns a platform in its canonical spelling, the input
// is returned unchanged when it does not name a known platform
func CanonicalPlatform(s string) Platform {
	s = strings.TrimSpace(s)
	for _, p := range Platforms {
		if strings.EqualFold(s, string(p)) {
			return p
		}
	}
	return Platform(s)
}

// CanonicalTestType returns a test type in its canonical spelling, the input
// is returned unchanged when it does not name a known test type
func CanonicalTestType(s string) TestType {
	s = strings.TrimSpace(s)
	for _, t := range TestTypes {
		if strings.EqualFold(s, string(t)) {
			return t
		}
	}
	return TestType(s)
}

// ParsePlatform parses a platform name case insensitively
func ParsePlatform(s string) (Platform, error) {
	p := CanonicalPlatform(s)
	if _, ok := catalogs[p]; !ok {
		return "", fmt.Errorf("%w: unsupported platform %q: use AIX or macOS", model.ErrInvalidInput, s)
	}
	return p, nil
}

// ParseTestType parses a test type case insensitively
func ParseTestType(s string) (TestType, error) {
	t := CanonicalTestType(s)
	switch t {
	case GUI, Network, All:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unsupported test type %q: use GUI, Network or All", model.ErrInvalidInput, s)
	}
}

// UnitTest is a single inert platform test, which can be run outside of any suite
type UnitTest interface {
	Name() string
	Run(ctx context.Context, tracer Tracer)
}

// Factory produces the canonical suites and unit tests of a platform
type Factory interface {
	Platform() Platform
	GUISuite() *Group
	NetworkSuite() *Group
	GUITest() UnitTest
	NetworkTest() UnitTest
}

type catalog struct {
	platform     Platform
	guiCases     []string
	networkCases []string
}

var catalogs = map[Platform]catalog{
	AIX: {
		platform:     AIX,
		guiCases:     []string{"AIX GUI Login Test", "AIX GUI Navigation Test"},
		networkCases: []string{"AIX Network Connectivity Test", "AIX Network Latency Test"},
	},
	MacOS: {
		platform:     MacOS,
		guiCases:     []string{"macOS GUI Login Test", "macOS GUI Navigation Test"},
		networkCases: []string{"macOS Network Speed Test", "macOS Network Security Test"},
	},
}

// FactoryFor returns a factory of a given platform
func FactoryFor(p Platform) (Factory, error) {
	c, ok := catalogs[p]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported platform %q: use AIX or macOS", model.ErrInvalidInput, p)
	}
	return c, nil
}

func (c catalog) Platform() Platform {
	return c.platform
}

func (c catalog) GUISuite() *Group {
	return c.suite(GUI, c.guiCases)
}

func (c catalog) NetworkSuite() *Group {
	return c.suite(Network, c.networkCases)
}

func (c catalog) GUITest() UnitTest {
	return unitTest{platform: c.platform, typ: GUI}
}

func (c catalog) NetworkTest() UnitTest {
	return unitTest{platform: c.platform, typ: Network}
}

func (c catalog) suite(typ TestType, cases []string) *Group {
	g := NewGroup(fmt.Sprintf("%s %s Test Suite", c.platform, typ))
	for _, name := range cases {
		g.Add(NewLeaf(name))
	}
	return g
}

// Build creates a fresh tree for a platform and a test type. All combines
// GUI and Network test cases into a single group.
func Build(p Platform, typ TestType) (*Group, error) {
	f, err := FactoryFor(p)
	if err != nil {
		return nil, err
	}
	switch typ {
	case GUI:
		return f.GUISuite(), nil
	case Network:
		return f.NetworkSuite(), nil
	case All:
		all := NewGroup(fmt.Sprintf("%s All Tests", p))
		for _, c := range f.GUISuite().Children() {
			all.Add(c)
		}
		for _, c := range f.NetworkSuite().Children() {
			all.Add(c)
		}
		return all, nil
	default:
		return nil, fmt.Errorf("%w: unsupported test type %q: use GUI, Network or All", model.ErrInvalidInput, typ)
	}
}

// Unit returns a unit test of a platform, All is not a valid type here
func Unit(p Platform, typ TestType) (UnitTest, error) {
	f, err := FactoryFor(p)
	if err != nil {
		return nil, err
	}
	switch typ {
	case GUI:
		return f.GUITest(), nil
	case Network:
		return f.NetworkTest(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported unit test type %q: use GUI or Network", model.ErrInvalidInput, typ)
	}
}

type unitTest struct {
	platform Platform
	typ      TestType
}

func (u unitTest) Name() string {
	return fmt.Sprintf("%s %s Test", u.platform, u.typ)
}

func (u unitTest) Run(ctx context.Context, tracer Tracer) {
	NewLeaf(u.Name()).Execute(ctx, tracer)
}
