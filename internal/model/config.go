package model

import (
	"errors"
	"fmt"
	"io"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	_ "embed"
)

const (
	LogFormatJSON = "json"
	LogFormatText = "text"

	PolicyContinue = "continue"
	PolicyAbort    = "abort"

	CheckInMemory     = "memory"
	CheckInRepository = "repository"

	SinkJSON   = "json"
	SinkSQLite = "sqlite"
	SinkStdout = "stdout"

	// every Monday at 09:00
	DefaultCron    = "0 9 * * 1"
	DefaultLogPath = "test_log.json"
)

var DefaultObservers = []string{"Project Manager", "Test Lead", "QA Team"}

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	if err := compiled.Validate(); err != nil {
		panic(err)
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
	if err := schema.Validate(); err != nil {
		panic(err)
	}
}

type Config struct {
	Version   int       `json:"version" yaml:"version"` // fixed 0 for now
	Service   *Service  `json:"service,omitempty" yaml:"service,omitempty"`
	Trigger   *Trigger  `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	Pipeline  *Pipeline `json:"pipeline,omitempty" yaml:"pipeline,omitempty"`
	CheckIn   *CheckIn  `json:"checkin,omitempty" yaml:"checkin,omitempty"`
	Sinks     []Sink    `json:"sinks,omitempty" yaml:"sinks,omitempty"`
	Observers []string  `json:"observers,omitempty" yaml:"observers,omitempty"`
	Metrics   *Metrics  `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

type Service struct {
	Verbose   *bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	LogFormat *string `json:"log_format,omitempty" yaml:"log_format,omitempty"` // "json"|"text"
}

// Trigger configures the recurring run of all scheduled executions.
// Cron has a precedence over Duration.
type Trigger struct {
	Enabled  *bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Cron     *string `json:"cron,omitempty" yaml:"cron,omitempty"`         // 5 fields or @macro
	Duration *string `json:"duration,omitempty" yaml:"duration,omitempty"` // ISO8601, e.g. P7D
	Start    *string `json:"start,omitempty" yaml:"start,omitempty"`       // RFC3339 first fire of Duration
}

type Pipeline struct {
	Policy      *string `json:"policy,omitempty" yaml:"policy,omitempty"` // "continue"|"abort"
	AutoCheckIn *bool   `json:"auto_checkin,omitempty" yaml:"auto_checkin,omitempty"`
}

type CheckIn struct {
	Mode       string  `json:"mode" yaml:"mode"`                                 // "memory"|"repository"
	Repository *string `json:"repository,omitempty" yaml:"repository,omitempty"` // required for repository mode
	Delay      *string `json:"delay,omitempty" yaml:"delay,omitempty"`           // ISO8601 simulated commit time
	Author     *string `json:"author,omitempty" yaml:"author,omitempty"`
	Email      *string `json:"email,omitempty" yaml:"email,omitempty"`
}

type Sink struct {
	Type string  `json:"type" yaml:"type"`                     // "json"|"sqlite"|"stdout"
	Path *string `json:"path,omitempty" yaml:"path,omitempty"` // file for json and sqlite
}

type Metrics struct {
	Addr string `json:"addr" yaml:"addr"`
}

// DefaultConfig is stored when no configuration file exists
func DefaultConfig() Config {
	return Config{
		Version: 0,
		Service: &Service{
			Verbose:   ptr(false),
			LogFormat: ptr(LogFormatJSON),
		},
		Trigger: &Trigger{
			Enabled: ptr(true),
			Cron:    ptr(DefaultCron),
		},
		Pipeline: &Pipeline{
			Policy:      ptr(PolicyContinue),
			AutoCheckIn: ptr(false),
		},
		CheckIn: &CheckIn{
			Mode: CheckInMemory,
		},
		Sinks: []Sink{
			{Type: SinkJSON, Path: ptr(DefaultLogPath)},
		},
		Observers: append([]string(nil), DefaultObservers...),
	}
}

// LoadConfig validates YAML from r against CUE schema and decodes to Config.
func LoadConfig(r io.Reader) (*Config, error) {
	yamlFile, err := yaml.Extract("config.yaml", r)
	if err != nil {
		return nil, err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return nil, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}

	return &out, nil
}

// ErrConflict marks settings which can't be combined
var ErrConflict = errors.New("conflicting configuration")

// Validate checks constraints spanning several sections. A repository
// check-in succeeds only once per new commit, so it can't be combined
// with a check-in before every pipeline.
func (c Config) Validate() error {
	if c.CheckIn == nil || c.Pipeline == nil {
		return nil
	}
	if c.CheckIn.Mode == CheckInRepository && Get(c.Pipeline.AutoCheckIn) {
		return fmt.Errorf("%w: pipeline.auto_checkin can't be used with checkin.mode %s", ErrConflict, CheckInRepository)
	}
	return nil
}

// Get dereferences an optional config value
func Get[T any](pt *T) T {
	var zero T
	if pt == nil {
		return zero
	}
	return *pt
}

// GetOr dereferences an optional config value or returns dflt
func GetOr[T any](pt *T, dflt T) T {
	if pt == nil {
		return dflt
	}
	return *pt
}

func ptr[T any](v T) *T {
	return &v
}
