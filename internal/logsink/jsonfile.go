package logsink

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/CZERTAINLY/Testbed/internal/model"

	jss "github.com/kaptinlin/jsonschema"
)

// BackupSuffix is appended to a corrupted log file name
const BackupSuffix = ".backup"

//go:embed schemas/*.schema.json
var schemaFS embed.FS

func compileSchema(name string) (*jss.Schema, error) {
	b, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, fmt.Errorf("reading embedded schema: %w", err)
	}
	compiler := jss.NewCompiler()
	schema, err := compiler.Compile(b)
	if err != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", name, err)
	}
	return schema, nil
}

// JSONFile keeps the log as a single JSON array. Every append reads the
// array, appends an entry and atomically replaces the file, so the file is
// always a valid JSON array. New entries must have an RFC3339 timestamp,
// entries already in the file only need the required fields. A file which
// is not such an array is moved aside with BackupSuffix and a new log is
// started.
type JSONFile struct {
	mx     sync.Mutex
	root   *os.Root
	name   string
	path   string
	log    *jss.Schema
	entry  *jss.Schema
}

func NewJSONFile(path string) (*JSONFile, error) {
	if path == "" {
		path = model.DefaultLogPath
	}
	logSchema, err := compileSchema("log.schema.json")
	if err != nil {
		return nil, err
	}
	entrySchema, err := compileSchema("entry.schema.json")
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating log directory: %w", model.ErrIOFault, err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: opening log directory: %w", model.ErrIOFault, err)
	}
	return &JSONFile{
		root:   root,
		name:   filepath.Base(path),
		path:   path,
		log:    logSchema,
		entry:  entrySchema,
	}, nil
}

func (j *JSONFile) Path() string {
	return j.path
}

func (j *JSONFile) Append(ctx context.Context, entry Entry) error {
	j.mx.Lock()
	defer j.mx.Unlock()
	if j.root == nil {
		return fmt.Errorf("%w: log already closed", model.ErrIOFault)
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding log entry: %w", err)
	}
	if err := validate(j.entry, raw); err != nil {
		return fmt.Errorf("log entry: %w", err)
	}

	entries, err := j.load(ctx)
	if err != nil {
		return err
	}
	entries = append(entries, raw)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding log: %w", err)
	}

	tmp := j.name + ".tmp"
	if err := j.root.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("%w: writing temporary log: %w", model.ErrIOFault, err)
	}
	if err := j.root.Rename(tmp, j.name); err != nil {
		_ = j.root.Remove(tmp)
		return fmt.Errorf("%w: renaming temporary log: %w", model.ErrIOFault, err)
	}
	slog.DebugContext(ctx, "log entry saved", "path", j.path, "entries", len(entries))
	return nil
}

// Entries returns all valid entries of the log
func (j *JSONFile) Entries(ctx context.Context) ([]Entry, error) {
	j.mx.Lock()
	defer j.mx.Unlock()

	b, err := j.read()
	if err != nil || b == nil {
		return nil, err
	}
	var ret []Entry
	if err := json.Unmarshal(b, &ret); err != nil {
		return nil, fmt.Errorf("decoding log: %w", err)
	}
	return ret, nil
}

// Lines returns the raw content of the log file line by line
func (j *JSONFile) Lines(_ context.Context) ([]string, error) {
	j.mx.Lock()
	defer j.mx.Unlock()

	b, err := j.read()
	if err != nil || b == nil {
		return nil, err
	}
	return strings.Split(strings.TrimRight(string(b), "\n"), "\n"), nil
}

func (j *JSONFile) Close() error {
	j.mx.Lock()
	defer j.mx.Unlock()
	if j.root == nil {
		return errors.New("log already closed")
	}
	err := j.root.Close()
	j.root = nil
	return err
}

// read returns nil when the log does not exist yet
func (j *JSONFile) read() ([]byte, error) {
	if j.root == nil {
		return nil, fmt.Errorf("%w: log already closed", model.ErrIOFault)
	}
	b, err := j.root.ReadFile(j.name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading log: %w", model.ErrIOFault, err)
	}
	return b, nil
}

func (j *JSONFile) load(ctx context.Context) ([]json.RawMessage, error) {
	b, err := j.read()
	if err != nil || b == nil {
		return nil, err
	}

	var entries []json.RawMessage
	parseErr := json.Unmarshal(b, &entries)
	if parseErr == nil {
		parseErr = validate(j.log, b)
	}
	if parseErr == nil {
		return entries, nil
	}

	slog.WarnContext(ctx, "log file is corrupted: starting a new one",
		"path", j.path,
		"backup", j.path+BackupSuffix,
		"error", parseErr,
	)
	if err := j.root.Rename(j.name, j.name+BackupSuffix); err != nil {
		return nil, fmt.Errorf("%w: backing up corrupted log: %w", model.ErrIOFault, err)
	}
	return nil, nil
}

func validate(schema *jss.Schema, b []byte) error {
	res := schema.Validate(b)
	if !res.Valid {
		var errorMsgs []string
		for _, err := range res.Errors {
			errorMsgs = append(errorMsgs, fmt.Sprintf("%s: %s", err.Keyword, err.Error()))
		}
		return fmt.Errorf("schema validation failed:\n%s", strings.Join(errorMsgs, "\n"))
	}
	return nil
}
