package logsink

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/CZERTAINLY/Testbed/internal/model"

	_ "modernc.org/sqlite"
)

// SQLite keeps the log in an append-only table
type SQLite struct {
	mx sync.Mutex
	db *sql.DB
}

func InitDB(ctx context.Context, dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	_, err = db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS log_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			description TEXT NOT NULL,
			platform TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			cycle TEXT DEFAULT NULL
		)`,
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func NewSQLite(ctx context.Context, dbPath string) (*SQLite, error) {
	db, err := InitDB(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: initializing sqlite log %s: %w", model.ErrIOFault, dbPath, err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) conn() (*sql.DB, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("%w: log already closed", model.ErrIOFault)
	}
	return s.db, nil
}

func (s *SQLite) Append(ctx context.Context, entry Entry) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	var cycle *string
	if entry.Cycle != "" {
		cycle = &entry.Cycle
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO log_entries (description, platform, timestamp, cycle) VALUES (?,?,?,?);`,
		entry.Description, entry.Platform, entry.Timestamp, cycle,
	)
	if err != nil {
		return fmt.Errorf("%w: executing sql insert failed: %w", model.ErrIOFault, err)
	}
	return nil
}

// Entries returns all entries in the insertion order
func (s *SQLite) Entries(ctx context.Context) ([]Entry, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT description, platform, timestamp, cycle FROM log_entries ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: executing sql query failed: %w", model.ErrIOFault, err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			slog.ErrorContext(ctx, "closing sql rows failed", "error", cerr)
		}
	}()

	var ret []Entry
	for rows.Next() {
		var e Entry
		var cycle sql.NullString
		if err := rows.Scan(&e.Description, &e.Platform, &e.Timestamp, &cycle); err != nil {
			return nil, fmt.Errorf("%w: scanning row failed: %w", model.ErrIOFault, err)
		}
		e.Cycle = cycle.String
		ret = append(ret, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating rows failed: %w", model.ErrIOFault, err)
	}
	return ret, nil
}

// Lines renders every row as a single JSON object
func (s *SQLite) Lines(ctx context.Context) ([]string, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}
	ret := make([]string, 0, len(entries))
	for _, e := range entries {
		b, err := json.Marshal(e)
		if err != nil {
			return nil, err
		}
		ret = append(ret, string(b))
	}
	return ret, nil
}

func (s *SQLite) Close() error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.db == nil {
		return errors.New("log already closed")
	}
	err := s.db.Close()
	s.db = nil
	return err
}
