// Package history keeps a local log of generation runs in sqlite
package history

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Log records completed and failed generation runs
type Log struct {
	db *sql.DB
}

// Entry is one recorded generation run
type Entry struct {
	ID           int64
	StartedAt    time.Time
	Mode         string
	Model        string
	Prompt       string
	CellKind     string
	CellsEmitted int
	Status       string
	Error        string
}

// Statuses recorded for a run
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Open opens (creating if needed) the log database at dbPath
func Open(dbPath string) (*Log, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	l := &Log{db: db}
	if err := l.init(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Log) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS generations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TIMESTAMP,
		mode TEXT,
		model TEXT,
		prompt TEXT,
		cell_kind TEXT,
		cells_emitted INTEGER,
		status TEXT,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_generations_started_at ON generations(started_at);
	CREATE INDEX IF NOT EXISTS idx_generations_status ON generations(status);
	`

	_, err := l.db.Exec(schema)
	return err
}

// Record appends one run to the log
func (l *Log) Record(e *Entry) error {
	tx, err := l.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.Exec(`
		INSERT INTO generations (
			started_at, mode, model, prompt, cell_kind, cells_emitted, status, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.StartedAt, e.Mode, e.Model, e.Prompt, e.CellKind, e.CellsEmitted, e.Status, e.Error)
	if err != nil {
		return err
	}

	if id, err := result.LastInsertId(); err == nil {
		e.ID = id
	}
	return tx.Commit()
}

// Recent returns the most recent runs, newest first
func (l *Log) Recent(limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := l.db.Query(`
		SELECT id, started_at, mode, model, prompt, cell_kind, cells_emitted, status, error
		FROM generations
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		err := rows.Scan(
			&e.ID, &e.StartedAt, &e.Mode, &e.Model, &e.Prompt,
			&e.CellKind, &e.CellsEmitted, &e.Status, &e.Error,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the log database
func (l *Log) Close() error {
	return l.db.Close()
}
