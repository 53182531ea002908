// Package history persists ask round trips to a local sqlite database.
//
// Each entry records the question, which backend answered, and what became
// of the extracted commands. Plans themselves are never persisted; history
// is an audit trail, not state.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS asks (
	id            TEXT PRIMARY KEY,
	created_at    TIMESTAMP NOT NULL,
	query         TEXT NOT NULL,
	source        TEXT NOT NULL DEFAULT '',
	command_count INTEGER NOT NULL DEFAULT 0,
	executed      INTEGER NOT NULL DEFAULT 0,
	succeeded     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS ask_commands (
	ask_id    TEXT NOT NULL REFERENCES asks(id),
	position  INTEGER NOT NULL,
	command   TEXT NOT NULL,
	tier      TEXT NOT NULL,
	executed  INTEGER NOT NULL DEFAULT 0,
	exit_code INTEGER,
	PRIMARY KEY (ask_id, position)
);

CREATE INDEX IF NOT EXISTS idx_asks_created_at ON asks(created_at);
`

// Entry is one recorded ask round trip.
type Entry struct {
	ID           string
	CreatedAt    time.Time
	Query        string
	Source       string
	CommandCount int
	Executed     bool
	Succeeded    bool
	Commands     []CommandRecord
}

// CommandRecord is one command within an entry.
type CommandRecord struct {
	Position int
	Command  string
	Tier     string
	Executed bool

	// ExitCode is nil when the command never ran or was signal-killed.
	ExitCode *int
}

// Store is a sqlite-backed history store.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores one entry. A zero ID and CreatedAt are filled in.
func (s *Store) Record(entry *Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO asks (id, created_at, query, source, command_count, executed, succeeded)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.CreatedAt, entry.Query, entry.Source,
		entry.CommandCount, entry.Executed, entry.Succeeded,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ask: %w", err)
	}

	for _, cmd := range entry.Commands {
		_, err = tx.Exec(
			`INSERT INTO ask_commands (ask_id, position, command, tier, executed, exit_code)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			entry.ID, cmd.Position, cmd.Command, cmd.Tier, cmd.Executed, cmd.ExitCode,
		)
		if err != nil {
			return fmt.Errorf("failed to insert command %d: %w", cmd.Position, err)
		}
	}

	return tx.Commit()
}

// Recent returns the latest entries, newest first, with their commands.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, created_at, query, source, command_count, executed, succeeded
		 FROM asks ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Query, &e.Source,
			&e.CommandCount, &e.Executed, &e.Succeeded); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range entries {
		cmds, err := s.commandsFor(entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].Commands = cmds
	}

	return entries, nil
}

func (s *Store) commandsFor(askID string) ([]CommandRecord, error) {
	rows, err := s.db.Query(
		`SELECT position, command, tier, executed, exit_code
		 FROM ask_commands WHERE ask_id = ? ORDER BY position`, askID)
	if err != nil {
		return nil, fmt.Errorf("failed to query commands: %w", err)
	}
	defer rows.Close()

	var cmds []CommandRecord
	for rows.Next() {
		var c CommandRecord
		if err := rows.Scan(&c.Position, &c.Command, &c.Tier, &c.Executed, &c.ExitCode); err != nil {
			return nil, fmt.Errorf("failed to scan command row: %w", err)
		}
		cmds = append(cmds, c)
	}
	return cmds, rows.Err()
}
