package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure-Go SQLite driver for database/sql

	"github.com/zhouzirui/persona-chat/backend/internal/model/persona"
)

// SQLiteRegistry is a Registry persisted in a single SQLite file. All
// public methods are safe for concurrent use (SQLite serializes writes).
type SQLiteRegistry struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the registry database at path.
// Passing ":memory:" yields a private in-process database.
func OpenSQLite(path string) (*SQLiteRegistry, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if path == ":memory:" {
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open registry database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	r := &SQLiteRegistry{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate registry schema: %w", err)
	}
	return r, nil
}

// Close closes the database connection.
func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}

func (r *SQLiteRegistry) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS prompts (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		id         TEXT NOT NULL UNIQUE,
		task       TEXT NOT NULL,
		alias      TEXT UNIQUE,
		template   TEXT NOT NULL,
		meta       TEXT NOT NULL DEFAULT '{}',
		tags       TEXT NOT NULL DEFAULT '[]',
		project    TEXT NOT NULL,
		author     TEXT,
		version    INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_prompts_project ON prompts(project);
	CREATE INDEX IF NOT EXISTS idx_prompts_task ON prompts(project, task);
	`
	_, err := r.db.Exec(schema)
	return err
}

const selectColumns = `id, task, alias, template, meta, tags, project, author, version, created_at`

// ListByProject returns the project's entries in registration order.
func (r *SQLiteRegistry) ListByProject(ctx context.Context, project string) ([]persona.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM prompts WHERE project = ? ORDER BY seq`, project)
	if err != nil {
		return nil, fmt.Errorf("list prompts for project %q: %w", project, err)
	}
	defer rows.Close()

	var entries []persona.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prompts: %w", err)
	}
	return entries, nil
}

// GetByAlias returns the entry currently bound to alias.
func (r *SQLiteRegistry) GetByAlias(ctx context.Context, alias string) (persona.Entry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM prompts WHERE alias = ?`, alias)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return persona.Entry{}, ErrNotFound
	}
	if err != nil {
		return persona.Entry{}, err
	}
	return entry, nil
}

// Register inserts the next version of reg.Task within reg.Project.
func (r *SQLiteRegistry) Register(ctx context.Context, reg Registration) (persona.Entry, error) {
	meta, err := json.Marshal(reg.Meta)
	if err != nil {
		return persona.Entry{}, fmt.Errorf("encode prompt meta: %w", err)
	}
	tags := reg.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return persona.Entry{}, fmt.Errorf("encode prompt tags: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persona.Entry{}, fmt.Errorf("begin register: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var version int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM prompts WHERE project = ? AND task = ?`,
		reg.Project, reg.Task).Scan(&version); err != nil {
		return persona.Entry{}, fmt.Errorf("next prompt version: %w", err)
	}

	entry := persona.Entry{
		ID:        uuid.NewString(),
		Task:      reg.Task,
		Template:  reg.Template,
		Meta:      reg.Meta,
		Tags:      append([]string(nil), reg.Tags...),
		Project:   reg.Project,
		Author:    reg.Author,
		Version:   version,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO prompts (id, task, template, meta, tags, project, author, version, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Task, entry.Template, string(meta), string(tagsJSON),
		entry.Project, entry.Author, entry.Version, entry.CreatedAt.Format(time.RFC3339Nano),
	); err != nil {
		return persona.Entry{}, fmt.Errorf("insert prompt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return persona.Entry{}, fmt.Errorf("commit register: %w", err)
	}
	return entry, nil
}

// BindAlias moves alias onto entryID.
func (r *SQLiteRegistry) BindAlias(ctx context.Context, entryID, alias string) error {
	if alias == "" {
		return ErrAliasRequired
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bind alias: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `UPDATE prompts SET alias = NULL WHERE alias = ?`, alias); err != nil {
		return fmt.Errorf("detach alias %q: %w", alias, err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE prompts SET alias = ? WHERE id = ?`, alias, entryID)
	if err != nil {
		return fmt.Errorf("bind alias %q: %w", alias, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("bind alias %q: %w", alias, ErrNotFound)
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(s rowScanner) (persona.Entry, error) {
	var (
		entry     persona.Entry
		alias     sql.NullString
		author    sql.NullString
		meta      string
		tags      string
		createdAt string
	)
	if err := s.Scan(&entry.ID, &entry.Task, &alias, &entry.Template, &meta, &tags,
		&entry.Project, &author, &entry.Version, &createdAt); err != nil {
		return persona.Entry{}, err
	}

	entry.Alias = alias.String
	entry.Author = author.String
	if err := json.Unmarshal([]byte(meta), &entry.Meta); err != nil {
		return persona.Entry{}, fmt.Errorf("decode meta of prompt %s: %w", entry.ID, err)
	}
	if err := json.Unmarshal([]byte(tags), &entry.Tags); err != nil {
		return persona.Entry{}, fmt.Errorf("decode tags of prompt %s: %w", entry.ID, err)
	}
	if len(entry.Tags) == 0 {
		entry.Tags = nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		entry.CreatedAt = ts
	}
	return entry, nil
}
