// Package history keeps a local record of past generations in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/brolyroly007/contentforge/internal/logging"
)

// FileName is the database file inside the contentforge home directory.
const FileName = "history.db"

var (
	ErrNotFound  = errors.New("history entry not found")
	ErrAmbiguous = errors.New("history id prefix is ambiguous")
)

// Entry is one recorded generation.
type Entry struct {
	ID         string
	Template   string
	Provider   string
	Model      string
	Format     string
	Prompt     string
	Content    string
	TokensUsed int
	CreatedAt  time.Time
}

// Store is an open history database.
type Store struct {
	db   *sql.DB
	path string
}

// Path returns the default database location under dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

func dsn(path string) string {
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_pragma=journal_mode(WAL)", path)
}

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history path must be set")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("prepare history dir: %w", err)
	}
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	if recovered, err := recoverDatabase(ctx, db, path); err != nil {
		db.Close()
		return nil, fmt.Errorf("history recovery failed: %w", err)
	} else if recovered != nil {
		db = recovered
	}

	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS generations (
	id TEXT PRIMARY KEY,
	template TEXT NOT NULL,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	format TEXT NOT NULL,
	prompt TEXT NOT NULL,
	content TEXT NOT NULL,
	tokens_used INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS generations_created_at ON generations(created_at)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history index: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// recoverDatabase replaces an unreadable database file with a fresh one.
// It returns a new handle when the file was recreated, nil when db is usable.
func recoverDatabase(ctx context.Context, db *sql.DB, path string) (*sql.DB, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if info.Size() > 0 {
		var n int
		err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master`).Scan(&n)
		if err == nil {
			return nil, nil
		}
		logging.ErrorLog("history database unreadable (%v), recreating", err)
	}

	if err := db.Close(); err != nil {
		return nil, fmt.Errorf("close damaged history: %w", err)
	}
	for _, suffix := range []string{"", "-wal", "-shm"} {
		os.Remove(path + suffix)
	}
	fresh, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("reopen history: %w", err)
	}
	return fresh, nil
}

// Record stores e, assigning an id and timestamp when they are unset.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e == nil {
		return nil
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO generations (id, template, provider, model, format, prompt, content, tokens_used, created_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		e.ID, e.Template, e.Provider, e.Model, e.Format, e.Prompt, e.Content, e.TokensUsed, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("record generation: %w", err)
	}
	logging.DevLog("history: recorded %s (%s via %s/%s)", e.ID, e.Template, e.Provider, e.Model)
	return nil
}

// List returns the most recent entries first. A non-positive limit means all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, template, provider, model, format, prompt, content, tokens_used, created_at
FROM generations ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Get finds the single entry whose id starts with prefix.
func (s *Store) Get(ctx context.Context, prefix string) (*Entry, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, ErrNotFound
	}
	pattern := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix) + "%"
	rows, err := s.db.QueryContext(ctx, `
SELECT id, template, provider, model, format, prompt, content, tokens_used, created_at
FROM generations WHERE id LIKE ? ESCAPE '\' LIMIT 2`, pattern)
	if err != nil {
		return nil, fmt.Errorf("lookup history: %w", err)
	}
	defer rows.Close()

	var found []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, prefix)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguous, prefix)
	}
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func scanEntry(scanner interface {
	Scan(dest ...any) error
}) (*Entry, error) {
	var e Entry
	if err := scanner.Scan(&e.ID, &e.Template, &e.Provider, &e.Model, &e.Format, &e.Prompt, &e.Content, &e.TokensUsed, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}
