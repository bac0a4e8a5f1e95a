package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/vyrodovalexey/todo-api/internal/model"
	"github.com/vyrodovalexey/todo-api/internal/store/migrations"
)

// DefaultOpTimeout bounds a single store call when SQLiteConfig.OpTimeout is unset.
const DefaultOpTimeout = 5 * time.Second

// SQLiteConfig configures the SQLite-backed store and its connection pool.
type SQLiteConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	OpTimeout       time.Duration
}

// SQLiteStore implements Store on top of a database/sql connection pool.
type SQLiteStore struct {
	db      *sql.DB
	timeout time.Duration
}

const todoColumns = "id, text, completed"

// OpenSQLite opens the database at cfg.Path, verifies the connection
// and applies the embedded schema migrations.
func OpenSQLite(ctx context.Context, cfg SQLiteConfig) (*SQLiteStore, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	timeout := cfg.OpTimeout
	if timeout <= 0 {
		timeout = DefaultOpTimeout
	}

	return &SQLiteStore{db: db, timeout: timeout}, nil
}

func sqliteDSN(path string) string {
	params := url.Values{}
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "synchronous(NORMAL)")
	return filepath.Clean(path) + "?" + params.Encode()
}

// Create inserts a new row with completed=false.
func (s *SQLiteStore) Create(ctx context.Context, input model.CreateTodo) (*model.Todo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO todos (text, completed)
		 VALUES (?, false)
		 RETURNING `+todoColumns,
		input.Text,
	)

	todo, err := scanTodo(row)
	if err != nil {
		return nil, unexpected("create todo", err)
	}

	return todo, nil
}

// Find fetches exactly one row by ID.
func (s *SQLiteStore) Find(ctx context.Context, id int64) (*model.Todo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+todoColumns+`
		 FROM todos
		 WHERE id = ?`,
		id,
	)

	todo, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, unexpected("find todo", err)
	}

	return todo, nil
}

// All returns every row ordered by ID descending.
func (s *SQLiteStore) All(ctx context.Context) ([]model.Todo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+todoColumns+`
		 FROM todos
		 ORDER BY id DESC`,
	)
	if err != nil {
		return nil, unexpected("list todos", err)
	}
	defer rows.Close()

	todos := make([]model.Todo, 0)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, unexpected("list todos", err)
		}
		todos = append(todos, *todo)
	}
	if err := rows.Err(); err != nil {
		return nil, unexpected("list todos", err)
	}

	return todos, nil
}

// Update rewrites the row in a single statement. Absent fields are
// bound as NULL and COALESCE keeps the stored value, so concurrent
// updates never overwrite each other with stale reads.
func (s *SQLiteStore) Update(ctx context.Context, id int64, input model.UpdateTodo) (*model.Todo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var text sql.NullString
	if input.Text != nil {
		text = sql.NullString{String: *input.Text, Valid: true}
	}
	var completed sql.NullBool
	if input.Completed != nil {
		completed = sql.NullBool{Bool: *input.Completed, Valid: true}
	}

	row := s.db.QueryRowContext(ctx,
		`UPDATE todos
		 SET text = COALESCE(?, text),
		     completed = COALESCE(?, completed)
		 WHERE id = ?
		 RETURNING `+todoColumns,
		text,
		completed,
		id,
	)

	todo, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, unexpected("update todo", err)
	}

	return todo, nil
}

// Delete removes the row and reports NotFound when nothing was deleted.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM todos
		 WHERE id = ?`,
		id,
	)
	if err != nil {
		return unexpected("delete todo", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return unexpected("delete todo", err)
	}
	if affected == 0 {
		return notFound(id)
	}

	return nil
}

// Ping verifies a connection can be checked out of the pool.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return unexpected("ping", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (*model.Todo, error) {
	var todo model.Todo
	if err := row.Scan(&todo.ID, &todo.Text, &todo.Completed); err != nil {
		return nil, err
	}
	return &todo, nil
}
