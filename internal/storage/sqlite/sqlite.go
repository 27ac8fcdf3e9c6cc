// Package sqlite implements the storage interface on SQLite via the
// pure-Go ncruces driver (wazero WASM, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/taskdeck/taskdeck/internal/storage"
	"github.com/taskdeck/taskdeck/internal/types"
)

// Store is the SQLite-backed implementation of storage.Storage.
type Store struct {
	db   *sql.DB
	path string

	// RetryBudget bounds BEGIN IMMEDIATE attempts under writer contention.
	RetryBudget int
	// SlowQueryThreshold: queries slower than this are logged. Zero disables.
	SlowQueryThreshold time.Duration
	// Logger receives slow-query and sweeper diagnostics. Nil means stdlib default.
	Logger *log.Logger
}

var _ storage.Storage = (*Store)(nil)

// New opens (creating if needed) the database at path, applies the schema
// and runs pending migrations.
func New(ctx context.Context, path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{
		db:          db,
		path:        path,
		RetryBudget: 5,
	}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// UnderlyingDB exposes the raw handle for migrations and tests.
func (s *Store) UnderlyingDB() *sql.DB {
	return s.db
}

// queryer is satisfied by *sql.DB and *sql.Conn so the row-level helpers
// can run both inside and outside an explicit transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// tx is the in-transaction view handed to RunInTransaction callbacks. It
// shares the Store's row-level helpers over a single pinned connection.
type tx struct {
	s    *Store
	conn *sql.Conn
}

var _ storage.Transaction = (*tx)(nil)

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database table is locked")
}

// RunInTransaction executes fn inside one BEGIN IMMEDIATE transaction.
// SQLITE_BUSY on the BEGIN is retried with jittered exponential backoff
// up to the retry budget; exhaustion surfaces TransactionAborted.
func (s *Store) RunInTransaction(ctx context.Context, fn func(t storage.Transaction) error) error {
	if s.db == nil {
		return storage.ErrDBNotInitialized
	}

	budget := s.RetryBudget
	if budget <= 0 {
		budget = 1
	}

	var lastErr error
	for attempt := 0; attempt < budget; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 25 * time.Millisecond
			backoff += time.Duration(rand.Int63n(int64(backoff)))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isBusy(err) {
			return err
		}
		lastErr = err
	}
	return types.TransactionAbortedf("write transaction did not acquire the database lock after %d attempts: %v", budget, lastErr)
}

func (s *Store) runOnce(ctx context.Context, fn func(t storage.Transaction) error) (err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK")
		}
	}()

	if err := fn(&tx{s: s, conn: conn}); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// timed wraps a query body with slow-query logging.
func (s *Store) timed(name string, fn func() error) error {
	if s.SlowQueryThreshold <= 0 {
		return fn()
	}
	start := time.Now()
	err := fn()
	if elapsed := time.Since(start); elapsed > s.SlowQueryThreshold {
		logger := s.Logger
		if logger == nil {
			logger = log.Default()
		}
		logger.Printf("slow query %s took %s", name, elapsed)
	}
	return err
}

const timeLayout = time.RFC3339Nano

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func fmtTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Older rows may carry second precision.
		t, err = time.Parse("2006-01-02 15:04:05", s)
	}
	return t.UTC(), err
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// priorityRank is the ORDER BY expression for descending priority.
const priorityRank = "CASE t.priority WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END"

func clampLimit(limit int) int {
	if limit <= 0 || limit > types.MaxQueryLimit {
		return types.MaxQueryLimit
	}
	return limit
}

// placeholders renders "?,?,?" for n args.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
