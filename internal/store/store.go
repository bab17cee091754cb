package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/jward/waypoint/internal/errs"
)

// Store is the SQLite data access layer for the record tables and the
// favorites registry.
//
// Every operation acquires its own connection and releases it before
// returning. The pool keeps no idle connections, so a Store holds no open
// handle between calls.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for store diagnostics.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string, opts ...StoreOption) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxIdleConns(0)

	s := &Store{db: db, path: dbPath, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.StoreUnavailable, "open store", "database "+dbPath, err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the record tables, favorites and position sequences. Idempotent.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(tableDDL() + schemaDDL); err != nil {
		return s.storeErr("migrate", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS favorites (
  table_name      TEXT NOT NULL,
  position        INTEGER NOT NULL,
  created_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (table_name, position)
);

CREATE TABLE IF NOT EXISTS position_seq (
  table_name      TEXT PRIMARY KEY,
  next_position   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_favorites_table ON favorites(table_name, position);
`

// withConn runs fn on a connection scoped to this call.
func (s *Store) withConn(ctx context.Context, op string, fn func(*sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}
		return errs.Wrap(errs.StoreUnavailable, op, "acquire connection to "+s.path, err)
	}
	defer conn.Close()
	return fn(conn)
}

// withTx runs fn inside a transaction on a scoped connection. The
// transaction is rolled back unless fn returns nil and the commit succeeds.
func (s *Store) withTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	return s.withConn(ctx, op, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback()
		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// storeErr classifies a database error for op. Typed errors pass through
// unchanged; storage-level failures become StoreUnavailable.
func (s *Store) storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var typed *errs.Error
	if errors.As(err, &typed) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if unavailable(err) {
		s.logger.Debug("store unavailable", zap.String("op", op), zap.String("path", s.path), zap.Error(err))
		return errs.Wrap(errs.StoreUnavailable, op, "database "+s.path, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// unavailable reports whether err means the database itself cannot serve
// requests, as opposed to a bad statement or constraint violation.
func unavailable(err error) bool {
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if err.Error() == "sql: database is closed" {
		return true
	}
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code {
	case sqlite3.ErrCantOpen, sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrIoErr,
		sqlite3.ErrNotADB, sqlite3.ErrCorrupt, sqlite3.ErrReadonly, sqlite3.ErrFull, sqlite3.ErrPerm:
		return true
	case sqlite3.ErrError:
		// A missing table means the schema was never migrated or the file was replaced.
		return strings.Contains(se.Error(), "no such table")
	}
	return false
}

func notFound(op string, t Table, position int64) error {
	return errs.New(errs.NotFound, op, fmt.Sprintf("%s has no record at position %d", t, position))
}
