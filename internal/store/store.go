// Package store provides the relational persistence layer for taskflow.
//
// The store speaks database/sql against two dialects: an embedded SQLite
// database (modernc.org/sqlite, pure Go) for local use and PostgreSQL
// (jackc/pgx/v5 stdlib driver) for shared deployments. Queries are written
// once with `?` placeholders and rebound per dialect.
//
// Every query is scoped by organization and workspace identifiers.
//
// Import rules:
//   - CAN import: internal/constants, internal/domain, internal/errors, std lib
//   - MUST NOT import: internal/task, internal/graph, internal/wip, internal/cli
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/rs/zerolog"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mrz1836/taskflow/internal/constants"
	flowerrors "github.com/mrz1836/taskflow/internal/errors"
)

// Dialect identifies the SQL flavour of the backing database.
type Dialect string

// Supported dialects.
const (
	DialectSQLite   Dialect = Dialect(constants.DriverSQLite)
	DialectPostgres Dialect = Dialect(constants.DriverPostgres)
)

// driverName maps a dialect to its registered database/sql driver.
func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// Options configures Open.
type Options struct {
	// Driver is "sqlite" or "postgres".
	Driver string

	// DSN is a file path for sqlite or a connection URL for postgres.
	DSN string

	// MaxOpenConns caps the connection pool. Zero uses the default.
	MaxOpenConns int

	// BusyTimeout is how long sqlite waits on a locked database.
	BusyTimeout time.Duration
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds every read and write the engine performs. A Store exposes
// them outside a transaction, a Tx inside one.
type Queries struct {
	q       querier
	dialect Dialect
}

// Store owns the connection pool.
type Store struct {
	*Queries

	db      *sql.DB
	dialect Dialect
	logger  zerolog.Logger
}

// Tx is an open transaction. It is only valid inside the WithTx callback.
type Tx struct {
	*Queries
}

// Open connects to the database described by opts and applies pending migrations.
func Open(ctx context.Context, opts Options, logger zerolog.Logger) (*Store, error) {
	dialect := Dialect(strings.ToLower(strings.TrimSpace(opts.Driver)))
	if dialect == "" {
		dialect = DialectSQLite
	}
	if dialect != DialectSQLite && dialect != DialectPostgres {
		return nil, fmt.Errorf("%w: %q", flowerrors.ErrUnsupportedDriver, opts.Driver)
	}
	if strings.TrimSpace(opts.DSN) == "" {
		return nil, fmt.Errorf("%w: database dsn", flowerrors.ErrEmptyValue)
	}

	dsn := opts.DSN
	if dialect == DialectSQLite {
		dsn = SQLiteDSN(opts.DSN, opts.BusyTimeout)
	}

	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, flowerrors.Wrap(err, "open database")
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = constants.DefaultMaxOpenConns
	}
	db.SetMaxOpenConns(maxOpen)

	s := New(db, dialect, logger)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, flowerrors.Wrap(err, "ping database")
	}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.logger.Debug().Str("driver", string(dialect)).Msg("database ready")
	return s, nil
}

// New wraps an already opened *sql.DB. Migrations are not applied.
func New(db *sql.DB, dialect Dialect, logger zerolog.Logger) *Store {
	return &Store{
		Queries: &Queries{q: db, dialect: dialect},
		db:      db,
		dialect: dialect,
		logger:  logger.With().Str("component", "store").Logger(),
	}
}

// SQLiteDSN turns a database file path into a modernc.org/sqlite DSN with
// foreign keys, WAL journaling, a busy timeout and BEGIN IMMEDIATE
// transactions. A DSN that already carries a query string is returned as is.
func SQLiteDSN(path string, busyTimeout time.Duration) string {
	if strings.Contains(path, "?") {
		return path
	}
	if busyTimeout <= 0 {
		busyTimeout = constants.DefaultBusyTimeout
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(" + strconv.FormatInt(busyTimeout.Milliseconds(), 10) + ")" +
		"&_txlock=immediate"
}

// Dialect returns the SQL flavour of the store.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside one transaction. The transaction commits when fn
// returns nil and rolls back otherwise, so either every write fn made is
// visible or none is.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", flowerrors.ErrTxFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Warn().Err(rbErr).Msg("rollback failed")
			}
		}
	}()

	if err := fn(&Tx{Queries: &Queries{q: sqlTx, dialect: s.dialect}}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", flowerrors.ErrTxFailed, err)
	}
	committed = true
	return nil
}

// rebind rewrites `?` placeholders into `$n` for postgres.
func (q *Queries) rebind(query string) string {
	if q.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.q.ExecContext(ctx, q.rebind(query), args...)
}

func (q *Queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.q.QueryContext(ctx, q.rebind(query), args...)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.q.QueryRowContext(ctx, q.rebind(query), args...)
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// isUniqueViolation reports whether err is a unique or primary key
// constraint failure in either dialect.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
