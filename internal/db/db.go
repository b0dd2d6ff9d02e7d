package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/Doud-FR/Wiki/internal/apperr"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// DB is the wiki store. All queries use $N placeholders, which both
// go-sqlite3 and lib/pq accept.
type DB struct {
	*sql.DB
	q      querier
	driver string
	now    func() time.Time
}

type Options struct {
	// Retries is how many extra pings are attempted before giving up.
	Retries  int
	Interval time.Duration
	Logger   *zap.Logger
}

// Connect opens the database and pings it until it answers or the retries
// are exhausted.
func Connect(ctx context.Context, driver, dsn string, opts Options) (*DB, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if driver == DriverSQLite {
		dsn = sqliteDSN(dsn)
	}
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// One writer at a time; avoids SQLITE_BUSY between pooled connections.
		sqlDB.SetMaxOpenConns(1)
	}

	var policy backoff.BackOff = backoff.NewConstantBackOff(opts.Interval)
	policy = backoff.WithContext(backoff.WithMaxRetries(policy, uint64(opts.Retries)), ctx)
	ping := func() error { return sqlDB.PingContext(ctx) }
	notify := func(err error, next time.Duration) {
		logger.Warn("database not reachable, retrying",
			zap.String("driver", driver),
			zap.Duration("retry_in", next),
			zap.Error(err))
	}
	if err := backoff.RetryNotify(ping, policy, notify); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("database connection established", zap.String("driver", driver))

	return &DB{DB: sqlDB, q: sqlDB, driver: driver, now: utcNow}, nil
}

// Init connects without retrying and creates the schema.
func Init(ctx context.Context, driver, dsn string) (*DB, error) {
	db, err := Connect(ctx, driver, dsn, Options{})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func utcNow() time.Time { return time.Now().UTC() }

// sqliteDSN turns on foreign key enforcement, which SQLite leaves off per
// connection unless asked.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}

// Tx runs fn inside a transaction. The *DB handed to fn issues every query
// on the transaction; fn must not use the outer *DB.
func (db *DB) Tx(ctx context.Context, fn func(tx *DB) error) error {
	if _, nested := db.q.(*sql.Tx); nested {
		return fn(db)
	}
	sqlTx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(err, "begin transaction")
	}
	tx := &DB{DB: db.DB, q: sqlTx, driver: db.driver, now: db.now}
	if err := fn(tx); err != nil {
		sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return translate(err, "commit transaction")
	}
	return nil
}

// Migrate creates missing tables and indexes. It never drops anything.
func (db *DB) Migrate(ctx context.Context) error {
	ddl := strings.NewReplacer(
		"{{id}}", dialects[db.driver].id,
		"{{ts}}", dialects[db.driver].ts,
	)
	for _, query := range schema {
		if _, err := db.q.ExecContext(ctx, ddl.Replace(query)); err != nil {
			return fmt.Errorf("failed to create table: %v", err)
		}
	}
	return nil
}

type dialect struct {
	id string
	ts string
}

var dialects = map[string]dialect{
	DriverSQLite:   {id: "INTEGER PRIMARY KEY AUTOINCREMENT", ts: "TIMESTAMP"},
	DriverPostgres: {id: "BIGSERIAL PRIMARY KEY", ts: "TIMESTAMPTZ"},
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id {{id}},
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_login_at {{ts}},
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_groups (
		id {{id}},
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS group_members (
		group_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		created_at {{ts}} NOT NULL,
		PRIMARY KEY (group_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS group_members_user ON group_members (user_id)`,
	`CREATE TABLE IF NOT EXISTS folders (
		id {{id}},
		name TEXT NOT NULL,
		path TEXT NOT NULL UNIQUE,
		parent_id BIGINT REFERENCES folders (id),
		description TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_by BIGINT NOT NULL,
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS folders_parent ON folders (parent_id)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id {{id}},
		title TEXT NOT NULL,
		slug TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		content_type TEXT NOT NULL DEFAULT 'markdown'
			CHECK (content_type IN ('markdown', 'html', 'text')),
		folder_id BIGINT REFERENCES folders (id),
		is_published BOOLEAN NOT NULL DEFAULT FALSE,
		published_at {{ts}},
		created_by BIGINT NOT NULL,
		updated_by BIGINT,
		tags TEXT NOT NULL DEFAULT '[]',
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL,
		UNIQUE (slug, folder_id)
	)`,
	// NULLs are distinct in UNIQUE constraints, so root-level slugs need
	// their own index.
	`CREATE UNIQUE INDEX IF NOT EXISTS documents_root_slug ON documents (slug) WHERE folder_id IS NULL`,
	`CREATE INDEX IF NOT EXISTS documents_folder ON documents (folder_id)`,
	`CREATE TABLE IF NOT EXISTS permissions (
		id {{id}},
		resource_type TEXT NOT NULL CHECK (resource_type IN ('folder', 'document')),
		resource_id BIGINT NOT NULL,
		subject_type TEXT NOT NULL CHECK (subject_type IN ('user', 'group')),
		subject_id BIGINT NOT NULL,
		level TEXT NOT NULL CHECK (level IN ('read', 'write', 'admin', 'deny')),
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL,
		UNIQUE (resource_type, resource_id, subject_type, subject_id)
	)`,
}

// translate maps driver errors onto apperr kinds: missing rows and dangling
// references become NotFound, unique violations become Conflict, everything
// else is an infrastructure failure.
func translate(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return apperr.WithKind(err, apperr.NotFound, msg+": not found")
	case isUniqueViolation(err):
		return apperr.WithKind(err, apperr.Conflict, msg+": already exists")
	case isForeignKeyViolation(err):
		return apperr.WithKind(err, apperr.NotFound, msg+": referenced folder not found")
	}
	return apperr.Wrap(err, msg)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	return false
}

func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, col := range parts {
		parts[i] = prefix + strings.TrimSpace(col)
	}
	return strings.Join(parts, ", ")
}

// Scope selects which level of the tree a listing covers.
type Scope struct {
	// FolderID nil means the root level.
	FolderID *int64
}

func (s Scope) where(column string, next int) (string, []interface{}) {
	if s.FolderID == nil {
		return " WHERE " + column + " IS NULL", nil
	}
	return fmt.Sprintf(" WHERE %s = $%d", column, next), []interface{}{*s.FolderID}
}

func nullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
