package persistence

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Dialect identifies the SQL flavour behind a DATABASE_URL
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

const memoryPath = ":memory:"

// GetMigrationsFS returns the migration files for the given dialect
func GetMigrationsFS(kind Dialect) (fs.FS, error) {
	switch kind {
	case DialectSQLite:
		return fs.Sub(migrationsFS, "migrations/sqlite")
	case DialectPostgres:
		return fs.Sub(migrationsFS, "migrations/postgres")
	default:
		return nil, fmt.Errorf("unsupported dialect %q", kind)
	}
}

// ParseURL splits a database url into its dialect and driver DSN.
//
//	sqlite:///./tmp/agents.db  -> sqlite, ./tmp/agents.db
//	sqlite:////var/agents.db   -> sqlite, /var/agents.db
//	sqlite:///:memory:         -> sqlite, :memory:
//	postgres://user@host/db    -> postgres, postgres://user@host/db
func ParseURL(url string) (Dialect, string, error) {
	url = strings.TrimSpace(url)
	switch {
	case url == "":
		return "", "", goerrors.New("database url is empty", goerrors.CategoryValidation).
			WithTextCode("DATABASE_URL_EMPTY")
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DialectPostgres, url, nil
	case strings.HasPrefix(url, "sqlite:///"):
		return DialectSQLite, strings.TrimPrefix(url, "sqlite:///"), nil
	case strings.HasPrefix(url, "sqlite://"):
		return DialectSQLite, strings.TrimPrefix(url, "sqlite://"), nil
	case strings.HasPrefix(url, "file:"), url == memoryPath:
		return DialectSQLite, url, nil
	case !strings.Contains(url, "://"):
		return DialectSQLite, url, nil
	}

	return "", "", goerrors.New(fmt.Sprintf("unsupported database url scheme: %s", url), goerrors.CategoryValidation).
		WithTextCode("DATABASE_URL_UNSUPPORTED")
}

// Open connects to the database behind url and returns a bun handle for it
func Open(ctx context.Context, url string) (*bun.DB, error) {
	kind, dsn, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	var db *bun.DB
	switch kind {
	case DialectPostgres:
		db, err = openPostgres(dsn)
	default:
		db, err = openSQLite(dsn)
	}
	if err != nil {
		return nil, err
	}

	if err := Ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// OpenMemory returns a private in memory sqlite database. Handles opened
// with the same name share their data.
func OpenMemory(ctx context.Context, name string) (*bun.DB, error) {
	return Open(ctx, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
}

func openSQLite(dsn string) (*bun.DB, error) {
	if path := sqliteFilePath(dsn); path != "" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "create sqlite directory")
			}
		}
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "open sqlite database")
	}

	// sqlite serializes writers; a single connection keeps in memory
	// databases alive and avoids SQLITE_BUSY on concurrent inserts.
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "enable sqlite foreign keys")
	}

	return db, nil
}

func openPostgres(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "open postgres database")
	}

	sqldb.SetMaxOpenConns(10)
	sqldb.SetConnMaxIdleTime(5 * time.Minute)

	return bun.NewDB(sqldb, pgdialect.New()), nil
}

func sqliteFilePath(dsn string) string {
	if dsn == "" || dsn == memoryPath || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

// DialectOf reports the dialect a bun handle was opened with
func DialectOf(db *bun.DB) Dialect {
	if db.Dialect().Name() == dialect.PG {
		return DialectPostgres
	}
	return DialectSQLite
}

// Ping checks the database is reachable
func Ping(ctx context.Context, db *bun.DB) error {
	if db == nil {
		return errors.New("database handle is nil")
	}
	if err := db.PingContext(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "database ping failed")
	}
	return nil
}
