package persistence

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
)

// Migrate applies every pending embedded migration for the dialect of db
// and returns the versions that were applied.
func Migrate(ctx context.Context, db *bun.DB) ([]int64, error) {
	provider, err := newProvider(db)
	if err != nil {
		return nil, err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "apply migrations")
	}

	applied := make([]int64, 0, len(results))
	for _, res := range results {
		applied = append(applied, res.Source.Version)
	}
	return applied, nil
}

// Rollback reverts the most recently applied migration
func Rollback(ctx context.Context, db *bun.DB) error {
	provider, err := newProvider(db)
	if err != nil {
		return err
	}

	if _, err := provider.Down(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "rollback migration")
	}
	return nil
}

// Version returns the current schema version
func Version(ctx context.Context, db *bun.DB) (int64, error) {
	provider, err := newProvider(db)
	if err != nil {
		return 0, err
	}
	return provider.GetDBVersion(ctx)
}

func newProvider(db *bun.DB) (*goose.Provider, error) {
	kind := DialectOf(db)

	fsys, err := GetMigrationsFS(kind)
	if err != nil {
		return nil, err
	}

	gooseDialect := goose.DialectSQLite3
	if kind == DialectPostgres {
		gooseDialect = goose.DialectPostgres
	}

	provider, err := goose.NewProvider(gooseDialect, db.DB, fsys)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "create migration provider")
	}
	return provider, nil
}
