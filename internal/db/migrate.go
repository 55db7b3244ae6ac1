package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/2beens/logingate/internal/db/migrations"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	log "github.com/sirupsen/logrus"
)

// gooseUpContext is swapped in tests.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema migrations over a short-lived
// database/sql connection. The pgx pool is not used for this.
func RunMigrations(ctx context.Context, params NewDBPoolParams) error {
	sqlDB, err := sql.Open("postgres", params.ConnString())
	if err != nil {
		return fmt.Errorf("open migrations db: %w", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Warnf("close migrations db: %s", err)
		}
	}()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := gooseUpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	log.Debugln("db migrations applied")
	return nil
}
