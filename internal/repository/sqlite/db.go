package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pressly/goose/v3"

	"github.com/NAJJJB/subscription-tracker/migrations"

	_ "modernc.org/sqlite"
)

const gooseDialect = "sqlite3"

// Open connects to the SQLite database file name using the given driver.
func Open(ctx context.Context, driver, name string) (*sql.DB, error) {
	if name == "" {
		return nil, errors.New("database name cannot be empty")
	}
	connectionString := "file:" + name +
		"?cache=shared&mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open(driver, connectionString)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; queue statements instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate applies the embedded goose migrations.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(gooseDialect); err != nil {
		return err
	}

	return goose.Up(db, ".")
}
