package drivers

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

const LibSQLDriverName = "libsql"

type SQLiteDriver struct {
	db *bun.DB
}

// NewSQLiteDriver opens a local SQLite database file.
func NewSQLiteDriver(ctx context.Context, dsn string) (*SQLiteDriver, error) {
	return openSQLite(ctx, sqliteshim.ShimName, dsn)
}

// NewLibSQLDriver opens a remote libsql (Turso) database.
func NewLibSQLDriver(ctx context.Context, dsn string) (*SQLiteDriver, error) {
	return openSQLite(ctx, LibSQLDriverName, dsn)
}

func openSQLite(ctx context.Context, name, dsn string) (*SQLiteDriver, error) {
	sqldb, err := sql.Open(name, dsn)
	if err != nil {
		return nil, err
	}

	if name == sqliteshim.ShimName {
		// SQLite allows a single writer.
		sqldb.SetMaxOpenConns(1)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteDriver{db: db}, nil
}

func (d *SQLiteDriver) GetDB() *bun.DB {
	return d.db
}

func (d *SQLiteDriver) Close() error {
	return d.db.Close()
}
