package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/cozy-creator/classify-server/internal/config"
	"github.com/cozy-creator/classify-server/internal/db/drivers"

	"github.com/uptrace/bun/extra/bundebug"
)

const (
	DriverPostgres = "pg"
	DriverLibSQL   = "libsql"
	DriverSQLite   = "sqlite"
)

// DriverFor picks a driver from the DSN scheme.
func DriverFor(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DriverPostgres
	case strings.HasPrefix(dsn, "libsql://"), strings.HasPrefix(dsn, "https://"), strings.HasPrefix(dsn, "wss://"):
		return DriverLibSQL
	default:
		return DriverSQLite
	}
}

func NewConnection(ctx context.Context, cfg *config.Config) (drivers.Driver, error) {
	if !cfg.HistoryEnabled() {
		return nil, fmt.Errorf("database dsn is not set")
	}

	dsn := cfg.DB.DSN

	var (
		driver drivers.Driver
		err    error
	)
	switch DriverFor(dsn) {
	case DriverPostgres:
		driver, err = drivers.NewPGDriver(ctx, dsn)
	case DriverLibSQL:
		driver, err = drivers.NewLibSQLDriver(ctx, dsn)
	default:
		driver, err = drivers.NewSQLiteDriver(ctx, dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	driver.GetDB().AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithEnabled(cfg.Environment == "dev"),
		bundebug.FromEnv("BUNDEBUG"),
	))

	return driver, nil
}
