package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDriverFor(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@localhost:5432/db": DriverPostgres,
		"postgresql://localhost/db":        DriverPostgres,
		"libsql://classify.turso.io":       DriverLibSQL,
		"https://classify.turso.io":        DriverLibSQL,
		"file:history.db?cache=shared":     DriverSQLite,
		"/var/lib/classify/history.db":     DriverSQLite,
	}

	for dsn, want := range tests {
		assert.Equal(t, want, DriverFor(dsn), dsn)
	}
}
