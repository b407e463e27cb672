// Package pgtest hands repository tests a migrated, empty Postgres database.
package pgtest

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/nikonekti/nikonekti_backend/internal/config"
	"github.com/nikonekti/nikonekti_backend/internal/infra"
	"github.com/nikonekti/nikonekti_backend/internal/logging"
)

// EnvVar names the database the integration tests run against. Its tables are wiped.
const EnvVar = "TEST_DATABASE_URL"

// lockKey serializes packages that share the database, since go test runs them in parallel.
const lockKey = 7410021

// Open skips the test unless EnvVar is set, then returns a pool on a freshly
// migrated database whose tables are emptied before the test runs.
func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv(EnvVar)
	if url == "" {
		t.Skipf("%s not set", EnvVar)
	}

	ctx := context.Background()
	db, err := infra.OpenDatabase(ctx, config.Config{AppName: "nikonekti-test", DatabaseURL: url})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	conn, err := db.Acquire(ctx)
	require.NoError(t, err)
	_, err = conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, lockKey)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, lockKey)
		conn.Release()
	})

	require.NoError(t, infra.Migrate(ctx, db, logging.Discard()))
	_, err = db.Exec(ctx, `TRUNCATE properties, auth_tokens, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return db
}
