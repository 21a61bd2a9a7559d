//go:build integration

// Package dbtest starts a throwaway PostgreSQL container for repository
// integration tests. Run with: go test -tags integration ./...
package dbtest

import (
	"context"
	"database/sql"
	"io/fs"
	"testing"
	"time"

	"github.com/eaglebank/platform/shared/database"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// NewPostgres starts postgres:16-alpine, applies the migrations in fsys and
// returns an open pool. The container is terminated on test cleanup.
func NewPostgres(t *testing.T, fsys fs.FS) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("eagle_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.PingContext(ctx))

	require.NoError(t, database.Migrate(db, fsys, ".", zap.NewNop()))
	return db
}
