package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// SeedSQL builds a schema large enough for the planner to prefer sequential
// scans, sorts and hash joins on unindexed columns.
const SeedSQL = `
CREATE TABLE users (
	id SERIAL PRIMARY KEY,
	email TEXT NOT NULL,
	age INTEGER NOT NULL,
	created_at TIMESTAMPTZ DEFAULT NOW()
);

CREATE TABLE orders (
	id SERIAL PRIMARY KEY,
	user_id INTEGER NOT NULL,
	amount NUMERIC(10,2) NOT NULL,
	status TEXT NOT NULL DEFAULT 'new'
);

INSERT INTO users (email, age)
SELECT 'user' || g || '@example.com', 18 + (g % 60)
FROM generate_series(1, 20000) AS g;

INSERT INTO orders (user_id, amount, status)
SELECT 1 + (g % 20000), (g % 500) + 0.99, CASE WHEN g % 7 = 0 THEN 'shipped' ELSE 'new' END
FROM generate_series(1, 50000) AS g;

ANALYZE;
`

const testDBEnv = "PGGUARD_TEST_DB_URL"

// runPostgresContainer starts a PG container, recovering from panics if Docker is unavailable.
func runPostgresContainer(ctx context.Context) (container *postgres.PostgresContainer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
	)
}

func seedDatabase(ctx context.Context, connStr string) error {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return fmt.Errorf("seed connect: %w", err)
	}
	if _, err := conn.Exec(ctx, "DROP TABLE IF EXISTS orders, users"); err != nil {
		_ = conn.Close(ctx)
		return fmt.Errorf("seed reset: %w", err)
	}
	if _, err := conn.Exec(ctx, SeedSQL); err != nil {
		_ = conn.Close(ctx)
		return fmt.Errorf("seed: %w", err)
	}
	return conn.Close(ctx)
}

// Setup starts a PostgreSQL container, seeds it and returns the connection
// string and a cleanup function. If PGGUARD_TEST_DB_URL is set, that database
// is seeded instead.
func Setup() (string, func(), error) {
	ctx := context.Background()

	if connStr := os.Getenv(testDBEnv); connStr != "" {
		if err := seedDatabase(ctx, connStr); err != nil {
			return "", nil, fmt.Errorf("seed %s: %w", testDBEnv, err)
		}
		return connStr, func() {}, nil
	}

	container, err := runPostgresContainer(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("docker not available: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return "", nil, fmt.Errorf("connection string: %w", err)
	}

	if err := seedDatabase(ctx, connStr); err != nil {
		_ = container.Terminate(ctx)
		return "", nil, err
	}

	return connStr, func() { _ = container.Terminate(ctx) }, nil
}

// SetupPostgres skips the test when no database can be provided.
func SetupPostgres(t *testing.T) string {
	t.Helper()
	connStr, cleanup, err := Setup()
	if err != nil {
		t.Skipf("skipping: %v", err)
	}
	t.Cleanup(cleanup)
	return connStr
}
