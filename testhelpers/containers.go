package testhelpers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"

	"github.com/padraicbc/tennisapi/db"
)

const (
	postgresImage = "postgres:16-alpine"
	redisImage    = "redis:7-alpine"

	pgUser     = "tennis"
	pgPassword = "test_password"
	pgAdminDB  = "postgres"
)

type pgServer struct {
	container testcontainers.Container
	host      string
	port      string
}

func (s *pgServer) dsn(database string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", pgUser, pgPassword, s.host, s.port, database)
}

var (
	sharedPG     *pgServer
	sharedPGOnce sync.Once
	sharedPGErr  error

	sharedRedisURL  string
	sharedRedisOnce sync.Once
	sharedRedisErr  error
)

// NewTestDB returns a connection to a fresh database with every table created.
// The Postgres container is shared across the test run and each call gets its
// own database. Skipped in short mode.
func NewTestDB(t *testing.T) *bun.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedPGOnce.Do(func() {
		sharedPG, sharedPGErr = startPostgres()
	})
	if sharedPGErr != nil {
		t.Fatalf("Failed to start postgres container: %v", sharedPGErr)
	}

	ctx := context.Background()
	name := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	admin, err := db.Open(ctx, sharedPG.dsn(pgAdminDB), false)
	if err != nil {
		t.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer admin.Close()
	if _, err := admin.ExecContext(ctx, "CREATE DATABASE "+name); err != nil {
		t.Fatalf("Failed to create database %s: %v", name, err)
	}

	bdb, err := db.Open(ctx, sharedPG.dsn(name), false)
	if err != nil {
		t.Fatalf("Failed to connect to %s: %v", name, err)
	}
	t.Cleanup(func() { _ = bdb.Close() })

	if err := db.CreateTables(ctx, bdb); err != nil {
		t.Fatalf("Failed to create tables: %v", err)
	}
	return bdb
}

func startPostgres() (*pgServer, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       pgAdminDB,
			"POSTGRES_USER":     pgUser,
			"POSTGRES_PASSWORD": pgPassword,
		},
		// The server restarts once after the init scripts run.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	return &pgServer{container: container, host: host, port: port.Port()}, nil
}

// RedisURL returns the address of a shared Redis container. Skipped in short
// mode.
func RedisURL(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedRedisOnce.Do(func() {
		sharedRedisURL, sharedRedisErr = startRedis()
	})
	if sharedRedisErr != nil {
		t.Fatalf("Failed to start redis container: %v", sharedRedisErr)
	}
	return sharedRedisURL
}

func startRedis() (string, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        redisImage,
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		return "", fmt.Errorf("failed to get container port: %w", err)
	}
	return fmt.Sprintf("redis://%s:%s/0", host, port.Port()), nil
}
