// Package postgrescontainer provides the PostgreSQL server used by mapping
// repository tests. Set METAFETCH_TEST_POSTGRES_DSN to use an existing
// database instead of starting a container.
package postgrescontainer

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/adeilh/metafetch/internal/testutil/docker"
)

const (
	envDSN   = "METAFETCH_TEST_POSTGRES_DSN"
	user     = "metafetch"
	password = "secret"
	dbName   = "metafetch_test"
)

var (
	container = docker.Container{
		Name:     "metafetch-postgres-test",
		Image:    "postgres:16-alpine",
		HostPort: "55432",
		Port:     "5432",
		Env: map[string]string{
			"POSTGRES_USER":     user,
			"POSTGRES_PASSWORD": password,
			"POSTGRES_DB":       dbName,
		},
	}

	once     sync.Once
	started  bool
	setupErr error
)

// DSN returns a lib/pq connection string for the test database.
func DSN() string {
	if dsn := strings.TrimSpace(os.Getenv(envDSN)); dsn != "" {
		return dsn
	}
	return fmt.Sprintf("postgres://%s:%s@127.0.0.1:%s/%s?sslmode=disable", user, password, container.HostPort, dbName)
}

// Setup makes a database available and waits until it accepts connections.
func Setup() error {
	once.Do(func() {
		if os.Getenv(envDSN) == "" {
			if setupErr = container.Start(); setupErr != nil {
				return
			}
			started = true
		}
		setupErr = docker.Wait(15*time.Second, 200*time.Millisecond, ping)
	})
	return setupErr
}

// Teardown stops the container started by Setup, if any.
func Teardown() error {
	if !started {
		return setupErr
	}
	return container.Stop()
}

func ping(ctx context.Context) error {
	db, err := sql.Open("postgres", DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	return db.PingContext(ctx)
}
