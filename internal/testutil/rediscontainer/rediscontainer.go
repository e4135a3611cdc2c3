// Package rediscontainer provides the Redis server used by cache integration
// tests. Set METAFETCH_TEST_REDIS_ADDR to use an existing server instead of
// starting a container.
package rediscontainer

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/adeilh/metafetch/internal/testutil/docker"
)

const envAddr = "METAFETCH_TEST_REDIS_ADDR"

var (
	container = docker.Container{
		Name:     "metafetch-cache-redis-test",
		Image:    "redis:7-alpine",
		HostPort: "6390",
		Port:     "6379",
	}

	once     sync.Once
	started  bool
	setupErr error
)

// Addr returns the host:port integration tests connect to.
func Addr() string {
	if addr := strings.TrimSpace(os.Getenv(envAddr)); addr != "" {
		return addr
	}
	return "127.0.0.1:" + container.HostPort
}

// Setup makes a Redis server available and waits until it answers PING.
func Setup() error {
	once.Do(func() {
		if os.Getenv(envAddr) == "" {
			if setupErr = container.Start(); setupErr != nil {
				return
			}
			started = true
		}
		setupErr = docker.Wait(5*time.Second, 100*time.Millisecond, ping)
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
	client := goredis.NewClient(&goredis.Options{Addr: Addr(), DialTimeout: 200 * time.Millisecond})
	defer client.Close()
	return client.Ping(ctx).Err()
}
