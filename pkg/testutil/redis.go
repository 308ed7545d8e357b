// Package testutil starts shared backing services for integration tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	redisOnce      sync.Once
	redisAddr      string
	redisErr       error
	redisContainer testcontainers.Container
)

// RedisAddr starts one Redis container per test binary and returns its address.
// It skips the test in short mode or when no container provider is available.
func RedisAddr(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	redisOnce.Do(func() {
		ctx := context.Background()
		redisContainer, redisErr = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7-alpine",
				ExposedPorts: []string{"6379/tcp"},
				WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
			},
			Started: true,
		})
		if redisErr != nil {
			return
		}
		redisAddr, redisErr = redisContainer.Endpoint(ctx, "")
	})
	require.NoError(t, redisErr)
	return redisAddr
}

// Redis returns a client on a flushed database, closed when the test ends.
func Redis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: RedisAddr(t)})
	require.NoError(t, rdb.FlushAll(context.Background()).Err())
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

// TerminateRedis stops the shared container. Call it from TestMain after m.Run.
func TerminateRedis() {
	if redisContainer != nil {
		_ = redisContainer.Terminate(context.Background())
	}
}
