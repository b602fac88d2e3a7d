package jobqueue

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/plclassificados/marketplace/internal/pkg/env"
)

const isolatedJobQueueTestRedisDB = 14

// testRedisAddrs lists the places a test Redis usually lives: the configured
// cache, the compose service name and the local default.
func testRedisAddrs() []string {
	port := env.GetEnv("CACHE_PORT", "6379")
	candidates := []string{
		net.JoinHostPort(env.GetEnv("CACHE_HOST", "localhost"), port),
		net.JoinHostPort("cache", port),
		"127.0.0.1:6379",
	}
	seen := make(map[string]bool, len(candidates))
	addrs := candidates[:0]
	for _, a := range candidates {
		if !seen[a] {
			seen[a] = true
			addrs = append(addrs, a)
		}
	}
	return addrs
}

// newIsolatedRedisClient connects to the first reachable Redis, selects db and
// flushes it before and after the test. The test is skipped without Redis.
func newIsolatedRedisClient(t *testing.T, db int) *redis.Client {
	t.Helper()

	var lastErr error
	for _, addr := range testRedisAddrs() {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: env.GetEnv("CACHE_PASSWORD", ""),
			DB:       db,
		})
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		err := client.Ping(ctx).Err()
		if err == nil {
			err = client.FlushDB(ctx).Err()
		}
		cancel()
		if err != nil {
			lastErr = err
			_ = client.Close()
			continue
		}

		t.Cleanup(func() {
			_ = client.FlushDB(context.Background()).Err()
			_ = client.Close()
		})
		return client
	}

	t.Skipf("redis not reachable, skipping: %v", lastErr)
	return nil
}
