package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/plclassificados/marketplace/internal/pkg/env"
)

var client *redis.Client

// SetupCache connects to the Redis server shared by sessions (DB 1) and
// the job queue (DB 0). An unreachable server is logged, not fatal.
func SetupCache() {
	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", env.GetEnv("CACHE_HOST", "localhost"), env.GetEnv("CACHE_PORT", "6379")),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warnf("[Cache] Could not connect to %s: %v", client.Options().Addr, err)
		return
	}
	log.Infof("[Cache] Connected to %s", client.Options().Addr)
}

// GetClient returns the Redis client, connecting on first use.
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Close releases the connection pool.
func Close() error {
	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}
