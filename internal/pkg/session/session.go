package session

import (
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"
	goredis "github.com/redis/go-redis/v9"

	"github.com/plclassificados/marketplace/internal/pkg/env"
)

// Sessions share the cache server but not its database.
const sessionDB = 1

var ErrNoStore = errors.New("session store not initialized")

var store *session.Store

// Config describes where sessions are kept and how long they last.
type Config struct {
	Host       string
	Port       int
	Password   string
	Expiration time.Duration
	Secure     bool
}

// ConfigFromEnv reuses the address of the cache client when there is one.
func ConfigFromEnv(cacheClient *goredis.Client) Config {
	cfg := Config{
		Host:       env.GetEnv("CACHE_HOST", "localhost"),
		Port:       env.GetEnvInt("CACHE_PORT", 6379),
		Password:   env.GetEnv("CACHE_PASSWORD", ""),
		Expiration: env.GetEnvDuration("SESSION_TTL", 24*time.Hour),
		Secure:     !env.IsDev(),
	}
	if cacheClient == nil {
		return cfg
	}
	opts := cacheClient.Options()
	if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
		cfg.Host = h
		if port, err := strconv.Atoi(p); err == nil {
			cfg.Port = port
		}
	}
	if opts.Password != "" {
		cfg.Password = opts.Password
	}
	return cfg
}

// NewSessionStore builds the Redis backed store and makes it the package store.
func NewSessionStore(cfg Config) *session.Store {
	store = session.New(session.Config{
		Storage: redis.New(redis.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Password: cfg.Password,
			Database: sessionDB,
		}),
		Expiration:     cfg.Expiration,
		CookieHTTPOnly: true,
		CookieSecure:   cfg.Secure,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
		KeyLookup:      "cookie:session_id",
	})
	return store
}

// UseStore replaces the package store; tests pass an in-memory store.
func UseStore(s *session.Store) {
	store = s
}

func GetSessionStore() *session.Store {
	return store
}

// Load returns the session of the request, creating an empty one if needed.
func Load(c *fiber.Ctx) (*session.Session, error) {
	if store == nil {
		return nil, ErrNoStore
	}
	return store.Get(c)
}

// Begin starts an authenticated session under a fresh id and stores values in it.
func Begin(c *fiber.Ctx, values map[string]any) error {
	sess, err := Load(c)
	if err != nil {
		return err
	}
	if err := sess.Regenerate(); err != nil {
		return err
	}
	for k, v := range values {
		sess.Set(k, v)
	}
	return sess.Save()
}

// End destroys the session of the request. Missing sessions are not an error.
func End(c *fiber.Ctx) error {
	sess, err := Load(c)
	if errors.Is(err, ErrNoStore) {
		return nil
	}
	if err != nil {
		return err
	}
	return sess.Destroy()
}
