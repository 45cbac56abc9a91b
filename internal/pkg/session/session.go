package session

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/PaddleSync/internal/pkg/config"
)

// Redis databases used by fiber storages; the cache client owns DB 0.
const (
	SessionDatabase = 1
	LimiterDatabase = 2
)

var sessionStore *session.Store

// NewRedisStorage creates a fiber storage on the configured Redis server.
func NewRedisStorage(cfg config.Cache, database int) *redis.Storage {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil {
		port = 6379
	}
	return redis.New(redis.Config{
		Host:     cfg.Host,
		Port:     port,
		Password: cfg.Password,
		Database: database,
		Reset:    false,
	})
}

// NewSessionStore creates the admin session store. A nil storage keeps
// sessions in memory.
func NewSessionStore(storage fiber.Storage, secure bool) *session.Store {
	sessionStore = session.New(session.Config{
		Storage:        storage,
		CookieHTTPOnly: true,
		CookieSecure:   secure,
		CookieSameSite: "Lax",
		Expiration:     time.Hour * 1,
		KeyLookup:      "cookie:session_id",
	})
	return sessionStore
}

// SetSessionValue stores a key-value pair in the user's individual session
func SetSessionValue(c *fiber.Ctx, key string, value string) error {
	if sessionStore == nil {
		return fmt.Errorf("session store not initialized")
	}

	sess, err := sessionStore.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	sess.Set(key, value)
	return sess.Save()
}

// GetSessionValue retrieves a value by key from the user's individual session
func GetSessionValue(c *fiber.Ctx, key string) string {
	if sessionStore == nil {
		return ""
	}

	sess, err := sessionStore.Get(c)
	if err != nil {
		return ""
	}

	if value, ok := sess.Get(key).(string); ok {
		return value
	}
	return ""
}
