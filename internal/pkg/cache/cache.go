package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/PaddleSync/internal/pkg/config"
)

var client *redis.Client

// SetupCache initializes the connection to the Redis compatible cache server.
// An unreachable server is logged, not fatal; commands fail until it is up.
func SetupCache(cfg config.Cache) *redis.Client {
	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Warnf("[Cache] Could not connect to cache: %v", err)
	} else {
		log.Infof("[Cache] Successfully connected to cache: %s", pong)
	}
	return client
}

// Close releases the connection pool.
func Close() error {
	if client == nil {
		return nil
	}
	return client.Close()
}
