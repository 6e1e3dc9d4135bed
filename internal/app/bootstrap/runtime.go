package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/roofing-lead-agent/internal/config"
	"github.com/wolfman30/roofing-lead-agent/internal/conversation"
	"github.com/wolfman30/roofing-lead-agent/pkg/logging"
)

const redisDialTimeout = 3 * time.Second

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DialTimeout: redisDialTimeout,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildSessionStore returns the Redis chat session store, or nil when Redis is
// unavailable and conversations are held by the client.
func BuildSessionStore(client *redis.Client, cfg *appconfig.Config, logger *logging.Logger) conversation.SessionStore {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	ttl := conversation.DefaultSessionTTL
	if cfg != nil && cfg.SessionTTL > 0 {
		ttl = cfg.SessionTTL
	}
	logger.Info("chat sessions stored in redis", "ttl", ttl.String())
	return conversation.NewRedisSessionStore(client, ttl, nil)
}
