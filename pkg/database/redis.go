package database

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig describes the Redis instance backing the shared inventory
// cache. Only one logical database is used; the defaults in internal/config
// point at the compose instance.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int

	// DialTimeout bounds the initial connection attempt. Zero means 5s.
	DialTimeout time.Duration
}

// Addr returns the host:port pair in the form go-redis expects.
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// NewRedisClient connects and verifies the instance is reachable before
// returning, so a misconfigured cache backend fails at startup instead of on
// the first checkout.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr(), err)
	}

	return client, nil
}
