package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// Client is a thin Redis wrapper with service-scoped keys.
type Client struct {
	client      *redis.Client
	serviceName string
}

// NewClient creates a Client for an already configured redis client.
func NewClient(client *redis.Client, serviceName string) *Client {
	return &Client{
		client:      client,
		serviceName: serviceName,
	}
}

// MustNewClient connects to redis.addr. It returns nil when caching is not configured.
func MustNewClient() *Client {
	addr := viper.GetString("redis.addr")
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       viper.GetInt("redis.db"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		panic(fmt.Sprintf("Failed to connect to Redis: %v", err))
	}

	slog.Info("Redis connected", "addr", addr)

	return NewClient(client, viper.GetString("service.name"))
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Get returns an empty string on a cache miss.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	value, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	return value, nil
}

func (c *Client) GenerateKey(operation, key string) string {
	return fmt.Sprintf("%s:%s:%s", c.serviceName, operation, key)
}

// Close closes the connection for graceful shutdown.
func (c *Client) Close() error {
	return c.client.Close()
}
