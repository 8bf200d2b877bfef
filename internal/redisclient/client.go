package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	tokenKey      = "mpesa:access_token"
	receiptPrefix = "mpesa:receipt:"

	// receipts are kept long enough to cover provider retry windows
	receiptTTL = 48 * time.Hour
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and verifies connectivity
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetToken returns the cached gateway bearer token, or "" when none is
// cached.
func (c *Client) GetToken(ctx context.Context) (string, error) {
	token, err := c.rdb.Get(ctx, tokenKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// SetToken caches the gateway bearer token with a TTL shorter than its
// real expiry.
func (c *Client) SetToken(ctx context.Context, token string, ttl time.Duration) error {
	return c.rdb.Set(ctx, tokenKey, token, ttl).Err()
}

// MarkReceiptSeen records a payment receipt and reports whether this is
// its first delivery.
func (c *Client) MarkReceiptSeen(ctx context.Context, receipt string) (bool, error) {
	return c.rdb.SetNX(ctx, receiptPrefix+receipt, "1", receiptTTL).Result()
}
