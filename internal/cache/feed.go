// Package cache keeps rendered pages of the public donation feed.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const feedKey = "savefood:feed:donations"

// DonationFeed caches encoded feed pages. Misses and errors are reported the same way
// so callers can always fall back to the store.
type DonationFeed interface {
	Get(ctx context.Context, page, limit int) ([]byte, bool)
	Set(ctx context.Context, page, limit int, payload []byte) error
	Invalidate(ctx context.Context) error
}

// RedisFeed stores every page as a field of one hash so a single DEL
// drops the whole feed.
type RedisFeed struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisFeed(client *redis.Client, ttl time.Duration) *RedisFeed {
	return &RedisFeed{client: client, ttl: ttl}
}

// NewRedisClient connects and pings the server
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func pageField(page, limit int) string {
	return fmt.Sprintf("%d:%d", page, limit)
}

func (f *RedisFeed) Get(ctx context.Context, page, limit int) ([]byte, bool) {
	payload, err := f.client.HGet(ctx, feedKey, pageField(page, limit)).Bytes()
	if err != nil {
		return nil, false
	}
	return payload, true
}

func (f *RedisFeed) Set(ctx context.Context, page, limit int, payload []byte) error {
	_, err := f.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, feedKey, pageField(page, limit), payload)
		pipe.Expire(ctx, feedKey, f.ttl)
		return nil
	})
	return err
}

func (f *RedisFeed) Invalidate(ctx context.Context) error {
	err := f.client.Del(ctx, feedKey).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// NoopFeed never hits. Used when redis is not configured.
type NoopFeed struct{}

func (NoopFeed) Get(context.Context, int, int) ([]byte, bool) { return nil, false }
func (NoopFeed) Set(context.Context, int, int, []byte) error  { return nil }
func (NoopFeed) Invalidate(context.Context) error             { return nil }
