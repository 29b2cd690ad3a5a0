// Package cache stores computed client overviews per organization.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/bcnelson/salon-crm/internal/domain"
)

// ErrMiss is returned by Get when no overview is cached for the organization.
var ErrMiss = errors.New("cache miss")

// OverviewCache holds the last computed overview of each organization.
type OverviewCache interface {
	Get(ctx context.Context, orgID string) (*domain.Overview, error)
	Set(ctx context.Context, orgID string, overview *domain.Overview) error
	Invalidate(ctx context.Context, orgID string) error
}

const keyPrefix = "crm:overview:"

// Key returns the Redis key holding the overview of orgID.
func Key(orgID string) string {
	return keyPrefix + orgID
}

// Redis is an OverviewCache backed by Redis string keys with a TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis returns a cache using client. Entries expire after ttl, which bounds how long an
// overview computed concurrently with a mutation can outlive the invalidation.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// NewRedisClient creates a go-redis client and checks the connection.
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

func (r *Redis) Get(ctx context.Context, orgID string) (*domain.Overview, error) {
	data, err := r.client.Get(ctx, Key(orgID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("reading overview: %w", err)
	}

	var overview domain.Overview
	if err := json.Unmarshal(data, &overview); err != nil {
		return nil, fmt.Errorf("decoding overview: %w", err)
	}
	return &overview, nil
}

func (r *Redis) Set(ctx context.Context, orgID string, overview *domain.Overview) error {
	data, err := json.Marshal(overview)
	if err != nil {
		return fmt.Errorf("encoding overview: %w", err)
	}
	return r.client.Set(ctx, Key(orgID), data, r.ttl).Err()
}

func (r *Redis) Invalidate(ctx context.Context, orgID string) error {
	return r.client.Del(ctx, Key(orgID)).Err()
}

// Noop never holds anything. It is used when Redis is not configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (*domain.Overview, error) { return nil, ErrMiss }
func (Noop) Set(context.Context, string, *domain.Overview) error   { return nil }
func (Noop) Invalidate(context.Context, string) error              { return nil }
