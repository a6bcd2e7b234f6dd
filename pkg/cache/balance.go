// Package cache keeps short-lived balance snapshots in Redis so balance
// reads do not hit the database on every page load.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type BalanceSnapshot struct {
	Phone          string     `json:"phone"`
	Balance        int64      `json:"balance"`
	LastChargeDate *time.Time `json:"last_charge_date,omitempty"`
}

type BalanceCache interface {
	// Get returns nil, nil on a miss
	Get(ctx context.Context, phone string) (*BalanceSnapshot, error)
	// Set stores the snapshot produced by a committed balance change
	Set(ctx context.Context, snapshot BalanceSnapshot) error
	// Fill stores a snapshot read from the store only when none is cached,
	// so a slow read never overwrites a newer write-through.
	Fill(ctx context.Context, snapshot BalanceSnapshot) (bool, error)
	Invalidate(ctx context.Context, phone string) error
}

type RedisBalanceCache struct {
	client     redis.UniversalClient
	expiration time.Duration
}

var _ BalanceCache = (*RedisBalanceCache)(nil)

func NewRedisBalanceCache(client redis.UniversalClient, expiration time.Duration) *RedisBalanceCache {
	return &RedisBalanceCache{
		client:     client,
		expiration: expiration,
	}
}

func (c *RedisBalanceCache) key(phone string) string {
	return fmt.Sprintf("balance:%s", phone)
}

func (c *RedisBalanceCache) Get(ctx context.Context, phone string) (*BalanceSnapshot, error) {
	data, err := c.client.Get(ctx, c.key(phone)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get balance %s from cache: %w", phone, err)
	}

	var snapshot BalanceSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal cached balance %s: %w", phone, err)
	}

	return &snapshot, nil
}

func (c *RedisBalanceCache) Set(ctx context.Context, snapshot BalanceSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal balance %s: %w", snapshot.Phone, err)
	}

	if err := c.client.Set(ctx, c.key(snapshot.Phone), data, c.expiration).Err(); err != nil {
		return fmt.Errorf("set balance %s in cache: %w", snapshot.Phone, err)
	}

	return nil
}

func (c *RedisBalanceCache) Fill(ctx context.Context, snapshot BalanceSnapshot) (bool, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return false, fmt.Errorf("marshal balance %s: %w", snapshot.Phone, err)
	}

	stored, err := c.client.SetNX(ctx, c.key(snapshot.Phone), data, c.expiration).Result()
	if err != nil {
		return false, fmt.Errorf("fill balance %s in cache: %w", snapshot.Phone, err)
	}

	return stored, nil
}

func (c *RedisBalanceCache) Invalidate(ctx context.Context, phone string) error {
	if err := c.client.Del(ctx, c.key(phone)).Err(); err != nil {
		return fmt.Errorf("invalidate balance %s: %w", phone, err)
	}
	return nil
}

// NopBalanceCache always misses. Used when Redis is not configured.
type NopBalanceCache struct{}

func (NopBalanceCache) Get(context.Context, string) (*BalanceSnapshot, error) {
	return nil, nil
}

func (NopBalanceCache) Set(context.Context, BalanceSnapshot) error {
	return nil
}

func (NopBalanceCache) Fill(context.Context, BalanceSnapshot) (bool, error) {
	return false, nil
}

func (NopBalanceCache) Invalidate(context.Context, string) error {
	return nil
}
