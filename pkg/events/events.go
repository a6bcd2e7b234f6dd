// Package events publishes change notifications for UI layers and caches.
// Delivery is best effort; no workflow depends on it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const TypeBalanceChanged = "balance.changed"

const (
	ReasonCharge   = "charge"
	ReasonPurchase = "purchase"
)

type Event struct {
	Type    string    `json:"type"`
	Phone   string    `json:"phone"`
	Balance int64     `json:"balance"`
	Reason  string    `json:"reason"`
	At      time.Time `json:"at"`
}

func BalanceChanged(phone string, balance int64, reason string, at time.Time) Event {
	return Event{
		Type:    TypeBalanceChanged,
		Phone:   phone,
		Balance: balance,
		Reason:  reason,
		At:      at,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// RedisPublisher fans events out over a Redis pub/sub channel
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
}

func NewRedisPublisher(client redis.UniversalClient, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s event to %s: %w", event.Type, p.channel, err)
	}

	return nil
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
