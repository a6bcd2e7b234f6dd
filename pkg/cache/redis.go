package cache

import (
	"context"
	"fmt"
	"time"

	"prepaid-shop/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects and pings Redis
func NewRedisClient(config utils.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", config.Addr, err)
	}

	return client, nil
}
