package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"aurum/internal/compliance/models"
	id "aurum/pkg/domain"
)

const cooldownKeyPrefix = "aurum:cooldown:"

// RedisCooldowns stores the last action time per holder and action as unix
// nanoseconds, expiring once the cooldown has elapsed.
type RedisCooldowns struct {
	client *redis.Client
}

func NewRedisCooldowns(client *redis.Client) *RedisCooldowns {
	return &RedisCooldowns{client: client}
}

func cooldownRedisKey(holder id.Address, action models.Action) string {
	return cooldownKeyPrefix + string(action) + ":" + holder.String()
}

func (c *RedisCooldowns) LastAction(ctx context.Context, holder id.Address, action models.Action) (time.Time, bool, error) {
	raw, err := c.client.Get(ctx, cooldownRedisKey(holder, action)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read cooldown: %w", err)
	}
	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("decode cooldown: %w", err)
	}
	return time.Unix(0, nanos).UTC(), true, nil
}

func (c *RedisCooldowns) RecordAction(ctx context.Context, holder id.Address, action models.Action, at time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	key := cooldownRedisKey(holder, action)
	if err := c.client.Set(ctx, key, strconv.FormatInt(at.UnixNano(), 10), ttl).Err(); err != nil {
		return fmt.Errorf("record cooldown: %w", err)
	}
	return nil
}
