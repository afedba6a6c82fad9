package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/carpool/config"
	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client     *redis.Client
	tripsTTL   time.Duration
	pendingTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, tripsTTL, pendingTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		tripsTTL:   tripsTTL,
		pendingTTL: pendingTTL,
	}
}

func (c *RedisCache) GetTrips(ctx context.Context) ([]domain.Trip, error) {
	data, err := c.client.Get(ctx, tripsKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var trips []domain.Trip
	if err := json.Unmarshal(data, &trips); err != nil {
		return nil, err
	}
	return trips, nil
}

func (c *RedisCache) SetTrips(ctx context.Context, trips []domain.Trip) error {
	payload, err := json.Marshal(trips)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, tripsKey(), payload, c.tripsTTL).Err()
}

func (c *RedisCache) InvalidateTrips(ctx context.Context) error {
	return c.client.Del(ctx, tripsKey()).Err()
}

// Pending review lists are polled by the UI; a short-lived cache keeps that
// polling off the database. Entries are dropped whenever a review lands or
// a trip completes for the user.
func (c *RedisCache) GetPendingReviews(ctx context.Context, userID int64) (*domain.PendingReviews, error) {
	data, err := c.client.Get(ctx, pendingKey(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var pending domain.PendingReviews
	if err := json.Unmarshal(data, &pending); err != nil {
		return nil, err
	}
	return &pending, nil
}

func (c *RedisCache) SetPendingReviews(ctx context.Context, userID int64, pending *domain.PendingReviews) error {
	payload, err := json.Marshal(pending)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, pendingKey(userID), payload, c.pendingTTL).Err()
}

func (c *RedisCache) InvalidatePendingReviews(ctx context.Context, userIDs ...int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, pendingKey(id))
	}
	return c.client.Del(ctx, keys...).Err()
}

func tripsKey() string {
	return "cache:trips:upcoming"
}

func pendingKey(userID int64) string {
	return fmt.Sprintf("cache:pending_reviews:%d", userID)
}
