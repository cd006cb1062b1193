package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/go-redis/redis/v8"
)

const keyPrefix = "dispatch:"

type Config interface {
	GetAddr() string
	GetPassword() string
	GetDB() int
}

// OverviewCache keeps rendered dashboard overviews keyed by day and settings version.
type OverviewCache struct {
	client *redis.Client
}

func New(ctx context.Context, cfg Config) (*OverviewCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetAddr(),
		Password: cfg.GetPassword(),
		DB:       cfg.GetDB(),
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &OverviewCache{client: client}, nil
}

func (c *OverviewCache) Close() error {
	return c.client.Close()
}

func (c *OverviewCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// GetOverview reports a miss as (nil, false, nil).
func (c *OverviewCache) GetOverview(ctx context.Context, key string) (*models.OverviewResponse, bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var o models.OverviewResponse
	if err := json.Unmarshal(data, &o); err != nil {
		// a broken entry is a miss; the next write replaces it
		return nil, false, nil
	}
	return &o, true, nil
}

func (c *OverviewCache) SetOverview(ctx context.Context, key string, o *models.OverviewResponse, ttl time.Duration) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+key, data, ttl).Err()
}
