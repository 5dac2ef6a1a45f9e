// Package redis keeps the latest forecast for each location in Redis so the
// HTTP API can serve it without consuming the sink topic.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/pm25-forecast-service/internal/config"
	"github.com/couchcryptid/pm25-forecast-service/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "pm25:forecast:latest:"

// ErrNotFound is returned by Latest when no forecast is stored for a location.
var ErrNotFound = errors.New("forecast not found")

// client is the subset of the go-redis API the store uses.
type client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Ping(ctx context.Context) *goredis.StatusCmd
}

// Store writes forecasts under a per-location key with a TTL. It implements
// pipeline.BatchLoader.
type Store struct {
	client client
	ttl    time.Duration
	logger *slog.Logger
}

// NewClient creates a go-redis client from the service configuration.
func NewClient(cfg *config.Config) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// NewStore creates a latest-forecast store. Entries expire after ttl.
func NewStore(c *goredis.Client, ttl time.Duration, logger *slog.Logger) *Store {
	return &Store{client: c, ttl: ttl, logger: logger}
}

// Key returns the Redis key holding the latest forecast for a location name.
func Key(location string) string {
	return keyPrefix + domain.LocationKey(location)
}

// LoadBatch stores each forecast as the latest for its location. Within a
// batch, a later forecast for the same location replaces an earlier one.
func (s *Store) LoadBatch(ctx context.Context, results []domain.ForecastResult) error {
	for i := range results {
		data, err := json.Marshal(results[i])
		if err != nil {
			return fmt.Errorf("marshal forecast %s: %w", results[i].ID, err)
		}
		key := Key(results[i].Location.Name)
		if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
			return fmt.Errorf("store forecast %s: %w", key, err)
		}
	}
	s.logger.Debug("latest forecasts stored", "count", len(results))
	return nil
}

// Latest returns the stored forecast for a location name or ErrNotFound.
func (s *Store) Latest(ctx context.Context, location string) (domain.ForecastResult, error) {
	key := Key(location)
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.ForecastResult{}, fmt.Errorf("%w: %s", ErrNotFound, location)
	}
	if err != nil {
		return domain.ForecastResult{}, fmt.Errorf("get forecast %s: %w", key, err)
	}

	var result domain.ForecastResult
	if err := json.Unmarshal(data, &result); err != nil {
		return domain.ForecastResult{}, fmt.Errorf("decode forecast %s: %w", key, err)
	}
	return result, nil
}

// CheckReadiness pings Redis.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
