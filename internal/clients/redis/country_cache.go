package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/studypath/studypath-backend/internal/logger"
	"github.com/studypath/studypath-backend/internal/utils"
)

// CountryCache keeps the catalog's distinct-country listing warm so the
// country generator does not hit Postgres on every chat refresh.
type CountryCache interface {
	GetCountries(ctx context.Context) ([]string, bool, error)
	SetCountries(ctx context.Context, countries []string) error
	Invalidate(ctx context.Context) error
	Close() error
}

type countryCache struct {
	log *logger.Logger
	rdb *goredis.Client
	key string
	ttl time.Duration
}

func NewCountryCache(log *logger.Logger) (CountryCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "", log))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ttlSeconds := utils.GetEnvAsInt("CATALOG_CACHE_TTL_SECONDS", 600, log)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &countryCache{
		log: log.With("service", "CountryCache"),
		rdb: rdb,
		key: "catalog:countries",
		ttl: time.Duration(ttlSeconds) * time.Second,
	}, nil
}

// NewCountryCacheWithClient wires an existing client; used by tests.
func NewCountryCacheWithClient(log *logger.Logger, rdb *goredis.Client, ttl time.Duration) CountryCache {
	return &countryCache{
		log: log.With("service", "CountryCache"),
		rdb: rdb,
		key: "catalog:countries",
		ttl: ttl,
	}
}

func (c *countryCache) GetCountries(ctx context.Context) ([]string, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key).Result()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var countries []string
	if err := json.Unmarshal([]byte(raw), &countries); err != nil {
		// Stale or corrupt payload; treat as a miss and drop it.
		_ = c.rdb.Del(ctx, c.key).Err()
		return nil, false, nil
	}
	return countries, true, nil
}

func (c *countryCache) SetCountries(ctx context.Context, countries []string) error {
	raw, err := json.Marshal(countries)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key, raw, c.ttl).Err()
}

func (c *countryCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, c.key).Err()
}

func (c *countryCache) Close() error {
	return c.rdb.Close()
}
