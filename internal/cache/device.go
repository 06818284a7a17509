package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/device_store/internal/models"
)

// Lookup is a cache read. Device is nil on a miss. Version must be handed
// back to Set; a fill whose version was bumped by Invalidate is never served.
type Lookup struct {
	Device  *models.Device
	Version int64
}

type DeviceCache interface {
	Get(ctx context.Context, id uint) (Lookup, error)
	Set(ctx context.Context, d *models.Device, version int64) error
	Invalidate(ctx context.Context, ids ...uint) error
}

type redisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// RedisDeviceCache keeps one generation counter per device; entries are
// stored under the generation they were read at.
type RedisDeviceCache struct {
	rdb redisAPI
	ttl time.Duration
}

func NewRedisDeviceCache(rdb redisAPI, ttl time.Duration) *RedisDeviceCache {
	return &RedisDeviceCache{rdb: rdb, ttl: ttl}
}

func genKey(id uint) string {
	return fmt.Sprintf("device:%d:gen", id)
}

func deviceKey(id uint, gen int64) string {
	return fmt.Sprintf("device:%d:%d", id, gen)
}

func (c *RedisDeviceCache) generation(ctx context.Context, id uint) (int64, error) {
	gen, err := c.rdb.Get(ctx, genKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation: %w", err)
	}
	return gen, nil
}

func (c *RedisDeviceCache) Get(ctx context.Context, id uint) (Lookup, error) {
	gen, err := c.generation(ctx, id)
	if err != nil {
		return Lookup{}, err
	}

	raw, err := c.rdb.Get(ctx, deviceKey(id, gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Lookup{Version: gen}, nil
	}
	if err != nil {
		return Lookup{}, fmt.Errorf("redis get: %w", err)
	}

	var d models.Device
	if err := json.Unmarshal(raw, &d); err != nil {
		return Lookup{}, fmt.Errorf("decode cached device: %w", err)
	}
	return Lookup{Device: &d, Version: gen}, nil
}

func (c *RedisDeviceCache) Set(ctx context.Context, d *models.Device, version int64) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode device: %w", err)
	}
	if err := c.rdb.Set(ctx, deviceKey(d.ID, version), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate bumps the generation of every id, so entries written under an
// older generation become unreachable even if they land after this call.
func (c *RedisDeviceCache) Invalidate(ctx context.Context, ids ...uint) error {
	var errs []error
	for _, id := range ids {
		gen, err := c.rdb.Incr(ctx, genKey(id)).Result()
		if err != nil {
			errs = append(errs, fmt.Errorf("redis incr device %d: %w", id, err))
			continue
		}
		if err := c.rdb.Del(ctx, deviceKey(id, gen-1)).Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis del device %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

type Nop struct{}

func (Nop) Get(context.Context, uint) (Lookup, error)        { return Lookup{}, nil }
func (Nop) Set(context.Context, *models.Device, int64) error { return nil }
func (Nop) Invalidate(context.Context, ...uint) error        { return nil }
