package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"signal-engine/internal/signal"
)

const (
	// snapshotKeyPrefix is the prefix for per-asset snapshot keys.
	// Format: indicators:snapshot:{COIN}
	snapshotKeyPrefix = "indicators:snapshot"

	// snapshotTTL bounds how stale a shared snapshot may get. Snapshots are
	// regenerated every evaluation cycle; anything older is useless.
	snapshotTTL = 15 * time.Minute
)

// RedisProvider shares indicator snapshots between the aggregator process
// and this engine through Redis. When Redis is unavailable it falls back to
// an in-memory cache so finalization continues without interruption.
type RedisProvider struct {
	client         *redis.Client
	logger         zerolog.Logger
	cache          map[string]*signal.IndicatorSnapshot
	cacheMu        sync.RWMutex
	redisAvailable atomic.Bool
}

// NewRedisProvider creates a RedisProvider. A nil client means memory-only
// operation.
func NewRedisProvider(client *redis.Client, logger zerolog.Logger) *RedisProvider {
	p := &RedisProvider{
		client: client,
		logger: logger.With().Str("component", "RedisSnapshotProvider").Logger(),
		cache:  make(map[string]*signal.IndicatorSnapshot),
	}

	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			p.logger.Warn().Err(err).Msg("Redis unavailable at startup, using in-memory cache")
		} else {
			p.logger.Info().Msg("Redis connected")
			p.redisAvailable.Store(true)
		}
	} else {
		p.logger.Info().Msg("No Redis client configured, in-memory cache only")
	}

	return p
}

func snapshotKey(assetID string) string {
	return fmt.Sprintf("%s:%s", snapshotKeyPrefix, strings.ToUpper(assetID))
}

// Store writes a snapshot for its asset, to Redis when available and always
// to the in-memory cache.
func (p *RedisProvider) Store(ctx context.Context, snap *signal.IndicatorSnapshot) error {
	if snap == nil || snap.Coin == "" {
		return fmt.Errorf("snapshot missing coin")
	}

	coin := strings.ToUpper(snap.Coin)
	p.cacheMu.Lock()
	p.cache[coin] = snap
	p.cacheMu.Unlock()

	if p.client == nil {
		return nil
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot for %s: %w", coin, err)
	}

	if err := p.client.Set(ctx, snapshotKey(coin), data, snapshotTTL).Err(); err != nil {
		p.redisAvailable.Store(false)
		p.logger.Warn().Err(err).Str("coin", coin).Msg("Redis write failed, snapshot kept in memory")
		return nil
	}
	p.redisAvailable.Store(true)
	return nil
}

// Lookup implements Provider. Redis is consulted first; a miss or error
// falls through to the in-memory cache.
func (p *RedisProvider) Lookup(ctx context.Context, assetID string) (*signal.IndicatorSnapshot, bool) {
	coin := strings.ToUpper(assetID)

	if p.client != nil && p.redisAvailable.Load() {
		data, err := p.client.Get(ctx, snapshotKey(coin)).Bytes()
		switch {
		case err == redis.Nil:
			// Fall through to memory.
		case err != nil:
			p.redisAvailable.Store(false)
			p.logger.Warn().Err(err).Str("coin", coin).Msg("Redis read failed, falling back to memory")
		default:
			var snap signal.IndicatorSnapshot
			if err := json.Unmarshal(data, &snap); err == nil {
				return &snap, true
			}
			p.logger.Warn().Str("coin", coin).Msg("Corrupt snapshot in Redis, falling back to memory")
		}
	}

	p.cacheMu.RLock()
	snap, ok := p.cache[coin]
	p.cacheMu.RUnlock()
	return snap, ok
}
