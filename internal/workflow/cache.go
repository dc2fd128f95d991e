package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/domain"
)

// Cache holds resolved configuration rows between reads. A miss, or any
// backend failure, falls through to the store.
type Cache interface {
	Load(ctx context.Context, scope domain.Scope, projectID string) (*domain.WorkflowConfig, bool)
	Save(ctx context.Context, scope domain.Scope, projectID string, cfg *domain.WorkflowConfig)
	Evict(ctx context.Context, scope domain.Scope, projectID string)
}

// cacheEntry distinguishes "no stored row" from a cache miss.
type cacheEntry struct {
	Configured bool                   `json:"configured"`
	Config     *domain.WorkflowConfig `json:"config,omitempty"`
}

// RedisCache stores configuration rows as JSON with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger zerolog.Logger
}

// NewRedisCache wraps client. A non-positive ttl disables writes.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisCache {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
		prefix: constants.CacheKeyPrefix,
		logger: logger.With().Str("component", "workflow_cache").Logger(),
	}
}

// Load returns the cached row. The boolean is false on a miss. A hit with a
// nil config means the project has no stored row.
func (c *RedisCache) Load(ctx context.Context, scope domain.Scope, projectID string) (*domain.WorkflowConfig, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	key := c.key(scope, projectID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug().Err(err).Str("key", key).Msg("cache read failed")
			_ = c.client.Del(ctx, key).Err()
		}
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		_ = c.client.Del(ctx, key).Err()
		return nil, false
	}
	if !entry.Configured {
		return nil, true
	}
	return entry.Config, true
}

// Save caches cfg, or the absence of a row when cfg is nil.
func (c *RedisCache) Save(ctx context.Context, scope domain.Scope, projectID string, cfg *domain.WorkflowConfig) {
	if c == nil || c.client == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(cacheEntry{Configured: cfg != nil, Config: cfg})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(scope, projectID), data, c.ttl).Err(); err != nil {
		c.logger.Debug().Err(err).Msg("cache write failed")
	}
}

// Evict drops the cached row.
func (c *RedisCache) Evict(ctx context.Context, scope domain.Scope, projectID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, c.key(scope, projectID)).Err(); err != nil {
		c.logger.Warn().Err(err).Str("project_id", projectID).Msg("cache evict failed")
	}
}

func (c *RedisCache) key(scope domain.Scope, projectID string) string {
	return c.prefix + ":workflow:" + scope.OrganizationID + ":" + scope.WorkspaceID + ":" + projectID
}

// noCache is used when caching is disabled.
type noCache struct{}

func (noCache) Load(context.Context, domain.Scope, string) (*domain.WorkflowConfig, bool) {
	return nil, false
}

func (noCache) Save(context.Context, domain.Scope, string, *domain.WorkflowConfig) {}

func (noCache) Evict(context.Context, domain.Scope, string) {}

var (
	_ Cache = (*RedisCache)(nil)
	_ Cache = noCache{}
)
