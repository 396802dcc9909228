package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"socialfeed/config"
	"socialfeed/feed"
	"socialfeed/models"
)

const (
	keyPrefix  = "cache:post:"
	defaultTTL = time.Minute
	opTimeout  = 2 * time.Second
)

// NewClient returns a redis client for cfg, or nil when REDIS_ADDR is unset.
func NewClient(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
	})
}

// PostCache stores resolved post views as JSON. Every failure degrades to a
// miss; the database stays the source of truth.
type PostCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

var _ feed.Cache = (*PostCache)(nil)

func New(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *PostCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PostCache{rdb: rdb, ttl: ttl, log: log}
}

func Key(id string) string {
	return keyPrefix + id
}

func (c *PostCache) GetPost(ctx context.Context, id string) (*models.PostView, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	b, err := c.rdb.Get(ctx, Key(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Debug("cache get failed", zap.String("post", id), zap.Error(err))
		}
		return nil, false
	}

	var view models.PostView
	if err := json.Unmarshal(b, &view); err != nil {
		c.log.Warn("dropping unreadable cache entry", zap.String("post", id), zap.Error(err))
		c.InvalidatePost(ctx, id)
		return nil, false
	}
	return &view, true
}

func (c *PostCache) SetPost(ctx context.Context, view *models.PostView) {
	if c == nil || c.rdb == nil || view == nil {
		return
	}
	b, err := json.Marshal(view)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	id := view.ID.Hex()
	if err := c.rdb.Set(ctx, Key(id), b, c.ttl).Err(); err != nil {
		c.log.Warn("cache set failed", zap.String("post", id), zap.Error(err))
	}
}

func (c *PostCache) InvalidatePost(ctx context.Context, id string) {
	if c == nil || c.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.rdb.Del(ctx, Key(id)).Err(); err != nil {
		c.log.Warn("cache invalidate failed", zap.String("post", id), zap.Error(err))
	}
}
