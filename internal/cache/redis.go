package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/xiangqi-tutor/internal/engine/uci"
)

const (
	keyPrefix  = "xq:analysis:"
	defaultTTL = time.Hour
)

// AnalysisCache stores finished analyses in Redis, keyed by canonical
// position text, depth and number of lines.
type AnalysisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *AnalysisCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &AnalysisCache{rdb: rdb, ttl: ttl}
}

// Open connects to REDIS_URL-style addresses and pings the server.
func Open(ctx context.Context, redisURL string, ttl time.Duration) (*AnalysisCache, error) {
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb, ttl), nil
}

func (c *AnalysisCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *AnalysisCache) key(fen string, depth, multipv int) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(fen)))
	return keyPrefix + hex.EncodeToString(sum[:12]) + ":" + strconv.Itoa(depth) + ":" + strconv.Itoa(multipv)
}

func (c *AnalysisCache) Get(ctx context.Context, fen string, depth, multipv int) (uci.AnalysisResult, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(fen, depth, multipv)).Bytes()
	if errors.Is(err, redis.Nil) {
		return uci.AnalysisResult{}, false, nil
	}
	if err != nil {
		return uci.AnalysisResult{}, false, err
	}
	var res uci.AnalysisResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return uci.AnalysisResult{}, false, fmt.Errorf("decode cached analysis: %w", err)
	}
	// hash collisions are not worth trusting
	if res.FEN != fen {
		return uci.AnalysisResult{}, false, nil
	}
	return res, true, nil
}

func (c *AnalysisCache) Set(ctx context.Context, fen string, depth, multipv int, res uci.AnalysisResult) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(fen, depth, multipv), raw, c.ttl).Err()
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
