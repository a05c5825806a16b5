package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ppiankov/floodpan/internal/post"
)

const (
	redisNamespace   = "floodpan:cache:"
	redisScanCount   = 100
	redisPingTimeout = 5 * time.Second
)

// RedisStore keeps each cache entry as one JSON value. A positive ttl is
// applied as the key expiry, so Redis drops stale entries itself.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	owned  bool
	now    func() time.Time
}

// redisEntry is the stored value.
type redisEntry struct {
	PostType  string          `json:"post_type"`
	Count     int             `json:"post_count"`
	CreatedAt time.Time       `json:"created_at"`
	Posts     json.RawMessage `json:"posts"`
}

// NewRedis wraps an existing client. The caller keeps ownership of it.
func NewRedis(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

// OpenRedis connects to addr, either host:port or a redis:// URL, and
// verifies the connection.
func OpenRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr, Password: password, DB: db}
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}

	s := NewRedis(client, ttl)
	s.owned = true
	return s, nil
}

func (s *RedisStore) Close() error {
	if s == nil || s.client == nil || !s.owned {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) IsCached(ctx context.Context, key string) bool {
	n, err := s.client.Exists(ctx, redisNamespace+key).Result()
	return err == nil && n > 0
}

func (s *RedisStore) Load(ctx context.Context, key string) ([]post.Post, error) {
	e, err := s.get(ctx, redisNamespace+key)
	if err != nil {
		return nil, err
	}
	posts, err := post.UnmarshalList(e.Posts)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", key, err)
	}
	return posts, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, posts []post.Post) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("cache key is required")
	}
	payload, err := post.MarshalList(posts)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	value, err := json.Marshal(redisEntry{
		PostType:  postType(posts),
		Count:     len(posts),
		CreatedAt: s.now().UTC(),
		Posts:     payload,
	})
	if err != nil {
		return fmt.Errorf("encode entry %q: %w", key, err)
	}

	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, redisNamespace+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisNamespace+key).Err(); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// List scans the namespace. Entries that vanish mid-scan are skipped.
func (s *RedisStore) List(ctx context.Context) ([]Entry, error) {
	keys, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(keys))
	for _, full := range keys {
		e, err := s.get(ctx, full)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{
			Key:       strings.TrimPrefix(full, redisNamespace),
			PostType:  e.PostType,
			Count:     e.Count,
			CreatedAt: e.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func (s *RedisStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, nil
	}
	entries, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-olderThan)
	var stale []string
	for _, e := range entries {
		if e.CreatedAt.Before(cutoff) {
			stale = append(stale, redisNamespace+e.Key)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	n, err := s.client.Del(ctx, stale...).Result()
	if err != nil {
		return 0, fmt.Errorf("prune entries: %w", err)
	}
	return n, nil
}

func (s *RedisStore) get(ctx context.Context, fullKey string) (redisEntry, error) {
	raw, err := s.client.Get(ctx, fullKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return redisEntry{}, ErrNotFound
	}
	if err != nil {
		return redisEntry{}, fmt.Errorf("load %q: %w", strings.TrimPrefix(fullKey, redisNamespace), err)
	}
	var e redisEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return redisEntry{}, fmt.Errorf("decode entry %q: %w", strings.TrimPrefix(fullKey, redisNamespace), err)
	}
	return e, nil
}

func (s *RedisStore) scan(ctx context.Context) ([]string, error) {
	var (
		keys   []string
		seen   = make(map[string]bool)
		cursor uint64
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, redisNamespace+"*", redisScanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("scan keys: %w", err)
		}
		// SCAN may return a key more than once.
		for _, k := range batch {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}
