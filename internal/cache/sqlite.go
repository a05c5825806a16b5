package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/floodpan/internal/post"
)

// SQLiteStore keeps one row per cache key in a local SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the cache database at path. A
// positive ttl makes older entries load as ErrNotFound.
func OpenSQLite(path string, ttl time.Duration) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("path is required")
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) ready(ctx context.Context) (context.Context, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("cache store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, nil
}

// IsCached reports whether a fresh entry exists. Errors count as a miss.
func (s *SQLiteStore) IsCached(ctx context.Context, key string) bool {
	ctx, err := s.ready(ctx)
	if err != nil {
		return false
	}
	var createdAt string
	err = s.db.QueryRowContext(ctx, "SELECT created_at FROM post_cache WHERE cache_key = ?", key).Scan(&createdAt)
	if err != nil {
		return false
	}
	return s.fresh(createdAt)
}

func (s *SQLiteStore) Load(ctx context.Context, key string) ([]post.Post, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	var payload, createdAt string
	err = s.db.QueryRowContext(ctx,
		"SELECT posts_json, created_at FROM post_cache WHERE cache_key = ?", key,
	).Scan(&payload, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	if !s.fresh(createdAt) {
		return nil, ErrNotFound
	}

	posts, err := post.UnmarshalList([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", key, err)
	}
	return posts, nil
}

func (s *SQLiteStore) Save(ctx context.Context, key string, posts []post.Post) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("cache key is required")
	}

	payload, err := post.MarshalList(posts)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO post_cache(cache_key, post_type, posts_json, post_count, created_at)
VALUES(?, ?, ?, ?, ?)
ON CONFLICT(cache_key) DO UPDATE SET
  post_type = excluded.post_type,
  posts_json = excluded.posts_json,
  post_count = excluded.post_count,
  created_at = excluded.created_at
`, key, postType(posts), string(payload), len(posts), formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM post_cache WHERE cache_key = ?", key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// List returns every entry, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT cache_key, post_type, post_count, created_at FROM post_cache ORDER BY created_at DESC, cache_key")
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			createdAt string
		)
		if err := rows.Scan(&e.Key, &e.PostType, &e.Count, &createdAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at for %q: %w", e.Key, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes entries older than olderThan and returns how many went.
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}
	if olderThan <= 0 {
		return 0, nil
	}

	cutoff := formatTime(s.now().Add(-olderThan))
	res, err := s.db.ExecContext(ctx, "DELETE FROM post_cache WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune entries: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *SQLiteStore) fresh(createdAt string) bool {
	if s.ttl <= 0 {
		return true
	}
	ts, err := parseTime(createdAt)
	if err != nil {
		return false
	}
	return s.now().Sub(ts) < s.ttl
}

// Times are stored as fixed-width UTC RFC3339 so string order is time order.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

func parseTime(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, value)
}
