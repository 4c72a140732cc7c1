package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/suPer8Hu/genrelay/internal/usage"
)

const (
	usageKey = "genrelay:usage:recent"
	tokenKey = "genrelay:auth:revoked:"
)

type Store struct {
	rdb      *redis.Client
	maxUsage int64
}

// New connects and pings. maxUsage caps the recent-usage list.
func New(addr, password string, db, maxUsage int) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewWithClient(rdb, maxUsage), nil
}

func NewWithClient(rdb *redis.Client, maxUsage int) *Store {
	if maxUsage <= 0 {
		maxUsage = 100
	}
	return &Store{rdb: rdb, maxUsage: int64(maxUsage)}
}

func (s *Store) Close() error { return s.rdb.Close() }

// PushUsage prepends e to the recent-usage list and trims it.
func (s *Store) PushUsage(ctx context.Context, e usage.Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, usageKey, b)
	pipe.LTrim(ctx, usageKey, 0, s.maxUsage-1)
	_, err = pipe.Exec(ctx)
	return err
}

// RecentUsage returns up to limit entries, newest first.
func (s *Store) RecentUsage(ctx context.Context, limit int) ([]usage.Entry, error) {
	if limit <= 0 || int64(limit) > s.maxUsage {
		limit = int(s.maxUsage)
	}
	raw, err := s.rdb.LRange(ctx, usageKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]usage.Entry, 0, len(raw))
	for _, r := range raw {
		var e usage.Entry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// RevokeToken blacklists a token id until its expiry.
func (s *Store) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, tokenKey+jti, "1", ttl).Err()
}

func (s *Store) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.rdb.Exists(ctx, tokenKey+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
