package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/gh1989/nethub/internal/config"
	"github.com/redis/go-redis/v9"
)

// Reply prefixes Redis uses for conditions that clear up on their own.
var retryableReplies = []string{"LOADING", "BUSY", "TRYAGAIN", "MASTERDOWN", "CLUSTERDOWN"}

// RedisStore implements the Store interface using go-redis/v9.
type RedisStore struct {
	client *redis.Client
}

var (
	_ Store   = (*RedisStore)(nil)
	_ Counter = (*RedisStore)(nil)
)

// NewRedisStore creates a RedisStore from config. The connection pool is
// opened lazily; call Ping before first use and Close on shutdown.
func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

// NewRedisStoreFromClient wraps an already configured client, for callers
// that need go-redis options the config does not expose. Close closes the
// client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return classify(s.client.Ping(ctx).Err())
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) SetString(ctx context.Context, key, value string) error {
	return classify(s.client.Set(ctx, key, value, 0).Err())
}

func (s *RedisStore) GetString(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, classify(err)
	}
	return val, true, nil
}

func (s *RedisStore) ListPushEnd(ctx context.Context, key, value string) error {
	return classify(s.client.LPush(ctx, key, value).Err())
}

func (s *RedisStore) ListPopOtherEnd(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.RPop(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, classify(err)
	}
	return val, true, nil
}

func (s *RedisStore) ListRange(ctx context.Context, key string) ([]string, error) {
	vals, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, classify(err)
	}
	return vals, nil
}

func (s *RedisStore) ListLen(ctx context.Context, key string) (int64, error) {
	n, err := s.client.LLen(ctx, key).Result()
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

func (s *RedisStore) SetAdd(ctx context.Context, key, member string) error {
	return classify(s.client.SAdd(ctx, key, member).Err())
}

func (s *RedisStore) SetRemove(ctx context.Context, key, member string) error {
	return classify(s.client.SRem(ctx, key, member).Err())
}

func (s *RedisStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, classify(err)
	}
	return members, nil
}

func (s *RedisStore) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, classify(err)
	}
	return incr.Val(), nil
}

// classify wraps connectivity failures with ErrUnavailable and leaves every
// other error untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isConnectivityError(err) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

func isConnectivityError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var redisErr redis.Error
	if errors.As(err, &redisErr) {
		msg := redisErr.Error()
		for _, prefix := range retryableReplies {
			if strings.HasPrefix(msg, prefix) {
				return true
			}
		}
	}
	return false
}
