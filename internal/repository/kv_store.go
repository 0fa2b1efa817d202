package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
)

// KVStore is the small key-value capability the score counters and the
// theme preference are kept in.
type KVStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	// Incr adds one to the integer stored at key, treating a missing key as 0.
	Incr(ctx context.Context, key string) (int64, error)
}

type redisKVStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisKVStore creates a KVStore whose keys live under prefix in Redis.
func NewRedisKVStore(rdb *redis.Client, prefix string) KVStore {
	return &redisKVStore{rdb: rdb, prefix: prefix}
}

func (s *redisKVStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.rdb.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s from redis: %w", key, err)
	}
	return value, true, nil
}

func (s *redisKVStore) Set(ctx context.Context, key, value string) error {
	if err := s.rdb.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s in redis: %w", key, err)
	}
	return nil
}

func (s *redisKVStore) Incr(ctx context.Context, key string) (int64, error) {
	n, err := s.rdb.Incr(ctx, s.prefix+key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s in redis: %w", key, err)
	}
	return n, nil
}

type sqliteKVStore struct {
	db *sqlx.DB
}

// NewSQLiteKVStore creates a KVStore on the kv_store table.
func NewSQLiteKVStore(db *sqlx.DB) KVStore {
	return &sqliteKVStore{db: db}
}

const upsertKV = `
	INSERT INTO kv_store (name, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

func (s *sqliteKVStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM kv_store WHERE name = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *sqliteKVStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, upsertKV, key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *sqliteKVStore) Incr(ctx context.Context, key string) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.GetContext(ctx, &current, `SELECT value FROM kv_store WHERE name = ?`, key)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to get %s: %w", key, err)
	}

	n, err := parseCounter(current)
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}
	n++

	if _, err := tx.ExecContext(ctx, upsertKV, key, strconv.FormatInt(n, 10)); err != nil {
		return 0, fmt.Errorf("failed to set %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit increment of %s: %w", key, err)
	}
	return n, nil
}

type memoryKVStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryKVStore creates a KVStore that lives only as long as the process.
func NewMemoryKVStore() KVStore {
	return &memoryKVStore{values: make(map[string]string)}
}

func (s *memoryKVStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.values[key]
	return value, ok, nil
}

func (s *memoryKVStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

func (s *memoryKVStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := parseCounter(s.values[key])
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}
	n++
	s.values[key] = strconv.FormatInt(n, 10)
	return n, nil
}

// parseCounter reads a stored counter; an empty value counts as zero.
func parseCounter(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q is not an integer", value)
	}
	return n, nil
}
