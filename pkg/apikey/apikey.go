// Package apikey implements the API-key credential scheme: opaque keys
// presented in the x-api-key header, resolved to a key record through an
// injected lookup. Keys are stored hashed; the raw key never touches Redis
// or a log line.
package apikey

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when the presented key matches no record.
var ErrNotFound = errors.New("apikey: not found")

// Key is the stored record for one API key.
type Key struct {
	ID          string   `json:"id"`
	UserID      string   `json:"user_id"`
	Permissions []string `json:"permissions"`
	IsActive    bool     `json:"is_active"`
}

// Lookup resolves a raw presented key to its record.
// Implementations return ErrNotFound for unknown keys and are expected to be
// side-effect-free from the caller's perspective.
type Lookup interface {
	Lookup(ctx context.Context, rawKey string) (*Key, error)
}

// Hash returns the storage key for a raw API key.
func Hash(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

func redisKey(rawKey string) string {
	return "apikey:" + Hash(rawKey)
}

// RedisLookup resolves API keys against Redis.
type RedisLookup struct {
	rdb *goredis.Client
}

func NewRedisLookup(rdb *goredis.Client) *RedisLookup {
	return &RedisLookup{rdb: rdb}
}

func (l *RedisLookup) Lookup(ctx context.Context, rawKey string) (*Key, error) {
	val, err := l.rdb.Get(ctx, redisKey(rawKey)).Result()
	if err == goredis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("apikey: redis lookup: %w", err)
	}

	var k Key
	if err := json.Unmarshal([]byte(val), &k); err != nil {
		return nil, fmt.Errorf("apikey: corrupt record: %w", err)
	}
	return &k, nil
}

// Put stores the record for a raw key. Used by the system apikey command.
func (l *RedisLookup) Put(ctx context.Context, rawKey string, k Key) error {
	b, err := json.Marshal(k)
	if err != nil {
		return fmt.Errorf("apikey: encode record: %w", err)
	}
	if err := l.rdb.Set(ctx, redisKey(rawKey), b, 0).Err(); err != nil {
		return fmt.Errorf("apikey: redis set: %w", err)
	}
	return nil
}

// Static is an in-memory Lookup for tests and bootstrap.
type Static map[string]Key

func (s Static) Lookup(_ context.Context, rawKey string) (*Key, error) {
	k, ok := s[rawKey]
	if !ok {
		return nil, ErrNotFound
	}
	return &k, nil
}
