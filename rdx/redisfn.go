package rdx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Conn is nil when Redis is not configured; every helper then degrades to a
// no-op or a cache miss.
var Conn *redis.Client

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, addr, password string, db int) error {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("ping redis: %w", err)
	}
	Conn = client
	log.Info().Str("addr", addr).Msg("Connected to Redis")
	return nil
}

// Close releases the client if one is open.
func Close() error {
	if Conn == nil {
		return nil
	}
	err := Conn.Close()
	Conn = nil
	return err
}

// Enabled reports whether a Redis client is configured.
func Enabled() bool {
	return Conn != nil
}

// GetJSON loads key into v. It returns false on a miss or when Redis is off.
func GetJSON(ctx context.Context, key string, v any) (bool, error) {
	if Conn == nil {
		return false, nil
	}
	data, err := Conn.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v under key with a TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if Conn == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return Conn.Set(ctx, key, data, ttl).Err()
}

// Del removes keys.
func Del(ctx context.Context, keys ...string) error {
	if Conn == nil || len(keys) == 0 {
		return nil
	}
	return Conn.Del(ctx, keys...).Err()
}
