package rdx

import (
	"context"
	"time"
)

func revokedKey(jti string) string {
	return "auth:revoked:" + jti
}

// RevokeToken blocks a token id until it would have expired anyway.
func RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	if Conn == nil || jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return Conn.Set(ctx, revokedKey(jti), 1, ttl).Err()
}

// IsTokenRevoked reports whether RevokeToken was called for jti.
func IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if Conn == nil || jti == "" {
		return false, nil
	}
	n, err := Conn.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
