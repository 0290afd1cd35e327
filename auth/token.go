package auth

import (
	"time"

	"storefront/globals"
	"storefront/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// IssueToken signs an HS256 access token for the user. Each token gets its
// own id so that logout can revoke it individually.
func IssueToken(userID, role string) (string, error) {
	now := time.Now()
	claims := &middleware.Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(globals.TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(globals.JwtSecret)
}

// checkLoginMode enforces that the login form matches the account type.
func checkLoginMode(mode, role string) error {
	if mode == "" {
		mode = globals.RoleUser
	}
	if mode != globals.RoleUser && mode != globals.RoleAdmin {
		return errInvalidMode
	}
	if mode != role {
		if role == globals.RoleAdmin {
			return errUseAdminLogin
		}
		return errNotAdmin
	}
	return nil
}
