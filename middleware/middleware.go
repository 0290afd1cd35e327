package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/globals"
	"storefront/rdx"
	"storefront/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

// JWT claims
type Claims struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

var errMissingToken = errors.New("missing token")

// Authenticate requires a valid bearer token and stores the user id, role and
// token id in the request context. Websocket upgrades may pass the token in
// the "token" query parameter instead, since browsers cannot set headers there.
func Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		tokenString, err := bearerToken(r)
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, "Not authorized, no token")
			return
		}

		claims, err := ValidateJWT(tokenString)
		if err != nil {
			status, msg := TranslateError(err)
			utils.RespondWithError(w, status, msg)
			return
		}

		if revoked, err := rdx.IsTokenRevoked(r.Context(), claims.ID); err != nil {
			log.Warn().Err(err).Msg("token revocation lookup failed")
		} else if revoked {
			utils.RespondWithError(w, http.StatusUnauthorized, "Token has been revoked")
			return
		}

		ctx := context.WithValue(r.Context(), globals.UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, globals.RoleKey, claims.Role)
		ctx = context.WithValue(ctx, globals.TokenIDKey, claims.ID)
		if claims.ExpiresAt != nil {
			ctx = context.WithValue(ctx, globals.TokenExpiryKey, claims.ExpiresAt.Time)
		}
		next(w, r.WithContext(ctx), ps)
	}
}

// RequireAdmin must sit behind Authenticate.
func RequireAdmin(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if utils.GetRoleFromRequest(r) != globals.RoleAdmin {
			utils.RespondWithError(w, http.StatusForbidden, "Access denied. Admin privileges required")
			return
		}
		next(w, r, ps)
	}
}

// Admin is Authenticate followed by RequireAdmin.
func Admin(next httprouter.Handle) httprouter.Handle {
	return Authenticate(RequireAdmin(next))
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && strings.TrimSpace(token) != "" {
		return strings.TrimSpace(token), nil
	}
	if websocket.IsWebSocketUpgrade(r) {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, nil
		}
	}
	return "", errMissingToken
}

// ValidateJWT parses a raw token (without the "Bearer " prefix).
func ValidateJWT(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return globals.JwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// TokenExpiry returns the expiry of the token that authenticated r.
func TokenExpiry(r *http.Request) (time.Time, bool) {
	t, ok := r.Context().Value(globals.TokenExpiryKey).(time.Time)
	return t, ok
}
