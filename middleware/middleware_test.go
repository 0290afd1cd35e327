package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/globals"
	"storefront/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func signToken(t *testing.T, userID, role string, ttl time.Duration, secret []byte) string {
	t.Helper()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-" + userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return s
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

type seen struct {
	called bool
	userID string
	role   string
}

func (s *seen) handle(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.called = true
	s.userID = utils.GetUserIDFromRequest(r)
	s.role = utils.GetRoleFromRequest(r)
	w.WriteHeader(http.StatusNoContent)
}

func TestAuthenticate(t *testing.T) {
	uid := primitive.NewObjectID().Hex()

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantMsg    string
	}{
		{"missing header", "", http.StatusUnauthorized, "Not authorized, no token"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "Not authorized, no token"},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized, "Invalid token"},
		{"foreign signature", "Bearer " + signToken(t, uid, "user", time.Hour, []byte("other")), http.StatusUnauthorized, "Invalid token"},
		{"expired", "Bearer " + signToken(t, uid, "user", -time.Minute, globals.JwtSecret), http.StatusUnauthorized, "Token expired, please log in again"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &seen{}
			req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			Authenticate(s.handle)(rec, req, nil)

			assert.False(t, s.called)
			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantMsg, body["message"])
		})
	}
}

func TestAuthenticateValidToken(t *testing.T) {
	uid := primitive.NewObjectID().Hex()
	s := &seen{}
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, uid, "user", time.Hour, globals.JwtSecret))
	rec := httptest.NewRecorder()

	Authenticate(s.handle)(rec, req, nil)

	assert.True(t, s.called)
	assert.Equal(t, uid, s.userID)
	assert.Equal(t, "user", s.role)
}

func TestAuthenticateWebsocketQueryToken(t *testing.T) {
	uid := primitive.NewObjectID().Hex()
	token := signToken(t, uid, "user", time.Hour, globals.JwtSecret)

	s := &seen{}
	req := httptest.NewRequest(http.MethodGet, "/api/notifications/ws?token="+token, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	Authenticate(s.handle)(httptest.NewRecorder(), req, nil)
	assert.True(t, s.called)

	// plain requests may not use the query parameter
	s = &seen{}
	req = httptest.NewRequest(http.MethodGet, "/api/cart?token="+token, nil)
	rec := httptest.NewRecorder()
	Authenticate(s.handle)(rec, req, nil)
	assert.False(t, s.called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminGate(t *testing.T) {
	uid := primitive.NewObjectID().Hex()

	s := &seen{}
	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, uid, "user", time.Hour, globals.JwtSecret))
	rec := httptest.NewRecorder()
	Admin(s.handle)(rec, req, nil)
	assert.False(t, s.called)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	s = &seen{}
	req.Header.Set("Authorization", "Bearer "+signToken(t, uid, "admin", time.Hour, globals.JwtSecret))
	rec = httptest.NewRecorder()
	Admin(s.handle)(rec, req, nil)
	assert.True(t, s.called)
	assert.Equal(t, "admin", s.role)
}

func TestTranslateError(t *testing.T) {
	dupErr := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	_, hexErr := primitive.ObjectIDFromHex("zzz")

	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"api error", utils.Conflict("User already exists"), http.StatusConflict, "User already exists"},
		{"wrapped api error", fmt.Errorf("ctx: %w", utils.NotFound("Order not found")), http.StatusNotFound, "Order not found"},
		{"duplicate key", dupErr, http.StatusBadRequest, "Duplicate field value entered"},
		{"invalid hex", hexErr, http.StatusBadRequest, "Invalid ID format"},
		{"no documents", mongo.ErrNoDocuments, http.StatusNotFound, "Resource not found"},
		{"expired jwt", fmt.Errorf("parse: %w", jwt.ErrTokenExpired), http.StatusUnauthorized, "Token expired, please log in again"},
		{"malformed jwt", jwt.ErrTokenMalformed, http.StatusUnauthorized, "Invalid token"},
		{"json syntax", json.Unmarshal([]byte("{"), &struct{}{}), http.StatusBadRequest, "Invalid JSON payload"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := TranslateError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.msg, msg)
		})
	}
}

func TestTranslateValidationError(t *testing.T) {
	payload := struct {
		Email string `json:"email" validate:"required,email"`
		Name  string `json:"name" validate:"required"`
	}{Email: "bad"}

	status, msg := TranslateError(utils.Validate(payload))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "email must be a valid email, name is required", msg)
}

func TestHandleWritesTranslatedError(t *testing.T) {
	h := Handle(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
		return utils.BadRequest("Quantity must be at least 1")
	})
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/cart/add", nil), nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Quantity must be at least 1", body["message"])
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
