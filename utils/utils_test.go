package utils

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront/globals"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRespondWithSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithSuccess(rec, http.StatusCreated, M{"count": 2})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 2.0, body["count"])
}

func TestRespondWithError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithError(rec, http.StatusNotFound, "Product not found")

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Product not found", body["message"])
}

func TestAPIErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Internal("Failed to save", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Contains(t, err.Error(), "boom")
}

type payload struct {
	Email string `json:"email" validate:"required,email"`
}

func TestDecodeJSON(t *testing.T) {
	var p payload
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@x.com"}`))
	require.NoError(t, DecodeJSON(r, &p))
	assert.Equal(t, "a@x.com", p.Email)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope"}`))
	assert.Error(t, DecodeJSON(r, &p))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	err := DecodeJSON(r, &p)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestUserObjectID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := UserObjectID(r)
	assert.Error(t, err)

	id := primitive.NewObjectID()
	r = r.WithContext(context.WithValue(r.Context(), globals.UserIDKey, id.Hex()))
	got, err := UserObjectID(r)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestObjectID(t *testing.T) {
	_, err := ObjectID("not-an-id")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestGenerateRandomDigitString(t *testing.T) {
	s := GenerateRandomDigitString(5)
	assert.Len(t, s, 5)
	for _, c := range s {
		assert.True(t, c >= '0' && c <= '9')
	}
}

func TestDecodeOptionalJSON(t *testing.T) {
	var body struct {
		Reason string `json:"reason" validate:"max=5"`
	}
	r := httptest.NewRequest(http.MethodPut, "/", nil)
	require.NoError(t, DecodeOptionalJSON(r, &body))
	assert.Empty(t, body.Reason)

	r = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"reason":"oops"}`))
	require.NoError(t, DecodeOptionalJSON(r, &body))
	assert.Equal(t, "oops", body.Reason)

	r = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"reason":"too long"}`))
	assert.Error(t, DecodeOptionalJSON(r, &body))
}
