package reviews

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront/globals"
	"storefront/middleware"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func authed(req *http.Request, userID string) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), globals.UserIDKey, userID))
}

func TestAddReviewValidation(t *testing.T) {
	productID := primitive.NewObjectID().Hex()
	tests := []struct {
		name string
		body string
		want string
	}{
		{"rating too high", `{"rating":6,"comment":"great"}`, "rating must be at most 5"},
		{"rating missing", `{"comment":"great"}`, "rating is required"},
		{"comment missing", `{"rating":4}`, "comment is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/products/"+productID+"/review", strings.NewReader(tt.body))
			req = authed(req, primitive.NewObjectID().Hex())
			rec := httptest.NewRecorder()

			middleware.Handle(AddReview)(rec, req, httprouter.Params{{Key: "id", Value: productID}})

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestAddReviewRequiresUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	middleware.Handle(AddReview)(rec, req, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeriveRatingPipeline(t *testing.T) {
	require.Len(t, deriveRating, 1)
	stage := deriveRating[0]
	assert.Equal(t, "$set", stage[0].Key)

	set, ok := stage[0].Value.(bson.D)
	require.True(t, ok)
	assert.Equal(t, "numReviews", set[0].Key)
	assert.Equal(t, "rating", set[1].Key)
}
