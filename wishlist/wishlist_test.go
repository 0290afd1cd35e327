package wishlist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront/globals"
	"storefront/middleware"
	"storefront/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestJoinItems(t *testing.T) {
	a, b, gone := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	t0 := time.Now().Add(-time.Hour)
	items := []models.WishlistItem{
		{ProductID: a, AddedAt: t0},
		{ProductID: gone, AddedAt: t0.Add(time.Minute)},
		{ProductID: b, AddedAt: t0.Add(2 * time.Minute)},
	}
	found := []models.Product{{ID: a, Name: "A"}, {ID: b, Name: "B"}}

	out := joinItems(items, found)
	require.Len(t, out, 2)
	assert.Equal(t, "B", out[0].Product.Name, "newest first")
	assert.Equal(t, "A", out[1].Product.Name)
	assert.Equal(t, t0, out[1].AddedAt)
}

func TestJoinItemsEmpty(t *testing.T) {
	out := joinItems(nil, nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestAddToWishlistRequiresProductID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/wishlist", strings.NewReader(`{}`))
	req = req.WithContext(withUser(req))
	rec := httptest.NewRecorder()

	middleware.Handle(AddToWishlist)(rec, req, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "productId is required")
}

func withUser(r *http.Request) context.Context {
	return context.WithValue(r.Context(), globals.UserIDKey, primitive.NewObjectID().Hex())
}
