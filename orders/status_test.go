package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStatusChangeCheck(t *testing.T) {
	assert.NoError(t, StatusChange{Status: "shipped"}.check())
	assert.NoError(t, StatusChange{Status: "delivered", PaymentStatus: "completed"}.check())
	assert.EqualError(t, StatusChange{Status: "lost"}.check(), "Invalid order status: lost")
	assert.EqualError(t, StatusChange{Status: "shipped", PaymentStatus: "maybe"}.check(), "Invalid payment status: maybe")
}

func TestStatusUpdateDelivered(t *testing.T) {
	now := time.Now()
	upd := statusUpdate(StatusChange{Status: models.OrderStatusDelivered, PaymentStatus: models.PaymentStatusCompleted, Note: " left at door "}, now)

	set := upd["$set"].(bson.M)
	assert.Equal(t, models.OrderStatusDelivered, set["orderStatus"])
	assert.Equal(t, models.PaymentStatusCompleted, set["paymentStatus"])
	assert.Equal(t, now, set["deliveredAt"])
	assert.NotContains(t, set, "cancelledAt")

	push := upd["$push"].(bson.M)
	entry, ok := push["statusHistory"].(models.StatusEntry)
	require.True(t, ok)
	assert.Equal(t, "left at door", entry.Note)
	assert.Equal(t, now, entry.Timestamp)
}

func TestStatusUpdateKeepsPaymentWhenOmitted(t *testing.T) {
	upd := statusUpdate(StatusChange{Status: models.OrderStatusShipped}, time.Now())
	assert.NotContains(t, upd["$set"].(bson.M), "paymentStatus")
}

func TestRestocks(t *testing.T) {
	assert.True(t, restocks(models.OrderStatusPending, models.OrderStatusCancelled))
	assert.True(t, restocks(models.OrderStatusShipped, models.OrderStatusCancelled))
	assert.False(t, restocks(models.OrderStatusCancelled, models.OrderStatusCancelled))
	assert.False(t, restocks(models.OrderStatusReturned, models.OrderStatusCancelled))
	assert.False(t, restocks(models.OrderStatusPending, models.OrderStatusShipped))
}

// fakeReleases stands in for the orders collection: a claim succeeds once per
// order, like the stockReleased guard.
type fakeReleases struct {
	released map[primitive.ObjectID]bool
	returned [][]models.OrderItem
	claimErr error
}

func useFakeReleases(t *testing.T) *fakeReleases {
	t.Helper()
	f := &fakeReleases{released: map[primitive.ObjectID]bool{}}
	prevClaim, prevReturn := claimRelease, returnStock
	claimRelease = func(_ context.Context, id primitive.ObjectID) (bool, error) {
		if f.claimErr != nil {
			return false, f.claimErr
		}
		if f.released[id] {
			return false, nil
		}
		f.released[id] = true
		return true, nil
	}
	returnStock = func(_ context.Context, items []models.OrderItem) {
		f.returned = append(f.returned, items)
	}
	t.Cleanup(func() { claimRelease, returnStock = prevClaim, prevReturn })
	return f
}

func TestSettleCancellationReturnsStockOnce(t *testing.T) {
	f := useFakeReleases(t)
	items := []models.OrderItem{{ProductID: primitive.NewObjectID(), Quantity: 2, Size: "M"}}
	order := &models.Order{ID: primitive.NewObjectID(), Items: items}
	ctx := context.Background()

	steps := []struct {
		from, to string
		want     bool
	}{
		{models.OrderStatusPending, models.OrderStatusCancelled, true},
		{models.OrderStatusCancelled, models.OrderStatusPending, false},
		{models.OrderStatusPending, models.OrderStatusCancelled, false},
		{models.OrderStatusCancelled, models.OrderStatusConfirmed, false},
		{models.OrderStatusConfirmed, models.OrderStatusCancelled, false},
	}
	for i, st := range steps {
		order.OrderStatus = st.to
		assert.Equal(t, st.want, settleCancellation(ctx, st.from, order), "step %d: %s -> %s", i, st.from, st.to)
	}

	require.Len(t, f.returned, 1)
	assert.Equal(t, items, f.returned[0])
	assert.True(t, order.StockReleased)
}

func TestSettleCancellationPerOrder(t *testing.T) {
	f := useFakeReleases(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		order := &models.Order{ID: primitive.NewObjectID(), OrderStatus: models.OrderStatusCancelled}
		assert.True(t, settleCancellation(ctx, models.OrderStatusConfirmed, order))
	}
	assert.Len(t, f.returned, 2)
}

func TestSettleCancellationClaimFailure(t *testing.T) {
	f := useFakeReleases(t)
	f.claimErr = errors.New("write conflict")
	order := &models.Order{ID: primitive.NewObjectID(), OrderStatus: models.OrderStatusCancelled}

	assert.False(t, settleCancellation(context.Background(), models.OrderStatusPending, order))
	assert.Empty(t, f.returned)
	assert.False(t, order.StockReleased)
}

func TestReleaseClaim(t *testing.T) {
	id := primitive.NewObjectID()
	filter, update := releaseClaim(id)

	assert.Equal(t, bson.M{
		"_id":           id,
		"orderStatus":   models.OrderStatusCancelled,
		"stockReleased": bson.M{"$ne": true},
	}, filter)
	assert.Equal(t, bson.M{"$set": bson.M{"stockReleased": true}}, update)
}

func TestInvalidateAllOncePerProduct(t *testing.T) {
	var calls []primitive.ObjectID
	prev := invalidateProduct
	invalidateProduct = func(_ context.Context, id primitive.ObjectID) { calls = append(calls, id) }
	t.Cleanup(func() { invalidateProduct = prev })

	tee, hat := primitive.NewObjectID(), primitive.NewObjectID()
	invalidateAll(context.Background(), []reservation{
		{item: models.OrderItem{ProductID: tee, Size: "M"}, sized: true},
		{item: models.OrderItem{ProductID: tee, Size: "L"}, sized: true},
		{item: models.OrderItem{ProductID: hat}},
	})

	assert.Equal(t, []primitive.ObjectID{tee, hat}, calls)
}
