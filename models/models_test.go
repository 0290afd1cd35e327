package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEffectivePrice(t *testing.T) {
	p := Product{Price: 1200}
	assert.Equal(t, 1200.0, p.EffectivePrice())

	discount := 999.0
	p.DiscountPrice = &discount
	assert.Equal(t, 999.0, p.EffectivePrice())

	zero := 0.0
	p.DiscountPrice = &zero
	assert.Equal(t, 1200.0, p.EffectivePrice())
}

func TestAvailable(t *testing.T) {
	plain := Product{Stock: 7}
	n, ok := plain.Available("")
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	sized := Product{Sizes: []SizeStock{{Size: "M", Stock: 2}, {Size: "L", Stock: 0}}}
	n, ok = sized.Available("M")
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	_, ok = sized.Available("XL")
	assert.False(t, ok)
	assert.Equal(t, 2, sized.TotalStock())
}

func TestRecalculateRating(t *testing.T) {
	p := Product{}
	p.RecalculateRating()
	assert.Equal(t, 0, p.NumReviews)
	assert.Equal(t, 0.0, p.Rating)

	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	p.Reviews = []Review{{UserID: a, Rating: 5}, {UserID: b, Rating: 4}}
	p.RecalculateRating()
	assert.Equal(t, 2, p.NumReviews)
	assert.Equal(t, 4.5, p.Rating)
	assert.True(t, p.HasReviewFrom(a))
	assert.False(t, p.HasReviewFrom(primitive.NewObjectID()))

	p.Reviews = append(p.Reviews, Review{Rating: 1})
	p.RecalculateRating()
	assert.Equal(t, 3, p.NumReviews)
	assert.InDelta(t, 10.0/3.0, p.Rating, 1e-9)
}

func TestCartTotals(t *testing.T) {
	c := Cart{Items: []CartItem{
		{ID: primitive.NewObjectID(), Quantity: 2, Price: 150},
		{ID: primitive.NewObjectID(), Quantity: 1, Price: 99.5},
	}}
	assert.Equal(t, 3, c.TotalItems())
	assert.Equal(t, 399.5, c.TotalPrice())
	assert.Equal(t, 1, c.FindLine(c.Items[1].ID))
	assert.Equal(t, -1, c.FindLine(primitive.NewObjectID()))
}

func TestOrderStatusHelpers(t *testing.T) {
	assert.True(t, IsOrderStatus("shipped"))
	assert.False(t, IsOrderStatus("lost"))
	assert.True(t, IsPaymentStatus("refunded"))

	o := Order{OrderStatus: OrderStatusConfirmed}
	assert.True(t, o.IsCancellable())
	o.OrderStatus = OrderStatusShipped
	assert.False(t, o.IsCancellable())
}

func TestCardExpired(t *testing.T) {
	now := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	assert.False(t, (&PaymentCard{ExpiryMonth: 3, ExpiryYear: 2026}).Expired(now))
	assert.True(t, (&PaymentCard{ExpiryMonth: 2, ExpiryYear: 2026}).Expired(now))
	assert.True(t, (&PaymentCard{ExpiryMonth: 12, ExpiryYear: 2025}).Expired(now))
	assert.False(t, (&PaymentCard{ExpiryMonth: 1, ExpiryYear: 2027}).Expired(now))
}
