package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/db"
	"storefront/models"
	"storefront/mq"
	"storefront/utils"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StatusChange is an administrative transition. Any known status may be set;
// there is no reachability check against the current one.
type StatusChange struct {
	Status        string `json:"status" validate:"required"`
	PaymentStatus string `json:"paymentStatus"`
	Note          string `json:"note" validate:"max=500"`
}

func (c StatusChange) check() error {
	if !models.IsOrderStatus(c.Status) {
		return utils.BadRequest("Invalid order status: " + c.Status)
	}
	if c.PaymentStatus != "" && !models.IsPaymentStatus(c.PaymentStatus) {
		return utils.BadRequest("Invalid payment status: " + c.PaymentStatus)
	}
	return nil
}

// statusUpdate builds the $set/$push for moving to c.Status at now.
func statusUpdate(c StatusChange, now time.Time) bson.M {
	set := bson.M{"orderStatus": c.Status, "updatedAt": now}
	if c.PaymentStatus != "" {
		set["paymentStatus"] = c.PaymentStatus
	}
	switch c.Status {
	case models.OrderStatusDelivered:
		set["deliveredAt"] = now
	case models.OrderStatusCancelled:
		set["cancelledAt"] = now
	}
	return bson.M{
		"$set": set,
		"$push": bson.M{"statusHistory": models.StatusEntry{
			Status:    c.Status,
			Note:      strings.TrimSpace(c.Note),
			Timestamp: now,
		}},
	}
}

// restocks reports whether moving from prev to next returns units to stock.
func restocks(prev, next string) bool {
	if next != models.OrderStatusCancelled {
		return false
	}
	return prev != models.OrderStatusCancelled && prev != models.OrderStatusReturned
}

// UpdateStatus applies an admin transition. The write is guarded on the
// status that was read, so a concurrent change yields a conflict.
func UpdateStatus(ctx context.Context, id primitive.ObjectID, c StatusChange) (*models.Order, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	current, err := findOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	var updated models.Order
	err = db.OrderCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "orderStatus": current.OrderStatus},
		statusUpdate(c, time.Now()),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.Conflict("Order status changed concurrently, please retry")
	}
	if err != nil {
		return nil, utils.Internal("Failed to update order status", err)
	}

	settleCancellation(ctx, current.OrderStatus, &updated)
	log.Info().Str("orderNumber", updated.OrderNumber).Str("from", current.OrderStatus).Str("to", updated.OrderStatus).Msg("order status updated")

	mq.Emit(ctx, mq.Event{
		Name:        mq.EventOrderStatusChanged,
		OrderID:     updated.ID.Hex(),
		OrderNumber: updated.OrderNumber,
		UserID:      updated.UserID.Hex(),
		Status:      updated.OrderStatus,
	})
	return &updated, nil
}

// Find loads any order by id.
func Find(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return findOrder(ctx, id)
}
