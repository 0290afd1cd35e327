package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront/db"
	"storefront/globals"
	"storefront/models"
	"storefront/mq"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func newNotification(userID primitive.ObjectID, message, kind, link string) models.Notification {
	return models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Message:   message,
		Type:      kind,
		Link:      link,
		CreatedAt: time.Now(),
	}
}

func pushLive(n models.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		return
	}
	Live.Push(n.UserID.Hex(), data)
}

// Create stores a notification for one user and pushes it to their open
// connections.
func Create(ctx context.Context, userID primitive.ObjectID, message, kind, link string) error {
	n := newNotification(userID, message, kind, link)
	if _, err := db.NotificationCollection.InsertOne(ctx, n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	pushLive(n)
	return nil
}

// NotifyAdmins fans one message out to every active admin.
func NotifyAdmins(ctx context.Context, message, kind, link string) error {
	cur, err := db.UserCollection.Find(ctx,
		bson.M{"role": globals.RoleAdmin, "isActive": true},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return fmt.Errorf("find admins: %w", err)
	}
	var admins []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &admins); err != nil {
		return fmt.Errorf("decode admins: %w", err)
	}
	if len(admins) == 0 {
		return nil
	}

	docs := make([]any, 0, len(admins))
	batch := make([]models.Notification, 0, len(admins))
	for _, a := range admins {
		n := newNotification(a.ID, message, kind, link)
		docs = append(docs, n)
		batch = append(batch, n)
	}
	if _, err := db.NotificationCollection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert admin notifications: %w", err)
	}
	for _, n := range batch {
		pushLive(n)
	}
	return nil
}

func orderCreatedMessage(evt mq.Event) string {
	return fmt.Sprintf("New order %s placed (total %.2f)", evt.OrderNumber, evt.Total)
}

func statusChangedMessage(evt mq.Event) string {
	return fmt.Sprintf("Your order %s is now %s", evt.OrderNumber, evt.Status)
}

func onOrderCreated(ctx context.Context, evt mq.Event) error {
	return NotifyAdmins(ctx, orderCreatedMessage(evt), models.NotificationNewOrder, "/admin/orders/"+evt.OrderID)
}

func onOrderStatusChanged(ctx context.Context, evt mq.Event) error {
	userID, err := primitive.ObjectIDFromHex(evt.UserID)
	if err != nil {
		return fmt.Errorf("event user id: %w", err)
	}
	return Create(ctx, userID, statusChangedMessage(evt), models.NotificationOrder, "/orders/"+evt.OrderID)
}

// RegisterHandlers subscribes the notification fan-out to order events.
func RegisterHandlers() {
	mq.Register(mq.EventOrderCreated, onOrderCreated)
	mq.Register(mq.EventOrderStatusChanged, onOrderStatusChanged)
}

// PurgeRead deletes read notifications older than retention.
func PurgeRead(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	res, err := db.NotificationCollection.DeleteMany(ctx, bson.M{
		"isRead":    true,
		"createdAt": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("purge notifications: %w", err)
	}
	log.Info().Int64("deleted", res.DeletedCount).Time("before", cutoff).Msg("purged read notifications")
	return res.DeletedCount, nil
}
