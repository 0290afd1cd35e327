package notifications

import (
	"context"
	"net/http"
	"time"

	"storefront/apifeatures"
	"storefront/db"
	"storefront/models"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

const pageSize = 20

// GetNotifications handles GET /api/notifications
func GetNotifications(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	features := apifeatures.New(nil, r.URL.Query()).Filter().Sort().Paginate(pageSize)
	features.Query["userId"] = userID

	cur, err := db.NotificationCollection.Find(ctx, features.Query, features.Options)
	if err != nil {
		return utils.Internal("Failed to fetch notifications", err)
	}
	notifications := []models.Notification{}
	if err := cur.All(ctx, &notifications); err != nil {
		return utils.Internal("Failed to fetch notifications", err)
	}

	total, err := db.NotificationCollection.CountDocuments(ctx, features.Query)
	if err != nil {
		return utils.Internal("Failed to count notifications", err)
	}
	unread, err := db.NotificationCollection.CountDocuments(ctx, bson.M{"userId": userID, "isRead": false})
	if err != nil {
		return utils.Internal("Failed to count notifications", err)
	}

	utils.RespondWithSuccess(w, http.StatusOK, utils.M{
		"notifications": notifications,
		"unreadCount":   unread,
		"total":         total,
		"page":          features.Page,
		"pages":         features.TotalPages(total),
	})
	return nil
}

// UnreadCount handles GET /api/notifications/unread-count
func UnreadCount(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	n, err := db.NotificationCollection.CountDocuments(ctx, bson.M{"userId": userID, "isRead": false})
	if err != nil {
		return utils.Internal("Failed to count notifications", err)
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"count": n})
	return nil
}

// MarkAllRead handles PUT /api/notifications
func MarkAllRead(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := db.NotificationCollection.UpdateMany(ctx,
		bson.M{"userId": userID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	if err != nil {
		return utils.Internal("Failed to update notifications", err)
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{
		"message":  "All notifications marked as read",
		"modified": res.ModifiedCount,
	})
	return nil
}

// MarkRead handles PUT /api/notifications/:id/read
func MarkRead(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}
	id, err := utils.ObjectID(ps.ByName("id"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := db.NotificationCollection.UpdateOne(ctx,
		bson.M{"_id": id, "userId": userID},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	if err != nil {
		return utils.Internal("Failed to update notification", err)
	}
	if res.MatchedCount == 0 {
		return utils.NotFound("Notification not found")
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"message": "Notification marked as read"})
	return nil
}

// DeleteNotification handles DELETE /api/notifications/:id
func DeleteNotification(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}
	id, err := utils.ObjectID(ps.ByName("id"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := db.NotificationCollection.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return utils.Internal("Failed to delete notification", err)
	}
	if res.DeletedCount == 0 {
		return utils.NotFound("Notification not found")
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"message": "Notification deleted"})
	return nil
}
