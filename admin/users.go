package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"storefront/apifeatures"
	"storefront/db"
	"storefront/models"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

type statusRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// ListUsers handles GET /api/admin/users
func ListUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	features := apifeatures.New(nil, r.URL.Query()).Search("name", "email").Filter().Sort().Paginate(pageSize)
	features.Options.SetProjection(bson.M{"password": 0})

	cur, err := db.UserCollection.Find(ctx, features.Query, features.Options)
	if err != nil {
		return utils.Internal("Failed to fetch users", err)
	}
	list := []models.User{}
	if err := cur.All(ctx, &list); err != nil {
		return utils.Internal("Failed to fetch users", err)
	}
	total, err := db.UserCollection.CountDocuments(ctx, features.Query)
	if err != nil {
		return utils.Internal("Failed to count users", err)
	}

	utils.RespondWithSuccess(w, http.StatusOK, utils.M{
		"users": list,
		"count": len(list),
		"total": total,
		"page":  features.Page,
		"pages": features.TotalPages(total),
	})
	return nil
}

// GetUser handles GET /api/admin/users/:id. The response includes the
// user's order count and lifetime spend.
func GetUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	id, err := utils.ObjectID(ps.ByName("id"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var user models.User
	err = db.UserCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return utils.NotFound("User not found")
	}
	if err != nil {
		return utils.Internal("Failed to fetch user", err)
	}

	stats, err := orderStats(ctx, id)
	if err != nil {
		return utils.Internal("Failed to fetch user orders", err)
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{
		"user":       user,
		"orderCount": stats.Count,
		"totalSpent": stats.Spent,
	})
	return nil
}

type userOrderStats struct {
	Count int64   `bson:"count"`
	Spent float64 `bson:"spent"`
}

func orderStats(ctx context.Context, userID primitive.ObjectID) (userOrderStats, error) {
	cur, err := db.OrderCollection.Aggregate(ctx, bson.A{
		bson.M{"$match": bson.M{"userId": userID}},
		bson.M{"$group": bson.M{
			"_id":   nil,
			"count": bson.M{"$sum": 1},
			"spent": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$paymentStatus", models.PaymentStatusCompleted}},
				"$totalAmount",
				0,
			}}},
		}},
	})
	if err != nil {
		return userOrderStats{}, err
	}
	var rows []userOrderStats
	if err := cur.All(ctx, &rows); err != nil {
		return userOrderStats{}, err
	}
	if len(rows) == 0 {
		return userOrderStats{}, nil
	}
	return rows[0], nil
}

// updateUser sets fields on another account. Admins cannot change their own
// role or status.
func updateUser(r *http.Request, rawID string, set bson.M) (*models.User, error) {
	adminID, err := utils.UserObjectID(r)
	if err != nil {
		return nil, err
	}
	id, err := utils.ObjectID(rawID)
	if err != nil {
		return nil, err
	}
	if id == adminID {
		return nil, utils.BadRequest("You cannot change your own account here")
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	set["updatedAt"] = time.Now()
	var user models.User
	err = db.UserCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NotFound("User not found")
	}
	if err != nil {
		return nil, utils.Internal("Failed to update user", err)
	}
	return &user, nil
}

// UpdateUserRole handles PUT /api/admin/users/:id/role
func UpdateUserRole(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	var req roleRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		return err
	}
	user, err := updateUser(r, ps.ByName("id"), bson.M{"role": req.Role})
	if err != nil {
		return err
	}
	log.Info().Str("userId", user.ID.Hex()).Str("role", user.Role).Msg("user role changed")
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{
		"message": "User role updated successfully",
		"user":    user,
	})
	return nil
}

// UpdateUserStatus handles PUT /api/admin/users/:id/status. Deactivated
// users can no longer log in; issued tokens stay valid until they expire.
func UpdateUserStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	var req statusRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		return err
	}
	user, err := updateUser(r, ps.ByName("id"), bson.M{"isActive": *req.IsActive})
	if err != nil {
		return err
	}
	msg := "User deactivated successfully"
	if user.IsActive {
		msg = "User activated successfully"
	}
	log.Info().Str("userId", user.ID.Hex()).Bool("isActive", user.IsActive).Msg("user status changed")
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{
		"message": msg,
		"user":    user,
	})
	return nil
}
