package wishlist

import (
	"context"
	"errors"
	"net/http"
	"time"

	"storefront/db"
	"storefront/models"
	"storefront/products"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type addRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

// entry is a wishlist line joined with its product.
type entry struct {
	Product models.Product `json:"product"`
	AddedAt time.Time      `json:"addedAt"`
}

// populate joins items with active products, newest first. Lines whose
// product is gone or deactivated are left out.
func populate(ctx context.Context, userID primitive.ObjectID) ([]entry, error) {
	var wl models.Wishlist
	err := db.WishlistCollection.FindOne(ctx, bson.M{"userId": userID}).Decode(&wl)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []entry{}, nil
		}
		return nil, err
	}
	if len(wl.Items) == 0 {
		return []entry{}, nil
	}

	ids := make([]primitive.ObjectID, 0, len(wl.Items))
	for _, it := range wl.Items {
		ids = append(ids, it.ProductID)
	}
	cur, err := db.ProductCollection.Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "isActive": true},
		options.Find().SetProjection(bson.M{"reviews": 0}),
	)
	if err != nil {
		return nil, err
	}
	var found []models.Product
	if err := cur.All(ctx, &found); err != nil {
		return nil, err
	}
	return joinItems(wl.Items, found), nil
}

func joinItems(items []models.WishlistItem, found []models.Product) []entry {
	byID := make(map[primitive.ObjectID]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]entry, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		if p, ok := byID[items[i].ProductID]; ok {
			out = append(out, entry{Product: p, AddedAt: items[i].AddedAt})
		}
	}
	return out
}

// GetWishlist handles GET /api/wishlist
func GetWishlist(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	items, err := populate(ctx, userID)
	if err != nil {
		return utils.Internal("Failed to fetch wishlist", err)
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"items": items, "count": len(items)})
	return nil
}

// AddToWishlist handles POST /api/wishlist
func AddToWishlist(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}
	var req addRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		return err
	}
	productID, err := utils.ObjectID(req.ProductID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if _, err := products.GetActive(ctx, productID); err != nil {
		return err
	}

	now := time.Now()
	// the $ne guard turns a duplicate add into a no-op we can detect
	res, err := db.WishlistCollection.UpdateOne(ctx,
		bson.M{"userId": userID, "items.productId": bson.M{"$ne": productID}},
		bson.M{
			"$push":        bson.M{"items": models.WishlistItem{ProductID: productID, AddedAt: now}},
			"$set":         bson.M{"updatedAt": now},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		// the upsert collides with the unique userId index when the
		// product is already listed
		if mongo.IsDuplicateKeyError(err) {
			return utils.Conflict("Product already in wishlist")
		}
		return utils.Internal("Failed to update wishlist", err)
	}
	if res.ModifiedCount == 0 && res.UpsertedCount == 0 {
		return utils.Conflict("Product already in wishlist")
	}

	utils.RespondWithSuccess(w, http.StatusCreated, utils.M{"message": "Added to wishlist", "productId": productID})
	return nil
}

// CheckWishlist handles GET /api/wishlist/check/:productId
func CheckWishlist(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}
	productID, err := utils.ObjectID(ps.ByName("productId"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	n, err := db.WishlistCollection.CountDocuments(ctx, bson.M{"userId": userID, "items.productId": productID})
	if err != nil {
		return utils.Internal("Failed to check wishlist", err)
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"inWishlist": n > 0})
	return nil
}

// RemoveFromWishlist handles DELETE /api/wishlist/:productId
func RemoveFromWishlist(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}
	productID, err := utils.ObjectID(ps.ByName("productId"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := db.WishlistCollection.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{
			"$pull": bson.M{"items": bson.M{"productId": productID}},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return utils.Internal("Failed to update wishlist", err)
	}
	if res.ModifiedCount == 0 {
		return utils.NotFound("Product not in wishlist")
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"message": "Removed from wishlist"})
	return nil
}

// ClearWishlist handles DELETE /api/wishlist
func ClearWishlist(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	_, err = db.WishlistCollection.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$set": bson.M{"items": []models.WishlistItem{}, "updatedAt": time.Now()}},
	)
	if err != nil {
		return utils.Internal("Failed to clear wishlist", err)
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"message": "Wishlist cleared"})
	return nil
}
