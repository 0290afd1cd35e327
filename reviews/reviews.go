package reviews

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/db"
	"storefront/models"
	"storefront/products"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type reviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required,max=1000"`
}

// deriveRating recomputes rating and numReviews from the stored list, so
// concurrent appends always converge on the true mean.
var deriveRating = mongo.Pipeline{{{Key: "$set", Value: bson.D{
	{Key: "numReviews", Value: bson.D{{Key: "$size", Value: "$reviews"}}},
	{Key: "rating", Value: bson.D{{Key: "$ifNull", Value: bson.A{
		bson.D{{Key: "$avg", Value: "$reviews.rating"}}, 0,
	}}}},
}}}}

// hasDeliveredPurchase reports whether the user received an order containing
// the product.
func hasDeliveredPurchase(ctx context.Context, userID, productID primitive.ObjectID) (bool, error) {
	n, err := db.OrderCollection.CountDocuments(ctx, bson.M{
		"userId":          userID,
		"orderStatus":     models.OrderStatusDelivered,
		"items.productId": productID,
	}, options.Count().SetLimit(1))
	return n > 0, err
}

// AddReview handles POST /api/products/:id/review
func AddReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}
	productID, err := utils.ObjectID(ps.ByName("id"))
	if err != nil {
		return err
	}
	var req reviewRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	product, err := products.GetActive(ctx, productID)
	if err != nil {
		return err
	}
	if product.HasReviewFrom(userID) {
		return utils.Conflict("Product already reviewed")
	}

	ok, err := hasDeliveredPurchase(ctx, userID, productID)
	if err != nil {
		return utils.Internal("Failed to verify purchase", err)
	}
	if !ok {
		return utils.BadRequest("You can only review products from delivered orders")
	}

	var user models.User
	if err := db.UserCollection.FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return utils.NotFound("User not found")
		}
		return utils.Internal("Failed to add review", err)
	}

	review := models.Review{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Name:      user.Name,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
		CreatedAt: time.Now(),
	}

	// the $ne guard makes the append itself the one-review-per-user check
	filter := bson.M{"_id": productID, "isActive": true, "reviews.userId": bson.M{"$ne": userID}}
	res, err := db.ProductCollection.UpdateOne(ctx, filter, bson.M{"$push": bson.M{"reviews": review}})
	if err != nil {
		return utils.Internal("Failed to add review", err)
	}
	if res.ModifiedCount == 0 {
		return utils.Conflict("Product already reviewed")
	}

	var updated models.Product
	err = db.ProductCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": productID},
		deriveRating,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return utils.Internal("Failed to update rating", err)
	}
	products.Invalidate(ctx, productID)

	log.Info().Str("productId", productID.Hex()).Str("userId", userID.Hex()).Int("rating", req.Rating).Msg("review added")
	utils.RespondWithSuccess(w, http.StatusCreated, utils.M{
		"message":    "Review added successfully",
		"review":     review,
		"rating":     updated.Rating,
		"numReviews": updated.NumReviews,
	})
	return nil
}
