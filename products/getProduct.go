package products

import (
	"context"
	"errors"

	"storefront/db"
	"storefront/models"
	"storefront/rdx"
	"storefront/utils"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// GetActive loads a product that is visible in the catalog. Soft-deleted
// products read as not found.
func GetActive(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	err := db.ProductCollection.FindOne(ctx, bson.M{"_id": id, "isActive": true}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NotFound("Product not found")
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// getCached serves product detail from Redis when possible.
func getCached(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	key := rdx.ProductKey(id.Hex())

	var product models.Product
	hit, err := rdx.GetJSON(ctx, key, &product)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("product cache read failed")
	}
	if hit {
		return &product, nil
	}

	p, err := GetActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := rdx.SetJSON(ctx, key, p, rdx.ProductTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("product cache write failed")
	}
	return p, nil
}

// Invalidate drops the cached detail after a write to the product.
func Invalidate(ctx context.Context, id primitive.ObjectID) {
	if err := rdx.Del(ctx, rdx.ProductKey(id.Hex())); err != nil {
		log.Warn().Err(err).Str("productId", id.Hex()).Msg("product cache invalidation failed")
	}
}
