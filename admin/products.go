// Package admin holds the back-office handlers. Every route here sits behind
// Authenticate and RequireAdmin.
package admin

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/apifeatures"
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

const pageSize = 20

type productRequest struct {
	Name          string             `json:"name" validate:"required,max=200"`
	Description   string             `json:"description" validate:"required"`
	Price         float64            `json:"price" validate:"required,gt=0"`
	DiscountPrice *float64           `json:"discountPrice" validate:"omitempty,gte=0"`
	Category      string             `json:"category" validate:"required"`
	Brand         string             `json:"brand"`
	Images        []string           `json:"images"`
	Stock         int                `json:"stock" validate:"gte=0"`
	Sizes         []models.SizeStock `json:"sizes" validate:"omitempty,dive"`
	IsFeatured    bool               `json:"isFeatured"`
}

// productPatch carries only the fields present in the request.
type productPatch struct {
	Name          *string             `json:"name" validate:"omitempty,min=1,max=200"`
	Description   *string             `json:"description" validate:"omitempty,min=1"`
	Price         *float64            `json:"price" validate:"omitempty,gt=0"`
	DiscountPrice *float64            `json:"discountPrice" validate:"omitempty,gte=0"`
	Category      *string             `json:"category" validate:"omitempty,min=1"`
	Brand         *string             `json:"brand"`
	Images        *[]string           `json:"images"`
	Stock         *int                `json:"stock" validate:"omitempty,gte=0"`
	Sizes         *[]models.SizeStock `json:"sizes" validate:"omitempty,dive"`
	IsFeatured    *bool               `json:"isFeatured"`
	IsActive      *bool               `json:"isActive"`
}

func checkDiscount(price float64, discount *float64) error {
	if discount != nil && *discount > 0 && *discount >= price {
		return utils.BadRequest("Discount price must be lower than price")
	}
	return nil
}

func checkSizes(sizes []models.SizeStock) error {
	seen := make(map[string]bool, len(sizes))
	for _, s := range sizes {
		if seen[s.Size] {
			return utils.BadRequest("Duplicate size: " + s.Size)
		}
		seen[s.Size] = true
	}
	return nil
}

func (req productRequest) toProduct(createdBy primitive.ObjectID, now time.Time) *models.Product {
	images := req.Images
	if images == nil {
		images = []string{}
	}
	return &models.Product{
		ID:            primitive.NewObjectID(),
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Price:         req.Price,
		DiscountPrice: req.DiscountPrice,
		Category:      strings.TrimSpace(req.Category),
		Brand:         strings.TrimSpace(req.Brand),
		Images:        images,
		Stock:         req.Stock,
		Sizes:         req.Sizes,
		Reviews:       []models.Review{},
		IsActive:      true,
		IsFeatured:    req.IsFeatured,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// setFields turns a patch into a $set document. The discount is checked
// against the effective price after the patch.
func (p productPatch) setFields(current *models.Product, now time.Time) (bson.M, error) {
	set := bson.M{"updatedAt": now}
	price := current.Price
	if p.Price != nil {
		price = *p.Price
		set["price"] = price
	}
	discount := current.DiscountPrice
	if p.DiscountPrice != nil {
		discount = p.DiscountPrice
		set["discountPrice"] = *p.DiscountPrice
	}
	if err := checkDiscount(price, discount); err != nil {
		return nil, err
	}
	if p.Sizes != nil {
		if err := checkSizes(*p.Sizes); err != nil {
			return nil, err
		}
		set["sizes"] = *p.Sizes
	}
	if p.Name != nil {
		set["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Category != nil {
		set["category"] = strings.TrimSpace(*p.Category)
	}
	if p.Brand != nil {
		set["brand"] = strings.TrimSpace(*p.Brand)
	}
	if p.Images != nil {
		set["images"] = *p.Images
	}
	if p.Stock != nil {
		set["stock"] = *p.Stock
	}
	if p.IsFeatured != nil {
		set["isFeatured"] = *p.IsFeatured
	}
	if p.IsActive != nil {
		set["isActive"] = *p.IsActive
	}
	return set, nil
}

func findProduct(ctx context.Context, rawID string) (*models.Product, error) {
	id, err := utils.ObjectID(rawID)
	if err != nil {
		return nil, err
	}
	var product models.Product
	err = db.ProductCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NotFound("Product not found")
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct handles POST /api/admin/products
func CreateProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	adminID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}
	var req productRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		return err
	}
	if err := checkDiscount(req.Price, req.DiscountPrice); err != nil {
		return err
	}
	if err := checkSizes(req.Sizes); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	product := req.toProduct(adminID, time.Now())
	if _, err := db.ProductCollection.InsertOne(ctx, product); err != nil {
		return utils.Internal("Failed to create product", err)
	}

	log.Info().Str("productId", product.ID.Hex()).Str("name", product.Name).Msg("product created")
	utils.RespondWithSuccess(w, http.StatusCreated, utils.M{
		"message": "Product created successfully",
		"product": product,
	})
	return nil
}

// ListProducts handles GET /api/admin/products. Inactive products are
// included unless filtered with isActive=true.
func ListProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	features := apifeatures.New(nil, r.URL.Query()).Search(products.SearchFields...).Filter().Sort().Paginate(pageSize)
	features.Options.SetProjection(bson.M{"reviews": 0})

	cur, err := db.ProductCollection.Find(ctx, features.Query, features.Options)
	if err != nil {
		return utils.Internal("Failed to fetch products", err)
	}
	list := []models.Product{}
	if err := cur.All(ctx, &list); err != nil {
		return utils.Internal("Failed to fetch products", err)
	}
	total, err := db.ProductCollection.CountDocuments(ctx, features.Query)
	if err != nil {
		return utils.Internal("Failed to count products", err)
	}

	utils.RespondWithSuccess(w, http.StatusOK, utils.M{
		"products": list,
		"count":    len(list),
		"total":    total,
		"page":     features.Page,
		"pages":    features.TotalPages(total),
	})
	return nil
}

// GetProduct handles GET /api/admin/products/:id
func GetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	product, err := findProduct(ctx, ps.ByName("id"))
	if err != nil {
		return err
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"product": product})
	return nil
}

// UpdateProduct handles PUT /api/admin/products/:id
func UpdateProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	var patch productPatch
	if err := utils.DecodeJSON(r, &patch); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	current, err := findProduct(ctx, ps.ByName("id"))
	if err != nil {
		return err
	}
	set, err := patch.setFields(current, time.Now())
	if err != nil {
		return err
	}

	var updated models.Product
	err = db.ProductCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": current.ID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return utils.NotFound("Product not found")
	}
	if err != nil {
		return utils.Internal("Failed to update product", err)
	}
	products.Invalidate(ctx, current.ID)

	utils.RespondWithSuccess(w, http.StatusOK, utils.M{
		"message": "Product updated successfully",
		"product": updated,
	})
	return nil
}

// DeleteProduct handles DELETE /api/admin/products/:id. Products are only
// deactivated so existing orders keep resolving them.
func DeleteProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	id, err := utils.ObjectID(ps.ByName("id"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := db.ProductCollection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now()}},
	)
	if err != nil {
		return utils.Internal("Failed to delete product", err)
	}
	if res.MatchedCount == 0 {
		return utils.NotFound("Product not found")
	}
	products.Invalidate(ctx, id)

	log.Info().Str("productId", id.Hex()).Msg("product deactivated")
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"message": "Product deleted successfully"})
	return nil
}
