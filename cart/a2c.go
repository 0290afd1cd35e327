package cart

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
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type addRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  *int   `json:"quantity" validate:"omitempty,min=1"`
	Size      string `json:"size"`
}

// quantity defaults to one when omitted.
func (req addRequest) quantity() int {
	if req.Quantity == nil {
		return 1
	}
	return *req.Quantity
}

type updateRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type mergeRequest struct {
	Items []addRequest `json:"items" validate:"required"`
}

// skippedLine reports a guest cart line that could not be merged.
type skippedLine struct {
	ProductID string `json:"productId"`
	Size      string `json:"size,omitempty"`
	Reason    string `json:"reason"`
}

// Load returns the user's cart, or an empty unsaved one.
func Load(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	var c models.Cart
	err := db.CartCollection.FindOne(ctx, bson.M{"userId": userID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return nil, err
	}
	if c.Items == nil {
		c.Items = []models.CartItem{}
	}
	return &c, nil
}

func save(ctx context.Context, c *models.Cart) error {
	now := time.Now()
	_, err := db.CartCollection.UpdateOne(ctx,
		bson.M{"userId": c.UserID},
		bson.M{
			"$set":         bson.M{"items": c.Items, "updatedAt": now},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return utils.Internal("Failed to save cart", err)
	}
	c.UpdatedAt = now
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	return nil
}

func respondCart(w http.ResponseWriter, code int, msg string, c *models.Cart, extra utils.M) {
	data := utils.M{
		"cart":       c,
		"totalItems": c.TotalItems(),
		"totalPrice": c.TotalPrice(),
	}
	if msg != "" {
		data["message"] = msg
	}
	for k, v := range extra {
		data[k] = v
	}
	utils.RespondWithSuccess(w, code, data)
}

// GetCart handles GET /api/cart
func GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	c, err := Load(ctx, userID)
	if err != nil {
		return utils.Internal("Could not retrieve cart", err)
	}
	respondCart(w, http.StatusOK, "", c, nil)
	return nil
}

// AddToCart handles POST /api/cart/add
func AddToCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
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

	product, err := products.GetActive(ctx, productID)
	if err != nil {
		return err
	}
	c, err := Load(ctx, userID)
	if err != nil {
		return utils.Internal("Could not retrieve cart", err)
	}
	if err := addLine(c, product, req.quantity(), req.Size); err != nil {
		return err
	}
	if err := save(ctx, c); err != nil {
		return err
	}
	respondCart(w, http.StatusOK, "Item added to cart", c, nil)
	return nil
}

// UpdateCartItem handles PUT /api/cart/update/:itemId
func UpdateCartItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}
	itemID, err := utils.ObjectID(ps.ByName("itemId"))
	if err != nil {
		return err
	}
	var req updateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	c, err := Load(ctx, userID)
	if err != nil {
		return utils.Internal("Could not retrieve cart", err)
	}
	idx := c.FindLine(itemID)
	if idx < 0 {
		return utils.NotFound("Item not found in cart")
	}
	product, err := products.GetActive(ctx, c.Items[idx].ProductID)
	if err != nil {
		var apiErr *utils.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return utils.NotFound("Product is no longer available")
		}
		return err
	}
	if err := setQuantity(c, idx, product, req.Quantity); err != nil {
		return err
	}
	if err := save(ctx, c); err != nil {
		return err
	}
	respondCart(w, http.StatusOK, "Cart updated", c, nil)
	return nil
}

// RemoveCartItem handles DELETE /api/cart/remove/:itemId
func RemoveCartItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}
	itemID, err := utils.ObjectID(ps.ByName("itemId"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	c, err := Load(ctx, userID)
	if err != nil {
		return utils.Internal("Could not retrieve cart", err)
	}
	if !removeLine(c, itemID) {
		return utils.NotFound("Item not found in cart")
	}
	if err := save(ctx, c); err != nil {
		return err
	}
	respondCart(w, http.StatusOK, "Item removed from cart", c, nil)
	return nil
}

// ClearCart handles DELETE /api/cart/clear
func ClearCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if _, err := db.CartCollection.DeleteOne(ctx, bson.M{"userId": userID}); err != nil {
		return utils.Internal("Failed to clear cart", err)
	}
	respondCart(w, http.StatusOK, "Cart cleared", &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil)
	return nil
}

// MergeCart handles POST /api/cart/merge. Guest lines go through the same
// rules as AddToCart; lines that fail are skipped and reported.
func MergeCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}
	var req mergeRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	c, err := Load(ctx, userID)
	if err != nil {
		return utils.Internal("Could not retrieve cart", err)
	}

	skipped := []skippedLine{}
	for _, line := range req.Items {
		if err := mergeLine(ctx, c, line); err != nil {
			skipped = append(skipped, skippedLine{ProductID: line.ProductID, Size: line.Size, Reason: reason(err)})
		}
	}

	if err := save(ctx, c); err != nil {
		return err
	}
	if len(skipped) > 0 {
		log.Info().Str("userId", userID.Hex()).Int("skipped", len(skipped)).Msg("guest cart merged with skipped lines")
	}
	respondCart(w, http.StatusOK, "Cart merged", c, utils.M{"skipped": skipped})
	return nil
}

func mergeLine(ctx context.Context, c *models.Cart, line addRequest) error {
	productID, err := utils.ObjectID(line.ProductID)
	if err != nil {
		return err
	}
	product, err := products.GetActive(ctx, productID)
	if err != nil {
		return err
	}
	return addLine(c, product, line.quantity(), line.Size)
}

func reason(err error) string {
	var apiErr *utils.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	log.Warn().Err(err).Msg("cart merge line failed")
	return "Could not add item"
}
