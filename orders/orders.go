package orders

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/apifeatures"
	"storefront/cart"
	"storefront/db"
	"storefront/globals"
	"storefront/metrics"
	"storefront/models"
	"storefront/mq"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const myOrdersPageSize = 10

type checkoutRequest struct {
	AddressID       string                  `json:"addressId"`
	ShippingAddress *models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                  `json:"paymentMethod" validate:"omitempty,oneof=cod card upi netbanking"`
	Notes           string                  `json:"notes" validate:"max=500"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// resolveShipping picks the checkout address: an address-book id, an inline
// address, or the default address, in that order.
func resolveShipping(user *models.User, req checkoutRequest) (models.ShippingAddress, error) {
	if req.AddressID != "" {
		id, err := utils.ObjectID(req.AddressID)
		if err != nil {
			return models.ShippingAddress{}, err
		}
		idx, ok := user.FindAddress(id)
		if !ok {
			return models.ShippingAddress{}, utils.NotFound("Address not found")
		}
		return models.ShippingFromAddress(user.Addresses[idx]), nil
	}
	if req.ShippingAddress != nil {
		if err := utils.Validate(req.ShippingAddress); err != nil {
			return models.ShippingAddress{}, err
		}
		return *req.ShippingAddress, nil
	}
	if def, ok := user.DefaultAddress(); ok {
		return models.ShippingFromAddress(def), nil
	}
	return models.ShippingAddress{}, utils.BadRequest("Shipping address is required")
}

// newOrder assembles a pending order from cart lines.
func newOrder(userID primitive.ObjectID, items []models.OrderItem, ship models.ShippingAddress, req checkoutRequest, now time.Time) *models.Order {
	totals := ComputeTotals(items)
	method := req.PaymentMethod
	if method == "" {
		method = "cod"
	}
	return &models.Order{
		ID:              primitive.NewObjectID(),
		UserID:          userID,
		Items:           items,
		ShippingAddress: ship,
		PaymentMethod:   method,
		ItemsPrice:      totals.Items,
		ShippingPrice:   totals.Shipping,
		TaxPrice:        totals.Tax,
		TotalAmount:     totals.Total,
		OrderStatus:     models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		StatusHistory: []models.StatusEntry{{
			Status:    models.OrderStatusPending,
			Note:      "Order placed",
			Timestamp: now,
		}},
		Notes:     strings.TrimSpace(req.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// insertOrder allocates an order number and stores the order. The unique
// index backs the collision check when two checkouts draw the same number.
func insertOrder(ctx context.Context, order *models.Order) error {
	for i := 0; i < orderNumberAttempts; i++ {
		n, err := NewOrderNumber(ctx, orderNumberExists)
		if err != nil {
			return err
		}
		order.OrderNumber = n
		_, err = db.OrderCollection.InsertOne(ctx, order)
		if err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return err
		}
	}
	return ErrOrderNumberExhausted
}

// CreateOrder handles POST /api/orders/create
func CreateOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}
	var req checkoutRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var user models.User
	if err := db.UserCollection.FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return utils.NotFound("User not found")
		}
		return utils.Internal("Failed to create order", err)
	}

	c, err := cart.Load(ctx, userID)
	if err != nil {
		return utils.Internal("Failed to load cart", err)
	}
	if len(c.Items) == 0 {
		return utils.BadRequest("Cart is empty")
	}

	ship, err := resolveShipping(&user, req)
	if err != nil {
		return err
	}

	order := newOrder(userID, itemsFromCart(c), ship, req, time.Now())

	reserved, err := reserveStock(ctx, order.Items)
	if err != nil {
		var apiErr *utils.APIError
		if errors.As(err, &apiErr) {
			metrics.RecordStockRejection()
			return err
		}
		return utils.Internal("Failed to reserve stock", err)
	}

	if err := insertOrder(ctx, order); err != nil {
		releaseStock(ctx, reserved)
		return utils.Internal("Failed to create order", err)
	}

	if _, err := db.CartCollection.DeleteOne(ctx, bson.M{"userId": userID}); err != nil {
		log.Error().Err(err).Str("userId", userID.Hex()).Msg("failed to clear cart after checkout")
	}

	metrics.RecordOrderCreated(order.TotalAmount)
	mq.Emit(ctx, mq.Event{
		Name:        mq.EventOrderCreated,
		OrderID:     order.ID.Hex(),
		OrderNumber: order.OrderNumber,
		UserID:      userID.Hex(),
		Total:       order.TotalAmount,
	})

	log.Info().Str("orderNumber", order.OrderNumber).Str("userId", userID.Hex()).Float64("total", order.TotalAmount).Msg("order placed")
	utils.RespondWithSuccess(w, http.StatusCreated, utils.M{
		"message": "Order placed successfully",
		"order":   order,
	})
	return nil
}

// GetMyOrders handles GET /api/orders/my-orders
func GetMyOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	features := apifeatures.New(nil, r.URL.Query()).Filter().Sort().Paginate(myOrdersPageSize)
	features.Query["userId"] = userID

	cur, err := db.OrderCollection.Find(ctx, features.Query, features.Options)
	if err != nil {
		return utils.Internal("Failed to fetch orders", err)
	}
	orders := []models.Order{}
	if err := cur.All(ctx, &orders); err != nil {
		return utils.Internal("Failed to fetch orders", err)
	}
	total, err := db.OrderCollection.CountDocuments(ctx, features.Query)
	if err != nil {
		return utils.Internal("Failed to count orders", err)
	}

	utils.RespondWithSuccess(w, http.StatusOK, utils.M{
		"orders": orders,
		"count":  len(orders),
		"total":  total,
		"page":   features.Page,
		"pages":  features.TotalPages(total),
	})
	return nil
}

func findOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	err := db.OrderCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NotFound("Order not found")
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// loadVisibleOrder returns the order if the caller owns it or is an admin.
func loadVisibleOrder(ctx context.Context, r *http.Request, rawID string) (*models.Order, error) {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return nil, err
	}
	id, err := utils.ObjectID(rawID)
	if err != nil {
		return nil, err
	}
	order, err := findOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID && utils.GetRoleFromRequest(r) != globals.RoleAdmin {
		return nil, utils.Forbidden("Not authorized to access this order")
	}
	return order, nil
}

// GetOrder handles GET /api/orders/:id
func GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	order, err := loadVisibleOrder(ctx, r, ps.ByName("id"))
	if err != nil {
		return err
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"order": order})
	return nil
}

// CancelOrder handles PUT /api/orders/:id/cancel. Only the owner may cancel,
// and only while the order is pending or confirmed.
func CancelOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}
	id, err := utils.ObjectID(ps.ByName("id"))
	if err != nil {
		return err
	}
	var req cancelRequest
	if err := utils.DecodeOptionalJSON(r, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	order, err := findOrder(ctx, id)
	if err != nil {
		return err
	}
	if order.UserID != userID {
		return utils.Forbidden("Not authorized to cancel this order")
	}
	if !order.IsCancellable() {
		return utils.BadRequest("Order cannot be cancelled in its current status")
	}

	note := strings.TrimSpace(req.Reason)
	if note == "" {
		note = "Cancelled by customer"
	}
	now := time.Now()

	// the status guard in the filter makes a concurrent cancel or ship lose
	var updated models.Order
	err = db.OrderCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "orderStatus": bson.M{"$in": bson.A{models.OrderStatusPending, models.OrderStatusConfirmed}}},
		bson.M{
			"$set": bson.M{
				"orderStatus":   models.OrderStatusCancelled,
				"paymentStatus": models.PaymentStatusRefunded,
				"cancelledAt":   now,
				"updatedAt":     now,
			},
			"$push": bson.M{"statusHistory": models.StatusEntry{
				Status:    models.OrderStatusCancelled,
				Note:      note,
				Timestamp: now,
			}},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return utils.BadRequest("Order cannot be cancelled in its current status")
	}
	if err != nil {
		return utils.Internal("Failed to cancel order", err)
	}

	settleCancellation(ctx, order.OrderStatus, &updated)
	mq.Emit(ctx, mq.Event{
		Name:        mq.EventOrderStatusChanged,
		OrderID:     updated.ID.Hex(),
		OrderNumber: updated.OrderNumber,
		UserID:      updated.UserID.Hex(),
		Status:      updated.OrderStatus,
	})

	utils.RespondWithSuccess(w, http.StatusOK, utils.M{
		"message": "Order cancelled successfully",
		"order":   updated,
	})
	return nil
}

// trackingView is the public subset of an order.
type trackingView struct {
	OrderNumber   string               `json:"orderNumber"`
	OrderStatus   string               `json:"orderStatus"`
	PaymentStatus string               `json:"paymentStatus"`
	ItemCount     int                  `json:"itemCount"`
	City          string               `json:"city"`
	StatusHistory []models.StatusEntry `json:"statusHistory"`
	CreatedAt     time.Time            `json:"createdAt"`
	DeliveredAt   *time.Time           `json:"deliveredAt,omitempty"`
}

func newTrackingView(o *models.Order) trackingView {
	count := 0
	for _, it := range o.Items {
		count += it.Quantity
	}
	return trackingView{
		OrderNumber:   o.OrderNumber,
		OrderStatus:   o.OrderStatus,
		PaymentStatus: o.PaymentStatus,
		ItemCount:     count,
		City:          o.ShippingAddress.City,
		StatusHistory: o.StatusHistory,
		CreatedAt:     o.CreatedAt,
		DeliveredAt:   o.DeliveredAt,
	}
}

// trackingFilter accepts either an order id or an order number.
func trackingFilter(ref string) bson.M {
	if id, err := primitive.ObjectIDFromHex(ref); err == nil {
		return bson.M{"_id": id}
	}
	return bson.M{"orderNumber": strings.ToUpper(strings.TrimSpace(ref))}
}

// TrackOrder handles GET /api/orders/track/:id
func TrackOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	ref := ps.ByName("id")
	if ref == "" {
		return utils.BadRequest("Order reference is required")
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var order models.Order
	err := db.OrderCollection.FindOne(ctx, trackingFilter(ref)).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return utils.NotFound("Order not found")
	}
	if err != nil {
		return utils.Internal("Failed to track order", err)
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"tracking": newTrackingView(&order)})
	return nil
}
