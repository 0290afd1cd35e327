package admin

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"storefront/apifeatures"
	"storefront/db"
	"storefront/models"
	"storefront/orders"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// orderQuery maps the "status" shorthand onto orderStatus before the
// generic filters run.
func orderQuery(params url.Values) (bson.M, url.Values, error) {
	base := bson.M{}
	rest := url.Values{}
	for k, v := range params {
		rest[k] = v
	}
	if status := rest.Get("status"); status != "" {
		if !models.IsOrderStatus(status) {
			return nil, nil, utils.BadRequest("Invalid order status: " + status)
		}
		base["orderStatus"] = status
		rest.Del("status")
	}
	return base, rest, nil
}

// ListOrders handles GET /api/admin/orders
func ListOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	base, params, err := orderQuery(r.URL.Query())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	features := apifeatures.New(base, params).Search("orderNumber", "shippingAddress.fullName").Filter().Sort().Paginate(pageSize)
	cur, err := db.OrderCollection.Find(ctx, features.Query, features.Options)
	if err != nil {
		return utils.Internal("Failed to fetch orders", err)
	}
	list := []models.Order{}
	if err := cur.All(ctx, &list); err != nil {
		return utils.Internal("Failed to fetch orders", err)
	}
	total, err := db.OrderCollection.CountDocuments(ctx, features.Query)
	if err != nil {
		return utils.Internal("Failed to count orders", err)
	}

	utils.RespondWithSuccess(w, http.StatusOK, utils.M{
		"orders": list,
		"count":  len(list),
		"total":  total,
		"page":   features.Page,
		"pages":  features.TotalPages(total),
	})
	return nil
}

// GetOrder handles GET /api/admin/orders/:id
func GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	id, err := utils.ObjectID(ps.ByName("id"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	order, err := orders.Find(ctx, id)
	if err != nil {
		return err
	}
	var customer models.User
	lookup := db.UserCollection.FindOne(ctx, bson.M{"_id": order.UserID}).Decode(&customer)
	data, err := orderDetail(order, &customer, lookup)
	if err != nil {
		return err
	}
	utils.RespondWithSuccess(w, http.StatusOK, data)
	return nil
}

// orderDetail pairs an order with its customer. A missing account still
// yields the order; any other lookup failure is an error.
func orderDetail(order *models.Order, customer *models.User, lookupErr error) (utils.M, error) {
	if errors.Is(lookupErr, mongo.ErrNoDocuments) {
		return utils.M{"order": order}, nil
	}
	if lookupErr != nil {
		return nil, utils.Internal("Failed to load customer", lookupErr)
	}
	return utils.M{
		"order": order,
		"customer": utils.M{
			"_id":   customer.ID,
			"name":  customer.Name,
			"email": customer.Email,
			"phone": customer.Phone,
		},
	}, nil
}

// UpdateOrderStatus handles PUT /api/admin/orders/:id/status
func UpdateOrderStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	id, err := utils.ObjectID(ps.ByName("id"))
	if err != nil {
		return err
	}
	var req orders.StatusChange
	if err := utils.DecodeJSON(r, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	order, err := orders.UpdateStatus(ctx, id, req)
	if err != nil {
		return err
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{
		"message": "Order status updated successfully",
		"order":   order,
	})
	return nil
}
