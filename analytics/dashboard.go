// Package analytics computes the admin dashboard figures.
package analytics

import (
	"context"
	"net/http"
	"time"

	"storefront/db"
	"storefront/globals"
	"storefront/models"
	"storefront/rdx"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	topProductsLimit  = 5
	recentOrdersLimit = 5
)

type TopProduct struct {
	ProductID primitive.ObjectID `json:"productId" bson:"_id"`
	Name      string             `json:"name" bson:"name"`
	Image     string             `json:"image,omitempty" bson:"image,omitempty"`
	Sold      int64              `json:"sold" bson:"sold"`
	Revenue   float64            `json:"revenue" bson:"revenue"`
}

type RecentOrder struct {
	ID            primitive.ObjectID `json:"_id" bson:"_id"`
	OrderNumber   string             `json:"orderNumber" bson:"orderNumber"`
	CustomerName  string             `json:"customerName" bson:"customerName"`
	TotalAmount   float64            `json:"totalAmount" bson:"totalAmount"`
	OrderStatus   string             `json:"orderStatus" bson:"orderStatus"`
	PaymentStatus string             `json:"paymentStatus" bson:"paymentStatus"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
}

type Dashboard struct {
	TotalUsers     int64            `json:"totalUsers"`
	TotalProducts  int64            `json:"totalProducts"`
	TotalOrders    int64            `json:"totalOrders"`
	TotalRevenue   float64          `json:"totalRevenue"`
	OrdersByStatus map[string]int64 `json:"ordersByStatus"`
	TopProducts    []TopProduct     `json:"topProducts"`
	RecentOrders   []RecentOrder    `json:"recentOrders"`
	GeneratedAt    time.Time        `json:"generatedAt"`
}

// revenuePipeline sums totals of paid orders.
func revenuePipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"paymentStatus": models.PaymentStatusCompleted}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$totalAmount"}}}},
	}
}

func statusPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$orderStatus", "count": bson.M{"$sum": 1}}}},
	}
}

// topProductsPipeline ranks products by units ordered and joins the current
// product record for its name and image. Cancelled orders do not count.
func topProductsPipeline(limit int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"orderStatus": bson.M{"$ne": models.OrderStatusCancelled}}}},
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$group", Value: bson.M{
			"_id":      "$items.productId",
			"sold":     bson.M{"$sum": "$items.quantity"},
			"revenue":  bson.M{"$sum": bson.M{"$multiply": bson.A{"$items.price", "$items.quantity"}}},
			"lastName": bson.M{"$last": "$items.name"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "sold", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$lookup", Value: bson.M{
			"from":         db.ProductsCollectionName,
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "product",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$product", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$project", Value: bson.M{
			"sold":    1,
			"revenue": 1,
			"name":    bson.M{"$ifNull": bson.A{"$product.name", "$lastName"}},
			"image":   bson.M{"$arrayElemAt": bson.A{"$product.images", 0}},
		}}},
	}
}

func recentOrdersPipeline(limit int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$project", Value: bson.M{
			"orderNumber":   1,
			"totalAmount":   1,
			"orderStatus":   1,
			"paymentStatus": 1,
			"createdAt":     1,
			"customerName":  "$shippingAddress.fullName",
		}}},
	}
}

func aggregate[T any](ctx context.Context, coll *mongo.Collection, pipeline mongo.Pipeline) ([]T, error) {
	cur, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Compute runs every dashboard query against the database.
func Compute(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{OrdersByStatus: map[string]int64{}, GeneratedAt: time.Now()}
	var err error

	if d.TotalUsers, err = db.UserCollection.CountDocuments(ctx, bson.M{"role": globals.RoleUser}); err != nil {
		return nil, err
	}
	if d.TotalProducts, err = db.ProductCollection.CountDocuments(ctx, bson.M{"isActive": true}); err != nil {
		return nil, err
	}
	if d.TotalOrders, err = db.OrderCollection.EstimatedDocumentCount(ctx, options.EstimatedDocumentCount()); err != nil {
		return nil, err
	}

	revenue, err := aggregate[struct {
		Total float64 `bson:"total"`
	}](ctx, db.OrderCollection, revenuePipeline())
	if err != nil {
		return nil, err
	}
	if len(revenue) > 0 {
		d.TotalRevenue = revenue[0].Total
	}

	byStatus, err := aggregate[struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}](ctx, db.OrderCollection, statusPipeline())
	if err != nil {
		return nil, err
	}
	for _, s := range models.OrderStatuses {
		d.OrdersByStatus[s] = 0
	}
	for _, row := range byStatus {
		d.OrdersByStatus[row.Status] = row.Count
	}

	if d.TopProducts, err = aggregate[TopProduct](ctx, db.OrderCollection, topProductsPipeline(topProductsLimit)); err != nil {
		return nil, err
	}
	if d.RecentOrders, err = aggregate[RecentOrder](ctx, db.OrderCollection, recentOrdersPipeline(recentOrdersLimit)); err != nil {
		return nil, err
	}
	return d, nil
}

// cached serves the dashboard from Redis, recomputing on a miss.
func cached(ctx context.Context) (*Dashboard, bool, error) {
	var d Dashboard
	hit, err := rdx.GetJSON(ctx, rdx.DashboardKey, &d)
	if err != nil {
		log.Warn().Err(err).Msg("dashboard cache read failed")
	}
	if hit {
		return &d, true, nil
	}

	fresh, err := Compute(ctx)
	if err != nil {
		return nil, false, err
	}
	if err := rdx.SetJSON(ctx, rdx.DashboardKey, fresh, rdx.DashboardTTL); err != nil {
		log.Warn().Err(err).Msg("dashboard cache write failed")
	}
	return fresh, false, nil
}

// GetDashboard handles GET /api/admin/analytics/dashboard
func GetDashboard(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	d, hit, err := cached(ctx)
	if err != nil {
		return utils.Internal("Failed to compute dashboard", err)
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{
		"dashboard": d,
		"cached":    hit,
	})
	return nil
}
