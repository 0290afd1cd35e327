package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/db"
	"storefront/metrics"
	"storefront/models"
	"storefront/products"
	"storefront/utils"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Seams over the collections; tests swap them.
var (
	invalidateProduct = products.Invalidate
	claimRelease      = claimReleaseInDB
	returnStock       = restoreOrderStock
)

// reservation is a stock decrement that has been applied and can be undone.
type reservation struct {
	item  models.OrderItem
	sized bool
}

// reserveOps builds the conditional decrement for one line. The stock
// predicate sits in the filter, so the update only matches while enough
// units remain. ok is false when the line's size no longer exists on a sized
// product; such lines are not decremented.
func reserveOps(p *models.Product, item models.OrderItem) (filter, update bson.M, sized, ok bool) {
	if p.HasSizes() {
		if _, found := p.SizeStock(item.Size); !found {
			return nil, nil, true, false
		}
		filter = bson.M{
			"_id":      p.ID,
			"isActive": true,
			"sizes": bson.M{"$elemMatch": bson.M{
				"size":  item.Size,
				"stock": bson.M{"$gte": item.Quantity},
			}},
		}
		update = bson.M{"$inc": bson.M{"sizes.$.stock": -item.Quantity}}
		return filter, update, true, true
	}
	filter = bson.M{"_id": p.ID, "isActive": true, "stock": bson.M{"$gte": item.Quantity}}
	update = bson.M{"$inc": bson.M{"stock": -item.Quantity}}
	return filter, update, false, true
}

// releaseOps builds the increment that returns a line's units.
func releaseOps(item models.OrderItem, sized bool) (filter, update bson.M) {
	if sized {
		return bson.M{"_id": item.ProductID, "sizes.size": item.Size},
			bson.M{"$inc": bson.M{"sizes.$.stock": item.Quantity}}
	}
	return bson.M{"_id": item.ProductID}, bson.M{"$inc": bson.M{"stock": item.Quantity}}
}

// reserveStock decrements stock for every line, or for none: if any line
// cannot be reserved the earlier ones are released before returning.
func reserveStock(ctx context.Context, items []models.OrderItem) ([]reservation, error) {
	done := make([]reservation, 0, len(items))
	for _, item := range items {
		var p models.Product
		err := db.ProductCollection.FindOne(ctx, bson.M{"_id": item.ProductID, "isActive": true}).Decode(&p)
		if errors.Is(err, mongo.ErrNoDocuments) {
			releaseStock(ctx, done)
			return nil, utils.BadRequest(fmt.Sprintf("Product %s is no longer available", item.Name))
		}
		if err != nil {
			releaseStock(ctx, done)
			return nil, fmt.Errorf("load product %s: %w", item.ProductID.Hex(), err)
		}

		filter, update, sized, ok := reserveOps(&p, item)
		if !ok {
			log.Warn().Str("productId", p.ID.Hex()).Str("size", item.Size).Msg("size missing at checkout, stock not decremented")
			continue
		}
		res, err := db.ProductCollection.UpdateOne(ctx, filter, update)
		if err != nil {
			releaseStock(ctx, done)
			return nil, fmt.Errorf("reserve product %s: %w", item.ProductID.Hex(), err)
		}
		if res.ModifiedCount == 0 {
			releaseStock(ctx, done)
			return nil, utils.BadRequest(insufficientStockMessage(item))
		}
		done = append(done, reservation{item: item, sized: sized})
	}
	invalidateAll(ctx, done)
	return done, nil
}

// invalidateAll drops the cached detail of every product in done, once each.
func invalidateAll(ctx context.Context, done []reservation) {
	seen := make(map[primitive.ObjectID]bool, len(done))
	for _, r := range done {
		if seen[r.item.ProductID] {
			continue
		}
		seen[r.item.ProductID] = true
		invalidateProduct(ctx, r.item.ProductID)
	}
}

func insufficientStockMessage(item models.OrderItem) string {
	if item.Size != "" {
		return fmt.Sprintf("Insufficient stock for %s (size %s)", item.Name, item.Size)
	}
	return fmt.Sprintf("Insufficient stock for %s", item.Name)
}

// releaseStock undoes reservations. Failures are logged; there is nothing
// left to roll back to.
func releaseStock(ctx context.Context, done []reservation) {
	if len(done) == 0 {
		return
	}
	// compensation must run even if the request context is already done
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	for i := len(done) - 1; i >= 0; i-- {
		r := done[i]
		filter, update := releaseOps(r.item, r.sized)
		if _, err := db.ProductCollection.UpdateOne(ctx, filter, update); err != nil {
			log.Error().Err(err).Str("productId", r.item.ProductID.Hex()).Int("quantity", r.item.Quantity).Msg("failed to release stock")
		}
	}
	invalidateAll(ctx, done)
}

// restoreOrderStock returns the units of a cancelled order. A line with a
// size is treated as per-size stock.
func restoreOrderStock(ctx context.Context, items []models.OrderItem) {
	done := make([]reservation, 0, len(items))
	for _, it := range items {
		done = append(done, reservation{item: it, sized: it.Size != ""})
	}
	releaseStock(ctx, done)
}

// releaseClaim matches a cancelled order whose units are still out of stock
// and marks them returned. It matches at most once per order.
func releaseClaim(id primitive.ObjectID) (filter, update bson.M) {
	filter = bson.M{
		"_id":           id,
		"orderStatus":   models.OrderStatusCancelled,
		"stockReleased": bson.M{"$ne": true},
	}
	update = bson.M{"$set": bson.M{"stockReleased": true}}
	return filter, update
}

func claimReleaseInDB(ctx context.Context, id primitive.ObjectID) (bool, error) {
	filter, update := releaseClaim(id)
	res, err := db.OrderCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// settleCancellation returns the units of an order that just moved from prev
// to cancelled. An order that was cancelled before, then reopened and
// cancelled again, does not return them a second time.
func settleCancellation(ctx context.Context, prev string, o *models.Order) bool {
	if !restocks(prev, o.OrderStatus) {
		return false
	}
	claimed, err := claimRelease(ctx, o.ID)
	if err != nil {
		log.Error().Err(err).Str("orderNumber", o.OrderNumber).Msg("failed to claim stock release")
		return false
	}
	if !claimed {
		log.Info().Str("orderNumber", o.OrderNumber).Msg("stock already released for order")
		return false
	}
	o.StockReleased = true
	returnStock(ctx, o.Items)
	metrics.RecordOrderCancelled()
	return true
}
