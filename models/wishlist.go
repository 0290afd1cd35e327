package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Wishlist struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	Items     []WishlistItem     `json:"items" bson:"items"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type WishlistItem struct {
	ProductID primitive.ObjectID `json:"productId" bson:"productId"`
	AddedAt   time.Time          `json:"addedAt" bson:"addedAt"`
}

// Contains reports whether productID is already on the list.
func (w *Wishlist) Contains(productID primitive.ObjectID) bool {
	for _, it := range w.Items {
		if it.ProductID == productID {
			return true
		}
	}
	return false
}
