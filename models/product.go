package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID            primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name          string             `json:"name" bson:"name"`
	Description   string             `json:"description" bson:"description"`
	Price         float64            `json:"price" bson:"price"`
	DiscountPrice *float64           `json:"discountPrice,omitempty" bson:"discountPrice,omitempty"`
	Category      string             `json:"category" bson:"category"`
	Brand         string             `json:"brand,omitempty" bson:"brand,omitempty"`
	Images        []string           `json:"images" bson:"images"`
	Stock         int                `json:"stock" bson:"stock"`
	Sizes         []SizeStock        `json:"sizes,omitempty" bson:"sizes,omitempty"`
	Reviews       []Review           `json:"reviews" bson:"reviews"`
	Rating        float64            `json:"rating" bson:"rating"`
	NumReviews    int                `json:"numReviews" bson:"numReviews"`
	IsActive      bool               `json:"isActive" bson:"isActive"`
	IsFeatured    bool               `json:"isFeatured" bson:"isFeatured"`
	CreatedBy     primitive.ObjectID `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// SizeStock tracks stock for one size of a product.
type SizeStock struct {
	Size  string `json:"size" bson:"size" validate:"required"`
	Stock int    `json:"stock" bson:"stock" validate:"gte=0"`
}

type Review struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	Name      string             `json:"name" bson:"name"`
	Rating    int                `json:"rating" bson:"rating"`
	Comment   string             `json:"comment" bson:"comment"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// EffectivePrice is the discount price when set, otherwise the list price.
func (p *Product) EffectivePrice() float64 {
	if p.DiscountPrice != nil && *p.DiscountPrice > 0 {
		return *p.DiscountPrice
	}
	return p.Price
}

// HasSizes reports whether stock is tracked per size.
func (p *Product) HasSizes() bool {
	return len(p.Sizes) > 0
}

// SizeStock returns the stock for size and whether the size exists.
func (p *Product) SizeStock(size string) (int, bool) {
	for _, s := range p.Sizes {
		if s.Size == size {
			return s.Stock, true
		}
	}
	return 0, false
}

// Available returns the stock that applies to a line with the given size.
func (p *Product) Available(size string) (int, bool) {
	if p.HasSizes() {
		return p.SizeStock(size)
	}
	return p.Stock, true
}

// TotalStock sums per-size stock, or returns the plain stock.
func (p *Product) TotalStock() int {
	if !p.HasSizes() {
		return p.Stock
	}
	total := 0
	for _, s := range p.Sizes {
		total += s.Stock
	}
	return total
}

// RecalculateRating derives Rating and NumReviews from the full review list.
func (p *Product) RecalculateRating() {
	p.NumReviews = len(p.Reviews)
	if p.NumReviews == 0 {
		p.Rating = 0
		return
	}
	sum := 0
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	p.Rating = float64(sum) / float64(p.NumReviews)
}

// HasReviewFrom reports whether userID already reviewed the product.
func (p *Product) HasReviewFrom(userID primitive.ObjectID) bool {
	for _, r := range p.Reviews {
		if r.UserID == userID {
			return true
		}
	}
	return false
}
