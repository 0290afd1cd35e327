package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentCard holds display data for a saved card. The full number and the
// security code are never stored; Fingerprint is a keyed hash of the number.
type PaymentCard struct {
	ID             primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	UserID         primitive.ObjectID `json:"userId" bson:"userId"`
	CardholderName string             `json:"cardholderName" bson:"cardholderName"`
	Brand          string             `json:"brand" bson:"brand"`
	Last4          string             `json:"last4" bson:"last4"`
	ExpiryMonth    int                `json:"expiryMonth" bson:"expiryMonth"`
	ExpiryYear     int                `json:"expiryYear" bson:"expiryYear"`
	Fingerprint    string             `json:"-" bson:"fingerprint"`
	IsDefault      bool               `json:"isDefault" bson:"isDefault"`
	IsActive       bool               `json:"isActive" bson:"isActive"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Expired reports whether the card expired before now.
func (c *PaymentCard) Expired(now time.Time) bool {
	y, m, _ := now.Date()
	if c.ExpiryYear != y {
		return c.ExpiryYear < y
	}
	return c.ExpiryMonth < int(m)
}
