package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Email     string             `json:"email" bson:"email"`
	Password  string             `json:"-" bson:"password"`
	Role      string             `json:"role" bson:"role"`
	Phone     string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Addresses []Address          `json:"addresses" bson:"addresses"`
	IsActive  bool               `json:"isActive" bson:"isActive"`
	LastLogin *time.Time         `json:"lastLogin,omitempty" bson:"lastLogin,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Address is an entry in a user's address book.
type Address struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id"`
	FullName   string             `json:"fullName" bson:"fullName" validate:"required"`
	Phone      string             `json:"phone" bson:"phone" validate:"required"`
	Street     string             `json:"street" bson:"street" validate:"required"`
	City       string             `json:"city" bson:"city" validate:"required"`
	State      string             `json:"state" bson:"state" validate:"required"`
	PostalCode string             `json:"postalCode" bson:"postalCode" validate:"required"`
	Country    string             `json:"country" bson:"country" validate:"required"`
	IsDefault  bool               `json:"isDefault" bson:"isDefault"`
}

// DefaultAddress returns the flagged default address, if any.
func (u *User) DefaultAddress() (Address, bool) {
	for _, a := range u.Addresses {
		if a.IsDefault {
			return a, true
		}
	}
	return Address{}, false
}

// FindAddress looks an address up by its id.
func (u *User) FindAddress(id primitive.ObjectID) (int, bool) {
	for i, a := range u.Addresses {
		if a.ID == id {
			return i, true
		}
	}
	return -1, false
}

// IsAdmin reports whether the account carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}
