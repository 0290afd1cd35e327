package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/db"
	"storefront/globals"
	"storefront/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

// EnsureAdmin creates an active admin account for email, or promotes and
// reactivates the existing one. A non-empty password replaces the stored
// hash. created reports whether a new account was inserted.
func EnsureAdmin(ctx context.Context, name, email, password string) (user *models.User, created bool, err error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, false, errors.New("email is required")
	}

	var hashed string
	if password != "" {
		if len(password) < 6 {
			return nil, false, errors.New("password must be at least 6 characters")
		}
		b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, false, fmt.Errorf("hash password: %w", err)
		}
		hashed = string(b)
	}

	now := time.Now()
	set := bson.M{"role": globals.RoleAdmin, "isActive": true, "updatedAt": now}
	if hashed != "" {
		set["password"] = hashed
	}
	var existing models.User
	err = db.UserCollection.FindOneAndUpdate(ctx,
		bson.M{"email": email},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&existing)
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, fmt.Errorf("promote admin: %w", err)
	}

	if hashed == "" {
		return nil, false, errors.New("password is required for a new account")
	}
	if strings.TrimSpace(name) == "" {
		name = "Administrator"
	}
	user = &models.User{
		ID:        primitive.NewObjectID(),
		Name:      strings.TrimSpace(name),
		Email:     email,
		Password:  hashed,
		Role:      globals.RoleAdmin,
		Addresses: []models.Address{},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := db.UserCollection.InsertOne(ctx, user); err != nil {
		return nil, false, fmt.Errorf("create admin: %w", err)
	}
	return user, true, nil
}
