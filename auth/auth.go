package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/db"
	"storefront/globals"
	"storefront/middleware"
	"storefront/models"
	"storefront/rdx"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

var (
	errInvalidCredentials = utils.Unauthorized("Invalid email or password")
	errInvalidMode        = utils.BadRequest("Login mode must be user or admin")
	errUseAdminLogin      = utils.Forbidden("Admin accounts must sign in through the admin login")
	errNotAdmin           = utils.Forbidden("Access denied. This account is not an admin")
	errInactive           = utils.Forbidden("Account is deactivated")
)

type registerRequest struct {
	Name            string `json:"name" validate:"required,max=50"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
	Phone           string `json:"phone" validate:"omitempty,max=20"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Mode     string `json:"mode"`
}

type profileRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=50"`
	Phone *string `json:"phone" validate:"omitempty,max=20"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register handles POST /api/auth/register
func Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	var req registerRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		return err
	}
	if req.Password != req.ConfirmPassword {
		return utils.BadRequest("Passwords do not match")
	}
	email := normalizeEmail(req.Email)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	n, err := db.UserCollection.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return utils.Internal("Failed to register user", err)
	}
	if n > 0 {
		return utils.Conflict("User already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Str("email", email).Msg("failed to hash password")
		return utils.Internal("Failed to register user", err)
	}

	now := time.Now()
	user := models.User{
		ID:        primitive.NewObjectID(),
		Name:      strings.TrimSpace(req.Name),
		Email:     email,
		Password:  string(hashed),
		Role:      globals.RoleUser,
		Phone:     req.Phone,
		Addresses: []models.Address{},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := db.UserCollection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.Conflict("User already exists")
		}
		return utils.Internal("Failed to register user", err)
	}

	token, err := IssueToken(user.ID.Hex(), user.Role)
	if err != nil {
		return utils.Internal("Failed to generate token", err)
	}

	log.Info().Str("userId", user.ID.Hex()).Msg("user registered")
	utils.RespondWithSuccess(w, http.StatusCreated, utils.M{
		"message": "Registration successful",
		"token":   token,
		"user":    user,
	})
	return nil
}

// Login handles POST /api/auth/login. The mode field selects the customer or
// admin sign-in; an account is only accepted through the form for its role.
func Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	var req loginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var user models.User
	err := db.UserCollection.FindOne(ctx, bson.M{"email": normalizeEmail(req.Email)}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errInvalidCredentials
	}
	if err != nil {
		return utils.Internal("Login failed", err)
	}

	if err := checkLoginMode(req.Mode, user.Role); err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return errInvalidCredentials
	}
	if !user.IsActive {
		return errInactive
	}

	token, err := IssueToken(user.ID.Hex(), user.Role)
	if err != nil {
		return utils.Internal("Failed to generate token", err)
	}

	now := time.Now()
	if _, err := db.UserCollection.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{"lastLogin": now}}); err != nil {
		log.Warn().Err(err).Str("userId", user.ID.Hex()).Msg("failed to record last login")
	}
	user.LastLogin = &now

	utils.RespondWithSuccess(w, http.StatusOK, utils.M{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
	return nil
}

// Logout handles POST /api/auth/logout
func Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	jti, _ := r.Context().Value(globals.TokenIDKey).(string)
	expires, ok := middleware.TokenExpiry(r)
	if !ok {
		expires = time.Now().Add(globals.TokenTTL)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := rdx.RevokeToken(ctx, jti, expires); err != nil {
		return utils.Internal("Failed to log out", err)
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"message": "Logged out successfully"})
	return nil
}

func loadUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := db.UserCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NotFound("User not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetProfile handles GET /api/auth/profile
func GetProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	user, err := loadUser(ctx, userID)
	if err != nil {
		return err
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"user": user})
	return nil
}

// UpdateProfile handles PUT /api/auth/profile and /api/auth/update-profile.
// Only the name and phone can change here.
func UpdateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}
	var req profileRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		return err
	}

	set := bson.M{"updatedAt": time.Now()}
	if req.Name != nil {
		set["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		set["phone"] = strings.TrimSpace(*req.Phone)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var user models.User
	err = db.UserCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return utils.NotFound("User not found")
	}
	if err != nil {
		return utils.Internal("Failed to update profile", err)
	}

	utils.RespondWithSuccess(w, http.StatusOK, utils.M{
		"message": "Profile updated successfully",
		"user":    user,
	})
	return nil
}

// ChangePassword handles PUT /api/auth/change-password
func ChangePassword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}
	var req changePasswordRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	user, err := loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return utils.Unauthorized("Current password is incorrect")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return utils.Internal("Failed to change password", err)
	}
	_, err = db.UserCollection.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{
		"password":  string(hashed),
		"updatedAt": time.Now(),
	}})
	if err != nil {
		return utils.Internal("Failed to change password", err)
	}

	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"message": "Password changed successfully"})
	return nil
}
