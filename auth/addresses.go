package auth

import (
	"context"
	"net/http"
	"time"

	"storefront/db"
	"storefront/models"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type addressRequest struct {
	FullName   string `json:"fullName" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country" validate:"required"`
	IsDefault  bool   `json:"isDefault"`
}

func (req addressRequest) toAddress(id primitive.ObjectID) models.Address {
	return models.Address{
		ID:         id,
		FullName:   req.FullName,
		Phone:      req.Phone,
		Street:     req.Street,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		IsDefault:  req.IsDefault,
	}
}

func clearDefaults(list []models.Address) {
	for i := range list {
		list[i].IsDefault = false
	}
}

// appendAddress adds addr to the book. The first address is always the
// default; a new default displaces the old one.
func appendAddress(list []models.Address, addr models.Address) []models.Address {
	if len(list) == 0 {
		addr.IsDefault = true
	}
	if addr.IsDefault {
		clearDefaults(list)
	}
	return append(list, addr)
}

// replaceAddress overwrites the entry at idx. Clearing the flag on the
// current default is ignored so the book never ends up without one.
func replaceAddress(list []models.Address, idx int, addr models.Address) {
	wasDefault := list[idx].IsDefault
	addr.ID = list[idx].ID
	if addr.IsDefault {
		clearDefaults(list)
	} else if wasDefault {
		addr.IsDefault = true
	}
	list[idx] = addr
}

// removeAddress deletes the entry with id. The default address cannot be
// removed.
func removeAddress(list []models.Address, id primitive.ObjectID) ([]models.Address, error) {
	for i, a := range list {
		if a.ID != id {
			continue
		}
		if a.IsDefault {
			return nil, utils.BadRequest("Cannot delete default address. Set another address as default first")
		}
		return append(list[:i:i], list[i+1:]...), nil
	}
	return nil, utils.NotFound("Address not found")
}

// saveAddresses writes the book back, guarded on the version that was read.
func saveAddresses(ctx context.Context, user *models.User) error {
	if user.Addresses == nil {
		user.Addresses = []models.Address{}
	}
	now := time.Now()
	res, err := db.UserCollection.UpdateOne(ctx,
		bson.M{"_id": user.ID, "updatedAt": user.UpdatedAt},
		bson.M{"$set": bson.M{"addresses": user.Addresses, "updatedAt": now}},
	)
	if err != nil {
		return utils.Internal("Failed to save addresses", err)
	}
	if res.MatchedCount == 0 {
		return utils.Conflict("Address book was modified concurrently, please retry")
	}
	user.UpdatedAt = now
	return nil
}

func respondAddresses(w http.ResponseWriter, code int, msg string, list []models.Address) {
	data := utils.M{"addresses": list}
	if msg != "" {
		data["message"] = msg
	}
	utils.RespondWithSuccess(w, code, data)
}

// AddAddress handles POST /api/auth/addresses
func AddAddress(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}
	var req addressRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	user, err := loadUser(ctx, userID)
	if err != nil {
		return err
	}
	user.Addresses = appendAddress(user.Addresses, req.toAddress(primitive.NewObjectID()))
	if err := saveAddresses(ctx, user); err != nil {
		return err
	}
	respondAddresses(w, http.StatusCreated, "Address added successfully", user.Addresses)
	return nil
}

// GetAddresses handles GET /api/auth/addresses
func GetAddresses(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
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
	if user.Addresses == nil {
		user.Addresses = []models.Address{}
	}
	respondAddresses(w, http.StatusOK, "", user.Addresses)
	return nil
}

// UpdateAddress handles PUT /api/auth/addresses/:id
func UpdateAddress(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}
	addressID, err := utils.ObjectID(ps.ByName("id"))
	if err != nil {
		return err
	}
	var req addressRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	user, err := loadUser(ctx, userID)
	if err != nil {
		return err
	}
	idx, ok := user.FindAddress(addressID)
	if !ok {
		return utils.NotFound("Address not found")
	}
	replaceAddress(user.Addresses, idx, req.toAddress(addressID))
	if err := saveAddresses(ctx, user); err != nil {
		return err
	}
	respondAddresses(w, http.StatusOK, "Address updated successfully", user.Addresses)
	return nil
}

// DeleteAddress handles DELETE /api/auth/addresses/:id
func DeleteAddress(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}
	addressID, err := utils.ObjectID(ps.ByName("id"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	user, err := loadUser(ctx, userID)
	if err != nil {
		return err
	}
	list, err := removeAddress(user.Addresses, addressID)
	if err != nil {
		return err
	}
	user.Addresses = list
	if err := saveAddresses(ctx, user); err != nil {
		return err
	}
	respondAddresses(w, http.StatusOK, "Address deleted successfully", user.Addresses)
	return nil
}
