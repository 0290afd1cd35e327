package paycards

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/db"
	"storefront/models"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type addRequest struct {
	CardholderName string `json:"cardholderName" validate:"required,max=100"`
	CardNumber     string `json:"cardNumber" validate:"required"`
	ExpiryMonth    int    `json:"expiryMonth" validate:"required"`
	ExpiryYear     int    `json:"expiryYear" validate:"required"`
	CVV            string `json:"cvv" validate:"omitempty,numeric,min=3,max=4"`
	IsDefault      bool   `json:"isDefault"`
}

type updateRequest struct {
	CardholderName *string `json:"cardholderName" validate:"omitempty,min=1,max=100"`
	ExpiryMonth    *int    `json:"expiryMonth"`
	ExpiryYear     *int    `json:"expiryYear"`
	IsDefault      *bool   `json:"isDefault"`
}

func activeFilter(userID primitive.ObjectID) bson.M {
	return bson.M{"userId": userID, "isActive": true}
}

func findCard(ctx context.Context, userID primitive.ObjectID, rawID string) (*models.PaymentCard, error) {
	id, err := utils.ObjectID(rawID)
	if err != nil {
		return nil, err
	}
	var card models.PaymentCard
	err = db.PaymentCardCollection.FindOne(ctx, bson.M{"_id": id, "userId": userID, "isActive": true}).Decode(&card)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NotFound("Payment card not found")
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// makeDefault flags id as the user's only default card.
func makeDefault(ctx context.Context, userID, id primitive.ObjectID) error {
	now := time.Now()
	if _, err := db.PaymentCardCollection.UpdateMany(ctx,
		bson.M{"userId": userID, "_id": bson.M{"$ne": id}, "isDefault": true},
		bson.M{"$set": bson.M{"isDefault": false, "updatedAt": now}},
	); err != nil {
		return err
	}
	_, err := db.PaymentCardCollection.UpdateOne(ctx,
		bson.M{"_id": id, "userId": userID, "isActive": true},
		bson.M{"$set": bson.M{"isDefault": true, "updatedAt": now}},
	)
	return err
}

func listCards(ctx context.Context, userID primitive.ObjectID) ([]models.PaymentCard, error) {
	cur, err := db.PaymentCardCollection.Find(ctx, activeFilter(userID),
		options.Find().SetSort(bson.D{{Key: "isDefault", Value: -1}, {Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	cards := []models.PaymentCard{}
	if err := cur.All(ctx, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// GetCards handles GET /api/payment-cards
func GetCards(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	cards, err := listCards(ctx, userID)
	if err != nil {
		return utils.Internal("Failed to fetch payment cards", err)
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"cards": cards})
	return nil
}

// AddCard handles POST /api/payment-cards. Only display data and a keyed
// fingerprint of the number are kept; the number and CVV are discarded.
func AddCard(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}
	var req addRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		return err
	}
	digits, err := normalizeNumber(req.CardNumber)
	if err != nil {
		return err
	}
	year := normalizeYear(req.ExpiryYear)
	if err := checkExpiry(req.ExpiryMonth, year, time.Now()); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	fp := fingerprint(FingerprintKey, digits)
	dup, err := db.PaymentCardCollection.CountDocuments(ctx, bson.M{"userId": userID, "isActive": true, "fingerprint": fp})
	if err != nil {
		return utils.Internal("Failed to add payment card", err)
	}
	if dup > 0 {
		return utils.Conflict("This card is already saved")
	}

	existing, err := db.PaymentCardCollection.CountDocuments(ctx, activeFilter(userID))
	if err != nil {
		return utils.Internal("Failed to add payment card", err)
	}

	now := time.Now()
	card := models.PaymentCard{
		ID:             primitive.NewObjectID(),
		UserID:         userID,
		CardholderName: strings.TrimSpace(req.CardholderName),
		Brand:          detectBrand(digits),
		Last4:          digits[len(digits)-4:],
		ExpiryMonth:    req.ExpiryMonth,
		ExpiryYear:     year,
		Fingerprint:    fp,
		IsDefault:      false,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := db.PaymentCardCollection.InsertOne(ctx, card); err != nil {
		return utils.Internal("Failed to add payment card", err)
	}
	if existing == 0 || req.IsDefault {
		if err := makeDefault(ctx, userID, card.ID); err != nil {
			return utils.Internal("Failed to set default card", err)
		}
		card.IsDefault = true
	}

	log.Info().Str("userId", userID.Hex()).Str("brand", card.Brand).Msg("payment card added")
	utils.RespondWithSuccess(w, http.StatusCreated, utils.M{
		"message": "Payment card added",
		"card":    card,
	})
	return nil
}

// UpdateCard handles PUT /api/payment-cards/:id
func UpdateCard(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}
	var req updateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	card, err := findCard(ctx, userID, ps.ByName("id"))
	if err != nil {
		return err
	}

	set := bson.M{"updatedAt": time.Now()}
	if req.CardholderName != nil {
		set["cardholderName"] = strings.TrimSpace(*req.CardholderName)
	}
	if req.ExpiryMonth != nil || req.ExpiryYear != nil {
		month, year := card.ExpiryMonth, card.ExpiryYear
		if req.ExpiryMonth != nil {
			month = *req.ExpiryMonth
		}
		if req.ExpiryYear != nil {
			year = normalizeYear(*req.ExpiryYear)
		}
		if err := checkExpiry(month, year, time.Now()); err != nil {
			return err
		}
		set["expiryMonth"] = month
		set["expiryYear"] = year
	}

	if _, err := db.PaymentCardCollection.UpdateOne(ctx, bson.M{"_id": card.ID}, bson.M{"$set": set}); err != nil {
		return utils.Internal("Failed to update payment card", err)
	}
	if req.IsDefault != nil && *req.IsDefault && !card.IsDefault {
		if err := makeDefault(ctx, userID, card.ID); err != nil {
			return utils.Internal("Failed to set default card", err)
		}
	}

	updated, err := findCard(ctx, userID, card.ID.Hex())
	if err != nil {
		return err
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{
		"message": "Payment card updated",
		"card":    updated,
	})
	return nil
}

// SetDefaultCard handles PUT /api/payment-cards/:id/default
func SetDefaultCard(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	card, err := findCard(ctx, userID, ps.ByName("id"))
	if err != nil {
		return err
	}
	if err := makeDefault(ctx, userID, card.ID); err != nil {
		return utils.Internal("Failed to set default card", err)
	}
	cards, err := listCards(ctx, userID)
	if err != nil {
		return utils.Internal("Failed to fetch payment cards", err)
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{
		"message": "Default payment card updated",
		"cards":   cards,
	})
	return nil
}

// DeleteCard handles DELETE /api/payment-cards/:id. Cards are soft deleted;
// removing the default promotes the most recently added remaining card.
func DeleteCard(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	userID, err := utils.UserObjectID(r)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	card, err := findCard(ctx, userID, ps.ByName("id"))
	if err != nil {
		return err
	}
	_, err = db.PaymentCardCollection.UpdateOne(ctx,
		bson.M{"_id": card.ID},
		bson.M{"$set": bson.M{"isActive": false, "isDefault": false, "updatedAt": time.Now()}},
	)
	if err != nil {
		return utils.Internal("Failed to delete payment card", err)
	}

	if card.IsDefault {
		var next models.PaymentCard
		err := db.PaymentCardCollection.FindOne(ctx, activeFilter(userID),
			options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})).Decode(&next)
		switch {
		case err == nil:
			if err := makeDefault(ctx, userID, next.ID); err != nil {
				return utils.Internal("Failed to promote default card", err)
			}
		case !errors.Is(err, mongo.ErrNoDocuments):
			return utils.Internal("Failed to promote default card", err)
		}
	}

	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"message": "Payment card removed"})
	return nil
}
