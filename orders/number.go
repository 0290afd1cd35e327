package orders

import (
	"context"
	"errors"
	"fmt"

	"storefront/db"
	"storefront/utils"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	orderNumberPrefix   = "ORD"
	orderNumberDigits   = 5
	orderNumberAttempts = 5
)

var ErrOrderNumberExhausted = errors.New("could not allocate a unique order number")

// NewOrderNumber draws "ORD" plus random digits until exists reports the
// number as free.
func NewOrderNumber(ctx context.Context, exists func(context.Context, string) (bool, error)) (string, error) {
	for i := 0; i < orderNumberAttempts; i++ {
		n := orderNumberPrefix + utils.GenerateRandomDigitString(orderNumberDigits)
		taken, err := exists(ctx, n)
		if err != nil {
			return "", fmt.Errorf("check order number: %w", err)
		}
		if !taken {
			return n, nil
		}
	}
	return "", ErrOrderNumberExhausted
}

func orderNumberExists(ctx context.Context, n string) (bool, error) {
	count, err := db.OrderCollection.CountDocuments(ctx, bson.M{"orderNumber": n})
	return count > 0, err
}
