package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ProductsCollectionName is referenced by $lookup stages.
const ProductsCollectionName = "products"

var (
	Client   *mongo.Client
	Database *mongo.Database

	UserCollection         *mongo.Collection
	ProductCollection      *mongo.Collection
	CartCollection         *mongo.Collection
	OrderCollection        *mongo.Collection
	WishlistCollection     *mongo.Collection
	NotificationCollection *mongo.Collection
	PaymentCardCollection  *mongo.Collection
)

// Connect opens the MongoDB client and binds the collection handles.
func Connect(ctx context.Context, uri, database string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("ping mongodb: %w", err)
	}

	Client = client
	Database = client.Database(database)

	UserCollection = Database.Collection("users")
	ProductCollection = Database.Collection(ProductsCollectionName)
	CartCollection = Database.Collection("carts")
	OrderCollection = Database.Collection("orders")
	WishlistCollection = Database.Collection("wishlists")
	NotificationCollection = Database.Collection("notifications")
	PaymentCardCollection = Database.Collection("paymentcards")

	log.Info().Str("database", database).Msg("Connected to MongoDB")
	return nil
}

// Disconnect closes the client if one is open.
func Disconnect(ctx context.Context) error {
	if Client == nil {
		return nil
	}
	return Client.Disconnect(ctx)
}

// EnsureIndexes creates the unique and lookup indexes the handlers rely on.
func EnsureIndexes(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		UserCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		ProductCollection: {
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "isActive", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		CartCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		OrderCollection: {
			{Keys: bson.D{{Key: "orderNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "items.productId", Value: 1}, {Key: "orderStatus", Value: 1}}},
		},
		WishlistCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		NotificationCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		PaymentCardCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "isActive", Value: 1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}
