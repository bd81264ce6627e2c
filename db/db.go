package db

import (
	"context"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	Client            *mongo.Client
	CartCollection    *mongo.Collection
	OrderCollection   *mongo.Collection
	ProductCollection *mongo.Collection
	UserCollection    *mongo.Collection
)

// Init connects to MongoDB and binds the collection handles. Called once
// from main before any store is constructed.
func Init(ctx context.Context) error {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return err
	}

	Client = client
	database := client.Database("sokodb")
	CartCollection = database.Collection("carts")
	OrderCollection = database.Collection("orders")
	ProductCollection = database.Collection("products")
	UserCollection = database.Collection("users")
	return nil
}

// EnsureIndexes creates the uniqueness constraints the lifecycle engine
// relies on: one cart per user, one order per payment reference.
func EnsureIndexes(ctx context.Context) error {
	_, err := CartCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"userid": 1},
		Options: options.Index().SetUnique(true).SetName("unique_cart_user"),
	})
	if err != nil {
		return err
	}

	_, err = OrderCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.M{"paymentreference": 1},
			Options: options.Index().SetUnique(true).SetName("unique_payment_reference"),
		},
		{
			Keys:    bson.D{{Key: "userid", Value: 1}, {Key: "createdat", Value: -1}},
			Options: options.Index().SetName("user_orders_by_date"),
		},
	})
	return err
}

// IsDuplicateKeyError detects a unique-index violation on insert.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if we, ok := err.(mongo.WriteException); ok {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return false
}

func Close(ctx context.Context) error {
	if Client == nil {
		return nil
	}
	return Client.Disconnect(ctx)
}
