package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names.
const (
	ListingsCollection = "listings"
	LeadsCollection    = "leads"
	ProfilesCollection = "profiles"
)

// ConnectDB initializes and returns a MongoDB client and database instance.
func ConnectDB(uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	ctxPing, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	slog.Info("connected to MongoDB", "database", dbName)
	return client, client.Database(dbName), nil
}

// EnsureIndexes creates the indexes the search and dashboard queries rely on.
// It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	listings := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "listing_type", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "price", Value: 1}}},
	}
	if _, err := db.Collection(ListingsCollection).Indexes().CreateMany(ctx, listings); err != nil {
		return fmt.Errorf("failed to create listing indexes: %w", err)
	}
	leads := []mongo.IndexModel{
		{Keys: bson.D{{Key: "seller_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if _, err := db.Collection(LeadsCollection).Indexes().CreateMany(ctx, leads); err != nil {
		return fmt.Errorf("failed to create lead indexes: %w", err)
	}
	return nil
}

// DisconnectDB closes the MongoDB client connection.
func DisconnectDB(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	slog.Info("MongoDB connection closed")
	return nil
}
