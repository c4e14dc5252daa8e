package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rishabhv97/kiwisqft/internal/db"
	"github.com/rishabhv97/kiwisqft/internal/models"
)

// UnknownPropertyTitle is shown for leads whose listing has been deleted.
const UnknownPropertyTitle = "Unknown Property"

// ILeadRepository persists buyer leads.
type ILeadRepository interface {
	Insert(ctx context.Context, lead *models.Lead) error
	Get(ctx context.Context, id string) (*models.Lead, error)
	ListBySeller(ctx context.Context, sellerID string) ([]models.LeadWithListing, error)
	MarkNotified(ctx context.Context, id string) error
}

type leadRepository struct {
	coll *mongo.Collection
}

func NewLeadRepository(database *mongo.Database) ILeadRepository {
	return &leadRepository{coll: database.Collection(db.LeadsCollection)}
}

func (r *leadRepository) Insert(ctx context.Context, lead *models.Lead) error {
	err := db.Try(func() error {
		lead.ID = uuid.NewString()
		_, err := r.coll.InsertOne(ctx, lead)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert lead for listing %s: %w", lead.ListingID, err)
	}
	return nil
}

func (r *leadRepository) Get(ctx context.Context, id string) (*models.Lead, error) {
	var lead models.Lead
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&lead); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding lead %s: %w", id, err)
	}
	return &lead, nil
}

// ListBySeller returns the seller's leads newest first, each joined with the
// title of the listing it was sent for.
func (r *leadRepository) ListBySeller(ctx context.Context, sellerID string) ([]models.LeadWithListing, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"seller_id": sellerID}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         db.ListingsCollection,
			"localField":   "property_id",
			"foreignField": "_id",
			"as":           "listing",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"property_title": bson.M{"$ifNull": bson.A{
				bson.M{"$arrayElemAt": bson.A{"$listing.title", 0}},
				UnknownPropertyTitle,
			}},
		}}},
		{{Key: "$project", Value: bson.M{"listing": 0}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads for seller %s: %w", sellerID, err)
	}
	defer cursor.Close(ctx)

	leads := []models.LeadWithListing{}
	if err := cursor.All(ctx, &leads); err != nil {
		return nil, fmt.Errorf("failed to decode leads: %w", err)
	}
	return leads, nil
}

func (r *leadRepository) MarkNotified(ctx context.Context, id string) error {
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"notified": true}})
	if err != nil {
		return fmt.Errorf("failed to mark lead %s notified: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
