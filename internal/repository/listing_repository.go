// Package repository is the MongoDB-backed store for listings, leads and
// profiles. Every method translates mongo.ErrNoDocuments into ErrNotFound.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rishabhv97/kiwisqft/internal/db"
	"github.com/rishabhv97/kiwisqft/internal/lifecycle"
	"github.com/rishabhv97/kiwisqft/internal/models"
	"github.com/rishabhv97/kiwisqft/internal/search"
)

var (
	// ErrNotFound is returned when the addressed document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a conditional update lost to a concurrent write.
	ErrConflict = errors.New("document was modified concurrently")
)

// IListingRepository persists listings.
type IListingRepository interface {
	Insert(ctx context.Context, l *models.Listing) error
	Get(ctx context.Context, id string) (*models.Listing, error)
	Find(ctx context.Context, q search.Query, limit int64) ([]models.Listing, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Listing, error)
	UpdateOwned(ctx context.Context, l *models.Listing, expect models.ListingStatus) error
	SetStatus(ctx context.Context, id string, from models.ListingStatus, out lifecycle.Outcome, at time.Time) error
	ReplaceImage(ctx context.Context, id, oldURL, newURL string) error
	IncrementLeadCount(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type listingRepository struct {
	coll *mongo.Collection
}

// NewListingRepository creates a listing repository over the listings collection.
func NewListingRepository(database *mongo.Database) IListingRepository {
	return &listingRepository{coll: database.Collection(db.ListingsCollection)}
}

// Insert stores l under a fresh id, retrying on the unlikely id collision.
func (r *listingRepository) Insert(ctx context.Context, l *models.Listing) error {
	err := db.Try(func() error {
		l.ID = uuid.NewString()
		_, err := r.coll.InsertOne(ctx, l)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert listing for owner %s: %w", l.OwnerID, err)
	}
	return nil
}

func (r *listingRepository) Get(ctx context.Context, id string) (*models.Listing, error) {
	var l models.Listing
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding listing %s: %w", id, err)
	}
	return &l, nil
}

// Find runs q newest first. A non-positive limit returns everything.
func (r *listingRepository) Find(ctx context.Context, q search.Query, limit int64) ([]models.Listing, error) {
	opts := options.Find().SetSort(q.Sort())
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return r.find(ctx, q.Filter(), opts)
}

func (r *listingRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	return r.find(ctx, bson.M{"owner_id": ownerID}, opts)
}

func (r *listingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Listing, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer cursor.Close(ctx)

	listings := []models.Listing{}
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}
	return listings, nil
}

// UpdateOwned writes the owner-editable fields of l. The write only lands if
// the stored listing still belongs to l.OwnerID and is still in status expect.
func (r *listingRepository) UpdateOwned(ctx context.Context, l *models.Listing, expect models.ListingStatus) error {
	set := bson.M{
		"title":            l.Title,
		"description":      l.Description,
		"price":            l.Price,
		"area":             l.Area,
		"bedrooms":         l.Bedrooms,
		"bathrooms":        l.Bathrooms,
		"balconies":        l.Balconies,
		"furnished_status": l.FurnishedStatus,
		"price_negotiable": l.PriceNegotiable,
		"amenities":        l.Amenities,
		"owner_contact":    l.OwnerContact,
		"status":           l.Status,
		"is_verified":      l.IsVerified,
		"updated_at":       l.UpdatedAt,
	}
	unset := bson.M{}
	for field, v := range map[string]*int64{
		"carpet_area":         l.CarpetArea,
		"built_up_area":       l.BuiltUpArea,
		"super_built_up_area": l.SuperBuiltUpArea,
	} {
		if v == nil {
			unset[field] = ""
		} else {
			set[field] = *v
		}
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	filter := bson.M{"_id": l.ID, "owner_id": l.OwnerID, "status": expect}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error updating listing %s: %w", l.ID, err)
	}
	if result.MatchedCount == 0 {
		return r.diagnose(ctx, l.ID)
	}
	return nil
}

// SetStatus applies a moderation outcome only if the listing is still in
// status from, so two admins acting at once cannot both win.
func (r *listingRepository) SetStatus(ctx context.Context, id string, from models.ListingStatus, out lifecycle.Outcome, at time.Time) error {
	filter := bson.M{"_id": id, "status": from}
	update := bson.M{"$set": bson.M{
		"status":      out.Status,
		"is_verified": out.IsVerified,
		"updated_at":  at,
	}}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error moving listing %s to %s: %w", id, out.Status, err)
	}
	if result.MatchedCount == 0 {
		return r.diagnose(ctx, id)
	}
	return nil
}

// diagnose explains why a conditional update matched nothing.
func (r *listingRepository) diagnose(ctx context.Context, id string) error {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to check listing %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return fmt.Errorf("listing %s: %w", id, ErrConflict)
}

// ReplaceImage swaps one image URL for another in place.
func (r *listingRepository) ReplaceImage(ctx context.Context, id, oldURL, newURL string) error {
	filter := bson.M{"_id": id, "images": oldURL}
	update := bson.M{"$set": bson.M{"images.$": newURL}}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to replace image on listing %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *listingRepository) IncrementLeadCount(ctx context.Context, id string) error {
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"lead_count": 1}})
	if err != nil {
		return fmt.Errorf("failed to count lead on listing %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the listing permanently.
func (r *listingRepository) Delete(ctx context.Context, id string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete listing %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
