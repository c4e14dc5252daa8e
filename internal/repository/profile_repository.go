package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rishabhv97/kiwisqft/internal/db"
	"github.com/rishabhv97/kiwisqft/internal/models"
)

// IProfileRepository reads user profiles written by the identity provider.
type IProfileRepository interface {
	Get(ctx context.Context, id string) (*models.Profile, error)
}

type profileRepository struct {
	coll *mongo.Collection
}

func NewProfileRepository(database *mongo.Database) IProfileRepository {
	return &profileRepository{coll: database.Collection(db.ProfilesCollection)}
}

func (r *profileRepository) Get(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding profile %s: %w", id, err)
	}
	return &p, nil
}
