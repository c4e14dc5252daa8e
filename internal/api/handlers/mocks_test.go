package handlers_test

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"

	"github.com/rishabhv97/kiwisqft/internal/api/middleware"
	"github.com/rishabhv97/kiwisqft/internal/describe"
	"github.com/rishabhv97/kiwisqft/internal/models"
	"github.com/rishabhv97/kiwisqft/internal/search"
	"github.com/rishabhv97/kiwisqft/internal/services"
	"github.com/rishabhv97/kiwisqft/internal/submission"
)

// MockListingService implements services.IListingService
type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) SubmitListing(ctx context.Context, form *submission.Form, ownerID string, image *services.ImageUpload) (*models.Listing, error) {
	args := m.Called(ctx, form, ownerID, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) GetListing(ctx context.Context, id string, actor services.Actor) (*models.Listing, error) {
	args := m.Called(ctx, id, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) UpdateListing(ctx context.Context, id, ownerID string, patch submission.Patch) (*models.Listing, error) {
	args := m.Called(ctx, id, ownerID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) DeleteListing(ctx context.Context, id string, actor services.Actor) error {
	return m.Called(ctx, id, actor).Error(0)
}

func (m *MockListingService) ChangeStatus(ctx context.Context, id string, target models.ListingStatus) (*models.Listing, error) {
	args := m.Called(ctx, id, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) Search(ctx context.Context, sessionID string, intent models.ListingType, criteria search.Criteria) ([]models.Listing, error) {
	args := m.Called(ctx, sessionID, intent, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingService) ListByOwner(ctx context.Context, ownerID string) ([]models.Listing, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingService) ModerationQueue(ctx context.Context, status string) ([]models.Listing, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingService) GenerateDescription(ctx context.Context, req describe.Request) describe.Result {
	return m.Called(ctx, req).Get(0).(describe.Result)
}

// MockLeadService implements services.ILeadService
type MockLeadService struct {
	mock.Mock
}

func (m *MockLeadService) CreateLead(ctx context.Context, listingID string, req services.LeadRequest) (*models.Lead, error) {
	args := m.Called(ctx, listingID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

func (m *MockLeadService) ListLeadsForSeller(ctx context.Context, sellerID string) ([]models.LeadWithListing, error) {
	args := m.Called(ctx, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LeadWithListing), args.Error(1)
}

// asUser stands in for AuthMiddleware.
func asUser(userID string, admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, userID)
		c.Set(middleware.ContextKeyIsAdmin, admin)
		c.Next()
	}
}
