package services

import (
	"context"
	"io"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"github.com/rishabhv97/kiwisqft/internal/describe"
	"github.com/rishabhv97/kiwisqft/internal/lifecycle"
	"github.com/rishabhv97/kiwisqft/internal/models"
	"github.com/rishabhv97/kiwisqft/internal/search"
)

// MockListingRepository is a mock of repository.IListingRepository.
type MockListingRepository struct {
	mock.Mock
}

func (m *MockListingRepository) Insert(ctx context.Context, l *models.Listing) error {
	args := m.Called(ctx, l)
	if args.Error(0) == nil && l.ID == "" {
		l.ID = "listing-new"
	}
	return args.Error(0)
}

func (m *MockListingRepository) Get(ctx context.Context, id string) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// hand out a copy so the service cannot mutate the fixture
	l := *args.Get(0).(*models.Listing)
	return &l, args.Error(1)
}

func (m *MockListingRepository) Find(ctx context.Context, q search.Query, limit int64) ([]models.Listing, error) {
	args := m.Called(ctx, q, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Listing, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingRepository) UpdateOwned(ctx context.Context, l *models.Listing, expect models.ListingStatus) error {
	return m.Called(ctx, l, expect).Error(0)
}

func (m *MockListingRepository) SetStatus(ctx context.Context, id string, from models.ListingStatus, out lifecycle.Outcome, at time.Time) error {
	return m.Called(ctx, id, from, out, at).Error(0)
}

func (m *MockListingRepository) ReplaceImage(ctx context.Context, id, oldURL, newURL string) error {
	return m.Called(ctx, id, oldURL, newURL).Error(0)
}

func (m *MockListingRepository) IncrementLeadCount(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockListingRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockLeadRepository is a mock of repository.ILeadRepository.
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Insert(ctx context.Context, lead *models.Lead) error {
	args := m.Called(ctx, lead)
	if args.Error(0) == nil {
		lead.ID = "lead-new"
	}
	return args.Error(0)
}

func (m *MockLeadRepository) Get(ctx context.Context, id string) (*models.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

func (m *MockLeadRepository) ListBySeller(ctx context.Context, sellerID string) ([]models.LeadWithListing, error) {
	args := m.Called(ctx, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LeadWithListing), args.Error(1)
}

func (m *MockLeadRepository) MarkNotified(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockImageStore is a mock of storage.IImageStore.
type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) Upload(ctx context.Context, ownerID, filename, contentType string, body io.Reader) (string, string, error) {
	args := m.Called(ctx, ownerID, filename, contentType, body)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockImageStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

func (m *MockImageStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return m.Called(ctx, key, data, contentType).Error(0)
}

func (m *MockImageStore) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func (m *MockImageStore) KeyFromURL(url string) (string, bool) {
	args := m.Called(url)
	return args.String(0), args.Bool(1)
}

// MockSearchCache is a mock of cache.ISearchCache.
type MockSearchCache struct {
	mock.Mock
}

func (m *MockSearchCache) Get(ctx context.Context, key string) ([]models.Listing, int64, bool, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Bool(2), args.Error(3)
	}
	return args.Get(0).([]models.Listing), args.Get(1).(int64), args.Bool(2), args.Error(3)
}

func (m *MockSearchCache) Set(ctx context.Context, gen int64, key string, listings []models.Listing) error {
	return m.Called(ctx, gen, key, listings).Error(0)
}

func (m *MockSearchCache) Invalidate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockTaskClient is a mock of tasks.IAsynqClient.
type MockTaskClient struct {
	mock.Mock
}

func (m *MockTaskClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

// MockDescriber is a mock of describe.IDescriber.
type MockDescriber struct {
	mock.Mock
}

func (m *MockDescriber) Describe(ctx context.Context, req describe.Request) describe.Result {
	return m.Called(ctx, req).Get(0).(describe.Result)
}
