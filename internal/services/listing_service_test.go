package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rishabhv97/kiwisqft/internal/config"
	"github.com/rishabhv97/kiwisqft/internal/describe"
	"github.com/rishabhv97/kiwisqft/internal/lifecycle"
	"github.com/rishabhv97/kiwisqft/internal/models"
	"github.com/rishabhv97/kiwisqft/internal/search"
	"github.com/rishabhv97/kiwisqft/internal/submission"
	"github.com/rishabhv97/kiwisqft/internal/tasks"
)

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

const defaultImage = "https://images.example.com/default.jpg"

type listingDeps struct {
	listings  *MockListingRepository
	images    *MockImageStore
	cache     *MockSearchCache
	tasks     *MockTaskClient
	describer *MockDescriber
}

func newTestListingService() (*listingService, listingDeps) {
	d := listingDeps{
		listings:  new(MockListingRepository),
		images:    new(MockImageStore),
		cache:     new(MockSearchCache),
		tasks:     new(MockTaskClient),
		describer: new(MockDescriber),
	}
	cfg := &config.Config{DefaultImageURL: defaultImage, ImageMaxSizeMB: 1, SearchLimit: 200}
	svc := NewListingService(cfg, d.listings, d.images, d.describer, d.cache, search.NewSessions(time.Minute), d.tasks).(*listingService)
	svc.now = func() time.Time { return fixedNow }
	return svc, d
}

func validForm() *submission.Form {
	f := &submission.Form{}
	f.SetBasics(submission.Basics{Title: "3 BHK with park view", PropertyType: "Apartment", ListingType: "sale"})
	f.SetLocation(submission.Location{City: "Noida", Locality: "Sector 62"})
	f.SetProfile(submission.Profile{Bedrooms: "3", SuperBuiltUpArea: "1500"})
	f.SetPrice("1,20,00,000")
	return f
}

func listingIn(status models.ListingStatus) *models.Listing {
	area := int64(1200)
	return &models.Listing{
		ID:          "l1",
		OwnerID:     "owner-1",
		Title:       "2 BHK in Indirapuram",
		ListingType: models.ListingTypeSale,
		City:        "Ghaziabad",
		Locality:    "Indirapuram",
		BuiltUpArea: &area,
		Area:        area,
		Price:       6500000,
		Status:      status,
		IsVerified:  status == models.StatusApproved || status == models.StatusSold,
	}
}

func taskOfType(typ string) interface{} {
	return mock.MatchedBy(func(t *asynq.Task) bool { return t.Type() == typ })
}

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	var ve *submission.ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	assert.Equal(t, field, ve.Field)
}

// --- SubmitListing ---

func TestSubmitListing_WithImage(t *testing.T) {
	svc, d := newTestListingService()
	body := strings.NewReader("jpeg")
	url := "https://cdn.example.com/listings/owner-1/1.png"
	d.images.On("Upload", mock.Anything, "owner-1", "front.png", "image/png", body).Return("listings/owner-1/1.png", url, nil)
	d.listings.On("Insert", mock.Anything, mock.MatchedBy(func(l *models.Listing) bool {
		return l.Status == models.StatusPending && !l.IsVerified &&
			len(l.Images) == 1 && l.Images[0] == url &&
			l.Area == 1500 && l.Price == 12000000 && l.DatePosted.Equal(fixedNow)
	})).Return(nil)
	d.tasks.On("EnqueueContext", mock.Anything, taskOfType(tasks.TypeImageNormalise)).Return(&asynq.TaskInfo{}, nil)
	d.cache.On("Invalidate", mock.Anything).Return(nil)

	l, err := svc.SubmitListing(context.Background(), validForm(), "owner-1", &ImageUpload{
		Filename: "front.png", ContentType: "image/png", Size: 4, Body: body,
	})

	require.NoError(t, err)
	assert.Equal(t, "listing-new", l.ID)
	d.images.AssertExpectations(t)
	d.listings.AssertExpectations(t)
	d.tasks.AssertExpectations(t)
	d.cache.AssertExpectations(t)
}

func TestSubmitListing_WithoutImageUsesDefault(t *testing.T) {
	svc, d := newTestListingService()
	d.listings.On("Insert", mock.Anything, mock.MatchedBy(func(l *models.Listing) bool {
		return len(l.Images) == 1 && l.Images[0] == defaultImage
	})).Return(nil)
	d.cache.On("Invalidate", mock.Anything).Return(nil)

	_, err := svc.SubmitListing(context.Background(), validForm(), "owner-1", nil)

	require.NoError(t, err)
	d.listings.AssertExpectations(t)
	d.tasks.AssertNotCalled(t, "EnqueueContext", mock.Anything, mock.Anything)
}

func TestSubmitListing_ValidationBeforeAnyIO(t *testing.T) {
	svc, d := newTestListingService()
	f := validForm()
	f.SetLocation(submission.Location{City: "Noida"})

	_, err := svc.SubmitListing(context.Background(), f, "owner-1", &ImageUpload{
		Filename: "a.jpg", ContentType: "image/jpeg", Body: strings.NewReader("x"),
	})

	requireValidation(t, err, "location")
	d.images.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	d.listings.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestSubmitListing_RejectsNonImageAndOversize(t *testing.T) {
	svc, _ := newTestListingService()

	_, err := svc.SubmitListing(context.Background(), validForm(), "owner-1", &ImageUpload{
		Filename: "a.pdf", ContentType: "application/pdf", Body: strings.NewReader("x"),
	})
	requireValidation(t, err, "image")

	_, err = svc.SubmitListing(context.Background(), validForm(), "owner-1", &ImageUpload{
		Filename: "a.jpg", ContentType: "image/jpeg", Size: 2 * 1024 * 1024, Body: strings.NewReader("x"),
	})
	requireValidation(t, err, "image")
}

func TestSubmitListing_UploadFailureWritesNothing(t *testing.T) {
	svc, d := newTestListingService()
	d.images.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", "", errors.New("access denied"))

	l, err := svc.SubmitListing(context.Background(), validForm(), "owner-1", &ImageUpload{
		Filename: "a.jpg", ContentType: "image/jpeg", Body: strings.NewReader("x"),
	})

	assert.Nil(t, l)
	var ce *CollaboratorError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, CollaboratorBlob, ce.Collaborator)
	d.listings.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	d.cache.AssertNotCalled(t, "Invalidate", mock.Anything)
}

func TestSubmitListing_StoreFailure(t *testing.T) {
	svc, d := newTestListingService()
	d.listings.On("Insert", mock.Anything, mock.Anything).Return(errors.New("no primary"))

	_, err := svc.SubmitListing(context.Background(), validForm(), "owner-1", nil)

	var ce *CollaboratorError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, CollaboratorStore, ce.Collaborator)
	assert.ErrorContains(t, err, "no primary")
}

func TestSubmitListing_EnqueueFailureIsNotFatal(t *testing.T) {
	svc, d := newTestListingService()
	d.images.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("k.jpg", "https://cdn.example.com/k.jpg", nil)
	d.listings.On("Insert", mock.Anything, mock.Anything).Return(nil)
	d.tasks.On("EnqueueContext", mock.Anything, mock.Anything).Return(nil, errors.New("redis down"))
	d.cache.On("Invalidate", mock.Anything).Return(nil)

	l, err := svc.SubmitListing(context.Background(), validForm(), "owner-1", &ImageUpload{
		Filename: "k.jpg", ContentType: "image/jpeg", Body: strings.NewReader("x"),
	})

	require.NoError(t, err)
	assert.NotNil(t, l)
}

// --- GetListing ---

func TestGetListing_Visibility(t *testing.T) {
	svc, d := newTestListingService()
	d.listings.On("Get", mock.Anything, "pending").Return(listingIn(models.StatusPending), nil)
	d.listings.On("Get", mock.Anything, "sold").Return(listingIn(models.StatusSold), nil)
	ctx := context.Background()

	_, err := svc.GetListing(ctx, "pending", Actor{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetListing(ctx, "pending", Actor{UserID: "someone-else"})
	assert.ErrorIs(t, err, ErrNotFound)

	l, err := svc.GetListing(ctx, "pending", Actor{UserID: "owner-1"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, l.Status)

	_, err = svc.GetListing(ctx, "pending", Actor{UserID: "admin-1", Admin: true})
	assert.NoError(t, err)

	_, err = svc.GetListing(ctx, "sold", Actor{})
	assert.NoError(t, err)
}

func TestGetListing_Missing(t *testing.T) {
	svc, d := newTestListingService()
	d.listings.On("Get", mock.Anything, "nope").Return(nil, ErrNotFound)

	_, err := svc.GetListing(context.Background(), "nope", Actor{})

	assert.ErrorIs(t, err, ErrNotFound)
	var ce *CollaboratorError
	assert.False(t, errors.As(err, &ce))
}

// --- UpdateListing ---

func TestUpdateListing_MaterialEditReturnsToModeration(t *testing.T) {
	svc, d := newTestListingService()
	d.listings.On("Get", mock.Anything, "l1").Return(listingIn(models.StatusApproved), nil)
	d.listings.On("UpdateOwned", mock.Anything, mock.MatchedBy(func(l *models.Listing) bool {
		return l.Status == models.StatusPending && !l.IsVerified && l.Price == 7000000
	}), models.StatusApproved).Return(nil)
	d.cache.On("Invalidate", mock.Anything).Return(nil)

	price := int64(7000000)
	l, err := svc.UpdateListing(context.Background(), "l1", "owner-1", submission.Patch{Price: &price})

	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, l.Status)
	d.listings.AssertExpectations(t)
}

func TestUpdateListing_MinorEditKeepsApproval(t *testing.T) {
	svc, d := newTestListingService()
	d.listings.On("Get", mock.Anything, "l1").Return(listingIn(models.StatusApproved), nil)
	d.listings.On("UpdateOwned", mock.Anything, mock.MatchedBy(func(l *models.Listing) bool {
		return l.Status == models.StatusApproved && l.IsVerified && l.Description == "Corner unit"
	}), models.StatusApproved).Return(nil)
	d.cache.On("Invalidate", mock.Anything).Return(nil)

	desc := "Corner unit"
	l, err := svc.UpdateListing(context.Background(), "l1", "owner-1", submission.Patch{Description: &desc})

	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, l.Status)
}

func TestUpdateListing_Refusals(t *testing.T) {
	svc, d := newTestListingService()
	d.listings.On("Get", mock.Anything, "l1").Return(listingIn(models.StatusApproved), nil)
	d.listings.On("Get", mock.Anything, "sold").Return(listingIn(models.StatusSold), nil)
	title := "New title"
	ctx := context.Background()

	_, err := svc.UpdateListing(ctx, "l1", "intruder", submission.Patch{Title: &title})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.UpdateListing(ctx, "sold", "owner-1", submission.Patch{Title: &title})
	assert.ErrorIs(t, err, ErrListingSold)

	blank := " "
	_, err = svc.UpdateListing(ctx, "l1", "owner-1", submission.Patch{Title: &blank})
	requireValidation(t, err, "title")

	d.listings.AssertNotCalled(t, "UpdateOwned", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateListing_ConcurrentModeration(t *testing.T) {
	svc, d := newTestListingService()
	d.listings.On("Get", mock.Anything, "l1").Return(listingIn(models.StatusPending), nil)
	d.listings.On("UpdateOwned", mock.Anything, mock.Anything, models.StatusPending).Return(ErrConflict)

	title := "Updated"
	_, err := svc.UpdateListing(context.Background(), "l1", "owner-1", submission.Patch{Title: &title})

	assert.ErrorIs(t, err, ErrConflict)
}

// --- DeleteListing ---

func TestDeleteListing(t *testing.T) {
	svc, d := newTestListingService()
	d.listings.On("Get", mock.Anything, "l1").Return(listingIn(models.StatusApproved), nil)
	d.listings.On("Delete", mock.Anything, "l1").Return(nil)
	d.cache.On("Invalidate", mock.Anything).Return(nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.DeleteListing(ctx, "l1", Actor{UserID: "intruder"}), ErrForbidden)
	assert.NoError(t, svc.DeleteListing(ctx, "l1", Actor{UserID: "owner-1"}))
	assert.NoError(t, svc.DeleteListing(ctx, "l1", Actor{UserID: "admin-1", Admin: true}))
	d.listings.AssertNumberOfCalls(t, "Delete", 2)
}

// --- ChangeStatus ---

func TestChangeStatus_Approve(t *testing.T) {
	svc, d := newTestListingService()
	d.listings.On("Get", mock.Anything, "l1").Return(listingIn(models.StatusPending), nil)
	d.listings.On("SetStatus", mock.Anything, "l1", models.StatusPending,
		lifecycle.Outcome{Status: models.StatusApproved, IsVerified: true}, fixedNow).Return(nil)
	d.cache.On("Invalidate", mock.Anything).Return(nil)

	l, err := svc.ChangeStatus(context.Background(), "l1", models.StatusApproved)

	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, l.Status)
	assert.True(t, l.IsVerified)
	assert.Equal(t, fixedNow, l.UpdatedAt)
	d.listings.AssertExpectations(t)
}

func TestChangeStatus_IllegalMoveWritesNothing(t *testing.T) {
	svc, d := newTestListingService()
	d.listings.On("Get", mock.Anything, "sold").Return(listingIn(models.StatusSold), nil)

	_, err := svc.ChangeStatus(context.Background(), "sold", models.StatusApproved)
	var ite *lifecycle.InvalidTransitionError
	require.True(t, errors.As(err, &ite))
	assert.False(t, ite.Unknown)

	_, err = svc.ChangeStatus(context.Background(), "sold", "Archived")
	require.True(t, errors.As(err, &ite))
	assert.True(t, ite.Unknown)

	d.listings.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestChangeStatus_LostRace(t *testing.T) {
	svc, d := newTestListingService()
	d.listings.On("Get", mock.Anything, "l1").Return(listingIn(models.StatusPending), nil)
	d.listings.On("SetStatus", mock.Anything, "l1", models.StatusPending, mock.Anything, mock.Anything).Return(ErrConflict)

	_, err := svc.ChangeStatus(context.Background(), "l1", models.StatusRejected)

	assert.ErrorIs(t, err, ErrConflict)
}

// --- Search ---

func isApprovedSale(q search.Query) bool {
	return q.Status != nil && *q.Status == models.StatusApproved && q.ListingType == models.ListingTypeSale
}

func TestSearch_CacheMissQueriesStore(t *testing.T) {
	svc, d := newTestListingService()
	found := []models.Listing{*listingIn(models.StatusApproved)}
	d.cache.On("Get", mock.Anything, mock.Anything).Return(nil, int64(7), false, nil)
	d.listings.On("Find", mock.Anything, mock.MatchedBy(isApprovedSale), int64(200)).Return(found, nil)
	d.cache.On("Set", mock.Anything, int64(7), mock.Anything, found).Return(nil)

	got, err := svc.Search(context.Background(), "", models.ListingTypeSale, search.Criteria{City: "ghaziabad"})

	require.NoError(t, err)
	assert.Equal(t, found, got)
	d.cache.AssertExpectations(t)
}

func TestSearch_CacheHit(t *testing.T) {
	svc, d := newTestListingService()
	cached := []models.Listing{*listingIn(models.StatusApproved)}
	d.cache.On("Get", mock.Anything, mock.Anything).Return(cached, int64(0), true, nil)

	got, err := svc.Search(context.Background(), "s1", models.ListingTypeSale, search.DefaultCriteria())

	require.NoError(t, err)
	assert.Equal(t, cached, got)
	d.listings.AssertNotCalled(t, "Find", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearch_CacheErrorFallsThrough(t *testing.T) {
	svc, d := newTestListingService()
	d.cache.On("Get", mock.Anything, mock.Anything).Return(nil, int64(0), false, errors.New("redis down"))
	d.listings.On("Find", mock.Anything, mock.Anything, mock.Anything).Return([]models.Listing{}, nil)

	got, err := svc.Search(context.Background(), "", models.ListingTypeRent, search.DefaultCriteria())

	require.NoError(t, err)
	assert.Empty(t, got)
	d.cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSearch_CacheWriteFailureIsIgnored(t *testing.T) {
	svc, d := newTestListingService()
	d.cache.On("Get", mock.Anything, mock.Anything).Return(nil, int64(3), false, nil)
	d.listings.On("Find", mock.Anything, mock.Anything, mock.Anything).Return([]models.Listing{}, nil)
	d.cache.On("Set", mock.Anything, int64(3), mock.Anything, mock.Anything).Return(errors.New("redis down"))

	_, err := svc.Search(context.Background(), "", models.ListingTypeRent, search.DefaultCriteria())

	require.NoError(t, err)
	d.cache.AssertExpectations(t)
}

func TestSearch_InvalidIntent(t *testing.T) {
	svc, _ := newTestListingService()
	_, err := svc.Search(context.Background(), "", "lease", search.DefaultCriteria())
	assert.ErrorIs(t, err, search.ErrInvalidIntent)
}

func TestSearch_NewerRunSupersedesOlder(t *testing.T) {
	svc, d := newTestListingService()
	started := make(chan struct{})
	newer := []models.Listing{*listingIn(models.StatusApproved)}

	d.cache.On("Get", mock.Anything, mock.Anything).Return(nil, int64(0), false, nil)
	d.listings.On("Find", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			close(started)
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.Canceled).Once()
	d.listings.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(newer, nil).Once()
	d.cache.On("Set", mock.Anything, int64(0), mock.Anything, newer).Return(nil)

	older := make(chan error, 1)
	go func() {
		_, err := svc.Search(context.Background(), "tab-1", models.ListingTypeSale, search.Criteria{FreeText: "vil"})
		older <- err
	}()
	<-started

	got, err := svc.Search(context.Background(), "tab-1", models.ListingTypeSale, search.Criteria{FreeText: "villa"})
	require.NoError(t, err)
	assert.Equal(t, newer, got)

	select {
	case err := <-older:
		assert.ErrorIs(t, err, search.ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded search never returned")
	}
}

// --- Owner and admin lists ---

func TestModerationQueue(t *testing.T) {
	svc, d := newTestListingService()
	pending := []models.Listing{*listingIn(models.StatusPending)}
	d.listings.On("Find", mock.Anything, mock.MatchedBy(func(q search.Query) bool {
		return q.Status != nil && *q.Status == models.StatusPending
	}), int64(0)).Return(pending, nil)

	got, err := svc.ModerationQueue(context.Background(), "Pending")
	require.NoError(t, err)
	assert.Equal(t, pending, got)

	_, err = svc.ModerationQueue(context.Background(), "Archived")
	assert.ErrorIs(t, err, search.ErrInvalidStatus)
}

func TestListByOwner_StoreFailure(t *testing.T) {
	svc, d := newTestListingService()
	d.listings.On("ListByOwner", mock.Anything, "owner-1").Return(nil, errors.New("timeout"))

	_, err := svc.ListByOwner(context.Background(), "owner-1")

	var ce *CollaboratorError
	assert.True(t, errors.As(err, &ce))
}

func TestGenerateDescription(t *testing.T) {
	svc, d := newTestListingService()
	req := describe.Request{Title: "Sea-facing villa", PropertyType: "Villa", Location: "Goa"}
	d.describer.On("Describe", mock.Anything, req).Return(describe.Result{Text: describe.FallbackNoKey})

	res := svc.GenerateDescription(context.Background(), req)

	assert.Equal(t, describe.FallbackNoKey, res.Text)
	assert.False(t, res.Generated)
}
