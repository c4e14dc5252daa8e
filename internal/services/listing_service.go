package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rishabhv97/kiwisqft/internal/cache"
	"github.com/rishabhv97/kiwisqft/internal/config"
	"github.com/rishabhv97/kiwisqft/internal/describe"
	"github.com/rishabhv97/kiwisqft/internal/lifecycle"
	"github.com/rishabhv97/kiwisqft/internal/models"
	"github.com/rishabhv97/kiwisqft/internal/repository"
	"github.com/rishabhv97/kiwisqft/internal/search"
	"github.com/rishabhv97/kiwisqft/internal/storage"
	"github.com/rishabhv97/kiwisqft/internal/submission"
	"github.com/rishabhv97/kiwisqft/internal/tasks"
)

// Actor is whoever is making a request. An anonymous visitor has no UserID.
type Actor struct {
	UserID string
	Admin  bool
}

// canSeeUnpublished reports whether a can read l regardless of its status.
func (a Actor) canSeeUnpublished(l *models.Listing) bool {
	return a.Admin || (a.UserID != "" && a.UserID == l.OwnerID)
}

// ImageUpload is the optional photo sent with a new listing.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// IListingService defines the interface for listing-related operations.
type IListingService interface {
	SubmitListing(ctx context.Context, form *submission.Form, ownerID string, image *ImageUpload) (*models.Listing, error)
	GetListing(ctx context.Context, id string, actor Actor) (*models.Listing, error)
	UpdateListing(ctx context.Context, id, ownerID string, patch submission.Patch) (*models.Listing, error)
	DeleteListing(ctx context.Context, id string, actor Actor) error
	ChangeStatus(ctx context.Context, id string, target models.ListingStatus) (*models.Listing, error)
	Search(ctx context.Context, sessionID string, intent models.ListingType, criteria search.Criteria) ([]models.Listing, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Listing, error)
	ModerationQueue(ctx context.Context, status string) ([]models.Listing, error)
	GenerateDescription(ctx context.Context, req describe.Request) describe.Result
}

// listingService implements IListingService.
type listingService struct {
	cfg         *config.Config
	listings    repository.IListingRepository
	images      storage.IImageStore
	describer   describe.IDescriber
	searchCache cache.ISearchCache
	sessions    *search.Sessions
	taskClient  tasks.IAsynqClient
	now         func() time.Time
}

// NewListingService creates a new ListingService.
func NewListingService(
	cfg *config.Config,
	listings repository.IListingRepository,
	images storage.IImageStore,
	describer describe.IDescriber,
	searchCache cache.ISearchCache,
	sessions *search.Sessions,
	taskClient tasks.IAsynqClient,
) IListingService {
	return &listingService{
		cfg:         cfg,
		listings:    listings,
		images:      images,
		describer:   describer,
		searchCache: searchCache,
		sessions:    sessions,
		taskClient:  taskClient,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SubmitListing validates the form, stores the photo and then the listing.
// Nothing is written if validation or the upload fails.
func (s *listingService) SubmitListing(ctx context.Context, form *submission.Form, ownerID string, image *ImageUpload) (*models.Listing, error) {
	listing, err := submission.Assemble(form, ownerID, s.now())
	if err != nil {
		return nil, err
	}
	if image != nil {
		if err := s.checkImage(image); err != nil {
			return nil, err
		}
	}

	var key string
	if image != nil {
		var url string
		key, url, err = s.images.Upload(ctx, ownerID, image.Filename, image.ContentType, image.Body)
		if err != nil {
			return nil, &CollaboratorError{Collaborator: CollaboratorBlob, Op: "upload listing image", Err: err}
		}
		listing.Images = []string{url}
	} else {
		listing.Images = []string{s.cfg.DefaultImageURL}
	}

	if err := s.listings.Insert(ctx, listing); err != nil {
		if key != "" {
			slog.Warn("listing image orphaned by failed insert", "key", key, "owner_id", ownerID)
		}
		return nil, storeErr("save listing", err)
	}
	slog.Info("listing submitted", "listing_id", listing.ID, "owner_id", ownerID, "status", listing.Status)

	if key != "" {
		s.enqueueImageNormalise(ctx, listing.ID, key, listing.Images[0])
	}
	s.invalidateSearch(ctx)
	return listing, nil
}

func (s *listingService) checkImage(image *ImageUpload) error {
	if !strings.HasPrefix(image.ContentType, "image/") {
		return &submission.ValidationError{Field: "image", Reason: "must be an image"}
	}
	if limit := int64(s.cfg.ImageMaxSizeMB) * 1024 * 1024; limit > 0 && image.Size > limit {
		return &submission.ValidationError{Field: "image", Reason: fmt.Sprintf("must be at most %d MB", s.cfg.ImageMaxSizeMB)}
	}
	return nil
}

func (s *listingService) enqueueImageNormalise(ctx context.Context, listingID, key, url string) {
	task, err := tasks.NewImageNormaliseTask(listingID, key, url)
	if err == nil {
		_, err = s.taskClient.EnqueueContext(ctx, task)
	}
	if err != nil {
		slog.Error("failed to enqueue image normalisation", "listing_id", listingID, "key", key, "error", err)
	}
}

func (s *listingService) invalidateSearch(ctx context.Context) {
	if err := s.searchCache.Invalidate(ctx); err != nil {
		slog.Warn("failed to invalidate search cache", "error", err)
	}
}

// GetListing returns a listing. Listings under moderation are only visible to
// their owner and to admins; everyone else gets ErrNotFound.
func (s *listingService) GetListing(ctx context.Context, id string, actor Actor) (*models.Listing, error) {
	listing, err := s.listings.Get(ctx, id)
	if err != nil {
		return nil, storeErr("load listing", err)
	}
	if !listing.PubliclyVisible() && !actor.canSeeUnpublished(listing) {
		return nil, ErrNotFound
	}
	return listing, nil
}

// UpdateListing applies an owner's edit. A change to title, price or area
// sends an approved or rejected listing back to moderation.
func (s *listingService) UpdateListing(ctx context.Context, id, ownerID string, patch submission.Patch) (*models.Listing, error) {
	current, err := s.listings.Get(ctx, id)
	if err != nil {
		return nil, storeErr("load listing", err)
	}
	if current.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	if lifecycle.IsTerminal(current.Status) {
		return nil, ErrListingSold
	}
	if patch.Empty() {
		return current, nil
	}

	updated, material, err := submission.ApplyPatch(current, patch, s.now())
	if err != nil {
		return nil, err
	}
	if material {
		if out, ok := lifecycle.ReviewAfterEdit(current.Status); ok {
			updated.Status = out.Status
			updated.IsVerified = out.IsVerified
		}
	}

	if err := s.listings.UpdateOwned(ctx, updated, current.Status); err != nil {
		return nil, storeErr("update listing", err)
	}
	if updated.Status != current.Status {
		slog.Info("listing returned to moderation after edit", "listing_id", id, "from", current.Status)
	}
	s.invalidateSearch(ctx)
	return updated, nil
}

// DeleteListing removes a listing for good. Only its owner or an admin may.
func (s *listingService) DeleteListing(ctx context.Context, id string, actor Actor) error {
	listing, err := s.listings.Get(ctx, id)
	if err != nil {
		return storeErr("load listing", err)
	}
	if !actor.Admin && listing.OwnerID != actor.UserID {
		return ErrForbidden
	}
	if err := s.listings.Delete(ctx, id); err != nil {
		return storeErr("delete listing", err)
	}
	slog.Info("listing deleted", "listing_id", id, "by", actor.UserID, "admin", actor.Admin)
	s.invalidateSearch(ctx)
	return nil
}

// ChangeStatus moves a listing through moderation. Illegal moves return a
// *lifecycle.InvalidTransitionError and write nothing.
func (s *listingService) ChangeStatus(ctx context.Context, id string, target models.ListingStatus) (*models.Listing, error) {
	listing, err := s.listings.Get(ctx, id)
	if err != nil {
		return nil, storeErr("load listing", err)
	}
	out, err := lifecycle.Plan(listing.Status, target)
	if err != nil {
		return nil, err
	}

	at := s.now()
	if err := s.listings.SetStatus(ctx, id, listing.Status, out, at); err != nil {
		return nil, storeErr("change listing status", err)
	}
	slog.Info("listing status changed", "listing_id", id, "from", listing.Status, "to", out.Status)

	listing.Status = out.Status
	listing.IsVerified = out.IsVerified
	listing.UpdatedAt = at
	s.invalidateSearch(ctx)
	return listing, nil
}

// Search runs the buyer-facing search for intent. Runs sharing a non-empty
// sessionID supersede each other; a superseded run returns
// search.ErrSuperseded.
func (s *listingService) Search(ctx context.Context, sessionID string, intent models.ListingType, criteria search.Criteria) ([]models.Listing, error) {
	q, err := search.Build(intent, criteria)
	if err != nil {
		return nil, err
	}
	return s.sessions.Run(ctx, sessionID, q, s.fetch)
}

func (s *listingService) fetch(ctx context.Context, q search.Query) ([]models.Listing, error) {
	key := q.Key()
	cached, gen, ok, err := s.searchCache.Get(ctx, key)
	if err != nil {
		slog.Warn("search cache read failed", "error", err)
	}
	if ok {
		return cached, nil
	}
	// Without a known generation the result cannot be stored safely.
	fill := err == nil

	listings, err := s.listings.Find(ctx, q, s.cfg.SearchLimit)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, storeErr("search listings", err)
	}
	if fill {
		if err := s.searchCache.Set(ctx, gen, key, listings); err != nil {
			slog.Warn("search cache write failed", "error", err)
		}
	}
	return listings, nil
}

// ListByOwner returns every listing of ownerID, newest first, in any status.
func (s *listingService) ListByOwner(ctx context.Context, ownerID string) ([]models.Listing, error) {
	listings, err := s.listings.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, storeErr("list owner listings", err)
	}
	return listings, nil
}

// ModerationQueue lists listings in status, or in every status for "" and "All".
func (s *listingService) ModerationQueue(ctx context.Context, status string) ([]models.Listing, error) {
	q, err := search.BuildModeration(status)
	if err != nil {
		return nil, err
	}
	listings, err := s.listings.Find(ctx, q, 0)
	if err != nil {
		return nil, storeErr("load moderation queue", err)
	}
	return listings, nil
}

// GenerateDescription drafts listing copy. It never fails; the describer
// substitutes stock text when generation is unavailable.
func (s *listingService) GenerateDescription(ctx context.Context, req describe.Request) describe.Result {
	res := s.describer.Describe(ctx, req)
	if !res.Generated {
		slog.Debug("description fell back to stock text", "title", req.Title)
	}
	return res
}
