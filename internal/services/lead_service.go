package services

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/rishabhv97/kiwisqft/internal/models"
	"github.com/rishabhv97/kiwisqft/internal/repository"
	"github.com/rishabhv97/kiwisqft/internal/submission"
	"github.com/rishabhv97/kiwisqft/internal/tasks"
)

// LeadRequest is a buyer's enquiry as submitted. BuyerID is empty for
// anonymous visitors.
type LeadRequest struct {
	BuyerID string `json:"-"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// ILeadService routes buyer enquiries to sellers.
type ILeadService interface {
	CreateLead(ctx context.Context, listingID string, req LeadRequest) (*models.Lead, error)
	ListLeadsForSeller(ctx context.Context, sellerID string) ([]models.LeadWithListing, error)
}

type leadService struct {
	listings   repository.IListingRepository
	leads      repository.ILeadRepository
	taskClient tasks.IAsynqClient
	now        func() time.Time
}

func NewLeadService(listings repository.IListingRepository, leads repository.ILeadRepository, taskClient tasks.IAsynqClient) ILeadService {
	return &leadService{
		listings:   listings,
		leads:      leads,
		taskClient: taskClient,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// minPhoneDigits rejects obviously truncated numbers without assuming a format.
const minPhoneDigits = 7

func validateLead(req *LeadRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.TrimSpace(req.Message)

	if req.Name == "" {
		return &submission.ValidationError{Field: "name", Reason: "is required"}
	}
	if req.Phone == "" {
		return &submission.ValidationError{Field: "phone", Reason: "is required"}
	}
	digits := 0
	for _, r := range req.Phone {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if digits < minPhoneDigits {
		return &submission.ValidationError{Field: "phone", Reason: "is not a phone number"}
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return &submission.ValidationError{Field: "email", Reason: "is not an e-mail address"}
		}
	}
	return nil
}

// CreateLead records an enquiry about an approved listing and queues the
// seller's notification.
func (s *leadService) CreateLead(ctx context.Context, listingID string, req LeadRequest) (*models.Lead, error) {
	if err := validateLead(&req); err != nil {
		return nil, err
	}

	listing, err := s.listings.Get(ctx, listingID)
	if err != nil {
		return nil, storeErr("load listing", err)
	}
	if listing.Status != models.StatusApproved {
		return nil, ErrNotAcceptingLeads
	}

	lead := &models.Lead{
		ListingID:  listing.ID,
		SellerID:   listing.OwnerID,
		BuyerID:    req.BuyerID,
		BuyerName:  req.Name,
		BuyerPhone: req.Phone,
		BuyerEmail: req.Email,
		Message:    req.Message,
		CreatedAt:  s.now(),
	}
	if err := s.leads.Insert(ctx, lead); err != nil {
		return nil, storeErr("save lead", err)
	}
	log := slog.With("lead_id", lead.ID, "listing_id", listing.ID)
	log.Info("lead created")

	if err := s.listings.IncrementLeadCount(ctx, listing.ID); err != nil {
		log.Warn("failed to count lead", "error", err)
	}

	task, err := tasks.NewLeadNotifyTask(lead.ID)
	if err == nil {
		_, err = s.taskClient.EnqueueContext(ctx, task)
	}
	if err != nil {
		log.Error("failed to enqueue lead notification", "error", err)
	}
	return lead, nil
}

// ListLeadsForSeller returns the seller's leads newest first.
func (s *leadService) ListLeadsForSeller(ctx context.Context, sellerID string) ([]models.LeadWithListing, error) {
	leads, err := s.leads.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, storeErr("list leads", err)
	}
	return leads, nil
}
