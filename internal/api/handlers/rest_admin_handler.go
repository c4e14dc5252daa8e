package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rishabhv97/kiwisqft/internal/lifecycle"
	"github.com/rishabhv97/kiwisqft/internal/models"
	"github.com/rishabhv97/kiwisqft/internal/services"
)

// RestAdminHandler serves the moderation endpoints. Routes are guarded by
// AdminMiddleware.
type RestAdminHandler struct {
	listingService services.IListingService
}

func NewRestAdminHandler(listingService services.IListingService) *RestAdminHandler {
	return &RestAdminHandler{listingService: listingService}
}

type moderationItem struct {
	listingView
	NextStatuses []models.ListingStatus `json:"next_statuses"`
}

// ModerationQueue handles GET /v1/admin/listings?status=Pending
func (h *RestAdminHandler) ModerationQueue(c *gin.Context) {
	listings, err := h.listingService.ModerationQueue(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err, "Failed to load moderation queue")
		return
	}

	items := make([]moderationItem, len(listings))
	for i := range listings {
		items[i] = moderationItem{
			listingView:  viewOf(&listings[i]),
			NextStatuses: lifecycle.Targets(listings[i].Status),
		}
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "count": len(items)})
}

type changeStatusRequest struct {
	Status models.ListingStatus `json:"status" binding:"required"`
}

// ChangeStatus handles PATCH /v1/admin/listings/:id/status
func (h *RestAdminHandler) ChangeStatus(c *gin.Context) {
	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	listing, err := h.listingService.ChangeStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err, "Failed to change listing status")
		return
	}
	c.JSON(http.StatusOK, viewOf(listing))
}
