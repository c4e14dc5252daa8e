package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rishabhv97/kiwisqft/internal/services"
)

// RestLeadHandler handles buyer enquiries.
type RestLeadHandler struct {
	leadService services.ILeadService
}

func NewRestLeadHandler(leadService services.ILeadService) *RestLeadHandler {
	return &RestLeadHandler{leadService: leadService}
}

// CreateLead handles POST /v1/listings/:id/leads. Anonymous visitors may
// enquire; a signed-in buyer is recorded on the lead.
func (h *RestLeadHandler) CreateLead(c *gin.Context) {
	var req services.LeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	req.BuyerID = c.GetString(ownerKey)

	lead, err := h.leadService.CreateLead(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err, "Failed to send enquiry")
		return
	}
	c.JSON(http.StatusCreated, lead)
}

// MyLeads handles GET /v1/me/leads
func (h *RestLeadHandler) MyLeads(c *gin.Context) {
	leads, err := h.leadService.ListLeadsForSeller(c.Request.Context(), c.GetString(ownerKey))
	if err != nil {
		respondError(c, err, "Failed to list leads")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": leads})
}
