package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/rishabhv97/kiwisqft/internal/describe"
	"github.com/rishabhv97/kiwisqft/internal/models"
	"github.com/rishabhv97/kiwisqft/internal/pricing"
	"github.com/rishabhv97/kiwisqft/internal/search"
	"github.com/rishabhv97/kiwisqft/internal/services"
	"github.com/rishabhv97/kiwisqft/internal/submission"
)

const (
	// HeaderSearchSession groups searches from one browse tab so a newer
	// search cancels an older one.
	HeaderSearchSession = "X-Search-Session"
	// HeaderSearchSuperseded marks a 204 answer to a search that a newer one replaced.
	HeaderSearchSuperseded = "X-Search-Superseded"
)

// listingView is a listing as sent to clients, with display-only derived fields.
type listingView struct {
	models.Listing
	PriceInWords string `json:"price_in_words"`
	PricePerSqft int64  `json:"price_per_sqft"`
}

func viewOf(l *models.Listing) listingView {
	return listingView{
		Listing:      *l,
		PriceInWords: pricing.AmountInWords(l.Price),
		PricePerSqft: pricing.PricePerArea(l.Price, l.Area),
	}
}

func viewsOf(listings []models.Listing) []listingView {
	out := make([]listingView, len(listings))
	for i := range listings {
		out[i] = viewOf(&listings[i])
	}
	return out
}

// RestListingHandler handles REST requests for listings.
type RestListingHandler struct {
	listingService services.IListingService
}

// NewRestListingHandler creates a new RestListingHandler.
func NewRestListingHandler(listingService services.IListingService) *RestListingHandler {
	return &RestListingHandler{listingService: listingService}
}

// criteriaFromQuery reads the browse filters. Absent parameters keep their
// defaults; bedrooms=0 means any.
func criteriaFromQuery(c *gin.Context) (search.Criteria, error) {
	criteria := search.DefaultCriteria()
	criteria.FreeText = c.Query("search")
	criteria.City = c.Query("city")
	if t := c.Query("type"); t != "" {
		criteria.PropertyType = t
	}
	if b := c.Query("bedrooms"); b != "" {
		n, err := strconv.Atoi(b)
		if err != nil || n < 0 {
			return criteria, errors.New("bedrooms must be a whole number, 0 for any")
		}
		criteria.Bedrooms = &n
	}
	if p := c.Query("max_price"); p != "" {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return criteria, errors.New("max_price must be a whole number")
		}
		criteria.MaxPrice = n
	}
	return criteria, nil
}

// SearchListings handles GET /v1/listings?intent=sale|rent&search=&city=&bedrooms=&type=&max_price=
func (h *RestListingHandler) SearchListings(c *gin.Context) {
	criteria, err := criteriaFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	intent := models.ListingType(c.DefaultQuery("intent", string(models.ListingTypeSale)))

	listings, err := h.listingService.Search(c.Request.Context(), c.GetHeader(HeaderSearchSession), intent, criteria)
	if err != nil {
		if errors.Is(err, search.ErrSuperseded) {
			c.Header(HeaderSearchSuperseded, "true")
			c.Status(http.StatusNoContent)
			return
		}
		respondError(c, err, "Failed to search listings")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  viewsOf(listings),
		"count": len(listings),
	})
}

// GetListingByID handles GET /v1/listings/:id
func (h *RestListingHandler) GetListingByID(c *gin.Context) {
	listing, err := h.listingService.GetListing(c.Request.Context(), c.Param("id"), actor(c))
	if err != nil {
		respondError(c, err, "Failed to retrieve listing")
		return
	}
	c.JSON(http.StatusOK, viewOf(listing))
}

// formFromRequest binds the multipart wizard fields. The client sends
// price_source=rate when the per-sq-ft rate was the last price field edited.
func formFromRequest(c *gin.Context) (*submission.Form, error) {
	var (
		basics   submission.Basics
		location submission.Location
		profile  submission.Profile
		terms    submission.Terms
		extras   submission.Extras
	)
	for _, step := range []interface{}{&basics, &location, &profile, &terms, &extras} {
		if err := c.ShouldBindWith(step, binding.FormMultipart); err != nil {
			return nil, err
		}
	}

	form := &submission.Form{}
	form.SetBasics(basics)
	form.SetLocation(location)
	form.SetProfile(profile)
	form.SetTerms(terms)
	form.SetExtras(extras)
	if c.PostForm("price_source") == "rate" {
		form.SetPrice(c.PostForm("price"))
		form.SetRate(c.PostForm("rate"))
	} else {
		form.SetRate(c.PostForm("rate"))
		form.SetPrice(c.PostForm("price"))
	}
	return form, nil
}

func imageFromRequest(c *gin.Context) (*services.ImageUpload, multipart.File, error) {
	header, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	file, err := header.Open()
	if err != nil {
		return nil, nil, err
	}
	return &services.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, file, nil
}

// SubmitListing handles POST /v1/listings (multipart form, optional "image" file).
func (h *RestListingHandler) SubmitListing(c *gin.Context) {
	form, err := formFromRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form: " + err.Error()})
		return
	}
	image, file, err := imageFromRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image upload"})
		return
	}
	if file != nil {
		defer file.Close()
	}

	listing, err := h.listingService.SubmitListing(c.Request.Context(), form, c.GetString(ownerKey), image)
	if err != nil {
		respondError(c, err, "Failed to submit listing")
		return
	}
	c.JSON(http.StatusCreated, viewOf(listing))
}

// UpdateListing handles PATCH /v1/listings/:id
func (h *RestListingHandler) UpdateListing(c *gin.Context) {
	var patch submission.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	listing, err := h.listingService.UpdateListing(c.Request.Context(), c.Param("id"), c.GetString(ownerKey), patch)
	if err != nil {
		respondError(c, err, "Failed to update listing")
		return
	}
	c.JSON(http.StatusOK, viewOf(listing))
}

// DeleteListing handles DELETE /v1/listings/:id and DELETE /v1/admin/listings/:id
func (h *RestListingHandler) DeleteListing(c *gin.Context) {
	if err := h.listingService.DeleteListing(c.Request.Context(), c.Param("id"), actor(c)); err != nil {
		respondError(c, err, "Failed to delete listing")
		return
	}
	c.Status(http.StatusNoContent)
}

// MyListings handles GET /v1/me/listings
func (h *RestListingHandler) MyListings(c *gin.Context) {
	listings, err := h.listingService.ListByOwner(c.Request.Context(), c.GetString(ownerKey))
	if err != nil {
		respondError(c, err, "Failed to list your properties")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": viewsOf(listings)})
}

// GenerateDescription handles POST /v1/listings/describe
func (h *RestListingHandler) GenerateDescription(c *gin.Context) {
	var req describe.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required", "field": "title"})
		return
	}
	c.JSON(http.StatusOK, h.listingService.GenerateDescription(c.Request.Context(), req))
}
