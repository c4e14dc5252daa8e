package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rishabhv97/kiwisqft/internal/models"
	"github.com/rishabhv97/kiwisqft/internal/pricing"
	"github.com/rishabhv97/kiwisqft/internal/search"
)

type priceOption struct {
	Value int64  `json:"value"`
	Label string `json:"label"`
}

// RestConfigHandler serves the option lists the browse and submission forms
// are built from.
type RestConfigHandler struct {
	body gin.H
}

// NewRestConfigHandler creates a new RestConfigHandler.
func NewRestConfigHandler() *RestConfigHandler {
	ceilings := make([]priceOption, len(search.PriceCeilings))
	for i, v := range search.PriceCeilings {
		ceilings[i] = priceOption{Value: v, Label: "Under ₹ " + pricing.AmountInWords(v)}
	}
	propertyTypes := append([]string{search.AllTypes}, toStrings(models.PropertyTypes)...)

	return &RestConfigHandler{body: gin.H{
		"listing_types":   []models.ListingType{models.ListingTypeSale, models.ListingTypeRent},
		"property_types":  propertyTypes,
		"price_ceilings":  ceilings,
		"default_ceiling": search.AnyPrice,
		"statuses":        models.AllStatuses,
		"brokerage_types": []models.BrokerageType{models.BrokerageFixed, models.BrokeragePercentage, models.BrokerageNone},
		"listed_by":       []models.ListedBy{models.ListedByOwner, models.ListedByAgent, models.ListedByBuilder},
	}}
}

func toStrings(types []models.PropertyType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

// GetPublicConfig handles GET /v1/config
func (h *RestConfigHandler) GetPublicConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.body)
}
