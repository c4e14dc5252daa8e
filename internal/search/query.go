// Package search turns the browse filters into a store query and runs it.
package search

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rishabhv97/kiwisqft/internal/models"
	"github.com/rishabhv97/kiwisqft/internal/pricing"
)

// AllTypes is the property-type sentinel meaning "no type filter".
const AllTypes = "All"

// AnyPrice is the ceiling used when no narrower price bucket is chosen. It is
// also the top of the browse page's price slider.
const AnyPrice int64 = 5 * pricing.Crore

// PriceCeilings are the predefined buckets offered by the browse page.
var PriceCeilings = []int64{50 * pricing.Lakh, 1 * pricing.Crore, 2 * pricing.Crore, AnyPrice}

var (
	ErrInvalidIntent       = errors.New("listing intent must be sale or rent")
	ErrInvalidPropertyType = errors.New("unknown property type")
	ErrInvalidStatus       = errors.New("unknown listing status")
	ErrInvalidBedrooms     = errors.New("bedrooms must not be negative")
)

// noCeiling disables the price bound for admin queries.
const noCeiling int64 = math.MaxInt64

// Criteria are the user-editable browse filters. The zero value means
// "no filters". Bedrooms of 0 (or nil) means any number of bedrooms.
type Criteria struct {
	FreeText     string `json:"search,omitempty"`
	City         string `json:"city,omitempty"`
	Bedrooms     *int   `json:"bedrooms,omitempty"`
	PropertyType string `json:"type,omitempty"`
	MaxPrice     int64  `json:"max_price,omitempty"`
}

// DefaultCriteria is the browse page's initial state.
func DefaultCriteria() Criteria {
	return Criteria{PropertyType: AllTypes, MaxPrice: AnyPrice}
}

// Reset clears every filter back to its default.
func (c *Criteria) Reset() {
	*c = DefaultCriteria()
}

// Query is a fully resolved listing filter. Build it with Build or
// BuildModeration rather than by hand.
type Query struct {
	Status       *models.ListingStatus
	ListingType  models.ListingType
	FreeText     string
	City         string
	Bedrooms     *int
	PropertyType models.PropertyType
	MaxPrice     int64
}

// Build resolves public browse criteria for the given intent. The result is
// always restricted to approved listings of that intent and to price <= ceiling.
func Build(intent models.ListingType, c Criteria) (Query, error) {
	if !intent.Valid() {
		return Query{}, ErrInvalidIntent
	}
	approved := models.StatusApproved
	q := Query{
		Status:      &approved,
		ListingType: intent,
		FreeText:    strings.TrimSpace(c.FreeText),
		City:        strings.TrimSpace(c.City),
		MaxPrice:    c.MaxPrice,
	}
	if c.Bedrooms != nil && *c.Bedrooms < 0 {
		return Query{}, ErrInvalidBedrooms
	}
	if c.Bedrooms != nil && *c.Bedrooms > 0 {
		n := *c.Bedrooms
		q.Bedrooms = &n
	}
	if pt := strings.TrimSpace(c.PropertyType); pt != "" && pt != AllTypes {
		q.PropertyType = models.PropertyType(pt)
		if !q.PropertyType.Valid() {
			return Query{}, fmt.Errorf("%w: %q", ErrInvalidPropertyType, pt)
		}
	}
	if q.MaxPrice <= 0 {
		q.MaxPrice = AnyPrice
	}
	return q, nil
}

// BuildModeration returns the admin queue query for one status, or for all
// statuses when status is "" or "All".
func BuildModeration(status string) (Query, error) {
	q := Query{MaxPrice: noCeiling}
	if status == "" || status == AllTypes {
		return q, nil
	}
	s := models.ListingStatus(status)
	if !s.Valid() {
		return Query{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	q.Status = &s
	return q, nil
}

func containsFold(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

// Filter renders q as a MongoDB filter document. Field names follow the
// listings collection schema.
func (q Query) Filter() bson.M {
	f := bson.M{
		"price": bson.M{"$gte": int64(0), "$lte": q.MaxPrice},
	}
	if q.Status != nil {
		f["status"] = *q.Status
	}
	if q.ListingType != "" {
		f["listing_type"] = q.ListingType
	}
	if q.FreeText != "" {
		rx := containsFold(q.FreeText)
		f["$or"] = bson.A{
			bson.M{"title": rx},
			bson.M{"location": rx},
			bson.M{"city": rx},
		}
	}
	if q.City != "" {
		f["city"] = containsFold(q.City)
	}
	if q.Bedrooms != nil {
		f["bedrooms"] = *q.Bedrooms
	}
	if q.PropertyType != "" {
		f["type"] = q.PropertyType
	}
	return f
}

// Sort is the result order: newest first, id as tie-breaker.
func (q Query) Sort() bson.D {
	return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
}

func hasFold(field, sub string) bool {
	return strings.Contains(strings.ToLower(field), strings.ToLower(sub))
}

// Matches evaluates q against a single listing in memory, with the same
// semantics as Filter.
func (q Query) Matches(l *models.Listing) bool {
	if l == nil {
		return false
	}
	if q.Status != nil && l.Status != *q.Status {
		return false
	}
	if q.ListingType != "" && l.ListingType != q.ListingType {
		return false
	}
	if l.Price < 0 || l.Price > q.MaxPrice {
		return false
	}
	if q.FreeText != "" && !(hasFold(l.Title, q.FreeText) || hasFold(l.Locality, q.FreeText) || hasFold(l.City, q.FreeText)) {
		return false
	}
	if q.City != "" && !hasFold(l.City, q.City) {
		return false
	}
	if q.Bedrooms != nil && l.Bedrooms != *q.Bedrooms {
		return false
	}
	if q.PropertyType != "" && l.PropertyType != q.PropertyType {
		return false
	}
	return true
}

// Apply filters and orders an in-memory slice the way the store would.
func (q Query) Apply(listings []models.Listing) []models.Listing {
	out := make([]models.Listing, 0, len(listings))
	for i := range listings {
		if q.Matches(&listings[i]) {
			out = append(out, listings[i])
		}
	}
	SortNewestFirst(out)
	return out
}

// SortNewestFirst orders listings by posting date, newest first.
func SortNewestFirst(listings []models.Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		a, b := listings[i], listings[j]
		if !a.DatePosted.Equal(b.DatePosted) {
			return a.DatePosted.After(b.DatePosted)
		}
		return a.ID > b.ID
	})
}

// Key is a canonical representation of q. Two queries with the same Key
// return the same rows.
func (q Query) Key() string {
	var b strings.Builder
	status := "*"
	if q.Status != nil {
		status = string(*q.Status)
	}
	bedrooms := "*"
	if q.Bedrooms != nil {
		bedrooms = fmt.Sprint(*q.Bedrooms)
	}
	fmt.Fprintf(&b, "status=%s|intent=%s|q=%s|city=%s|bed=%s|type=%s|max=%d",
		status, q.ListingType, strings.ToLower(q.FreeText), strings.ToLower(q.City),
		bedrooms, q.PropertyType, q.MaxPrice)
	return b.String()
}
