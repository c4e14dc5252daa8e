package submission

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rishabhv97/kiwisqft/internal/lifecycle"
	"github.com/rishabhv97/kiwisqft/internal/models"
	"github.com/rishabhv97/kiwisqft/internal/pricing"
)

// ValidationError names the form field that blocked a submission.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func required(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: "is required"}
}

func negative(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: "must not be negative"}
}

func tooLarge(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: "gives a price that is too large for the area"}
}

var titleCaser = cases.Title(language.Und, cases.NoLower)

// Assemble validates the form and builds a new listing owned by ownerID.
// Nothing is returned unless every required field is present; the listing
// starts in moderation with no id and no images.
func Assemble(f *Form, ownerID string, now time.Time) (*models.Listing, error) {
	b, loc, p, t, x := f.basics, f.location, f.profile, f.terms, f.extras

	title := strings.TrimSpace(b.Title)
	if title == "" {
		return nil, required("title")
	}
	propertyType := models.PropertyType(strings.TrimSpace(b.PropertyType))
	if propertyType == "" {
		return nil, required("type")
	}
	if !propertyType.Valid() {
		return nil, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown property type %q", propertyType)}
	}
	intent := models.ListingType(strings.ToLower(strings.TrimSpace(b.ListingType)))
	if intent == "" {
		return nil, required("listing_type")
	}
	if !intent.Valid() {
		return nil, &ValidationError{Field: "listing_type", Reason: "must be sale or rent"}
	}
	city := strings.Join(strings.Fields(loc.City), " ")
	if city == "" {
		return nil, required("city")
	}
	locality := strings.TrimSpace(loc.Locality)
	if locality == "" {
		return nil, required("location")
	}

	// (a) area
	carpet, err := optionalArea("carpet_area", p.CarpetArea)
	if err != nil {
		return nil, err
	}
	builtUp, err := optionalArea("built_up_area", p.BuiltUpArea)
	if err != nil {
		return nil, err
	}
	superBuiltUp, err := optionalArea("super_built_up_area", p.SuperBuiltUpArea)
	if err != nil {
		return nil, err
	}
	area := pricing.ResolveArea(carpet, builtUp, superBuiltUp)
	if area == 0 {
		return nil, &ValidationError{Field: "area", Reason: "at least one of carpet, built-up or super built-up area is required"}
	}

	// (b) numbers and price reconciliation
	price, err := reconcilePrice(f, area)
	if err != nil {
		return nil, err
	}
	counts := map[string]string{
		"bedrooms":       p.Bedrooms,
		"bathrooms":      p.Bathrooms,
		"balconies":      p.Balconies,
		"floor_no":       p.FloorNo,
		"total_floors":   p.TotalFloors,
		"year_built":     p.YearBuilt,
		"parking_spaces": p.ParkingSpaces,
	}
	n := make(map[string]int, len(counts))
	for field, raw := range counts {
		v, ok := pricing.ParseNumber(raw)
		if !ok {
			continue
		}
		if v < 0 {
			return nil, negative(field)
		}
		n[field] = int(v)
	}
	brokerageAmount := pricing.ParseAmount(t.BrokerageAmount)

	listedBy := models.ListedBy(strings.TrimSpace(b.ListedBy))
	if listedBy == "" {
		listedBy = models.ListedByOwner
	}
	if !listedBy.Valid() {
		return nil, &ValidationError{Field: "listed_by", Reason: fmt.Sprintf("unknown value %q", listedBy)}
	}
	brokerage := models.BrokerageType(strings.TrimSpace(t.BrokerageType))
	if brokerage == "" {
		brokerage = models.BrokerageNone
	}
	if !brokerage.Valid() {
		return nil, &ValidationError{Field: "brokerage_type", Reason: fmt.Sprintf("unknown value %q", brokerage)}
	}
	if brokerage == models.BrokerageNone {
		brokerageAmount = 0
	}

	// (c) tag sets
	amenities := SplitTags(x.Amenities)

	// (d) stamp
	outcome := lifecycle.Outcome{Status: lifecycle.InitialStatus}
	return &models.Listing{
		OwnerID:      ownerID,
		Title:        title,
		Description:  strings.TrimSpace(x.Description),
		PropertyType: propertyType,
		ListingType:  intent,
		ListedBy:     listedBy,

		City:     titleCaser.String(city),
		Locality: locality,

		Bedrooms:           n["bedrooms"],
		Bathrooms:          n["bathrooms"],
		Balconies:          n["balconies"],
		CarpetArea:         carpet,
		BuiltUpArea:        builtUp,
		SuperBuiltUpArea:   superBuiltUp,
		Area:               area,
		FloorNo:            n["floor_no"],
		TotalFloors:        n["total_floors"],
		YearBuilt:          n["year_built"],
		Facing:             strings.TrimSpace(p.Facing),
		ExitFacing:         strings.TrimSpace(p.ExitFacing),
		ParkingSpaces:      n["parking_spaces"],
		ParkingType:        strings.TrimSpace(p.ParkingType),
		Views:              dedupe(p.Views),
		AdditionalRooms:    dedupe(p.AdditionalRooms),
		FurnishedStatus:    strings.TrimSpace(p.FurnishedStatus),
		ConstructionStatus: strings.TrimSpace(p.ConstructionStatus),
		OwnershipType:      strings.TrimSpace(b.OwnershipType),
		Amenities:          amenities,

		Price:               price,
		AllInclusivePrice:   t.AllInclusivePrice,
		PriceNegotiable:     t.PriceNegotiable,
		TaxExcluded:         t.TaxExcluded,
		BrokerageType:       brokerage,
		BrokerageAmount:     brokerageAmount,
		BrokerageNegotiable: t.BrokerageNegotiable,

		ReraApproved: x.ReraApproved,
		Documents:    dedupe(x.Documents),
		IsVerified:   outcome.IsVerified,

		Status:     outcome.Status,
		DatePosted: now,
		UpdatedAt:  now,

		Images:       []string{},
		OwnerContact: strings.TrimSpace(x.OwnerContact),
	}, nil
}

// optionalArea parses one area measurement. Blank, unparsable and zero
// values are treated as not supplied.
func optionalArea(field, raw string) (*int64, error) {
	v, ok := pricing.ParseNumber(raw)
	if !ok || v == 0 {
		return nil, nil
	}
	if v < 0 {
		return nil, negative(field)
	}
	return &v, nil
}

func reconcilePrice(f *Form, area int64) (int64, error) {
	if f.source == priceFromRate {
		if rate, ok := pricing.ParseNumber(f.rate); ok {
			if rate < 0 {
				return 0, negative("rate")
			}
			price, err := pricing.PriceFromRate(rate, area, 0)
			if err != nil {
				return 0, tooLarge("rate")
			}
			return price, nil
		}
	}
	price, ok := pricing.ParseNumber(f.price)
	if !ok {
		return 0, required("price")
	}
	if price < 0 {
		return 0, negative("price")
	}
	return price, nil
}

// SplitTags turns a comma separated string into trimmed, non-empty,
// de-duplicated tags in their original order.
func SplitTags(s string) []string {
	return dedupe(strings.Split(s, ","))
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		k := strings.ToLower(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}
