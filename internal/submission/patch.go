package submission

import (
	"strings"
	"time"

	"github.com/rishabhv97/kiwisqft/internal/models"
	"github.com/rishabhv97/kiwisqft/internal/pricing"
)

// Patch is an owner edit of an existing listing. Nil fields are left alone.
// An area pointer to 0 clears that measurement. Price wins over Rate when
// both are given.
type Patch struct {
	Title            *string `json:"title"`
	Description      *string `json:"description"`
	Price            *int64  `json:"price"`
	Rate             *int64  `json:"rate"`
	CarpetArea       *int64  `json:"carpet_area"`
	BuiltUpArea      *int64  `json:"built_up_area"`
	SuperBuiltUpArea *int64  `json:"super_built_up_area"`
	Bedrooms         *int    `json:"bedrooms"`
	Bathrooms        *int    `json:"bathrooms"`
	Balconies        *int    `json:"balconies"`
	FurnishedStatus  *string `json:"furnished_status"`
	PriceNegotiable  *bool   `json:"price_negotiable"`
	Amenities        *string `json:"amenities"`
	OwnerContact     *string `json:"owner_contact"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p == Patch{}
}

// ApplyPatch writes p onto a copy of l, re-deriving area and price. material
// is true when a field buyers rely on (title, price or any area) changed.
func ApplyPatch(l *models.Listing, p Patch, now time.Time) (updated *models.Listing, material bool, err error) {
	out := *l

	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, false, required("title")
		}
		material = material || title != l.Title
		out.Title = title
	}
	if p.Description != nil {
		out.Description = strings.TrimSpace(*p.Description)
	}

	areas := []struct {
		field string
		v     *int64
		dst   **int64
	}{
		{"carpet_area", p.CarpetArea, &out.CarpetArea},
		{"built_up_area", p.BuiltUpArea, &out.BuiltUpArea},
		{"super_built_up_area", p.SuperBuiltUpArea, &out.SuperBuiltUpArea},
	}
	for _, a := range areas {
		if a.v == nil {
			continue
		}
		if *a.v < 0 {
			return nil, false, negative(a.field)
		}
		if *a.v == 0 {
			*a.dst = nil
		} else {
			v := *a.v
			*a.dst = &v
		}
	}
	out.Area = pricing.ResolveArea(out.CarpetArea, out.BuiltUpArea, out.SuperBuiltUpArea)
	if out.Area == 0 {
		return nil, false, &ValidationError{Field: "area", Reason: "at least one of carpet, built-up or super built-up area is required"}
	}
	material = material || out.Area != l.Area

	switch {
	case p.Price != nil:
		if *p.Price < 0 {
			return nil, false, negative("price")
		}
		out.Price = *p.Price
	case p.Rate != nil:
		if *p.Rate < 0 {
			return nil, false, negative("rate")
		}
		price, err := pricing.PriceFromRate(*p.Rate, out.Area, out.Price)
		if err != nil {
			return nil, false, tooLarge("rate")
		}
		out.Price = price
	}
	material = material || out.Price != l.Price

	for field, c := range map[string]struct {
		v   *int
		dst *int
	}{
		"bedrooms":  {p.Bedrooms, &out.Bedrooms},
		"bathrooms": {p.Bathrooms, &out.Bathrooms},
		"balconies": {p.Balconies, &out.Balconies},
	} {
		if c.v == nil {
			continue
		}
		if *c.v < 0 {
			return nil, false, negative(field)
		}
		*c.dst = *c.v
	}

	if p.FurnishedStatus != nil {
		out.FurnishedStatus = strings.TrimSpace(*p.FurnishedStatus)
	}
	if p.PriceNegotiable != nil {
		out.PriceNegotiable = *p.PriceNegotiable
	}
	if p.Amenities != nil {
		out.Amenities = SplitTags(*p.Amenities)
	}
	if p.OwnerContact != nil {
		out.OwnerContact = strings.TrimSpace(*p.OwnerContact)
	}
	out.UpdatedAt = now
	return &out, material, nil
}
