// Package submission turns the multi-step "post a property" form into a
// canonical listing record.
package submission

// Basics is the first wizard step.
type Basics struct {
	Title         string `form:"title" json:"title"`
	PropertyType  string `form:"type" json:"type"`
	ListingType   string `form:"listing_type" json:"listing_type"`
	ListedBy      string `form:"listed_by" json:"listed_by"`
	OwnershipType string `form:"ownership_type" json:"ownership_type"`
}

// Location is the second wizard step.
type Location struct {
	City     string `form:"city" json:"city"`
	Locality string `form:"location" json:"location"`
}

// Profile holds the physical description. Numbers arrive as typed by the
// user and are parsed leniently by Assemble.
type Profile struct {
	Bedrooms           string   `form:"bedrooms" json:"bedrooms"`
	Bathrooms          string   `form:"bathrooms" json:"bathrooms"`
	Balconies          string   `form:"balconies" json:"balconies"`
	CarpetArea         string   `form:"carpet_area" json:"carpet_area"`
	BuiltUpArea        string   `form:"built_up_area" json:"built_up_area"`
	SuperBuiltUpArea   string   `form:"super_built_up_area" json:"super_built_up_area"`
	FloorNo            string   `form:"floor_no" json:"floor_no"`
	TotalFloors        string   `form:"total_floors" json:"total_floors"`
	YearBuilt          string   `form:"year_built" json:"year_built"`
	Facing             string   `form:"facing" json:"facing"`
	ExitFacing         string   `form:"exit_facing" json:"exit_facing"`
	ParkingSpaces      string   `form:"parking_spaces" json:"parking_spaces"`
	ParkingType        string   `form:"parking_type" json:"parking_type"`
	Views              []string `form:"views" json:"views"`
	AdditionalRooms    []string `form:"additional_rooms" json:"additional_rooms"`
	FurnishedStatus    string   `form:"furnished_status" json:"furnished_status"`
	ConstructionStatus string   `form:"construction_status" json:"construction_status"`
}

// Terms are the pricing step fields other than the price figure itself.
type Terms struct {
	AllInclusivePrice   bool   `form:"all_inclusive_price" json:"all_inclusive_price"`
	PriceNegotiable     bool   `form:"price_negotiable" json:"price_negotiable"`
	TaxExcluded         bool   `form:"tax_excluded" json:"tax_excluded"`
	BrokerageType       string `form:"brokerage_type" json:"brokerage_type"`
	BrokerageAmount     string `form:"brokerage_amount" json:"brokerage_amount"`
	BrokerageNegotiable bool   `form:"brokerage_negotiable" json:"brokerage_negotiable"`
}

// Extras is the last wizard step.
type Extras struct {
	Amenities    string   `form:"amenities" json:"amenities"`
	Documents    []string `form:"available_documents" json:"available_documents"`
	ReraApproved bool     `form:"rera_approved" json:"rera_approved"`
	Description  string   `form:"description" json:"description"`
	OwnerContact string   `form:"owner_contact" json:"owner_contact"`
}

type priceSource int

const (
	priceFromTotal priceSource = iota
	priceFromRate
)

// Form accumulates the wizard steps. Each setter replaces one step; the
// price and the per-sq-ft rate are set separately so the form knows which
// one the user touched last.
type Form struct {
	basics   Basics
	location Location
	profile  Profile
	terms    Terms
	extras   Extras

	price  string
	rate   string
	source priceSource
}

func (f *Form) SetBasics(b Basics)     { f.basics = b }
func (f *Form) SetLocation(l Location) { f.location = l }
func (f *Form) SetProfile(p Profile)   { f.profile = p }
func (f *Form) SetTerms(t Terms)       { f.terms = t }
func (f *Form) SetExtras(e Extras)     { f.extras = e }

// SetPrice records a total price edit.
func (f *Form) SetPrice(raw string) {
	f.price = raw
	f.source = priceFromTotal
}

// SetRate records a per-sq-ft rate edit. When the listing has an area the
// total price is derived from it.
func (f *Form) SetRate(raw string) {
	f.rate = raw
	f.source = priceFromRate
}

// Basics returns the first step, e.g. for prompting the description generator.
func (f *Form) Basics() Basics { return f.basics }

// Location returns the location step.
func (f *Form) Location() Location { return f.location }
