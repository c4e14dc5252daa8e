package models

import (
	"time"
)

// ListingStatus is the moderation state of a listing.
type ListingStatus string

const (
	StatusDraft    ListingStatus = "Draft"
	StatusPending  ListingStatus = "Pending"
	StatusApproved ListingStatus = "Approved"
	StatusRejected ListingStatus = "Rejected"
	StatusSold     ListingStatus = "Sold"
)

// AllStatuses lists every status value in display order.
var AllStatuses = []ListingStatus{StatusDraft, StatusPending, StatusApproved, StatusRejected, StatusSold}

// Valid reports whether s is one of the known statuses.
func (s ListingStatus) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ListingType is the listing intent.
type ListingType string

const (
	ListingTypeSale ListingType = "sale"
	ListingTypeRent ListingType = "rent"
)

func (t ListingType) Valid() bool {
	return t == ListingTypeSale || t == ListingTypeRent
}

// PropertyType enumerates the kinds of property that can be listed.
type PropertyType string

const (
	PropertyApartment       PropertyType = "Apartment"
	PropertyVilla           PropertyType = "Villa"
	PropertyHouse           PropertyType = "House"
	PropertyBuilderFloor    PropertyType = "Builder Floor"
	PropertyPenthouse       PropertyType = "Penthouse"
	PropertyStudio          PropertyType = "Studio"
	PropertyResidentialLand PropertyType = "Residential Land"
)

var PropertyTypes = []PropertyType{
	PropertyApartment, PropertyVilla, PropertyHouse, PropertyBuilderFloor,
	PropertyPenthouse, PropertyStudio, PropertyResidentialLand,
}

func (t PropertyType) Valid() bool {
	for _, v := range PropertyTypes {
		if t == v {
			return true
		}
	}
	return false
}

// BrokerageType describes how a listing agent charges. Display only.
type BrokerageType string

const (
	BrokerageFixed      BrokerageType = "Fixed"
	BrokeragePercentage BrokerageType = "Percentage of Price"
	BrokerageNone       BrokerageType = "None"
)

func (b BrokerageType) Valid() bool {
	return b == BrokerageFixed || b == BrokeragePercentage || b == BrokerageNone
}

// ListedBy is the role of whoever submitted the listing.
type ListedBy string

const (
	ListedByOwner   ListedBy = "Owner"
	ListedByAgent   ListedBy = "Agent"
	ListedByBuilder ListedBy = "Builder"
)

func (l ListedBy) Valid() bool {
	return l == ListedByOwner || l == ListedByAgent || l == ListedByBuilder
}

// Listing is a property put up for sale or rent.
// Area is always derived from the three optional measurements and is never
// written on its own.
type Listing struct {
	ID           string       `bson:"_id" json:"id"`
	OwnerID      string       `bson:"owner_id" json:"owner_id"`
	Title        string       `bson:"title" json:"title"`
	Description  string       `bson:"description" json:"description"`
	PropertyType PropertyType `bson:"type" json:"type"`
	ListingType  ListingType  `bson:"listing_type" json:"listing_type"`
	ListedBy     ListedBy     `bson:"listed_by" json:"listed_by"`

	City     string `bson:"city" json:"city"`
	Locality string `bson:"location" json:"location"`

	Bedrooms           int      `bson:"bedrooms" json:"bedrooms"`
	Bathrooms          int      `bson:"bathrooms" json:"bathrooms"`
	Balconies          int      `bson:"balconies" json:"balconies"`
	CarpetArea         *int64   `bson:"carpet_area,omitempty" json:"carpet_area,omitempty"`
	BuiltUpArea        *int64   `bson:"built_up_area,omitempty" json:"built_up_area,omitempty"`
	SuperBuiltUpArea   *int64   `bson:"super_built_up_area,omitempty" json:"super_built_up_area,omitempty"`
	Area               int64    `bson:"area" json:"area"`
	FloorNo            int      `bson:"floor_no" json:"floor_no"`
	TotalFloors        int      `bson:"total_floors" json:"total_floors"`
	YearBuilt          int      `bson:"year_built,omitempty" json:"year_built,omitempty"`
	Facing             string   `bson:"facing,omitempty" json:"facing,omitempty"`
	ExitFacing         string   `bson:"exit_facing,omitempty" json:"exit_facing,omitempty"`
	ParkingSpaces      int      `bson:"parking_spaces" json:"parking_spaces"`
	ParkingType        string   `bson:"parking_type,omitempty" json:"parking_type,omitempty"`
	Views              []string `bson:"views" json:"views"`
	AdditionalRooms    []string `bson:"additional_rooms" json:"additional_rooms"`
	FurnishedStatus    string   `bson:"furnished_status,omitempty" json:"furnished_status,omitempty"`
	ConstructionStatus string   `bson:"construction_status,omitempty" json:"construction_status,omitempty"`
	OwnershipType      string   `bson:"ownership_type,omitempty" json:"ownership_type,omitempty"`
	Amenities          []string `bson:"amenities" json:"amenities"`

	Price               int64         `bson:"price" json:"price"`
	AllInclusivePrice   bool          `bson:"all_inclusive_price" json:"all_inclusive_price"`
	PriceNegotiable     bool          `bson:"price_negotiable" json:"price_negotiable"`
	TaxExcluded         bool          `bson:"tax_excluded" json:"tax_excluded"`
	BrokerageType       BrokerageType `bson:"brokerage_type" json:"brokerage_type"`
	BrokerageAmount     int64         `bson:"brokerage_amount" json:"brokerage_amount"`
	BrokerageNegotiable bool          `bson:"brokerage_negotiable" json:"brokerage_negotiable"`

	ReraApproved bool     `bson:"rera_approved" json:"rera_approved"`
	Documents    []string `bson:"available_documents" json:"available_documents"`
	IsVerified   bool     `bson:"is_verified" json:"is_verified"`

	Status     ListingStatus `bson:"status" json:"status"`
	DatePosted time.Time     `bson:"created_at" json:"date_posted"`
	UpdatedAt  time.Time     `bson:"updated_at" json:"updated_at"`

	Images       []string `bson:"images" json:"images"`
	IsFeatured   bool     `bson:"is_featured" json:"is_featured"`
	ViewCount    int      `bson:"view_count" json:"view_count"`
	LeadCount    int      `bson:"lead_count" json:"lead_count"`
	OwnerContact string   `bson:"owner_contact,omitempty" json:"owner_contact,omitempty"`
}

// PubliclyVisible reports whether anonymous visitors may see the listing.
// Sold listings stay readable for history even though search excludes them.
func (l *Listing) PubliclyVisible() bool {
	return l.Status == StatusApproved || l.Status == StatusSold
}
