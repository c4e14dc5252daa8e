package models

import (
	"time"
)

// Lead is a buyer's enquiry about a listing, routed to the listing owner.
type Lead struct {
	ID         string    `bson:"_id" json:"id"`
	ListingID  string    `bson:"property_id" json:"property_id"`
	SellerID   string    `bson:"seller_id" json:"seller_id"`
	BuyerID    string    `bson:"buyer_id,omitempty" json:"buyer_id,omitempty"` // empty for anonymous visitors
	BuyerName  string    `bson:"buyer_name" json:"buyer_name"`
	BuyerPhone string    `bson:"buyer_phone" json:"buyer_phone"`
	BuyerEmail string    `bson:"buyer_email,omitempty" json:"buyer_email,omitempty"`
	Message    string    `bson:"message" json:"message"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	Notified   bool      `bson:"notified" json:"notified"` // set once the seller e-mail task has run
}

// LeadWithListing is a lead as shown on the seller dashboard.
type LeadWithListing struct {
	Lead          `bson:",inline"`
	PropertyTitle string `bson:"property_title" json:"property_title"`
}
