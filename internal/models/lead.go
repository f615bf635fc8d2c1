package models

import (
	"time"

	"biztech/api/internal/utils"
)

// LeadStatus defines the progression of a buyer enquiry. The order below is
// the one offered in the agent UI, but transitions are not constrained to it.
type LeadStatus string

const (
	LeadNew         LeadStatus = "new"
	LeadContacted   LeadStatus = "contacted"
	LeadNegotiating LeadStatus = "negotiating"
	LeadClosed      LeadStatus = "closed"
)

// ValidLeadStatus reports whether s is one of the four enumerated values.
func ValidLeadStatus(s LeadStatus) bool {
	switch s {
	case LeadNew, LeadContacted, LeadNegotiating, LeadClosed:
		return true
	}
	return false
}

// Lead represents a buyer's enquiry against a listing. At most one lead may
// exist per (listing, buyer) pair; the leads collection carries a unique index
// on that pair so concurrent submissions cannot both land.
type Lead struct {
	Base      `bson:",inline"`
	ListingID utils.SixID `bson:"listing_id" json:"listingId"`
	BuyerID   utils.SixID `bson:"buyer_id" json:"buyerId"`
	Message   string      `bson:"message" json:"message"`
	Status    LeadStatus  `bson:"status" json:"status"`
	CreatedAt time.Time   `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time   `bson:"updated_at" json:"updatedAt"`
	Deleted   bool        `bson:"deleted" json:"-"`
}
