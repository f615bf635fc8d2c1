package models

import (
	"time"

	"biztech/api/internal/utils"
)

// Tier is the service level of a listing, derived from its asking price at
// creation time and frozen afterwards.
type Tier string

const (
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
)

// ListingStatus defines the review workflow states of a listing.
type ListingStatus string

const (
	ListingPending  ListingStatus = "pending"
	ListingActive   ListingStatus = "active"
	ListingRejected ListingStatus = "rejected"
)

// PrivateData holds the confidential business identity fields. They are
// serialized to a viewer only when the visibility policy allows it.
type PrivateData struct {
	LegalBusinessName string `bson:"legal_business_name" json:"legalBusinessName"`
	OwnerName         string `bson:"owner_name" json:"ownerName"`
	FullAddress       string `bson:"full_address" json:"fullAddress"`
}

// DeliverableFlag names one of the premium fulfillment checklist items.
type DeliverableFlag string

const (
	DeliverableSalePack          DeliverableFlag = "sale_pack_ready"
	DeliverableFinancialAnalysis DeliverableFlag = "financial_analysis_ready"
	DeliverableLegalAttestation  DeliverableFlag = "legal_attestation_ready"
)

// ValidDeliverableFlag reports whether f names a known deliverable.
func ValidDeliverableFlag(f DeliverableFlag) bool {
	switch f {
	case DeliverableSalePack, DeliverableFinancialAnalysis, DeliverableLegalAttestation:
		return true
	}
	return false
}

// Deliverables tracks the premium-only fulfillment checklist. The three flags
// toggle independently; document keys point at uploaded artefacts in S3.
type Deliverables struct {
	SalePackReady          bool `bson:"sale_pack_ready" json:"sale_pack_ready"`
	FinancialAnalysisReady bool `bson:"financial_analysis_ready" json:"financial_analysis_ready"`
	LegalAttestationReady  bool `bson:"legal_attestation_ready" json:"legal_attestation_ready"`

	SalePackKey          string `bson:"sale_pack_key,omitempty" json:"sale_pack_key,omitempty"`
	FinancialAnalysisKey string `bson:"financial_analysis_key,omitempty" json:"financial_analysis_key,omitempty"`
	LegalAttestationKey  string `bson:"legal_attestation_key,omitempty" json:"legal_attestation_key,omitempty"`
}

// Listing represents a business for sale.
type Listing struct {
	Base     `bson:",inline"`
	SellerID utils.SixID   `bson:"seller_id" json:"sellerId"`
	Tier     Tier          `bson:"tier" json:"tier"`
	Status   ListingStatus `bson:"status" json:"status"`
	Views    int64         `bson:"views" json:"views"`

	// Public fields, visible to everyone.
	Title     string  `bson:"title" json:"title"`
	Industry  string  `bson:"industry" json:"industry"`
	Region    string  `bson:"region" json:"region"`
	Price     float64 `bson:"price" json:"price"`
	Turnover  float64 `bson:"turnover" json:"turnover"`
	NetProfit float64 `bson:"net_profit" json:"netProfit"`

	Description string `bson:"description" json:"description"`

	// Restricted to owner, assigned agent and admin.
	Private *PrivateData `bson:"private,omitempty" json:"-"`

	AssignedAgentID *utils.SixID `bson:"assigned_agent_id,omitempty" json:"assignedAgentId,omitempty"`
	Deliverables    Deliverables `bson:"deliverables" json:"-"`

	// Set for premium listings once the listing fee has been captured.
	PaymentID *utils.SixID `bson:"payment_id,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
	Deleted   bool      `bson:"deleted" json:"-"`
}

// ListingView is the serialized shape of a listing for a particular viewer.
// PrivateData and Deliverables are nil unless the viewer is authorized.
type ListingView struct {
	ID              utils.SixID   `json:"id"`
	SellerID        utils.SixID   `json:"sellerId"`
	Tier            Tier          `json:"tier"`
	Status          ListingStatus `json:"status"`
	Views           int64         `json:"views"`
	Title           string        `json:"title"`
	Industry        string        `json:"industry"`
	Region          string        `json:"region"`
	Price           float64       `json:"price"`
	Turnover        float64       `json:"turnover"`
	NetProfit       float64       `json:"netProfit"`
	Description     string        `json:"description"`
	AssignedAgentID *utils.SixID  `json:"assignedAgentId,omitempty"`
	PrivateData     *PrivateData  `json:"privateData,omitempty"`
	Deliverables    *Deliverables `json:"deliverables,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
}
