package models

import (
	"time"
)

// Role defines the account roles in the marketplace.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleAgent  Role = "agent"
	RoleSeller Role = "seller"
	RoleBuyer  Role = "buyer"
)

// ValidRole reports whether r is one of the four known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleSeller, RoleBuyer:
		return true
	}
	return false
}

// AccountStatus defines the account approval lifecycle.
type AccountStatus string

const (
	AccountPending  AccountStatus = "pending"
	AccountActive   AccountStatus = "active"
	AccountRejected AccountStatus = "rejected"
)

// Account represents a user of the marketplace. Role-specific fields are
// pointers so that a buyer never carries seller data and vice versa.
type Account struct {
	Base          `bson:",inline"`
	Name          string        `bson:"name" json:"name"`
	Email         string        `bson:"email" json:"email"`
	Mobile        string        `bson:"mobile,omitempty" json:"mobile,omitempty"`
	PasswordHash  string        `bson:"password" json:"-"`
	Role          Role          `bson:"role" json:"role"`
	AccountStatus AccountStatus `bson:"account_status" json:"account_status"`
	EmailVerified bool          `bson:"email_verified" json:"email_verified"`

	// Buyer only: free-text indication of available funds, e.g. "100k-1M".
	FinancialMeans *string `bson:"financial_means,omitempty" json:"financial_means,omitempty"`
	// Seller only: acceptance of the commission terms at registration.
	AgreedCommission *bool `bson:"agreed_commission,omitempty" json:"agreed_commission,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	Deleted   bool      `bson:"deleted" json:"-"`
}

// IsActive reports whether the account has been approved and may act.
func (a *Account) IsActive() bool {
	return a.AccountStatus == AccountActive
}
