package models

import (
	"time"

	"biztech/api/internal/utils"
)

// VerificationType distinguishes the one-time-code flows.
type VerificationType string

const (
	VerificationEmail         VerificationType = "email_verify"
	VerificationPasswordReset VerificationType = "password_reset"
)

// VerificationAction is a single-use, expiring code emailed to an account
// holder. The document ID is the secret itself: possession of the code is
// proof of mailbox access.
type VerificationAction struct {
	Base      `bson:",inline"`
	AccountID utils.SixID      `bson:"account_id" json:"account_id"`
	Type      VerificationType `bson:"type" json:"type"`
	CreatedAt time.Time        `bson:"created_at" json:"created_at"`
	ExpiresAt time.Time        `bson:"expires_at" json:"expires_at"`
	Executed  *time.Time       `bson:"executed,omitempty" json:"executed,omitempty"`
	Deleted   bool             `bson:"deleted" json:"-"`
}
