package models

import (
	"time"

	"biztech/api/internal/utils"
)

// PaymentStatus is the settlement state of a captured charge.
type PaymentStatus string

const (
	PaymentCaptured PaymentStatus = "captured"
	PaymentRefunded PaymentStatus = "refunded"
)

// Payment records a successful charge against the payment gateway.
// Failed charge attempts are not persisted; a premium listing is only ever
// written after its payment document exists.
type Payment struct {
	Base         `bson:",inline"`
	AccountID    utils.SixID   `bson:"account_id" json:"account_id"`
	Description  string        `bson:"description" json:"description"`
	Amount       float64       `bson:"amount" json:"amount"`
	CurrencyCode string        `bson:"currency_code" json:"currency_code"`
	Reference    string        `bson:"reference" json:"reference"` // gateway reference (UUID)
	Status       PaymentStatus `bson:"status" json:"status"`
	CreatedAt    time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at" json:"updated_at"`
	Deleted      bool          `bson:"deleted" json:"-"`
}
