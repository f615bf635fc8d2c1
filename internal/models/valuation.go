package models

import (
	"time"
)

// ValuationRequest is a public "what is my business worth" form submission.
// It has no workflow; the concierge team follows up by email.
type ValuationRequest struct {
	Base         `bson:",inline"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	Mobile       string    `bson:"mobile,omitempty" json:"mobile,omitempty"`
	BusinessName string    `bson:"business_name" json:"businessName"`
	Industry     string    `bson:"industry" json:"industry"`
	Turnover     float64   `bson:"turnover" json:"turnover"`
	Message      string    `bson:"message,omitempty" json:"message,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
	Deleted      bool      `bson:"deleted" json:"-"`
}
