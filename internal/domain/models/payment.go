// internal/domain/models/payment.go
package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentType selects how a payment's ledger is interpreted.
type PaymentType string

const (
	// PaymentRequired is fixed dues: each entry carries an independent paid flag
	// and the collected total is paid count times Amount.
	PaymentRequired PaymentType = "required"
	// PaymentContribution and PaymentDonation derive paid from amount_paid > 0
	// and total the amounts.
	PaymentContribution PaymentType = "contribution"
	PaymentDonation     PaymentType = "donation"
)

// ParsePaymentType validates a raw type string.
func ParsePaymentType(s string) (PaymentType, error) {
	switch t := PaymentType(s); t {
	case PaymentRequired, PaymentContribution, PaymentDonation:
		return t, nil
	}
	return "", fmt.Errorf("unknown payment type %q", s)
}

// Payment is a tenant-scoped charge with an embedded per-member ledger.
// Absence from Members means the member is not tracked for this payment.
type Payment struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	GroupID     primitive.ObjectID `bson:"group_id" json:"group_id"`
	Title       string             `bson:"title" json:"title"`
	TitleCI     string             `bson:"title_ci" json:"-"`
	Description string             `bson:"description" json:"description"`
	Type        PaymentType        `bson:"type" json:"type"`
	Amount      float64            `bson:"amount" json:"amount"`
	DueDate     *time.Time         `bson:"due_date,omitempty" json:"due_date,omitempty"`
	Published   bool               `bson:"published" json:"published"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"created_by"`

	Members []LedgerEntry `bson:"members" json:"members"`
	// Rev increments on every ledger write.
	Rev int64 `bson:"rev" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// LedgerEntry is one member's state for a payment.
type LedgerEntry struct {
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	Paid       bool               `bson:"paid" json:"paid"`
	AmountPaid float64            `bson:"amount_paid" json:"amount_paid"`
}

// Entry returns the ledger entry for userID, if attached.
func (p Payment) Entry(userID primitive.ObjectID) (LedgerEntry, bool) {
	for _, e := range p.Members {
		if e.UserID == userID {
			return e, true
		}
	}
	return LedgerEntry{}, false
}
