package ledger_test

import (
	"testing"

	"github.com/dalemusser/grouphub/internal/app/ledger"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func entries(paid []bool, amounts []float64) []models.LedgerEntry {
	out := make([]models.LedgerEntry, len(paid))
	for i := range paid {
		out[i] = models.LedgerEntry{UserID: primitive.NewObjectID(), Paid: paid[i], AmountPaid: amounts[i]}
	}
	return out
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		p    models.Payment
		want ledger.Summary
	}{
		{
			name: "required",
			p:    models.Payment{Type: models.PaymentRequired, Amount: 5000, Members: entries([]bool{true, true, false}, []float64{0, 0, 0})},
			want: ledger.Summary{Entries: 3, PaidCount: 2, TotalCollected: 10000, TotalExpected: 15000},
		},
		{
			name: "required ignores amount_paid",
			p:    models.Payment{Type: models.PaymentRequired, Amount: 10, Members: entries([]bool{false}, []float64{99})},
			want: ledger.Summary{Entries: 1, TotalExpected: 10},
		},
		{
			name: "donation",
			p:    models.Payment{Type: models.PaymentDonation, Members: entries([]bool{true, true, false}, []float64{1500, 2500, 0})},
			want: ledger.Summary{Entries: 3, PaidCount: 2, TotalAmountPaid: 4000, Contributors: 2},
		},
		{
			name: "empty contribution",
			p:    models.Payment{Type: models.PaymentContribution},
			want: ledger.Summary{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ledger.Summarize(tt.p))
		})
	}
}
