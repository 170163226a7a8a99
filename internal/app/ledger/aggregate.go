package ledger

import "github.com/dalemusser/grouphub/internal/domain/models"

// Summary is the aggregate view of a payment's ledger.
//
// For required payments TotalCollected is PaidCount*Amount and
// TotalExpected is Entries*Amount. For contributions and donations
// TotalAmountPaid sums amount_paid and Contributors counts entries with a
// positive amount.
type Summary struct {
	Entries         int     `json:"entries"`
	PaidCount       int     `json:"paid_count"`
	TotalCollected  float64 `json:"total_collected"`
	TotalExpected   float64 `json:"total_expected"`
	TotalAmountPaid float64 `json:"total_amount_paid"`
	Contributors    int     `json:"contributors"`
}

// Summarize aggregates p's ledger according to its type.
func Summarize(p models.Payment) Summary {
	s := Summary{Entries: len(p.Members)}
	if p.Type == models.PaymentRequired {
		for _, e := range p.Members {
			if e.Paid {
				s.PaidCount++
			}
		}
		s.TotalCollected = float64(s.PaidCount) * p.Amount
		s.TotalExpected = float64(s.Entries) * p.Amount
		return s
	}
	for _, e := range p.Members {
		s.TotalAmountPaid += e.AmountPaid
		if e.AmountPaid > 0 {
			s.Contributors++
		}
	}
	s.PaidCount = s.Contributors
	return s
}

// entryFor builds a ledger entry for a newly attached member.
func entryFor(t models.PaymentType, sel Selection) models.LedgerEntry {
	if t == models.PaymentRequired {
		return models.LedgerEntry{UserID: sel.UserID}
	}
	return models.LedgerEntry{UserID: sel.UserID, AmountPaid: sel.AmountPaid, Paid: sel.AmountPaid > 0}
}
