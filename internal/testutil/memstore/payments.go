package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	paymentstore "github.com/dalemusser/grouphub/internal/app/store/payments"
	"github.com/dalemusser/grouphub/internal/app/system/paging"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payments mirrors paymentstore.Store. List ignores cursors and returns the
// first page only.
type Payments struct{ d *DB }

func (s *Payments) Create(_ context.Context, p models.Payment) (models.Payment, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.d.fail("payments.create"); err != nil {
		return models.Payment{}, err
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.TitleCI = text.Fold(p.Title)
	if p.Members == nil {
		p.Members = []models.LedgerEntry{}
	}
	p.Rev = 0
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	s.d.payments[p.ID] = clonePayment(p)
	return p, nil
}

func (s *Payments) GetScoped(_ context.Context, id, groupID primitive.ObjectID) (models.Payment, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	p, ok := s.d.payments[id]
	if !ok || p.GroupID != groupID {
		return models.Payment{}, paymentstore.ErrNotFound
	}
	return clonePayment(p), nil
}

func (s *Payments) SetPaid(_ context.Context, id, groupID primitive.ObjectID, userIDs []primitive.ObjectID, paid bool) (models.Payment, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.d.fail("payments.setpaid"); err != nil {
		return models.Payment{}, err
	}
	p, ok := s.d.payments[id]
	if !ok || p.GroupID != groupID || p.Type != models.PaymentRequired {
		return models.Payment{}, paymentstore.ErrNotFound
	}
	set := make(map[primitive.ObjectID]bool, len(userIDs))
	for _, u := range userIDs {
		set[u] = true
	}
	before := clonePayment(p)
	p = clonePayment(p)
	changed := false
	for i := range p.Members {
		if set[p.Members[i].UserID] && p.Members[i].Paid != paid {
			p.Members[i].Paid = paid
			changed = true
		}
	}
	if !changed {
		return models.Payment{}, paymentstore.ErrNotFound
	}
	p.Rev++
	p.UpdatedAt = time.Now().UTC()
	s.d.payments[id] = p
	return before, nil
}

func (s *Payments) Replace(_ context.Context, p models.Payment, expectRev int64) (models.Payment, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.d.fail("payments.replace"); err != nil {
		return models.Payment{}, err
	}
	cur, ok := s.d.payments[p.ID]
	if !ok || cur.GroupID != p.GroupID {
		return models.Payment{}, paymentstore.ErrNotFound
	}
	if cur.Rev != expectRev {
		return models.Payment{}, paymentstore.ErrStale
	}
	p.TitleCI = text.Fold(p.Title)
	p.Rev = expectRev + 1
	p.UpdatedAt = time.Now().UTC()
	if p.Members == nil {
		p.Members = []models.LedgerEntry{}
	}
	s.d.payments[p.ID] = clonePayment(p)
	return p, nil
}

// Bump increments a payment's rev as a concurrent writer would.
func (s *Payments) Bump(id primitive.ObjectID) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	p := s.d.payments[id]
	p.Rev++
	s.d.payments[id] = p
}

func (s *Payments) ListPublished(_ context.Context, groupID primitive.ObjectID) ([]models.Payment, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	out := []models.Payment{}
	for _, p := range s.d.payments {
		if p.GroupID == groupID && p.Published {
			out = append(out, clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Payments) List(_ context.Context, groupID primitive.ObjectID, p paging.Params) (paging.Page[models.Payment], error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	prefix := text.Fold(p.Search)
	rows := []models.Payment{}
	for _, pay := range s.d.payments {
		if pay.GroupID == groupID && strings.HasPrefix(pay.TitleCI, prefix) {
			rows = append(rows, clonePayment(pay))
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].TitleCI < rows[j].TitleCI })
	limit := p.Limit
	if limit <= 0 {
		limit = paging.PageSize
	}
	page := paging.Page[models.Payment]{}
	if len(rows) > limit {
		rows = rows[:limit]
		page.HasNext = true
	}
	page.Items = rows
	return page, nil
}

func (s *Payments) Delete(_ context.Context, id, groupID primitive.ObjectID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	p, ok := s.d.payments[id]
	if !ok || p.GroupID != groupID {
		return paymentstore.ErrNotFound
	}
	delete(s.d.payments, id)
	return nil
}
