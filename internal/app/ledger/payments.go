package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	paymentstore "github.com/dalemusser/grouphub/internal/app/store/payments"
	"github.com/dalemusser/grouphub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/grouphub/internal/app/system/paging"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CreateInput describes a new payment. Published defaults to true.
type CreateInput struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Type        string      `json:"type"`
	Amount      float64     `json:"amount"`
	DueDate     *time.Time  `json:"due_date"`
	Published   *bool       `json:"published"`
	Members     []Selection `json:"members"`
}

// Create records a payment with a ledger entry per selected member. Every
// selected id must belong to the group or nothing is written.
func (s *Service) Create(ctx context.Context, groupID, creatorID primitive.ObjectID, in CreateInput) (models.Payment, error) {
	t, err := models.ParsePaymentType(strings.TrimSpace(in.Type))
	if err != nil {
		return models.Payment{}, ErrBadType
	}
	title := htmlsanitize.PlainText(in.Title)
	if title == "" {
		return models.Payment{}, ErrTitleRequired
	}
	if in.Amount < 0 {
		return models.Payment{}, ErrNegativeAmount
	}
	if t == models.PaymentRequired && in.Amount <= 0 {
		return models.Payment{}, ErrAmountRequired
	}

	sel, ids, err := collapse(in.Members)
	if err != nil {
		return models.Payment{}, err
	}
	if err := s.checkMembers(ctx, groupID, ids); err != nil {
		return models.Payment{}, err
	}

	entries := make([]models.LedgerEntry, len(sel))
	for i, m := range sel {
		entries[i] = entryFor(t, m)
	}
	published := true
	if in.Published != nil {
		published = *in.Published
	}

	p, err := s.payments.Create(ctx, models.Payment{
		GroupID:     groupID,
		Title:       title,
		Description: htmlsanitize.Sanitize(in.Description),
		Type:        t,
		Amount:      in.Amount,
		DueDate:     in.DueDate,
		Published:   published,
		CreatedBy:   creatorID,
		Members:     entries,
	})
	if err != nil {
		return models.Payment{}, err
	}
	s.audit.PaymentCreated(ctx, creatorID, groupID, p.ID, string(t), len(entries))
	return p, nil
}

// MarkPaid sets paid on the listed members of a required payment in one
// atomic update and returns how many ledger entries it changed. Members not
// on the ledger, or already in the requested state, are ignored; if that
// leaves nothing to change, nothing is written and ErrNoMatchingMembers is
// returned.
func (s *Service) MarkPaid(ctx context.Context, actorID, paymentID, groupID primitive.ObjectID, memberIDs []primitive.ObjectID, paid bool) (int, error) {
	ids := dedupe(memberIDs)
	if len(ids) == 0 {
		return 0, ErrNoMembersSelected
	}
	p, err := s.forWrite(ctx, paymentID, groupID)
	if err != nil {
		return 0, err
	}
	if p.Type != models.PaymentRequired {
		return 0, ErrPaidIsDerived
	}
	if countChanges(p, ids, paid) == 0 {
		return 0, ErrNoMatchingMembers
	}

	before, err := s.payments.SetPaid(ctx, paymentID, groupID, ids, paid)
	if errors.Is(err, paymentstore.ErrNotFound) {
		// a concurrent writer deleted the payment or already made the change
		if _, err := s.forWrite(ctx, paymentID, groupID); err != nil {
			return 0, err
		}
		return 0, ErrNoMatchingMembers
	}
	if err != nil {
		return 0, err
	}
	n := countChanges(before, ids, paid)
	if n == 0 {
		return 0, ErrNoMatchingMembers
	}

	s.metrics.Marked(n)
	s.audit.PaymentsMarked(ctx, actorID, groupID, paymentID, n, paid)
	return n, nil
}

// countChanges counts the entries of p listed in ids whose paid differs.
func countChanges(p models.Payment, ids []primitive.ObjectID, paid bool) int {
	set := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	n := 0
	for _, e := range p.Members {
		if _, ok := set[e.UserID]; ok && e.Paid != paid {
			n++
		}
	}
	return n
}

// EditInput holds optional changes to a payment. A nil Members leaves the
// ledger alone.
type EditInput struct {
	Title       *string     `json:"title"`
	Description *string     `json:"description"`
	Amount      *float64    `json:"amount"`
	DueDate     *time.Time  `json:"due_date"`
	Published   *bool       `json:"published"`
	Members     []Selection `json:"members"`
}

// UpdateLedger edits a payment whose stored type must equal pathType.
//
// For required payments Members replaces the roster: kept members keep
// their paid state and new members start unpaid. For contributions and
// donations each selection upserts amount_paid for that member and the
// rest of the ledger is untouched.
//
// The write is conditional on rev; after maxEditRetries lost races the
// edit fails with ErrLedgerConflict.
func (s *Service) UpdateLedger(ctx context.Context, actorID, paymentID, groupID primitive.ObjectID, pathType string, in EditInput) (models.Payment, error) {
	t, err := models.ParsePaymentType(pathType)
	if err != nil {
		return models.Payment{}, ErrBadType
	}
	var (
		sel []Selection
		ids []primitive.ObjectID
	)
	if in.Members != nil {
		if sel, ids, err = collapse(in.Members); err != nil {
			return models.Payment{}, err
		}
	}
	if in.Amount != nil && *in.Amount < 0 {
		return models.Payment{}, ErrNegativeAmount
	}
	var title string
	if in.Title != nil {
		if title = htmlsanitize.PlainText(*in.Title); title == "" {
			return models.Payment{}, ErrTitleRequired
		}
	}

	checked := false
	for attempt := 0; attempt <= maxEditRetries; attempt++ {
		p, err := s.forWrite(ctx, paymentID, groupID)
		if err != nil {
			return models.Payment{}, err
		}
		if p.Type != t {
			return models.Payment{}, ErrTypeMismatch
		}
		if !checked {
			if err := s.checkMembers(ctx, groupID, ids); err != nil {
				return models.Payment{}, err
			}
			checked = true
		}

		if in.Title != nil {
			p.Title = title
		}
		if in.Description != nil {
			p.Description = htmlsanitize.Sanitize(*in.Description)
		}
		if in.Amount != nil {
			p.Amount = *in.Amount
		}
		if in.DueDate != nil {
			p.DueDate = in.DueDate
		}
		if in.Published != nil {
			p.Published = *in.Published
		}
		if p.Type == models.PaymentRequired && p.Amount <= 0 {
			return models.Payment{}, ErrAmountRequired
		}
		if in.Members != nil {
			p.Members = applySelections(p, sel)
		}

		updated, err := s.payments.Replace(ctx, p, p.Rev)
		switch {
		case err == nil:
			s.audit.LedgerEdited(ctx, actorID, groupID, paymentID)
			return updated, nil
		case errors.Is(err, paymentstore.ErrStale):
			s.log.Debug("ledger edit lost rev race, retrying",
				zap.String("payment_id", paymentID.Hex()), zap.Int("attempt", attempt+1))
			continue
		case errors.Is(err, paymentstore.ErrNotFound):
			return models.Payment{}, ErrPaymentForbidden
		default:
			return models.Payment{}, err
		}
	}
	s.metrics.Conflict()
	return models.Payment{}, ErrLedgerConflict
}

// applySelections returns the new ledger for p after an edit.
func applySelections(p models.Payment, sel []Selection) []models.LedgerEntry {
	if p.Type == models.PaymentRequired {
		out := make([]models.LedgerEntry, 0, len(sel))
		for _, s := range sel {
			if e, ok := p.Entry(s.UserID); ok {
				out = append(out, e)
				continue
			}
			out = append(out, entryFor(p.Type, s))
		}
		return out
	}

	out := append([]models.LedgerEntry{}, p.Members...)
	pos := make(map[primitive.ObjectID]int, len(out))
	for i, e := range out {
		pos[e.UserID] = i
	}
	for _, s := range sel {
		e := entryFor(p.Type, s)
		if i, ok := pos[s.UserID]; ok {
			out[i] = e
			continue
		}
		pos[s.UserID] = len(out)
		out = append(out, e)
	}
	return out
}

// Delete removes a payment and its ledger.
func (s *Service) Delete(ctx context.Context, actorID, paymentID, groupID primitive.ObjectID) error {
	err := s.payments.Delete(ctx, paymentID, groupID)
	if errors.Is(err, paymentstore.ErrNotFound) {
		return ErrPaymentForbidden
	}
	if err != nil {
		return err
	}
	s.audit.PaymentDeleted(ctx, actorID, groupID, paymentID)
	return nil
}

// LedgerLine is one ledger entry with the member's name.
type LedgerLine struct {
	UserID     primitive.ObjectID `json:"user_id"`
	FullName   string             `json:"full_name"`
	Email      string             `json:"email"`
	Paid       bool               `json:"paid"`
	AmountPaid float64            `json:"amount_paid"`
}

// Detail is the manager's view of a payment.
type Detail struct {
	models.Payment
	Members []LedgerLine `json:"members"`
	Summary Summary      `json:"summary"`
}

// Detail returns the full ledger with member names and aggregates.
func (s *Service) Detail(ctx context.Context, paymentID, groupID primitive.ObjectID) (Detail, error) {
	p, err := s.forRead(ctx, paymentID, groupID)
	if err != nil {
		return Detail{}, err
	}
	ids := make([]primitive.ObjectID, len(p.Members))
	for i, e := range p.Members {
		ids[i] = e.UserID
	}
	users, err := s.members.FindByIDs(ctx, ids)
	if err != nil {
		return Detail{}, err
	}
	byID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	lines := make([]LedgerLine, len(p.Members))
	for i, e := range p.Members {
		u := byID[e.UserID]
		lines[i] = LedgerLine{
			UserID:     e.UserID,
			FullName:   u.FullName,
			Email:      u.Email,
			Paid:       e.Paid,
			AmountPaid: e.AmountPaid,
		}
	}
	return Detail{Payment: p, Members: lines, Summary: Summarize(p)}, nil
}

// MemberPayment is a payment as one member sees it: only their own entry.
type MemberPayment struct {
	ID          primitive.ObjectID `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Type        models.PaymentType `json:"type"`
	Amount      float64            `json:"amount"`
	DueDate     *time.Time         `json:"due_date,omitempty"`
	Attached    bool               `json:"attached"`
	Paid        bool               `json:"paid"`
	AmountPaid  float64            `json:"amount_paid"`
}

func project(p models.Payment, userID primitive.ObjectID) MemberPayment {
	mp := MemberPayment{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Type:        p.Type,
		Amount:      p.Amount,
		DueDate:     p.DueDate,
	}
	if e, ok := p.Entry(userID); ok {
		mp.Attached = true
		mp.Paid = e.Paid
		mp.AmountPaid = e.AmountPaid
	}
	return mp
}

// MemberView returns a published payment projected to the caller's entry.
// Unpublished payments are reported as not found.
func (s *Service) MemberView(ctx context.Context, paymentID, groupID, userID primitive.ObjectID) (MemberPayment, error) {
	p, err := s.forRead(ctx, paymentID, groupID)
	if err != nil {
		return MemberPayment{}, err
	}
	if !p.Published {
		return MemberPayment{}, ErrPaymentNotFound
	}
	return project(p, userID), nil
}

// ListForMember returns every published payment with the caller's status.
func (s *Service) ListForMember(ctx context.Context, groupID, userID primitive.ObjectID) ([]MemberPayment, error) {
	ps, err := s.payments.ListPublished(ctx, groupID)
	if err != nil {
		return nil, err
	}
	out := make([]MemberPayment, len(ps))
	for i, p := range ps {
		out[i] = project(p, userID)
	}
	return out, nil
}

// AdminRow is one line of the manager's payment list.
type AdminRow struct {
	ID        primitive.ObjectID `json:"id"`
	Title     string             `json:"title"`
	Type      models.PaymentType `json:"type"`
	Amount    float64            `json:"amount"`
	DueDate   *time.Time         `json:"due_date,omitempty"`
	Published bool               `json:"published"`
	CreatedAt time.Time          `json:"created_at"`
	Summary   Summary            `json:"summary"`
}

// ListForAdmin returns one keyset page of the group's payments with
// aggregates.
func (s *Service) ListForAdmin(ctx context.Context, groupID primitive.ObjectID, p paging.Params) (paging.Page[AdminRow], error) {
	page, err := s.payments.List(ctx, groupID, p)
	if err != nil {
		return paging.Page[AdminRow]{}, err
	}
	rows := make([]AdminRow, len(page.Items))
	for i, pay := range page.Items {
		rows[i] = AdminRow{
			ID:        pay.ID,
			Title:     pay.Title,
			Type:      pay.Type,
			Amount:    pay.Amount,
			DueDate:   pay.DueDate,
			Published: pay.Published,
			CreatedAt: pay.CreatedAt,
			Summary:   Summarize(pay),
		}
	}
	return paging.Page[AdminRow]{
		Items:      rows,
		HasPrev:    page.HasPrev,
		HasNext:    page.HasNext,
		PrevCursor: page.PrevCursor,
		NextCursor: page.NextCursor,
	}, nil
}
