// Package ledger tracks who has paid what for each group payment.
//
// A payment embeds one ledger entry per tracked member. Required payments
// carry an explicit paid flag per member; contributions and donations
// derive paid from amount_paid. Every read and write is scoped to the
// caller's group.
package ledger

import (
	"context"
	"errors"

	paymentstore "github.com/dalemusser/grouphub/internal/app/store/payments"
	"github.com/dalemusser/grouphub/internal/app/system/apperr"
	"github.com/dalemusser/grouphub/internal/app/system/auditlog"
	"github.com/dalemusser/grouphub/internal/app/system/metrics"
	"github.com/dalemusser/grouphub/internal/app/system/paging"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrPaymentNotFound   = apperr.E(apperr.NotFound, "PAYMENT_NOT_FOUND", "Payment not found.")
	ErrPaymentForbidden  = apperr.E(apperr.Permission, "PAYMENT_FORBIDDEN", "You cannot modify this payment.")
	ErrNoMatchingMembers = apperr.E(apperr.NotFound, "NO_MATCHING_MEMBERS", "None of the selected members are on this payment or need a change.")
	ErrNoMembersSelected = apperr.E(apperr.Validation, "NO_MEMBERS_SELECTED", "Select at least one member.")
	ErrNotMembers        = apperr.E(apperr.Validation, "INVALID_MEMBERS", "Every selected member must belong to this group.")
	ErrBadType           = apperr.E(apperr.Validation, "INVALID_PAYMENT_TYPE", "Payment type must be required, contribution or donation.")
	ErrTypeMismatch      = apperr.E(apperr.Validation, "PAYMENT_TYPE_MISMATCH", "The payment type does not match this payment.")
	ErrTitleRequired     = apperr.E(apperr.Validation, "TITLE_REQUIRED", "Title is required.")
	ErrAmountRequired    = apperr.E(apperr.Validation, "INVALID_AMOUNT", "Required payments need an amount greater than zero.")
	ErrNegativeAmount    = apperr.E(apperr.Validation, "INVALID_AMOUNT", "Amounts cannot be negative.")
	ErrPaidIsDerived     = apperr.E(apperr.Validation, "PAID_IS_DERIVED", "Paid status of contributions and donations follows the amount paid.")
	ErrLedgerConflict    = apperr.E(apperr.Conflict, "LEDGER_CONFLICT", "The payment was changed by someone else. Reload and try again.")
)

// maxEditRetries is how many times a ledger edit re-reads and retries after
// losing a rev race.
const maxEditRetries = 3

// Payments is the payment repository the ledger needs.
type Payments interface {
	Create(ctx context.Context, p models.Payment) (models.Payment, error)
	GetScoped(ctx context.Context, id, groupID primitive.ObjectID) (models.Payment, error)
	SetPaid(ctx context.Context, id, groupID primitive.ObjectID, userIDs []primitive.ObjectID, paid bool) (models.Payment, error)
	Replace(ctx context.Context, p models.Payment, expectRev int64) (models.Payment, error)
	ListPublished(ctx context.Context, groupID primitive.ObjectID) ([]models.Payment, error)
	List(ctx context.Context, groupID primitive.ObjectID, p paging.Params) (paging.Page[models.Payment], error)
	Delete(ctx context.Context, id, groupID primitive.ObjectID) error
}

// Members answers group membership questions about users.
type Members interface {
	CountMembers(ctx context.Context, groupID primitive.ObjectID, ids []primitive.ObjectID) (int64, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
}

// Deps wires a Service. Audit and Metrics may be nil.
type Deps struct {
	Payments Payments
	Members  Members
	Audit    *auditlog.Logger
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

// Service is the payment ledger.
type Service struct {
	payments Payments
	members  Members
	audit    *auditlog.Logger
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func New(d Deps) *Service {
	s := &Service{
		payments: d.Payments,
		members:  d.Members,
		audit:    d.Audit,
		metrics:  d.Metrics,
		log:      d.Log,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// forWrite loads a payment for mutation. Missing and cross-group payments
// are both reported as ErrPaymentForbidden.
func (s *Service) forWrite(ctx context.Context, id, groupID primitive.ObjectID) (models.Payment, error) {
	p, err := s.payments.GetScoped(ctx, id, groupID)
	if errors.Is(err, paymentstore.ErrNotFound) {
		return models.Payment{}, ErrPaymentForbidden
	}
	return p, err
}

// forRead loads a payment for display. Missing and cross-group payments
// are both reported as ErrPaymentNotFound.
func (s *Service) forRead(ctx context.Context, id, groupID primitive.ObjectID) (models.Payment, error) {
	p, err := s.payments.GetScoped(ctx, id, groupID)
	if errors.Is(err, paymentstore.ErrNotFound) {
		return models.Payment{}, ErrPaymentNotFound
	}
	return p, err
}

// checkMembers fails unless every id belongs to groupID. ids must be
// de-duplicated.
func (s *Service) checkMembers(ctx context.Context, groupID primitive.ObjectID, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := s.members.CountMembers(ctx, groupID, ids)
	if err != nil {
		return err
	}
	if n != int64(len(ids)) {
		return ErrNotMembers
	}
	return nil
}
