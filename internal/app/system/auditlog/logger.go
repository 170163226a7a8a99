// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/grouphub/internal/app/store/audit"
	"github.com/dalemusser/grouphub/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls login, OTP and group-switch events.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls membership, ledger and record events. Same values as Auth.
	Admin string
}

// ValidSetting reports whether s is a recognised Config value.
func ValidSetting(s string) bool {
	switch s {
	case "all", "db", "log", "off":
		return true
	}
	return false
}

// Logger writes audit events to MongoDB (via audit.Store) and zap.
// A nil *Logger is a no-op.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

type requestInfo struct {
	ip        string
	userAgent string
}

type ctxKey struct{}

// Middleware records the client IP and user agent on the request context so
// services that only see a context can still attribute events.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithRequest(r.Context(), r)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithRequest returns ctx carrying r's client details.
func WithRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestInfo{ip: ratelimit.ClientIP(r), userAgent: r.UserAgent()})
}

func infoFrom(ctx context.Context) requestInfo {
	ri, _ := ctx.Value(ctxKey{}).(requestInfo)
	return ri
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.GroupID != nil {
		fields = append(fields, zap.String("group_id", event.GroupID.Hex()))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records event according to the category's setting. Client details are
// taken from ctx when the event does not carry them.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	setting := "all"
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryMembership, audit.CategoryLedger, audit.CategoryRecords:
		setting = l.config.Admin
	}
	if setting == "off" {
		return
	}

	if event.IP == "" {
		ri := infoFrom(ctx)
		event.IP, event.UserAgent = ri.ip, ri.userAgent
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}
	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

// --- Authentication events ---

// LoginSuccess logs a successful login. groupID is nil for unscoped tokens.
func (l *Logger) LoginSuccess(ctx context.Context, userID primitive.ObjectID, groupID *primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		GroupID:   groupID,
		Success:   true,
	})
}

// LoginFailed logs rejected credentials. The email is recorded as typed.
func (l *Logger) LoginFailed(ctx context.Context, email, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailed,
		Success:       false,
		FailureReason: reason,
		Details:       map[string]string{"email": email},
	})
}

// LoginRateLimited logs a login refused by the per-account limiter.
func (l *Logger) LoginRateLimited(ctx context.Context, email string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginRateLimited,
		Success:       false,
		FailureReason: "too many attempts",
		Details:       map[string]string{"email": email},
	})
}

// VerificationCodeSent logs that an OTP was issued for userID.
func (l *Logger) VerificationCodeSent(ctx context.Context, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventVerificationCodeSent,
		UserID:    &userID,
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}

// VerificationConfirmed logs a successful OTP confirmation.
func (l *Logger) VerificationConfirmed(ctx context.Context, userID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventVerificationConfirmed,
		UserID:    &userID,
		Success:   true,
	})
}

// VerificationFailed logs a rejected OTP (reason is the error code).
func (l *Logger) VerificationFailed(ctx context.Context, userID primitive.ObjectID, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventVerificationFailed,
		UserID:        &userID,
		Success:       false,
		FailureReason: reason,
	})
}

// GroupSwitched logs a change of active group.
func (l *Logger) GroupSwitched(ctx context.Context, userID, groupID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventGroupSwitched,
		UserID:    &userID,
		GroupID:   &groupID,
		Success:   true,
	})
}

// --- Membership events ---

// GroupCreated logs a new group and its owner.
func (l *Logger) GroupCreated(ctx context.Context, ownerID, groupID primitive.ObjectID, name string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryMembership,
		EventType: audit.EventGroupCreated,
		ActorID:   &ownerID,
		UserID:    &ownerID,
		GroupID:   &groupID,
		Success:   true,
		Details:   map[string]string{"name": name},
	})
}

// MemberJoined logs a committed join.
func (l *Logger) MemberJoined(ctx context.Context, userID, groupID primitive.ObjectID, memberNumber string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryMembership,
		EventType: audit.EventMemberJoined,
		UserID:    &userID,
		GroupID:   &groupID,
		Success:   true,
		Details:   map[string]string{"member_number": memberNumber},
	})
}

// MemberRemoved logs one removed member.
func (l *Logger) MemberRemoved(ctx context.Context, actorID, groupID, userID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryMembership,
		EventType: audit.EventMemberRemoved,
		ActorID:   &actorID,
		UserID:    &userID,
		GroupID:   &groupID,
		Success:   true,
	})
}

// MemberStatusChanged logs an activation or deactivation.
func (l *Logger) MemberStatusChanged(ctx context.Context, actorID, groupID, userID primitive.ObjectID, status string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryMembership,
		EventType: audit.EventMemberStatusChanged,
		ActorID:   &actorID,
		UserID:    &userID,
		GroupID:   &groupID,
		Success:   true,
		Details:   map[string]string{"status": status},
	})
}

// --- Ledger events ---

// PaymentCreated logs a new payment record.
func (l *Logger) PaymentCreated(ctx context.Context, actorID, groupID, paymentID primitive.ObjectID, paymentType string, entries int) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryLedger,
		EventType: audit.EventPaymentCreated,
		ActorID:   &actorID,
		GroupID:   &groupID,
		Success:   true,
		Details: map[string]string{
			"payment_id": paymentID.Hex(),
			"type":       paymentType,
			"entries":    strconv.Itoa(entries),
		},
	})
}

// PaymentsMarked logs a bulk mark-paid.
func (l *Logger) PaymentsMarked(ctx context.Context, actorID, groupID, paymentID primitive.ObjectID, matched int, paid bool) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryLedger,
		EventType: audit.EventPaymentsMarked,
		ActorID:   &actorID,
		GroupID:   &groupID,
		Success:   true,
		Details: map[string]string{
			"payment_id": paymentID.Hex(),
			"matched":    strconv.Itoa(matched),
			"paid":       strconv.FormatBool(paid),
		},
	})
}

// LedgerEdited logs a ledger or field edit.
func (l *Logger) LedgerEdited(ctx context.Context, actorID, groupID, paymentID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryLedger,
		EventType: audit.EventLedgerEdited,
		ActorID:   &actorID,
		GroupID:   &groupID,
		Success:   true,
		Details:   map[string]string{"payment_id": paymentID.Hex()},
	})
}

// PaymentDeleted logs a deleted payment.
func (l *Logger) PaymentDeleted(ctx context.Context, actorID, groupID, paymentID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryLedger,
		EventType: audit.EventPaymentDeleted,
		ActorID:   &actorID,
		GroupID:   &groupID,
		Success:   true,
		Details:   map[string]string{"payment_id": paymentID.Hex()},
	})
}

// --- Record events ---

// RecordChanged logs a create, update or delete of a scoped record.
func (l *Logger) RecordChanged(ctx context.Context, eventType, kind string, actorID, groupID, recordID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryRecords,
		EventType: eventType,
		ActorID:   &actorID,
		GroupID:   &groupID,
		Success:   true,
		Details:   map[string]string{"kind": kind, "record_id": recordID.Hex()},
	})
}
