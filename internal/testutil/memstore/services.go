package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/grouphub/internal/app/ledger"
	"github.com/dalemusser/grouphub/internal/app/membership"
	"github.com/dalemusser/grouphub/internal/app/system/mailer"
	"github.com/dalemusser/grouphub/internal/app/system/tokens"
)

// Credentials used by Registry, Owner and Join.
const (
	TestSecret = "memstore-test-secret-0123456789abcdef"
	Password   = "password123"
	JoinSecret = "open-sesame"
)

// Outbox records OTP mails instead of sending them.
type Outbox struct {
	mu   sync.Mutex
	Sent []mailer.OTPMessage
}

func (o *Outbox) SendOTP(_ context.Context, m mailer.OTPMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Sent = append(o.Sent, m)
	return nil
}

// Len reports how many mails were recorded.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.Sent)
}

// Issuer returns a token issuer keyed with TestSecret.
func Issuer() *tokens.Issuer {
	return tokens.NewIssuer(TestSecret, time.Hour)
}

// Registry wires a membership.Registry over d.
func (d *DB) Registry(out *Outbox) *membership.Registry {
	return membership.New(membership.Deps{
		Users:    d.Users(),
		Groups:   d.Groups(),
		OTPs:     d.OTPs(),
		Tx:       d.Tx(),
		Hasher:   d.Hasher,
		Tokens:   Issuer(),
		Notifier: out,
	})
}

// Ledger wires a ledger.Service over d.
func (d *DB) Ledger() *ledger.Service {
	return ledger.New(ledger.Deps{Payments: d.Payments(), Members: d.Users()})
}

// Owner creates group through reg with email as its verified owner.
func (d *DB) Owner(ctx context.Context, reg *membership.Registry, email, group string) (membership.CreateGroupResult, error) {
	res, err := reg.CreateGroup(ctx, membership.CreateGroupInput{
		Owner: membership.Profile{FullName: "Owner " + email, Email: email, Password: Password},
		Group: membership.GroupInfo{Name: group, JoinSecret: JoinSecret},
	})
	if err != nil {
		return res, err
	}
	_, err = reg.ConfirmOTP(ctx, email, d.OTPs().LastCode(res.UserID))
	return res, err
}

// Join enrolls a new verified member into the group with joinCode.
func (d *DB) Join(ctx context.Context, reg *membership.Registry, joinCode, email string) (membership.JoinResult, error) {
	res, err := reg.JoinGroup(ctx, membership.JoinInput{
		JoinCode:   joinCode,
		JoinSecret: JoinSecret,
		Applicant:  membership.Profile{FullName: "Member " + email, Email: email, Password: Password},
	})
	if err != nil {
		return res, err
	}
	_, err = reg.ConfirmOTP(ctx, email, d.OTPs().LastCode(res.UserID))
	return res, err
}
