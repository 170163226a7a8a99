package membership

import (
	"context"
	"errors"

	emailverify "github.com/dalemusser/grouphub/internal/app/store/emailverify"
	groupstore "github.com/dalemusser/grouphub/internal/app/store/groups"
	userstore "github.com/dalemusser/grouphub/internal/app/store/users"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// LoginResult is either a token or a request to confirm an emailed code.
type LoginResult struct {
	NeedsVerification bool
	Token             TokenResult
}

// Login checks credentials. An unverified account gets a fresh OTP instead
// of a token.
func (r *Registry) Login(ctx context.Context, email, password string) (LoginResult, error) {
	u, err := r.users.GetByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		r.audit.LoginFailed(ctx, email, "unknown_email")
		return LoginResult{}, ErrBadCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if !r.hasher.Verify(password, u.PasswordHash) {
		r.audit.LoginFailed(ctx, u.Email, "bad_password")
		return LoginResult{}, ErrBadCredentials
	}

	if !u.Verified {
		if err := r.reissueOTP(ctx, u); err != nil {
			return LoginResult{}, err
		}
		return LoginResult{NeedsVerification: true}, nil
	}

	tok, err := r.sessionToken(ctx, u)
	if err != nil {
		return LoginResult{}, err
	}
	r.audit.LoginSuccess(ctx, u.ID, tok.GroupID)
	return LoginResult{Token: tok}, nil
}

// ConfirmOTP verifies the emailed code, marks the account verified and
// logs the user in.
func (r *Registry) ConfirmOTP(ctx context.Context, email, code string) (TokenResult, error) {
	u, err := r.users.GetByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		return TokenResult{}, ErrOTPNotFound
	}
	if err != nil {
		return TokenResult{}, err
	}

	err = r.otps.Verify(ctx, u.ID, code, r.now())
	switch {
	case errors.Is(err, emailverify.ErrNotFound):
		return TokenResult{}, ErrOTPNotFound
	case errors.Is(err, emailverify.ErrExpired):
		r.audit.VerificationFailed(ctx, u.ID, "expired")
		return TokenResult{}, ErrOTPExpired
	case errors.Is(err, emailverify.ErrInvalidCode):
		return TokenResult{}, r.failedAttempt(ctx, u)
	case err != nil:
		return TokenResult{}, err
	}

	if err := r.users.MarkVerified(ctx, u.ID); err != nil {
		return TokenResult{}, err
	}
	u.Verified = true
	r.audit.VerificationConfirmed(ctx, u.ID)

	tok, err := r.sessionToken(ctx, u)
	if err != nil {
		return TokenResult{}, err
	}
	r.audit.LoginSuccess(ctx, u.ID, tok.GroupID)
	return tok, nil
}

// failedAttempt counts a wrong code. The pending code is discarded once
// the user reaches emailverify.MaxVerifyAttempts.
func (r *Registry) failedAttempt(ctx context.Context, u models.User) error {
	n, err := r.users.IncOTPAttempts(ctx, u.ID)
	if err != nil {
		return err
	}
	if n < emailverify.MaxVerifyAttempts {
		r.audit.VerificationFailed(ctx, u.ID, "invalid_code")
		return ErrOTPInvalid
	}
	if err := r.otps.DeleteByUser(ctx, u.ID); err != nil {
		r.log.Warn("purge OTP after too many attempts", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
	r.audit.VerificationFailed(ctx, u.ID, "too_many_attempts")
	return ErrOTPTooManyAttempts
}

// ResendOTP issues a new code to an unverified account. Unknown and
// already-verified emails are silently ignored so the endpoint cannot be
// used to discover accounts.
func (r *Registry) ResendOTP(ctx context.Context, email string) error {
	u, err := r.users.GetByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if u.Verified {
		return nil
	}
	return r.reissueOTP(ctx, u)
}

func (r *Registry) reissueOTP(ctx context.Context, u models.User) error {
	if err := r.users.ResetOTPAttempts(ctx, u.ID); err != nil {
		return err
	}
	code, err := r.otps.Create(ctx, u.ID, u.Email)
	if err != nil {
		return err
	}
	groupName := ""
	if u.CurrentGroup != nil {
		if g, err := r.groups.GetByID(ctx, *u.CurrentGroup); err == nil {
			groupName = g.Name
		}
	}
	r.sendOTP(ctx, u, code, groupName)
	return nil
}

// sessionToken picks the group a login token is scoped to: current_group
// while its membership is active, otherwise the first active membership,
// otherwise none. The choice is persisted as current_group.
func (r *Registry) sessionToken(ctx context.Context, u models.User) (TokenResult, error) {
	ug, ok := models.UserGroup{}, false
	if u.CurrentGroup != nil {
		if m, found := u.Membership(*u.CurrentGroup); found && m.Status == models.MemberActive {
			ug, ok = m, true
		}
	}
	if !ok {
		ug, ok = u.FirstActive()
	}
	if !ok {
		if u.CurrentGroup != nil {
			if err := r.users.SetCurrentGroup(ctx, u.ID, nil); err != nil {
				r.log.Warn("clear current group", zap.String("user_id", u.ID.Hex()), zap.Error(err))
			}
		}
		return r.issue(u, nil, nil)
	}

	g, err := r.groups.GetByID(ctx, ug.GroupID)
	if errors.Is(err, groupstore.ErrNotFound) {
		return r.issue(u, nil, nil)
	}
	if err != nil {
		return TokenResult{}, err
	}
	if u.CurrentGroup == nil || *u.CurrentGroup != g.ID {
		gid := g.ID
		if err := r.users.SetCurrentGroup(ctx, u.ID, &gid); err != nil {
			r.log.Warn("persist current group", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		}
	}
	return r.issue(u, &g, ug.Permissions)
}

// SwitchGroup reissues the caller's token for another group they belong to.
func (r *Registry) SwitchGroup(ctx context.Context, userID, groupID primitive.ObjectID) (TokenResult, error) {
	u, err := r.lookupUser(ctx, userID)
	if err != nil {
		return TokenResult{}, err
	}
	ug, ok := u.Membership(groupID)
	if !ok {
		return TokenResult{}, ErrNotAMember
	}
	if ug.Status != models.MemberActive {
		return TokenResult{}, ErrMemberInactive
	}
	g, err := r.groups.GetByID(ctx, groupID)
	if errors.Is(err, groupstore.ErrNotFound) {
		return TokenResult{}, ErrTenantNotFound
	}
	if err != nil {
		return TokenResult{}, err
	}
	if err := r.users.SetCurrentGroup(ctx, u.ID, &groupID); err != nil {
		return TokenResult{}, err
	}
	r.audit.GroupSwitched(ctx, u.ID, groupID)
	return r.issue(u, &g, ug.Permissions)
}
