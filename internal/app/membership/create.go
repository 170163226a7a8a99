package membership

import (
	"context"
	"errors"
	"strings"

	groupstore "github.com/dalemusser/grouphub/internal/app/store/groups"
	userstore "github.com/dalemusser/grouphub/internal/app/store/users"
	"github.com/dalemusser/grouphub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/grouphub/internal/app/system/normalize"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/dalemusser/waffle/toolkit/validate"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// maxCreateAttempts bounds how often a create transaction is retried after
// losing a join-code race on the unique index.
const maxCreateAttempts = 5

// Profile is the applicant data for a new account.
type Profile struct {
	FullName string
	Email    string
	Password string
	Phone    string
	Gender   string
}

// GroupInfo describes a group being created.
type GroupInfo struct {
	Name        string
	Description string
	JoinSecret  string
}

// CreateGroupInput is a first-time owner registering a group.
type CreateGroupInput struct {
	Owner Profile
	Group GroupInfo
}

// CreateGroupResult identifies what CreateGroup wrote. No token is issued;
// the owner must confirm the emailed code first.
type CreateGroupResult struct {
	UserID       primitive.ObjectID `json:"user_id"`
	GroupID      primitive.ObjectID `json:"group_id"`
	GroupName    string             `json:"group_name"`
	JoinCode     string             `json:"join_code"`
	MemberNumber string             `json:"member_number"`
}

func (p *Profile) normalize() error {
	p.Email = normalize.Email(p.Email)
	p.FullName = htmlsanitize.PlainText(normalize.Name(p.FullName))
	p.Phone = strings.TrimSpace(p.Phone)
	p.Gender = normalize.Status(p.Gender)
	if p.Email == "" || !validate.SimpleEmailValid(p.Email) {
		return ErrInvalidEmail
	}
	if p.FullName == "" {
		return ErrNameRequired
	}
	if len(p.Password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

func (g *GroupInfo) normalize() error {
	g.Name = htmlsanitize.PlainText(normalize.Name(g.Name))
	g.Description = htmlsanitize.Sanitize(strings.TrimSpace(g.Description))
	if g.Name == "" || g.JoinSecret == "" {
		return ErrGroupRequired
	}
	return nil
}

// uniqueJoinCode generates codes until one is unused. The unique index is
// still the final arbiter; see createWithRetry.
func (r *Registry) uniqueJoinCode(ctx context.Context) (string, error) {
	for {
		code, err := r.newJoinCode()
		if err != nil {
			return "", err
		}
		taken, err := r.groups.JoinCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
}

// newGroup builds the group document with owner as its first member.
func (r *Registry) newGroup(info GroupInfo, secretHash, code string, ownerID primitive.ObjectID) (models.Group, models.UserGroup) {
	now := r.now().UTC()
	abbr := Abbreviation(info.Name)
	number := MemberNumber(abbr, 1)
	perms := models.OwnerPermissions()

	gm := models.GroupMember{
		UserID:        ownerID,
		MemberNumber:  number,
		Status:        models.MemberActive,
		Permissions:   perms,
		Notifications: true,
		JoinedAt:      now,
	}
	g := models.Group{
		ID:             primitive.NewObjectID(),
		Name:           info.Name,
		Description:    info.Description,
		JoinSecretHash: secretHash,
		JoinCode:       code,
		Abbreviation:   abbr,
		MemberCounter:  1,
		Members:        []models.GroupMember{gm},
		CreatedBy:      ownerID,
	}
	ug := models.UserGroup{
		GroupID:      g.ID,
		Status:       models.MemberActive,
		Permissions:  perms,
		MemberNumber: number,
		JoinedAt:     now,
	}
	return g, ug
}

// createWithRetry runs write in a fresh transaction with a fresh join code
// until it stops losing the join-code race.
func (r *Registry) createWithRetry(ctx context.Context, write func(ctx context.Context, code string) error) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		code, err := r.uniqueJoinCode(ctx)
		if err != nil {
			return "", err
		}
		err = r.tx.Run(ctx, func(ctx context.Context) error { return write(ctx, code) })
		if !errors.Is(err, groupstore.ErrDuplicateJoinCode) {
			return code, err
		}
		r.log.Info("join code collision, retrying", zap.Int("attempt", attempt+1))
		lastErr = err
	}
	return "", lastErr
}

// CreateGroup registers a new owner and their group. The user, the group,
// both membership tuples and the OTP are written in one transaction.
func (r *Registry) CreateGroup(ctx context.Context, in CreateGroupInput) (CreateGroupResult, error) {
	if err := in.Owner.normalize(); err != nil {
		return CreateGroupResult{}, err
	}
	if err := in.Group.normalize(); err != nil {
		return CreateGroupResult{}, err
	}
	if _, err := r.users.GetByEmail(ctx, in.Owner.Email); err == nil {
		return CreateGroupResult{}, ErrEmailTaken
	} else if !errors.Is(err, userstore.ErrNotFound) {
		return CreateGroupResult{}, err
	}

	pwHash, err := r.hasher.Hash(in.Owner.Password)
	if err != nil {
		return CreateGroupResult{}, err
	}
	secretHash, err := r.hasher.Hash(in.Group.JoinSecret)
	if err != nil {
		return CreateGroupResult{}, err
	}

	var (
		user  models.User
		group models.Group
		otp   string
	)
	code, err := r.createWithRetry(ctx, func(ctx context.Context, code string) error {
		ownerID := primitive.NewObjectID()
		g, ug := r.newGroup(in.Group, secretHash, code, ownerID)
		gid := g.ID

		u, err := r.users.Create(ctx, models.User{
			ID:           ownerID,
			Email:        in.Owner.Email,
			PasswordHash: pwHash,
			FullName:     in.Owner.FullName,
			Phone:        in.Owner.Phone,
			Gender:       in.Owner.Gender,
			Groups:       []models.UserGroup{ug},
			CurrentGroup: &gid,
		})
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			return ErrEmailTaken
		}
		if err != nil {
			return err
		}
		if g, err = r.groups.Create(ctx, g); err != nil {
			return err
		}
		if otp, err = r.otps.Create(ctx, u.ID, u.Email); err != nil {
			return err
		}
		user, group = u, g
		return nil
	})
	if err != nil {
		return CreateGroupResult{}, err
	}

	r.metrics.GroupCreated()
	r.audit.GroupCreated(ctx, user.ID, group.ID, group.Name)
	r.sendOTP(ctx, user, otp, group.Name)

	return CreateGroupResult{
		UserID:       user.ID,
		GroupID:      group.ID,
		GroupName:    group.Name,
		JoinCode:     code,
		MemberNumber: group.Members[0].MemberNumber,
	}, nil
}

// CreateAdditionalGroup creates another group owned by an existing,
// verified user and returns a token scoped to it.
func (r *Registry) CreateAdditionalGroup(ctx context.Context, userID primitive.ObjectID, info GroupInfo) (TokenResult, error) {
	if err := info.normalize(); err != nil {
		return TokenResult{}, err
	}
	user, err := r.lookupUser(ctx, userID)
	if err != nil {
		return TokenResult{}, err
	}
	if !user.Verified {
		return TokenResult{}, ErrNotVerified
	}
	secretHash, err := r.hasher.Hash(info.JoinSecret)
	if err != nil {
		return TokenResult{}, err
	}

	var group models.Group
	_, err = r.createWithRetry(ctx, func(ctx context.Context, code string) error {
		g, ug := r.newGroup(info, secretHash, code, user.ID)
		g, err := r.groups.Create(ctx, g)
		if err != nil {
			return err
		}
		if err := r.users.AddMembership(ctx, user.ID, ug, true); err != nil {
			return err
		}
		group = g
		return nil
	})
	if err != nil {
		return TokenResult{}, err
	}

	r.metrics.GroupCreated()
	r.audit.GroupCreated(ctx, user.ID, group.ID, group.Name)
	return r.issue(user, &group, group.Members[0].Permissions)
}
