package membership

import (
	"context"
	"errors"

	groupstore "github.com/dalemusser/grouphub/internal/app/store/groups"
	userstore "github.com/dalemusser/grouphub/internal/app/store/users"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JoinOutcome tells the caller what the applicant must do next.
type JoinOutcome int

const (
	// JoinedNewUser created an account; the emailed code must be confirmed.
	JoinedNewUser JoinOutcome = iota + 1
	// JoinedExisting added an existing account; the user can log in.
	JoinedExisting
	// AlreadyMember changed nothing; the user can log in.
	AlreadyMember
)

func (o JoinOutcome) String() string {
	switch o {
	case JoinedNewUser:
		return "new_user"
	case JoinedExisting:
		return "existing"
	case AlreadyMember:
		return "already_member"
	}
	return "unknown"
}

// JoinInput is a public join request. When Email belongs to an existing
// account, Password must match it and the profile fields are ignored.
type JoinInput struct {
	JoinCode   string
	JoinSecret string
	Applicant  Profile
}

// JoinResult reports the outcome of JoinGroup.
type JoinResult struct {
	Outcome      JoinOutcome        `json:"-"`
	UserID       primitive.ObjectID `json:"user_id"`
	GroupID      primitive.ObjectID `json:"group_id"`
	GroupName    string             `json:"group_name"`
	MemberNumber string             `json:"member_number,omitempty"`
}

// groupForJoin resolves the join code and checks the group secret.
func (r *Registry) groupForJoin(ctx context.Context, code, secret string) (models.Group, error) {
	g, err := r.groups.GetByJoinCode(ctx, code)
	if errors.Is(err, groupstore.ErrNotFound) {
		return models.Group{}, ErrTenantNotFound
	}
	if err != nil {
		return models.Group{}, err
	}
	if !r.hasher.Verify(secret, g.JoinSecretHash) {
		return models.Group{}, ErrBadJoinSecret
	}
	return g, nil
}

// enroll allocates the next member number and writes both sides of the
// membership. It must run inside a transaction. create is non-nil for a
// brand-new applicant, who is inserted with the tuple already attached.
func (r *Registry) enroll(ctx context.Context, groupID, userID primitive.ObjectID, create *models.User, makeCurrent bool) (models.GroupMember, error) {
	g, err := r.groups.AllocateMemberNumber(ctx, groupID, userID)
	switch {
	case errors.Is(err, groupstore.ErrMemberExists):
		return models.GroupMember{}, ErrAlreadyMember
	case errors.Is(err, groupstore.ErrNotFound):
		return models.GroupMember{}, ErrTenantNotFound
	case err != nil:
		return models.GroupMember{}, err
	}

	now := r.now().UTC()
	perms := models.JoinerPermissions()
	gm := models.GroupMember{
		UserID:        userID,
		MemberNumber:  MemberNumber(g.Abbreviation, g.MemberCounter),
		Status:        models.MemberActive,
		Permissions:   perms,
		Notifications: true,
		JoinedAt:      now,
	}
	ug := models.UserGroup{
		GroupID:      groupID,
		Status:       models.MemberActive,
		Permissions:  perms,
		MemberNumber: gm.MemberNumber,
		JoinedAt:     now,
	}

	if err := r.groups.AddMember(ctx, groupID, gm); err != nil {
		if errors.Is(err, groupstore.ErrMemberExists) {
			return models.GroupMember{}, ErrAlreadyMember
		}
		return models.GroupMember{}, err
	}

	if create != nil {
		u := *create
		u.Groups = []models.UserGroup{ug}
		gid := groupID
		u.CurrentGroup = &gid
		if _, err := r.users.Create(ctx, u); err != nil {
			if errors.Is(err, userstore.ErrDuplicateEmail) {
				return models.GroupMember{}, ErrEmailTaken
			}
			return models.GroupMember{}, err
		}
		return gm, nil
	}

	if err := r.users.AddMembership(ctx, userID, ug, makeCurrent); err != nil {
		if errors.Is(err, userstore.ErrMembershipExists) {
			return models.GroupMember{}, ErrAlreadyMember
		}
		return models.GroupMember{}, err
	}
	return gm, nil
}

// JoinGroup enrolls an applicant by join code. A brand-new applicant gets
// an account and an OTP; an existing account must present its password.
// Joining a group one already belongs to is reported as AlreadyMember and
// leaves the member counter untouched.
func (r *Registry) JoinGroup(ctx context.Context, in JoinInput) (JoinResult, error) {
	g, err := r.groupForJoin(ctx, in.JoinCode, in.JoinSecret)
	if err != nil {
		return JoinResult{}, err
	}

	p := in.Applicant
	existing, err := r.users.GetByEmail(ctx, p.Email)
	switch {
	case err == nil:
		return r.joinExisting(ctx, g, existing, p.Password)
	case !errors.Is(err, userstore.ErrNotFound):
		return JoinResult{}, err
	}

	if err := p.normalize(); err != nil {
		return JoinResult{}, err
	}
	pwHash, err := r.hasher.Hash(p.Password)
	if err != nil {
		return JoinResult{}, err
	}

	newUser := models.User{
		ID:           primitive.NewObjectID(),
		Email:        p.Email,
		PasswordHash: pwHash,
		FullName:     p.FullName,
		Phone:        p.Phone,
		Gender:       p.Gender,
	}
	var (
		gm  models.GroupMember
		otp string
	)
	err = r.tx.Run(ctx, func(ctx context.Context) error {
		var err error
		if gm, err = r.enroll(ctx, g.ID, newUser.ID, &newUser, true); err != nil {
			return err
		}
		otp, err = r.otps.Create(ctx, newUser.ID, newUser.Email)
		return err
	})
	if err != nil {
		return JoinResult{}, err
	}

	r.metrics.Joined(JoinedNewUser.String())
	r.audit.MemberJoined(ctx, newUser.ID, g.ID, gm.MemberNumber)
	r.sendOTP(ctx, newUser, otp, g.Name)

	return JoinResult{
		Outcome:      JoinedNewUser,
		UserID:       newUser.ID,
		GroupID:      g.ID,
		GroupName:    g.Name,
		MemberNumber: gm.MemberNumber,
	}, nil
}

func (r *Registry) joinExisting(ctx context.Context, g models.Group, u models.User, password string) (JoinResult, error) {
	if !r.hasher.Verify(password, u.PasswordHash) {
		r.audit.LoginFailed(ctx, u.Email, "join_bad_password")
		return JoinResult{}, ErrBadCredentials
	}
	res := JoinResult{UserID: u.ID, GroupID: g.ID, GroupName: g.Name}

	if ug, ok := u.Membership(g.ID); ok {
		res.Outcome = AlreadyMember
		res.MemberNumber = ug.MemberNumber
		r.metrics.Joined(AlreadyMember.String())
		return res, nil
	}

	var gm models.GroupMember
	err := r.tx.Run(ctx, func(ctx context.Context) error {
		var err error
		gm, err = r.enroll(ctx, g.ID, u.ID, nil, false)
		return err
	})
	if errors.Is(err, ErrAlreadyMember) {
		res.Outcome = AlreadyMember
		r.metrics.Joined(AlreadyMember.String())
		return res, nil
	}
	if err != nil {
		return JoinResult{}, err
	}

	r.metrics.Joined(JoinedExisting.String())
	r.audit.MemberJoined(ctx, u.ID, g.ID, gm.MemberNumber)
	res.Outcome = JoinedExisting
	res.MemberNumber = gm.MemberNumber
	return res, nil
}

// JoinAnotherGroup enrolls an authenticated user and returns a token scoped
// to the joined group.
func (r *Registry) JoinAnotherGroup(ctx context.Context, userID primitive.ObjectID, code, secret string) (TokenResult, error) {
	u, err := r.lookupUser(ctx, userID)
	if err != nil {
		return TokenResult{}, err
	}
	if !u.Verified {
		return TokenResult{}, ErrNotVerified
	}
	g, err := r.groupForJoin(ctx, code, secret)
	if err != nil {
		return TokenResult{}, err
	}
	if _, ok := u.Membership(g.ID); ok {
		return TokenResult{}, ErrAlreadyMember
	}

	var gm models.GroupMember
	err = r.tx.Run(ctx, func(ctx context.Context) error {
		var err error
		gm, err = r.enroll(ctx, g.ID, u.ID, nil, true)
		return err
	})
	if err != nil {
		return TokenResult{}, err
	}

	r.metrics.Joined(JoinedExisting.String())
	r.audit.MemberJoined(ctx, u.ID, g.ID, gm.MemberNumber)
	return r.issue(u, &g, gm.Permissions)
}
