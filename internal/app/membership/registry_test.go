package membership_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/grouphub/internal/app/membership"
	groupstore "github.com/dalemusser/grouphub/internal/app/store/groups"
	"github.com/dalemusser/grouphub/internal/app/system/apperr"
	"github.com/dalemusser/grouphub/internal/app/system/mailer"
	"github.com/dalemusser/grouphub/internal/app/system/tokens"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/dalemusser/grouphub/internal/testutil/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const secret = "registry-test-secret-0123456789abcdef"

type fakeNotifier struct {
	mu   sync.Mutex
	sent []mailer.OTPMessage
	err  error
}

func (f *fakeNotifier) SendOTP(_ context.Context, m mailer.OTPMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m)
	return f.err
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type env struct {
	db     *memstore.DB
	reg    *membership.Registry
	mail   *fakeNotifier
	issuer *tokens.Issuer

	mu  sync.Mutex
	now time.Time
}

func (e *env) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *env) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

func newEnv(t *testing.T, joinCodes ...string) *env {
	t.Helper()
	e := &env{
		db:     memstore.New(),
		mail:   &fakeNotifier{},
		issuer: tokens.NewIssuer(secret, time.Hour),
		now:    time.Now(),
	}
	var mu sync.Mutex
	seq := 0
	nextCode := func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if seq < len(joinCodes) {
			seq++
			return joinCodes[seq-1], nil
		}
		seq++
		return fmt.Sprintf("Z%05d", seq), nil
	}
	e.reg = membership.New(membership.Deps{
		Users:       e.db.Users(),
		Groups:      e.db.Groups(),
		OTPs:        e.db.OTPs(),
		Tx:          e.db.Tx(),
		Hasher:      e.db.Hasher,
		Tokens:      e.issuer,
		Notifier:    e.mail,
		Now:         e.clock,
		NewJoinCode: nextCode,
	})
	return e
}

func ownerInput(email, group string) membership.CreateGroupInput {
	return membership.CreateGroupInput{
		Owner: membership.Profile{FullName: "Owner " + email, Email: email, Password: "password123"},
		Group: membership.GroupInfo{Name: group, JoinSecret: "open-sesame"},
	}
}

func applicant(code, email string) membership.JoinInput {
	return membership.JoinInput{
		JoinCode:   code,
		JoinSecret: "open-sesame",
		Applicant:  membership.Profile{FullName: "Member " + email, Email: email, Password: "password123"},
	}
}

// verifiedOwner creates a group and confirms the owner's code.
func verifiedOwner(t *testing.T, e *env, email, group string) membership.CreateGroupResult {
	t.Helper()
	ctx := context.Background()
	res, err := e.reg.CreateGroup(ctx, ownerInput(email, group))
	require.NoError(t, err)
	_, err = e.reg.ConfirmOTP(ctx, email, e.db.OTPs().LastCode(res.UserID))
	require.NoError(t, err)
	return res
}

func TestAbbreviation(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Lagos Social Club", "LSC"},
		{"Lagos Social Club Abuja Chapter", "LSC"},
		{"Lagos Club", "LAC"},
		{"lagos", "LAG"},
		{"Yo", "YO"},
		{"x Y", "XY"},
		{"St. Mary's Choir", "SMC"},
		{"  !!!  ", "GRP"},
		{"", "GRP"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, membership.Abbreviation(tt.name))
		})
	}
}

func TestMemberNumber(t *testing.T) {
	assert.Equal(t, "LSC-001", membership.MemberNumber("LSC", 1))
	assert.Equal(t, "LSC-042", membership.MemberNumber("LSC", 42))
	assert.Equal(t, "LSC-1000", membership.MemberNumber("LSC", 1000))
}

func TestCreateGroup(t *testing.T) {
	e := newEnv(t, "AB12CD")
	ctx := context.Background()

	res, err := e.reg.CreateGroup(ctx, ownerInput("Ada@Example.com", "Lagos Social Club"))
	require.NoError(t, err)
	assert.Equal(t, "LSC-001", res.MemberNumber)
	assert.Equal(t, "AB12CD", res.JoinCode)

	g, err := e.db.Groups().GetByID(ctx, res.GroupID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), g.MemberCounter)
	require.Len(t, g.Members, 1)
	assert.Equal(t, models.OwnerPermissions(), g.Members[0].Permissions)
	assert.Equal(t, res.UserID, g.CreatedBy)

	u, err := e.db.Users().GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.False(t, u.Verified)
	ug, ok := u.Membership(res.GroupID)
	require.True(t, ok, "user side of the membership must be written")
	assert.Equal(t, "LSC-001", ug.MemberNumber)

	assert.True(t, e.db.OTPs().Pending(u.ID))
	require.Equal(t, 1, e.mail.count())
	assert.Equal(t, e.db.OTPs().LastCode(u.ID), e.mail.sent[0].Code)
	assert.Equal(t, "ada@example.com", e.mail.sent[0].To)
}

func TestCreateGroup_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		mod  func(in *membership.CreateGroupInput)
		want error
	}{
		{"bad email", func(in *membership.CreateGroupInput) { in.Owner.Email = "not-an-email" }, membership.ErrInvalidEmail},
		{"short password", func(in *membership.CreateGroupInput) { in.Owner.Password = "short" }, membership.ErrWeakPassword},
		{"missing name", func(in *membership.CreateGroupInput) { in.Owner.FullName = "  " }, membership.ErrNameRequired},
		{"missing group name", func(in *membership.CreateGroupInput) { in.Group.Name = "" }, membership.ErrGroupRequired},
		{"missing secret", func(in *membership.CreateGroupInput) { in.Group.JoinSecret = "" }, membership.ErrGroupRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := ownerInput("a@example.com", "Lagos Social Club")
			tt.mod(&in)
			_, err := e.reg.CreateGroup(ctx, in)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, apperr.Validation, apperr.KindOf(err))
		})
	}
	users, groups, _, _ := e.db.Counts()
	assert.Zero(t, users)
	assert.Zero(t, groups)
}

func TestCreateGroup_DuplicateEmail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.reg.CreateGroup(ctx, ownerInput("a@example.com", "First"))
	require.NoError(t, err)
	_, err = e.reg.CreateGroup(ctx, ownerInput("A@EXAMPLE.COM", "Second"))
	assert.ErrorIs(t, err, membership.ErrEmailTaken)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
}

func TestCreateGroup_RollsBackOnFailure(t *testing.T) {
	e := newEnv(t)
	e.db.FailOn("otps.create", errors.New("disk full"))

	_, err := e.reg.CreateGroup(context.Background(), ownerInput("a@example.com", "Lagos Social Club"))
	require.Error(t, err)

	users, groups, otps, _ := e.db.Counts()
	assert.Zero(t, users, "user insert must roll back")
	assert.Zero(t, groups, "group insert must roll back")
	assert.Zero(t, otps)
	assert.Zero(t, e.mail.count(), "no mail for an aborted transaction")
}

func TestCreateGroup_JoinCodeLoopsUntilUnused(t *testing.T) {
	e := newEnv(t, "AAAAAA", "AAAAAA", "AAAAAA", "BBBBBB")
	ctx := context.Background()

	first, err := e.reg.CreateGroup(ctx, ownerInput("a@example.com", "One"))
	require.NoError(t, err)
	require.Equal(t, "AAAAAA", first.JoinCode)

	second, err := e.reg.CreateGroup(ctx, ownerInput("b@example.com", "Two"))
	require.NoError(t, err)
	assert.Equal(t, "BBBBBB", second.JoinCode)
}

func TestCreateGroup_RetriesLostJoinCodeRace(t *testing.T) {
	e := newEnv(t, "AAAAAA", "BBBBBB")
	e.db.FailOn("groups.create", groupstore.ErrDuplicateJoinCode)

	res, err := e.reg.CreateGroup(context.Background(), ownerInput("a@example.com", "One"))
	require.NoError(t, err)
	assert.Equal(t, "BBBBBB", res.JoinCode)
	users, groups, _, _ := e.db.Counts()
	assert.Equal(t, 1, users)
	assert.Equal(t, 1, groups)
}

func TestCreateGroup_MailFailureIsNotFatal(t *testing.T) {
	e := newEnv(t)
	e.mail.err = errors.New("smtp down")

	res, err := e.reg.CreateGroup(context.Background(), ownerInput("a@example.com", "Lagos Social Club"))
	require.NoError(t, err)
	assert.True(t, e.db.OTPs().Pending(res.UserID), "code stays pending for a later resend")
}

func TestJoinGroup_SequentialNumbers(t *testing.T) {
	e := newEnv(t, "AB12CD")
	ctx := context.Background()
	verifiedOwner(t, e, "owner@example.com", "Lagos Social Club")

	r1, err := e.reg.JoinGroup(ctx, applicant("ab12cd", "m1@example.com"))
	require.NoError(t, err)
	r2, err := e.reg.JoinGroup(ctx, applicant("AB12CD", "m2@example.com"))
	require.NoError(t, err)

	assert.Equal(t, membership.JoinedNewUser, r1.Outcome)
	assert.Equal(t, "LSC-002", r1.MemberNumber)
	assert.Equal(t, "LSC-003", r2.MemberNumber)

	g, err := e.db.Groups().GetByID(ctx, r1.GroupID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), g.MemberCounter)
	m, ok := g.Member(r2.UserID)
	require.True(t, ok)
	assert.Equal(t, models.JoinerPermissions(), m.Permissions)
	assert.True(t, e.db.OTPs().Pending(r2.UserID), "new applicants must confirm a code")
}

func TestJoinGroup_ExistingAccount(t *testing.T) {
	e := newEnv(t, "AAAAAA", "BBBBBB")
	ctx := context.Background()
	verifiedOwner(t, e, "owner@example.com", "Lagos Social Club")
	other := verifiedOwner(t, e, "ada@example.com", "Abuja Book Club")

	in := applicant("AAAAAA", "ada@example.com")
	in.Applicant.Password = "wrong-password"
	_, err := e.reg.JoinGroup(ctx, in)
	assert.ErrorIs(t, err, membership.ErrBadCredentials)

	res, err := e.reg.JoinGroup(ctx, applicant("AAAAAA", "ada@example.com"))
	require.NoError(t, err)
	assert.Equal(t, membership.JoinedExisting, res.Outcome)
	assert.Equal(t, other.UserID, res.UserID)
	assert.Equal(t, "LSC-002", res.MemberNumber)

	u, err := e.db.Users().GetByID(ctx, other.UserID)
	require.NoError(t, err)
	assert.Len(t, u.Groups, 2)
	assert.Equal(t, other.GroupID, *u.CurrentGroup, "public join does not move current_group")
}

func TestJoinGroup_AlreadyMemberIsIdempotent(t *testing.T) {
	e := newEnv(t, "AB12CD")
	ctx := context.Background()
	verifiedOwner(t, e, "owner@example.com", "Lagos Social Club")

	first, err := e.reg.JoinGroup(ctx, applicant("AB12CD", "m1@example.com"))
	require.NoError(t, err)
	_, err = e.reg.ConfirmOTP(ctx, "m1@example.com", e.db.OTPs().LastCode(first.UserID))
	require.NoError(t, err)

	again, err := e.reg.JoinGroup(ctx, applicant("AB12CD", "m1@example.com"))
	require.NoError(t, err)
	assert.Equal(t, membership.AlreadyMember, again.Outcome)
	assert.Equal(t, first.MemberNumber, again.MemberNumber)

	g, err := e.db.Groups().GetByID(ctx, first.GroupID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), g.MemberCounter, "counter must not move")
	assert.Len(t, g.Members, 2)
}

func TestJoinGroup_BadCodeOrSecret(t *testing.T) {
	e := newEnv(t, "AB12CD")
	ctx := context.Background()
	verifiedOwner(t, e, "owner@example.com", "Lagos Social Club")

	_, err := e.reg.JoinGroup(ctx, applicant("ZZZZZZ", "m1@example.com"))
	assert.ErrorIs(t, err, membership.ErrTenantNotFound)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	in := applicant("AB12CD", "m1@example.com")
	in.JoinSecret = "guess"
	_, err = e.reg.JoinGroup(ctx, in)
	assert.ErrorIs(t, err, membership.ErrBadJoinSecret)
}

func TestJoinGroup_GroupVanishesMidJoin(t *testing.T) {
	e := newEnv(t, "AB12CD")
	ctx := context.Background()
	verifiedOwner(t, e, "owner@example.com", "Lagos Social Club")
	e.db.FailOn("groups.allocatemembernumber", groupstore.ErrNotFound)

	_, err := e.reg.JoinGroup(ctx, applicant("AB12CD", "m1@example.com"))
	assert.ErrorIs(t, err, membership.ErrTenantNotFound)
	_, err = e.db.Users().GetByEmail(ctx, "m1@example.com")
	assert.Error(t, err, "applicant must not be created")
}

func TestJoinGroup_ConcurrentJoinsGetDistinctNumbers(t *testing.T) {
	e := newEnv(t, "AB12CD")
	ctx := context.Background()
	owner := verifiedOwner(t, e, "owner@example.com", "Lagos Social Club")

	const n = 20
	var wg sync.WaitGroup
	numbers := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := e.reg.JoinGroup(ctx, applicant("AB12CD", fmt.Sprintf("m%d@example.com", i)))
			numbers[i], errs[i] = res.MemberNumber, err
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := range numbers {
		require.NoError(t, errs[i])
		assert.False(t, seen[numbers[i]], "duplicate member number %s", numbers[i])
		seen[numbers[i]] = true
	}
	for k := 2; k <= n+1; k++ {
		assert.True(t, seen[membership.MemberNumber("LSC", int64(k))], "gap at %d", k)
	}
	g, err := e.db.Groups().GetByID(ctx, owner.GroupID)
	require.NoError(t, err)
	assert.Equal(t, int64(n+1), g.MemberCounter)
}

func TestJoinAnotherGroup(t *testing.T) {
	e := newEnv(t, "AAAAAA", "BBBBBB")
	ctx := context.Background()
	a := verifiedOwner(t, e, "a@example.com", "Lagos Social Club")
	b := verifiedOwner(t, e, "b@example.com", "Book Club")

	tok, err := e.reg.JoinAnotherGroup(ctx, a.UserID, "BBBBBB", "open-sesame")
	require.NoError(t, err)
	require.NotNil(t, tok.GroupID)
	assert.Equal(t, b.GroupID, *tok.GroupID)

	claims, err := e.issuer.Verify(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, []models.Permission{models.PermUser}, claims.Permissions)

	_, err = e.reg.JoinAnotherGroup(ctx, a.UserID, "BBBBBB", "open-sesame")
	assert.ErrorIs(t, err, membership.ErrAlreadyMember)
}

func TestConfirmOTP(t *testing.T) {
	e := newEnv(t, "AB12CD")
	ctx := context.Background()
	res, err := e.reg.CreateGroup(ctx, ownerInput("a@example.com", "Lagos Social Club"))
	require.NoError(t, err)

	tok, err := e.reg.ConfirmOTP(ctx, "a@example.com", e.db.OTPs().LastCode(res.UserID))
	require.NoError(t, err)

	claims, err := e.issuer.Verify(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, res.UserID.Hex(), claims.UserID)
	gid, ok := claims.GroupObjectID()
	require.True(t, ok)
	assert.Equal(t, res.GroupID, gid)
	assert.ElementsMatch(t, models.OwnerPermissions(), claims.Permissions)

	u, err := e.db.Users().GetByID(ctx, res.UserID)
	require.NoError(t, err)
	assert.True(t, u.Verified)
	assert.False(t, e.db.OTPs().Pending(res.UserID))
}

func TestConfirmOTP_Expired(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res, err := e.reg.CreateGroup(ctx, ownerInput("a@example.com", "Lagos Social Club"))
	require.NoError(t, err)
	code := e.db.OTPs().LastCode(res.UserID)

	e.advance(11 * time.Minute)
	_, err = e.reg.ConfirmOTP(ctx, "a@example.com", code)
	assert.ErrorIs(t, err, membership.ErrOTPExpired)

	_, err = e.reg.ConfirmOTP(ctx, "a@example.com", code)
	assert.ErrorIs(t, err, membership.ErrOTPNotFound, "the expired record must be gone")
}

func TestConfirmOTP_AttemptLimit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res, err := e.reg.CreateGroup(ctx, ownerInput("a@example.com", "Lagos Social Club"))
	require.NoError(t, err)
	wrong := "100000"
	if e.db.OTPs().LastCode(res.UserID) == wrong {
		wrong = "100001"
	}

	for i := 0; i < 4; i++ {
		_, err = e.reg.ConfirmOTP(ctx, "a@example.com", wrong)
		assert.ErrorIs(t, err, membership.ErrOTPInvalid)
	}
	_, err = e.reg.ConfirmOTP(ctx, "a@example.com", wrong)
	assert.ErrorIs(t, err, membership.ErrOTPTooManyAttempts)
	assert.Equal(t, apperr.TooMany, apperr.KindOf(err))
	assert.False(t, e.db.OTPs().Pending(res.UserID))

	require.NoError(t, e.reg.ResendOTP(ctx, "a@example.com"))
	u, _ := e.db.Users().GetByID(ctx, res.UserID)
	assert.Zero(t, u.OTPAttempts, "a fresh code resets the counter")
	_, err = e.reg.ConfirmOTP(ctx, "a@example.com", e.db.OTPs().LastCode(res.UserID))
	assert.NoError(t, err)
}

func TestResendOTP_IgnoresUnknownAndVerified(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	verifiedOwner(t, e, "a@example.com", "Lagos Social Club")
	sent := e.mail.count()

	assert.NoError(t, e.reg.ResendOTP(ctx, "nobody@example.com"))
	assert.NoError(t, e.reg.ResendOTP(ctx, "a@example.com"))
	assert.Equal(t, sent, e.mail.count())
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res, err := e.reg.CreateGroup(ctx, ownerInput("a@example.com", "Lagos Social Club"))
	require.NoError(t, err)

	_, err = e.reg.Login(ctx, "a@example.com", "wrong-password")
	assert.ErrorIs(t, err, membership.ErrBadCredentials)
	_, err = e.reg.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, membership.ErrBadCredentials)

	sent := e.mail.count()
	lr, err := e.reg.Login(ctx, "a@example.com", "password123")
	require.NoError(t, err)
	assert.True(t, lr.NeedsVerification)
	assert.Equal(t, sent+1, e.mail.count(), "unverified login mails a new code")

	_, err = e.reg.ConfirmOTP(ctx, "a@example.com", e.db.OTPs().LastCode(res.UserID))
	require.NoError(t, err)

	lr, err = e.reg.Login(ctx, "A@example.com", "password123")
	require.NoError(t, err)
	assert.False(t, lr.NeedsVerification)
	require.NotNil(t, lr.Token.GroupID)
	assert.Equal(t, res.GroupID, *lr.Token.GroupID)
}

func TestLogin_ScopeFallbacks(t *testing.T) {
	e := newEnv(t, "AAAAAA", "BBBBBB")
	ctx := context.Background()
	a := verifiedOwner(t, e, "a@example.com", "Lagos Social Club")
	b := verifiedOwner(t, e, "b@example.com", "Book Club")

	_, err := e.reg.JoinAnotherGroup(ctx, a.UserID, "BBBBBB", "open-sesame")
	require.NoError(t, err)
	require.NoError(t, e.reg.SetMemberStatus(ctx, b.GroupID, b.UserID, a.UserID, models.MemberInactive))

	lr, err := e.reg.Login(ctx, "a@example.com", "password123")
	require.NoError(t, err)
	require.NotNil(t, lr.Token.GroupID)
	assert.Equal(t, a.GroupID, *lr.Token.GroupID, "inactive current group falls back to the first active one")

	joined, err := e.reg.JoinGroup(ctx, applicant("BBBBBB", "z@example.com"))
	require.NoError(t, err)
	_, err = e.reg.ConfirmOTP(ctx, "z@example.com", e.db.OTPs().LastCode(joined.UserID))
	require.NoError(t, err)
	_, err = e.reg.RemoveMembers(ctx, b.GroupID, b.UserID, []primitive.ObjectID{joined.UserID})
	require.NoError(t, err)

	lr, err = e.reg.Login(ctx, "z@example.com", "password123")
	require.NoError(t, err)
	assert.Nil(t, lr.Token.GroupID, "no memberships yields an unscoped token")
	assert.Empty(t, lr.Token.Permissions)
	claims, err := e.issuer.Verify(lr.Token.Token)
	require.NoError(t, err)
	_, scoped := claims.GroupObjectID()
	assert.False(t, scoped)
}

func TestSwitchGroup(t *testing.T) {
	e := newEnv(t, "AAAAAA", "BBBBBB", "CCCCCC")
	ctx := context.Background()
	a := verifiedOwner(t, e, "a@example.com", "Lagos Social Club")
	b := verifiedOwner(t, e, "b@example.com", "Book Club")
	c := verifiedOwner(t, e, "c@example.com", "Chess Club")

	_, err := e.reg.SwitchGroup(ctx, a.UserID, b.GroupID)
	assert.ErrorIs(t, err, membership.ErrNotAMember)

	_, err = e.reg.JoinAnotherGroup(ctx, a.UserID, "BBBBBB", "open-sesame")
	require.NoError(t, err)
	_, err = e.reg.JoinAnotherGroup(ctx, a.UserID, "CCCCCC", "open-sesame")
	require.NoError(t, err)
	require.NoError(t, e.reg.SetMemberStatus(ctx, c.GroupID, c.UserID, a.UserID, models.MemberInactive))

	_, err = e.reg.SwitchGroup(ctx, a.UserID, c.GroupID)
	assert.ErrorIs(t, err, membership.ErrMemberInactive)
	assert.Equal(t, apperr.Permission, apperr.KindOf(err))

	tok, err := e.reg.SwitchGroup(ctx, a.UserID, a.GroupID)
	require.NoError(t, err)
	assert.Equal(t, a.GroupID, *tok.GroupID)
	assert.ElementsMatch(t, models.OwnerPermissions(), tok.Permissions)

	u, err := e.db.Users().GetByID(ctx, a.UserID)
	require.NoError(t, err)
	assert.Equal(t, a.GroupID, *u.CurrentGroup)
}

func TestRemoveMembers(t *testing.T) {
	e := newEnv(t, "AB12CD")
	ctx := context.Background()
	owner := verifiedOwner(t, e, "owner@example.com", "Lagos Social Club")
	m1, err := e.reg.JoinGroup(ctx, applicant("AB12CD", "m1@example.com"))
	require.NoError(t, err)
	m2, err := e.reg.JoinGroup(ctx, applicant("AB12CD", "m2@example.com"))
	require.NoError(t, err)

	_, err = e.reg.RemoveMembers(ctx, owner.GroupID, owner.UserID, []primitive.ObjectID{m1.UserID, owner.UserID})
	assert.ErrorIs(t, err, membership.ErrCreatorLocked)

	_, err = e.reg.RemoveMembers(ctx, owner.GroupID, owner.UserID, []primitive.ObjectID{primitive.NewObjectID()})
	assert.ErrorIs(t, err, membership.ErrMemberNotFound)

	n, err := e.reg.RemoveMembers(ctx, owner.GroupID, owner.UserID, []primitive.ObjectID{m1.UserID, m1.UserID, primitive.NewObjectID()})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	g, err := e.db.Groups().GetByID(ctx, owner.GroupID)
	require.NoError(t, err)
	_, still := g.Member(m1.UserID)
	assert.False(t, still)
	_, kept := g.Member(m2.UserID)
	assert.True(t, kept)
	assert.Equal(t, int64(3), g.MemberCounter, "counter is never decremented")

	u, err := e.db.Users().GetByID(ctx, m1.UserID)
	require.NoError(t, err)
	assert.Empty(t, u.Groups)
	assert.Nil(t, u.CurrentGroup)

	m3, err := e.reg.JoinGroup(ctx, applicant("AB12CD", "m3@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "LSC-004", m3.MemberNumber, "numbers are never reused")
}

func TestRemoveMembers_RollsBack(t *testing.T) {
	e := newEnv(t, "AB12CD")
	ctx := context.Background()
	owner := verifiedOwner(t, e, "owner@example.com", "Lagos Social Club")
	m1, err := e.reg.JoinGroup(ctx, applicant("AB12CD", "m1@example.com"))
	require.NoError(t, err)

	e.db.FailOn("users.removemembership", errors.New("network blip"))
	_, err = e.reg.RemoveMembers(ctx, owner.GroupID, owner.UserID, []primitive.ObjectID{m1.UserID})
	require.Error(t, err)

	g, err := e.db.Groups().GetByID(ctx, owner.GroupID)
	require.NoError(t, err)
	_, still := g.Member(m1.UserID)
	assert.True(t, still, "group side must roll back with the user side")
}

func TestSetMemberStatus(t *testing.T) {
	e := newEnv(t, "AB12CD")
	ctx := context.Background()
	owner := verifiedOwner(t, e, "owner@example.com", "Lagos Social Club")
	m1, err := e.reg.JoinGroup(ctx, applicant("AB12CD", "m1@example.com"))
	require.NoError(t, err)

	err = e.reg.SetMemberStatus(ctx, owner.GroupID, owner.UserID, m1.UserID, "suspended")
	assert.ErrorIs(t, err, membership.ErrBadStatus)
	err = e.reg.SetMemberStatus(ctx, owner.GroupID, owner.UserID, owner.UserID, "inactive")
	assert.ErrorIs(t, err, membership.ErrCreatorLocked)

	require.NoError(t, e.reg.SetMemberStatus(ctx, owner.GroupID, owner.UserID, m1.UserID, " Inactive "))

	g, _ := e.db.Groups().GetByID(ctx, owner.GroupID)
	gm, _ := g.Member(m1.UserID)
	assert.Equal(t, models.MemberInactive, gm.Status)
	u, _ := e.db.Users().GetByID(ctx, m1.UserID)
	ug, _ := u.Membership(owner.GroupID)
	assert.Equal(t, models.MemberInactive, ug.Status)

	active, err := e.reg.ListMembers(ctx, owner.GroupID, models.MemberActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, owner.UserID, active[0].UserID)

	all, err := e.reg.ListMembers(ctx, owner.GroupID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMyGroupsAndJoinCode(t *testing.T) {
	e := newEnv(t, "AAAAAA", "BBBBBB")
	ctx := context.Background()
	a := verifiedOwner(t, e, "a@example.com", "Lagos Social Club")

	tok, err := e.reg.CreateAdditionalGroup(ctx, a.UserID, membership.GroupInfo{Name: "Second Group Here", JoinSecret: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "Second Group Here", tok.GroupName)
	assert.ElementsMatch(t, models.OwnerPermissions(), tok.Permissions)

	groups, err := e.reg.MyGroups(ctx, a.UserID)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "LSC-001", groups[0].MemberNumber)
	assert.Equal(t, "SGH-001", groups[1].MemberNumber)
	assert.False(t, groups[0].Current)
	assert.True(t, groups[1].Current)

	code, err := e.reg.JoinCode(ctx, *tok.GroupID)
	require.NoError(t, err)
	assert.Equal(t, "BBBBBB", code)

	_, err = e.reg.JoinCode(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, membership.ErrTenantNotFound)
}

func TestCreateAdditionalGroup_RequiresVerifiedUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res, err := e.reg.CreateGroup(ctx, ownerInput("a@example.com", "Lagos Social Club"))
	require.NoError(t, err)

	_, err = e.reg.CreateAdditionalGroup(ctx, res.UserID, membership.GroupInfo{Name: "Other", JoinSecret: "s"})
	assert.ErrorIs(t, err, membership.ErrNotVerified)
	_, err = e.reg.CreateAdditionalGroup(ctx, primitive.NewObjectID(), membership.GroupInfo{Name: "Other", JoinSecret: "s"})
	assert.ErrorIs(t, err, membership.ErrUserNotFound)
}
