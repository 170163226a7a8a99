package emailverify_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/grouphub/internal/app/store/emailverify"
	"github.com/dalemusser/grouphub/internal/app/system/credentials"
	"github.com/dalemusser/grouphub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newStore(t *testing.T) *emailverify.Store {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return emailverify.New(db, emailverify.DefaultExpiry, credentials.NewHasher(4))
}

func TestNew_DefaultExpiry(t *testing.T) {
	db := testutil.SetupTestDB(t)

	for _, d := range []time.Duration{0, -time.Minute} {
		store := emailverify.New(db, d, nil)
		if store.Expiry() != emailverify.DefaultExpiry {
			t.Errorf("New(%v): expected default expiry %v, got %v", d, emailverify.DefaultExpiry, store.Expiry())
		}
	}
	if got := emailverify.New(db, 30*time.Minute, nil).Expiry(); got != 30*time.Minute {
		t.Errorf("expected custom expiry, got %v", got)
	}
}

func TestStore_CreateAndVerify(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	code, err := store.Create(ctx, userID, "Ada@Example.com")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(code) != 6 {
		t.Errorf("expected a 6-digit code, got %q", code)
	}

	v, err := store.Get(ctx, userID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v.CodeHash == code || v.CodeHash == "" {
		t.Error("code must be stored hashed")
	}
	if v.Email != "ada@example.com" {
		t.Errorf("email = %q, want lower-cased", v.Email)
	}

	if err := store.Verify(ctx, userID, code, time.Now()); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if err := store.Verify(ctx, userID, code, time.Now()); !errors.Is(err, emailverify.ErrNotFound) {
		t.Errorf("code must be single use, got %v", err)
	}
}

func TestStore_CreateReplacesPrior(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	first, err := store.Create(ctx, userID, "a@example.com")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	second, err := store.Create(ctx, userID, "a@example.com")
	if err != nil {
		t.Fatalf("second Create failed: %v", err)
	}

	if first != second {
		if err := store.Verify(ctx, userID, first, time.Now()); !errors.Is(err, emailverify.ErrInvalidCode) {
			t.Errorf("old code should no longer verify, got %v", err)
		}
	}
	if err := store.Verify(ctx, userID, second, time.Now()); err != nil {
		t.Errorf("latest code should verify: %v", err)
	}
}

func TestStore_Verify_Expired(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	code, err := store.Create(ctx, userID, "a@example.com")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	later := time.Now().Add(11 * time.Minute)
	if err := store.Verify(ctx, userID, code, later); !errors.Is(err, emailverify.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if _, err := store.Get(ctx, userID); !errors.Is(err, emailverify.ErrNotFound) {
		t.Errorf("expired record should be deleted, got %v", err)
	}
}

func TestStore_Verify_WrongCode(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	code, err := store.Create(ctx, userID, "a@example.com")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	if err := store.Verify(ctx, userID, wrong, time.Now()); !errors.Is(err, emailverify.ErrInvalidCode) {
		t.Errorf("expected ErrInvalidCode, got %v", err)
	}
	if _, err := store.Get(ctx, userID); err != nil {
		t.Errorf("a wrong code must not consume the record: %v", err)
	}
}

func TestStore_DeleteByUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := emailverify.New(db, 0, credentials.NewHasher(4))
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	if _, err := store.Create(ctx, userID, "a@example.com"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.DeleteByUser(ctx, userID); err != nil {
		t.Fatalf("DeleteByUser failed: %v", err)
	}
	n, err := db.Collection("email_verifications").CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no records, found %d", n)
	}
}

func TestStore_Verify_ConcurrentSingleUse(t *testing.T) {
	store := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	code, err := store.Create(ctx, userID, "a@example.com")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Verify(ctx, userID, code, time.Now())
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, emailverify.ErrNotFound):
			t.Errorf("losing caller should see ErrNotFound, got %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("expected exactly one successful verify, got %d", ok)
	}
}
