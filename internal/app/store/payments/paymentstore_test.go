package paymentstore_test

import (
	"errors"
	"fmt"
	"testing"

	paymentstore "github.com/dalemusser/grouphub/internal/app/store/payments"
	"github.com/dalemusser/grouphub/internal/app/system/paging"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/dalemusser/grouphub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CreateGetScoped(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := paymentstore.New(db)

	gid := primitive.NewObjectID()
	p, err := store.Create(ctx, models.Payment{GroupID: gid, Title: "Annual Dues", Type: models.PaymentRequired, Amount: 5000})
	require.NoError(t, err)
	assert.Equal(t, "annual dues", p.TitleCI)

	got, err := store.GetScoped(ctx, p.ID, gid)
	require.NoError(t, err)
	assert.Equal(t, p.Title, got.Title)

	_, err = store.GetScoped(ctx, p.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, paymentstore.ErrNotFound, "another group must not see the payment")
}

func TestStore_SetPaid(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := paymentstore.New(db)

	gid := primitive.NewObjectID()
	a, b, c := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	p, err := store.Create(ctx, models.Payment{
		GroupID: gid, Title: "Dues", Type: models.PaymentRequired, Amount: 5000,
		Members: []models.LedgerEntry{{UserID: a}, {UserID: b}, {UserID: c}},
	})
	require.NoError(t, err)

	before, err := store.SetPaid(ctx, p.ID, gid, []primitive.ObjectID{a, c, primitive.NewObjectID()}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(0), before.Rev, "returns the document before the write")
	eb0, _ := before.Entry(a)
	assert.False(t, eb0.Paid)

	after, err := store.GetScoped(ctx, p.ID, gid)
	require.NoError(t, err)
	assert.Equal(t, int64(1), after.Rev)

	ea, _ := after.Entry(a)
	eb, _ := after.Entry(b)
	ec, _ := after.Entry(c)
	assert.True(t, ea.Paid)
	assert.False(t, eb.Paid)
	assert.True(t, ec.Paid)

	_, err = store.SetPaid(ctx, p.ID, primitive.NewObjectID(), []primitive.ObjectID{b}, true)
	assert.ErrorIs(t, err, paymentstore.ErrNotFound)

	cur, err := store.GetScoped(ctx, p.ID, gid)
	require.NoError(t, err)
	eb, _ = cur.Entry(b)
	assert.False(t, eb.Paid, "cross-group write must not touch the ledger")
}

func TestStore_SetPaid_NoChangeWritesNothing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := paymentstore.New(db)

	gid, a, b := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	p, err := store.Create(ctx, models.Payment{
		GroupID: gid, Title: "Dues", Type: models.PaymentRequired, Amount: 5000,
		Members: []models.LedgerEntry{{UserID: a}, {UserID: b}},
	})
	require.NoError(t, err)

	_, err = store.SetPaid(ctx, p.ID, gid, []primitive.ObjectID{a}, true)
	require.NoError(t, err)

	_, err = store.SetPaid(ctx, p.ID, gid, []primitive.ObjectID{a}, true)
	assert.ErrorIs(t, err, paymentstore.ErrNotFound)

	before, err := store.SetPaid(ctx, p.ID, gid, []primitive.ObjectID{a, b}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), before.Rev, "the no-op call must not bump rev")
	ea, _ := before.Entry(a)
	eb, _ := before.Entry(b)
	assert.True(t, ea.Paid)
	assert.False(t, eb.Paid)
}

func TestStore_SetPaid_OnlyRequired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := paymentstore.New(db)

	gid, uid := primitive.NewObjectID(), primitive.NewObjectID()
	p, err := store.Create(ctx, models.Payment{
		GroupID: gid, Title: "Gala", Type: models.PaymentDonation,
		Members: []models.LedgerEntry{{UserID: uid}},
	})
	require.NoError(t, err)

	_, err = store.SetPaid(ctx, p.ID, gid, []primitive.ObjectID{uid}, true)
	assert.ErrorIs(t, err, paymentstore.ErrNotFound)
}

func TestStore_Replace(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := paymentstore.New(db)

	gid := primitive.NewObjectID()
	p, err := store.Create(ctx, models.Payment{GroupID: gid, Title: "Dues", Type: models.PaymentRequired, Amount: 100})
	require.NoError(t, err)

	p.Title = "Dues 2026"
	updated, err := store.Replace(ctx, p, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.Rev)

	_, err = store.Replace(ctx, p, 0)
	assert.ErrorIs(t, err, paymentstore.ErrStale)

	p.ID = primitive.NewObjectID()
	_, err = store.Replace(ctx, p, 0)
	assert.ErrorIs(t, err, paymentstore.ErrNotFound)
}

func TestStore_ListAndDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := paymentstore.New(db)

	gid := primitive.NewObjectID()
	for i := 0; i < 5; i++ {
		_, err := store.Create(ctx, models.Payment{
			GroupID: gid, Title: fmt.Sprintf("Levy %d", i), Type: models.PaymentContribution, Published: i%2 == 0,
		})
		require.NoError(t, err)
	}
	_, err := store.Create(ctx, models.Payment{GroupID: primitive.NewObjectID(), Title: "Levy other", Type: models.PaymentDonation, Published: true})
	require.NoError(t, err)

	page, err := store.List(ctx, gid, paging.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.HasNext)
	assert.Equal(t, "Levy 0", page.Items[0].Title)

	next, err := store.List(ctx, gid, paging.Params{Limit: 2, After: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 2)
	assert.Equal(t, "Levy 2", next.Items[0].Title)

	search, err := store.List(ctx, gid, paging.Params{Limit: 10, Search: "levy 4"})
	require.NoError(t, err)
	require.Len(t, search.Items, 1)

	pub, err := store.ListPublished(ctx, gid)
	require.NoError(t, err)
	assert.Len(t, pub, 3)

	require.NoError(t, store.Delete(ctx, search.Items[0].ID, gid))
	err = store.Delete(ctx, search.Items[0].ID, gid)
	assert.True(t, errors.Is(err, paymentstore.ErrNotFound))
}
