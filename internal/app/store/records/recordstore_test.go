package recordstore_test

import (
	"testing"

	recordstore "github.com/dalemusser/grouphub/internal/app/store/records"
	"github.com/dalemusser/grouphub/internal/app/system/paging"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/dalemusser/grouphub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CRUD(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := recordstore.New(db, models.KindExpenses)
	assert.Equal(t, models.KindExpenses, store.Kind())

	gid := primitive.NewObjectID()
	amt := 1500.0
	r, err := store.Create(ctx, models.Record{GroupID: gid, Title: "Hall Rental", Body: "Deposit", Amount: &amt})
	require.NoError(t, err)
	assert.Equal(t, "hall rental", r.TitleCI)

	title := "Hall Rental (paid)"
	updated, err := store.Update(ctx, r.ID, gid, recordstore.Update{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, "Deposit", updated.Body, "unset fields are untouched")
	require.NotNil(t, updated.Amount)
	assert.Equal(t, 1500.0, *updated.Amount)

	other := primitive.NewObjectID()
	_, err = store.GetScoped(ctx, r.ID, other)
	assert.ErrorIs(t, err, recordstore.ErrNotFound)
	_, err = store.Update(ctx, r.ID, other, recordstore.Update{Title: &title})
	assert.ErrorIs(t, err, recordstore.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, r.ID, other), recordstore.ErrNotFound)

	require.NoError(t, store.Delete(ctx, r.ID, gid))
	_, err = store.GetScoped(ctx, r.ID, gid)
	assert.ErrorIs(t, err, recordstore.ErrNotFound)
}

func TestStore_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := recordstore.New(db, models.KindAnnouncements)

	gid := primitive.NewObjectID()
	for _, title := range []string{"Bylaws vote", "AGM notice", "Annual picnic", "Choir practice"} {
		_, err := store.Create(ctx, models.Record{GroupID: gid, Title: title})
		require.NoError(t, err)
	}
	_, err := store.Create(ctx, models.Record{GroupID: primitive.NewObjectID(), Title: "Another group"})
	require.NoError(t, err)

	all, err := store.List(ctx, gid, paging.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all.Items, 4)
	assert.Equal(t, "AGM notice", all.Items[0].Title)
	assert.False(t, all.HasNext)

	first, err := store.List(ctx, gid, paging.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	assert.True(t, first.HasNext)

	second, err := store.List(ctx, gid, paging.Params{Limit: 3, After: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "Choir practice", second.Items[0].Title)

	back, err := store.List(ctx, gid, paging.Params{Limit: 3, Before: second.PrevCursor})
	require.NoError(t, err)
	require.Len(t, back.Items, 3)
	assert.Equal(t, "AGM notice", back.Items[0].Title)

	an, err := store.List(ctx, gid, paging.Params{Limit: 10, Search: "an"})
	require.NoError(t, err)
	require.Len(t, an.Items, 1)
	assert.Equal(t, "Annual picnic", an.Items[0].Title)
}
