package metricsstore

import (
	"testing"
	"time"

	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/dalemusser/grouphub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestFetchCounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	_, err := db.Collection("users").InsertMany(ctx, []any{bson.M{"email": "a@x.io"}, bson.M{"email": "b@x.io"}})
	require.NoError(t, err)
	_, err = db.Collection("groups").InsertOne(ctx, bson.M{
		"name": "Chess",
		"members": []bson.M{
			{"member_number": "CHS-001", "status": models.MemberActive},
			{"member_number": "CHS-002", "status": models.MemberInactive},
			{"member_number": "CHS-003", "status": models.MemberActive},
		},
	})
	require.NoError(t, err)
	_, err = db.Collection("email_verifications").InsertMany(ctx, []any{
		bson.M{"expires_at": now.Add(10 * time.Minute)},
		bson.M{"expires_at": now.Add(-time.Minute)},
	})
	require.NoError(t, err)

	got, err := FetchCounts(ctx, db, now)
	require.NoError(t, err)
	assert.Equal(t, Counts{
		Users:                2,
		Groups:               1,
		ActiveMembers:        2,
		Payments:             0,
		PendingVerifications: 1,
	}, got)
}

func TestFetchCounts_Empty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	got, err := FetchCounts(ctx, db, time.Now())
	require.NoError(t, err)
	assert.Zero(t, got)
}
