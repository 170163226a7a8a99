// internal/app/store/metrics/metricsstore.go
package metricsstore

import (
	"context"
	"time"

	"github.com/dalemusser/grouphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of collection totals exported as gauges.
type Counts struct {
	Users                int64
	Groups               int64
	ActiveMembers        int64
	Payments             int64
	PendingVerifications int64
}

// FetchCounts returns deployment-wide totals.
// Tolerant: a failed count stays 0 and the first error is returned.
func FetchCounts(ctx context.Context, db *mongo.Database, now time.Time) (Counts, error) {
	var (
		out   Counts
		first error
	)
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	n, err := db.Collection("users").CountDocuments(ctx, bson.M{})
	keep(err)
	out.Users = n

	n, err = db.Collection("groups").CountDocuments(ctx, bson.M{})
	keep(err)
	out.Groups = n

	n, err = db.Collection("payments").CountDocuments(ctx, bson.M{})
	keep(err)
	out.Payments = n

	// expired rows linger until the TTL monitor runs
	n, err = db.Collection("email_verifications").CountDocuments(ctx, bson.M{
		"expires_at": bson.M{"$gt": now},
	})
	keep(err)
	out.PendingVerifications = n

	n, err = countActiveMembers(ctx, db)
	keep(err)
	out.ActiveMembers = n

	return out, first
}

func countActiveMembers(ctx context.Context, db *mongo.Database) (int64, error) {
	pipe := mongo.Pipeline{
		{{Key: "$unwind", Value: "$members"}},
		{{Key: "$match", Value: bson.M{"members.status": models.MemberActive}}},
		{{Key: "$count", Value: "n"}},
	}
	cur, err := db.Collection("groups").Aggregate(ctx, pipe)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		N int64 `bson:"n"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].N, nil
}
