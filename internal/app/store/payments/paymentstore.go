// internal/app/store/payments/paymentstore.go
package paymentstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/grouphub/internal/app/system/paging"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no payment matches id within the group.
	ErrNotFound = errors.New("payment not found")
	// ErrStale is returned by Replace when rev moved since the caller read it.
	ErrStale = errors.New("payment was modified concurrently")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("payments")}
}

// Create inserts p with a fresh id and rev 0.
func (s *Store) Create(ctx context.Context, p models.Payment) (models.Payment, error) {
	now := time.Now().UTC()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.TitleCI = text.Fold(p.Title)
	if p.Members == nil {
		p.Members = []models.LedgerEntry{}
	}
	p.Rev = 0
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Payment{}, err
	}
	return p, nil
}

// GetScoped loads id only if it belongs to groupID.
func (s *Store) GetScoped(ctx context.Context, id, groupID primitive.ObjectID) (models.Payment, error) {
	var p models.Payment
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "group_id": groupID}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Payment{}, ErrNotFound
		}
		return models.Payment{}, err
	}
	return p, nil
}

// SetPaid sets paid on every ledger entry whose user_id is in userIDs and
// whose paid differs, in a single find-and-modify scoped to the group and to
// required payments. It returns the payment as it was before the write, so
// callers can count the entries that changed. ErrNotFound also covers the
// case where no listed entry needed a change; nothing is written then.
func (s *Store) SetPaid(ctx context.Context, id, groupID primitive.ObjectID, userIDs []primitive.ObjectID, paid bool) (models.Payment, error) {
	pending := bson.M{"user_id": bson.M{"$in": userIDs}, "paid": bson.M{"$ne": paid}}
	var p models.Payment
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{
			"_id":      id,
			"group_id": groupID,
			"type":     models.PaymentRequired,
			"members":  bson.M{"$elemMatch": pending},
		},
		bson.M{
			"$set": bson.M{"members.$[e].paid": paid, "updated_at": time.Now().UTC()},
			"$inc": bson.M{"rev": int64(1)},
		},
		options.FindOneAndUpdate().
			SetArrayFilters(options.ArrayFilters{Filters: []interface{}{
				bson.M{"e.user_id": bson.M{"$in": userIDs}, "e.paid": bson.M{"$ne": paid}},
			}}).
			SetReturnDocument(options.Before),
	).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Payment{}, ErrNotFound
		}
		return models.Payment{}, err
	}
	return p, nil
}

// Replace writes p over the stored document if its rev still equals
// expectRev. The stored rev becomes expectRev+1.
func (s *Store) Replace(ctx context.Context, p models.Payment, expectRev int64) (models.Payment, error) {
	p.TitleCI = text.Fold(p.Title)
	p.Rev = expectRev + 1
	p.UpdatedAt = time.Now().UTC()
	if p.Members == nil {
		p.Members = []models.LedgerEntry{}
	}
	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": p.ID, "group_id": p.GroupID, "rev": expectRev}, p)
	if err != nil {
		return models.Payment{}, err
	}
	if res.MatchedCount == 0 {
		n, err := s.c.CountDocuments(ctx, bson.M{"_id": p.ID, "group_id": p.GroupID})
		if err != nil {
			return models.Payment{}, err
		}
		if n == 0 {
			return models.Payment{}, ErrNotFound
		}
		return models.Payment{}, ErrStale
	}
	return p, nil
}

// ListPublished returns every published payment of groupID, newest first.
func (s *Store) ListPublished(ctx context.Context, groupID primitive.ObjectID) ([]models.Payment, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"group_id": groupID, "published": true},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Payment{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns one keyset page of groupID's payments ordered by title.
func (s *Store) List(ctx context.Context, groupID primitive.ObjectID, p paging.Params) (paging.Page[models.Payment], error) {
	return paging.FindPage(ctx, s.c, bson.M{"group_id": groupID}, p, "title_ci",
		func(p models.Payment) string { return p.TitleCI },
		func(p models.Payment) primitive.ObjectID { return p.ID },
	)
}

// Delete removes id from groupID.
func (s *Store) Delete(ctx context.Context, id, groupID primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "group_id": groupID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
