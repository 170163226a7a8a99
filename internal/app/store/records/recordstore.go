// internal/app/store/records/recordstore.go
package recordstore

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

// ErrNotFound is returned when no record matches id within the group.
var ErrNotFound = errors.New("record not found")

// Store is one record kind's collection. Every query carries group_id.
type Store struct {
	c    *mongo.Collection
	kind models.RecordKind
}

func New(db *mongo.Database, kind models.RecordKind) *Store {
	return &Store{c: db.Collection(string(kind)), kind: kind}
}

// Kind returns the record kind this store serves.
func (s *Store) Kind() models.RecordKind { return s.kind }

func (s *Store) Create(ctx context.Context, r models.Record) (models.Record, error) {
	now := time.Now().UTC()
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	r.TitleCI = text.Fold(r.Title)
	r.CreatedAt = now
	r.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return models.Record{}, err
	}
	return r, nil
}

func (s *Store) GetScoped(ctx context.Context, id, groupID primitive.ObjectID) (models.Record, error) {
	var r models.Record
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "group_id": groupID}).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Record{}, ErrNotFound
		}
		return models.Record{}, err
	}
	return r, nil
}

// Update holds optional field changes; nil fields are left alone.
type Update struct {
	Title    *string
	Body     *string
	Amount   *float64
	OccursAt *time.Time
}

// Update applies u to id within groupID and returns the updated record.
func (s *Store) Update(ctx context.Context, id, groupID primitive.ObjectID, u Update) (models.Record, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if u.Title != nil {
		set["title"] = *u.Title
		set["title_ci"] = text.Fold(*u.Title)
	}
	if u.Body != nil {
		set["body"] = *u.Body
	}
	if u.Amount != nil {
		set["amount"] = *u.Amount
	}
	if u.OccursAt != nil {
		set["occurs_at"] = u.OccursAt.UTC()
	}

	var r models.Record
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "group_id": groupID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&r)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Record{}, ErrNotFound
		}
		return models.Record{}, err
	}
	return r, nil
}

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

// List returns one keyset page ordered by title, optionally narrowed to a
// title prefix.
func (s *Store) List(ctx context.Context, groupID primitive.ObjectID, p paging.Params) (paging.Page[models.Record], error) {
	return paging.FindPage(ctx, s.c, bson.M{"group_id": groupID}, p, "title_ci",
		func(r models.Record) string { return r.TitleCI },
		func(r models.Record) primitive.ObjectID { return r.ID },
	)
}
