// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/grouphub/internal/app/system/normalize"
	"github.com/dalemusser/grouphub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound          = errors.New("group not found")
	ErrDuplicateJoinCode = errors.New("join code already in use")
	ErrMemberExists      = errors.New("user is already a member of this group")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, filter).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Group{}, ErrNotFound
		}
		return models.Group{}, err
	}
	return g, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByJoinCode looks a group up by its public join code (case-insensitive).
func (s *Store) GetByJoinCode(ctx context.Context, code string) (models.Group, error) {
	return s.findOne(ctx, bson.M{"join_code": normalize.JoinCode(code)})
}

// JoinCodeExists reports whether code is taken.
func (s *Store) JoinCodeExists(ctx context.Context, code string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"join_code": normalize.JoinCode(code)}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindByIDs loads the groups in ids. Missing ids are skipped.
func (s *Store) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Group, error) {
	out := []models.Group{}
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(bson.M{"members": 0}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts g. The unique index on join_code turns a lost race for the
// same code into ErrDuplicateJoinCode.
func (s *Store) Create(ctx context.Context, g models.Group) (models.Group, error) {
	now := time.Now().UTC()
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	g.NameCI = text.Fold(g.Name)
	g.JoinCode = normalize.JoinCode(g.JoinCode)
	if g.Members == nil {
		g.Members = []models.GroupMember{}
	}
	g.CreatedAt = now
	g.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Group{}, ErrDuplicateJoinCode
		}
		return models.Group{}, err
	}
	return g, nil
}

// AllocateMemberNumber increments member_counter in one atomic
// find-and-modify, but only while userID is not already in members. It
// returns the group as it is after the increment; the new counter value is
// the caller's sequence number.
//
// ErrMemberExists means a concurrent join for the same user won; ErrNotFound
// means the group is gone.
func (s *Store) AllocateMemberNumber(ctx context.Context, groupID, userID primitive.ObjectID) (models.Group, error) {
	var g models.Group
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": groupID, "members.user_id": bson.M{"$ne": userID}},
		bson.M{"$inc": bson.M{"member_counter": int64(1)}, "$set": bson.M{"updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"members": 0}),
	).Decode(&g)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Group{}, err
	}
	return models.Group{}, s.missingOrMember(ctx, groupID)
}

func (s *Store) missingOrMember(ctx context.Context, groupID primitive.ObjectID) error {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": groupID})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrMemberExists
}

// AddMember pushes m unless the user is already listed.
func (s *Store) AddMember(ctx context.Context, groupID primitive.ObjectID, m models.GroupMember) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": groupID, "members.user_id": bson.M{"$ne": m.UserID}},
		bson.M{"$push": bson.M{"members": m}, "$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return s.missingOrMember(ctx, groupID)
	}
	return nil
}

// RemoveMembers pulls every entry whose user_id is in userIDs. The counter
// is never decremented, so numbers are never reused.
func (s *Store) RemoveMembers(ctx context.Context, groupID primitive.ObjectID, userIDs []primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": groupID},
		bson.M{
			"$pull": bson.M{"members": bson.M{"user_id": bson.M{"$in": userIDs}}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetMemberStatus updates one member's status.
func (s *Store) SetMemberStatus(ctx context.Context, groupID, userID primitive.ObjectID, status string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": groupID, "members.user_id": userID},
		bson.M{"$set": bson.M{"members.$.status": status, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
