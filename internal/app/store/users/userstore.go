package userstore

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
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrMembershipExists is returned when the user already has a tuple for the group.
	ErrMembershipExists = errors.New("user is already a member of this group")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// Create inserts a new user after normalizing email and name. The ID is
// generated unless the caller already assigned one.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Email = normalize.Email(u.Email)
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	if u.Groups == nil {
		u.Groups = []models.UserGroup{}
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findOne(ctx, bson.M{"email": normalize.Email(email)})
}

// FindByIDs loads the users in ids. Missing ids are skipped.
func (s *Store) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	out := []models.User{}
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetSort(bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountMembers counts how many of ids hold a membership tuple for groupID.
// A single $in query, so the whole selection is checked at once.
func (s *Store) CountMembers(ctx context.Context, groupID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.c.CountDocuments(ctx, bson.M{
		"_id":             bson.M{"$in": ids},
		"groups.group_id": groupID,
	})
}

// AddMembership pushes ug onto the user unless a tuple for the same group
// already exists. makeCurrent also points current_group at it.
func (s *Store) AddMembership(ctx context.Context, userID primitive.ObjectID, ug models.UserGroup, makeCurrent bool) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if makeCurrent {
		set["current_group"] = ug.GroupID
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID, "groups.group_id": bson.M{"$ne": ug.GroupID}},
		bson.M{"$push": bson.M{"groups": ug}, "$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := s.c.CountDocuments(ctx, bson.M{"_id": userID})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrMembershipExists
	}
	return nil
}

// RemoveMembership pulls the tuple for groupID from every user in ids and
// clears current_group where it pointed at that group.
func (s *Store) RemoveMembership(ctx context.Context, groupID primitive.ObjectID, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC()
	if _, err := s.c.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$pull": bson.M{"groups": bson.M{"group_id": groupID}}, "$set": bson.M{"updated_at": now}},
	); err != nil {
		return err
	}
	_, err := s.c.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "current_group": groupID},
		bson.M{"$unset": bson.M{"current_group": ""}},
	)
	return err
}

// SetMembershipStatus updates the status on the user's tuple for groupID.
func (s *Store) SetMembershipStatus(ctx context.Context, userID, groupID primitive.ObjectID, status string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID, "groups.group_id": groupID},
		bson.M{"$set": bson.M{"groups.$.status": status, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCurrentGroup records the active group. nil clears it.
func (s *Store) SetCurrentGroup(ctx context.Context, userID primitive.ObjectID, groupID *primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"current_group": groupID, "updated_at": time.Now().UTC()}}
	if groupID == nil {
		update = bson.M{"$unset": bson.M{"current_group": ""}, "$set": bson.M{"updated_at": time.Now().UTC()}}
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkVerified flags the user verified and clears failed OTP attempts.
func (s *Store) MarkVerified(ctx context.Context, userID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{
		"verified":     true,
		"otp_attempts": 0,
		"updated_at":   time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// IncOTPAttempts atomically records one failed OTP attempt and returns the new count.
func (s *Store) IncOTPAttempts(ctx context.Context, userID primitive.ObjectID) (int, error) {
	var out struct {
		Attempts int `bson:"otp_attempts"`
	}
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{"$inc": bson.M{"otp_attempts": 1}},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"otp_attempts": 1}),
	).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return out.Attempts, nil
}

// ResetOTPAttempts clears the failed OTP counter.
func (s *Store) ResetOTPAttempts(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"otp_attempts": 0}})
	return err
}

// ProfileUpdate holds the self-editable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	FullName *string
	Phone    *string
	Gender   *string
	Bio      *string
}

// UpdateProfile applies p and returns the updated user.
func (s *Store) UpdateProfile(ctx context.Context, userID primitive.ObjectID, p ProfileUpdate) (models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if p.FullName != nil {
		name := normalize.Name(*p.FullName)
		set["full_name"] = name
		set["full_name_ci"] = text.Fold(name)
	}
	if p.Phone != nil {
		set["phone"] = *p.Phone
	}
	if p.Gender != nil {
		set["gender"] = *p.Gender
	}
	if p.Bio != nil {
		set["bio"] = *p.Bio
	}

	var u models.User
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}
