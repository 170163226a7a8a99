// internal/app/store/emailverify/store.go
package emailverify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/grouphub/internal/app/system/credentials"
	"github.com/dalemusser/grouphub/internal/app/system/normalize"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	// DefaultExpiry is how long a verification code is valid.
	DefaultExpiry = 10 * time.Minute
	// MaxVerifyAttempts is the number of wrong codes a user may submit before
	// the pending code is discarded.
	MaxVerifyAttempts = 5
)

var (
	// ErrNotFound is returned when the user has no pending code.
	ErrNotFound = errors.New("verification not found")
	// ErrExpired is returned when the pending code is past expires_at. The
	// record is deleted before returning.
	ErrExpired = errors.New("verification code expired")
	// ErrInvalidCode is returned when the code doesn't match.
	ErrInvalidCode = errors.New("invalid verification code")
)

// Verification is a pending OTP. At most one exists per user.
type Verification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Email     string             `bson:"email"`
	CodeHash  string             `bson:"code_hash"`  // bcrypt hash of the 6-digit code
	ExpiresAt time.Time          `bson:"expires_at"` // TTL index field; checked explicitly as well
	CreatedAt time.Time          `bson:"created_at"`
}

// Store manages email verification records.
type Store struct {
	c      *mongo.Collection
	expiry time.Duration
	hasher *credentials.Hasher
}

// New creates a new Store with the specified expiry duration.
// If expiry is 0 or negative, DefaultExpiry (10 minutes) is used.
func New(db *mongo.Database, expiry time.Duration, hasher *credentials.Hasher) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	if hasher == nil {
		hasher = credentials.NewHasher(credentials.DefaultCost)
	}
	return &Store{
		c:      db.Collection("email_verifications"),
		expiry: expiry,
		hasher: hasher,
	}
}

// Expiry returns the expiry duration for verification codes.
func (s *Store) Expiry() time.Duration {
	return s.expiry
}

// Create replaces any pending code for userID with a fresh one and returns
// the plaintext code for mailing. Only the hash is stored.
func (s *Store) Create(ctx context.Context, userID primitive.ObjectID, email string) (string, error) {
	code, hash, err := s.hasher.IssueOTP()
	if err != nil {
		return "", fmt.Errorf("issue code: %w", err)
	}

	if _, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return "", fmt.Errorf("purge prior codes: %w", err)
	}

	now := time.Now().UTC()
	v := Verification{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Email:     normalize.Email(email),
		CodeHash:  hash,
		ExpiresAt: now.Add(s.expiry),
		CreatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, v); err != nil {
		return "", fmt.Errorf("insert verification: %w", err)
	}
	return code, nil
}

// Get returns the pending record for userID.
func (s *Store) Get(ctx context.Context, userID primitive.ObjectID) (Verification, error) {
	var v Verification
	if err := s.c.FindOne(ctx, bson.M{"user_id": userID}).Decode(&v); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Verification{}, ErrNotFound
		}
		return Verification{}, err
	}
	return v, nil
}

// Verify checks code against the user's pending record as of now.
// Expiry is checked before the code, so an expired record is always
// reported as ErrExpired. A matching code consumes the record; when callers
// race on the same code only one of them succeeds and the rest get
// ErrNotFound.
func (s *Store) Verify(ctx context.Context, userID primitive.ObjectID, code string, now time.Time) error {
	v, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !now.Before(v.ExpiresAt) {
		if _, err := s.c.DeleteOne(ctx, bson.M{"_id": v.ID}); err != nil {
			return errors.Join(ErrExpired, fmt.Errorf("purge expired verification: %w", err))
		}
		return ErrExpired
	}
	if !s.hasher.Verify(code, v.CodeHash) {
		return ErrInvalidCode
	}
	return s.consume(ctx, v.ID)
}

// consume deletes the record with id. A record already consumed or replaced
// by a fresh Create reports ErrNotFound.
func (s *Store) consume(ctx context.Context, id primitive.ObjectID) error {
	if err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id}).Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return fmt.Errorf("consume verification: %w", err)
	}
	return nil
}

// DeleteByUser removes every pending code for userID.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}
