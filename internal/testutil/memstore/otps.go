package memstore

import (
	"context"
	"time"

	"github.com/dalemusser/grouphub/internal/app/store/emailverify"
	"github.com/dalemusser/grouphub/internal/app/system/normalize"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OTPs mirrors emailverify.Store. LastCode exposes the most recently
// issued plaintext code per user so tests can confirm it.
type OTPs struct{ d *DB }

func (s *OTPs) Expiry() time.Duration { return s.d.Expiry }

func (s *OTPs) Create(_ context.Context, userID primitive.ObjectID, email string) (string, error) {
	code, hash, err := s.d.Hasher.IssueOTP()
	if err != nil {
		return "", err
	}
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.d.fail("otps.create"); err != nil {
		return "", err
	}
	s.d.otps[userID] = verification{
		email:     normalize.Email(email),
		codeHash:  hash,
		expiresAt: time.Now().Add(s.d.Expiry),
	}
	s.d.codes[userID] = code
	return code, nil
}

func (s *OTPs) Verify(_ context.Context, userID primitive.ObjectID, code string, now time.Time) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	v, ok := s.d.otps[userID]
	if !ok {
		return emailverify.ErrNotFound
	}
	if !now.Before(v.expiresAt) {
		delete(s.d.otps, userID)
		return emailverify.ErrExpired
	}
	if !s.d.Hasher.Verify(code, v.codeHash) {
		return emailverify.ErrInvalidCode
	}
	delete(s.d.otps, userID)
	return nil
}

func (s *OTPs) DeleteByUser(_ context.Context, userID primitive.ObjectID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	delete(s.d.otps, userID)
	return nil
}

// Pending reports whether userID has a code waiting.
func (s *OTPs) Pending(userID primitive.ObjectID) bool {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	_, ok := s.d.otps[userID]
	return ok
}

// LastCode returns the last plaintext code issued to userID.
func (s *OTPs) LastCode(userID primitive.ObjectID) string {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	return s.d.codes[userID]
}
