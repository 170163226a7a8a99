package memstore

import (
	"context"
	"errors"
	"sort"
	"time"

	userstore "github.com/dalemusser/grouphub/internal/app/store/users"
	"github.com/dalemusser/grouphub/internal/app/system/normalize"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Users mirrors userstore.Store.
type Users struct{ d *DB }

func (s *Users) Create(_ context.Context, u models.User) (models.User, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.d.fail("users.create"); err != nil {
		return models.User{}, err
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Email = normalize.Email(u.Email)
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	if u.Groups == nil {
		u.Groups = []models.UserGroup{}
	}
	for _, other := range s.d.users {
		if other.Email == u.Email {
			return models.User{}, userstore.ErrDuplicateEmail
		}
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	s.d.users[u.ID] = cloneUser(u)
	return u, nil
}

func (s *Users) GetByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	u, ok := s.d.users[id]
	if !ok {
		return models.User{}, userstore.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (models.User, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	email = normalize.Email(email)
	for _, u := range s.d.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return models.User{}, userstore.ErrNotFound
}

func (s *Users) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	out := []models.User{}
	for _, id := range ids {
		if u, ok := s.d.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FullNameCI != out[j].FullNameCI {
			return out[i].FullNameCI < out[j].FullNameCI
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out, nil
}

func (s *Users) CountMembers(_ context.Context, groupID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var n int64
	seen := map[primitive.ObjectID]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if u, ok := s.d.users[id]; ok {
			if _, member := u.Membership(groupID); member {
				n++
			}
		}
	}
	return n, nil
}

// update applies fn to the stored user under lock.
func (s *Users) update(op string, id primitive.ObjectID, fn func(u *models.User) error) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.d.fail(op); err != nil {
		return err
	}
	u, ok := s.d.users[id]
	if !ok {
		return userstore.ErrNotFound
	}
	u = cloneUser(u)
	if err := fn(&u); err != nil {
		return err
	}
	u.UpdatedAt = time.Now().UTC()
	s.d.users[id] = u
	return nil
}

func (s *Users) AddMembership(_ context.Context, userID primitive.ObjectID, ug models.UserGroup, makeCurrent bool) error {
	return s.update("users.addmembership", userID, func(u *models.User) error {
		if _, ok := u.Membership(ug.GroupID); ok {
			return userstore.ErrMembershipExists
		}
		u.Groups = append(u.Groups, ug)
		if makeCurrent {
			gid := ug.GroupID
			u.CurrentGroup = &gid
		}
		return nil
	})
}

func (s *Users) RemoveMembership(_ context.Context, groupID primitive.ObjectID, ids []primitive.ObjectID) error {
	for _, id := range ids {
		err := s.update("users.removemembership", id, func(u *models.User) error {
			kept := u.Groups[:0]
			for _, g := range u.Groups {
				if g.GroupID != groupID {
					kept = append(kept, g)
				}
			}
			u.Groups = kept
			if u.CurrentGroup != nil && *u.CurrentGroup == groupID {
				u.CurrentGroup = nil
			}
			return nil
		})
		if err != nil && !errors.Is(err, userstore.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (s *Users) SetMembershipStatus(_ context.Context, userID, groupID primitive.ObjectID, status string) error {
	return s.update("users.setmembershipstatus", userID, func(u *models.User) error {
		for i := range u.Groups {
			if u.Groups[i].GroupID == groupID {
				u.Groups[i].Status = status
				return nil
			}
		}
		return userstore.ErrNotFound
	})
}

func (s *Users) SetCurrentGroup(_ context.Context, userID primitive.ObjectID, groupID *primitive.ObjectID) error {
	return s.update("users.setcurrentgroup", userID, func(u *models.User) error {
		if groupID == nil {
			u.CurrentGroup = nil
			return nil
		}
		id := *groupID
		u.CurrentGroup = &id
		return nil
	})
}

func (s *Users) MarkVerified(_ context.Context, userID primitive.ObjectID) error {
	return s.update("users.markverified", userID, func(u *models.User) error {
		u.Verified = true
		u.OTPAttempts = 0
		return nil
	})
}

func (s *Users) IncOTPAttempts(_ context.Context, userID primitive.ObjectID) (int, error) {
	var n int
	err := s.update("users.incotpattempts", userID, func(u *models.User) error {
		u.OTPAttempts++
		n = u.OTPAttempts
		return nil
	})
	return n, err
}

func (s *Users) ResetOTPAttempts(_ context.Context, userID primitive.ObjectID) error {
	return s.update("users.resetotpattempts", userID, func(u *models.User) error {
		u.OTPAttempts = 0
		return nil
	})
}

func (s *Users) UpdateProfile(_ context.Context, userID primitive.ObjectID, p userstore.ProfileUpdate) (models.User, error) {
	var out models.User
	err := s.update("users.updateprofile", userID, func(u *models.User) error {
		if p.FullName != nil {
			u.FullName = normalize.Name(*p.FullName)
			u.FullNameCI = text.Fold(u.FullName)
		}
		if p.Phone != nil {
			u.Phone = *p.Phone
		}
		if p.Gender != nil {
			u.Gender = *p.Gender
		}
		if p.Bio != nil {
			u.Bio = *p.Bio
		}
		out = cloneUser(*u)
		return nil
	})
	return out, err
}
