package memstore

import (
	"context"
	"errors"
	"time"

	groupstore "github.com/dalemusser/grouphub/internal/app/store/groups"
	"github.com/dalemusser/grouphub/internal/app/system/normalize"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Groups mirrors groupstore.Store.
type Groups struct{ d *DB }

func (s *Groups) Create(_ context.Context, g models.Group) (models.Group, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.d.fail("groups.create"); err != nil {
		return models.Group{}, err
	}
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	g.NameCI = text.Fold(g.Name)
	g.JoinCode = normalize.JoinCode(g.JoinCode)
	if g.Members == nil {
		g.Members = []models.GroupMember{}
	}
	for _, other := range s.d.groups {
		if other.JoinCode == g.JoinCode {
			return models.Group{}, groupstore.ErrDuplicateJoinCode
		}
	}
	now := time.Now().UTC()
	g.CreatedAt, g.UpdatedAt = now, now
	s.d.groups[g.ID] = cloneGroup(g)
	return g, nil
}

func (s *Groups) GetByID(_ context.Context, id primitive.ObjectID) (models.Group, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	g, ok := s.d.groups[id]
	if !ok {
		return models.Group{}, groupstore.ErrNotFound
	}
	return cloneGroup(g), nil
}

func (s *Groups) GetByJoinCode(_ context.Context, code string) (models.Group, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	code = normalize.JoinCode(code)
	for _, g := range s.d.groups {
		if g.JoinCode == code {
			return cloneGroup(g), nil
		}
	}
	return models.Group{}, groupstore.ErrNotFound
}

func (s *Groups) JoinCodeExists(ctx context.Context, code string) (bool, error) {
	_, err := s.GetByJoinCode(ctx, code)
	if errors.Is(err, groupstore.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Groups) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Group, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	out := []models.Group{}
	for _, id := range ids {
		if g, ok := s.d.groups[id]; ok {
			g = cloneGroup(g)
			g.Members = nil
			out = append(out, g)
		}
	}
	return out, nil
}

// Delete removes a group outright. Tests use it to simulate a group
// vanishing between lookup and join.
func (s *Groups) Delete(id primitive.ObjectID) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	delete(s.d.groups, id)
}

func (s *Groups) AllocateMemberNumber(_ context.Context, groupID, userID primitive.ObjectID) (models.Group, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.d.fail("groups.allocatemembernumber"); err != nil {
		return models.Group{}, err
	}
	g, ok := s.d.groups[groupID]
	if !ok {
		return models.Group{}, groupstore.ErrNotFound
	}
	if _, member := g.Member(userID); member {
		return models.Group{}, groupstore.ErrMemberExists
	}
	g = cloneGroup(g)
	g.MemberCounter++
	g.UpdatedAt = time.Now().UTC()
	s.d.groups[groupID] = g
	out := cloneGroup(g)
	out.Members = nil
	return out, nil
}

func (s *Groups) update(op string, id primitive.ObjectID, fn func(g *models.Group) error) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.d.fail(op); err != nil {
		return err
	}
	g, ok := s.d.groups[id]
	if !ok {
		return groupstore.ErrNotFound
	}
	g = cloneGroup(g)
	if err := fn(&g); err != nil {
		return err
	}
	g.UpdatedAt = time.Now().UTC()
	s.d.groups[id] = g
	return nil
}

func (s *Groups) AddMember(_ context.Context, groupID primitive.ObjectID, m models.GroupMember) error {
	return s.update("groups.addmember", groupID, func(g *models.Group) error {
		if _, ok := g.Member(m.UserID); ok {
			return groupstore.ErrMemberExists
		}
		g.Members = append(g.Members, m)
		return nil
	})
}

func (s *Groups) RemoveMembers(_ context.Context, groupID primitive.ObjectID, userIDs []primitive.ObjectID) error {
	drop := make(map[primitive.ObjectID]bool, len(userIDs))
	for _, id := range userIDs {
		drop[id] = true
	}
	return s.update("groups.removemembers", groupID, func(g *models.Group) error {
		kept := g.Members[:0]
		for _, m := range g.Members {
			if !drop[m.UserID] {
				kept = append(kept, m)
			}
		}
		g.Members = kept
		return nil
	})
}

func (s *Groups) SetMemberStatus(_ context.Context, groupID, userID primitive.ObjectID, status string) error {
	return s.update("groups.setmemberstatus", groupID, func(g *models.Group) error {
		for i := range g.Members {
			if g.Members[i].UserID == userID {
				g.Members[i].Status = status
				return nil
			}
		}
		return groupstore.ErrNotFound
	})
}
