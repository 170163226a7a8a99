package membership

import (
	"context"
	"errors"
	"time"

	groupstore "github.com/dalemusser/grouphub/internal/app/store/groups"
	"github.com/dalemusser/grouphub/internal/app/system/normalize"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (r *Registry) group(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	g, err := r.groups.GetByID(ctx, id)
	if errors.Is(err, groupstore.ErrNotFound) {
		return models.Group{}, ErrTenantNotFound
	}
	return g, err
}

// JoinCode returns the group's public join code.
func (r *Registry) JoinCode(ctx context.Context, groupID primitive.ObjectID) (string, error) {
	g, err := r.group(ctx, groupID)
	if err != nil {
		return "", err
	}
	return g.JoinCode, nil
}

// RemoveMembers drops userIDs from the group on both sides in one
// transaction and returns how many were removed. Ids that are not members
// are ignored; if none are members the call fails with ErrMemberNotFound.
// The group creator can never be removed.
func (r *Registry) RemoveMembers(ctx context.Context, groupID, actorID primitive.ObjectID, userIDs []primitive.ObjectID) (int, error) {
	g, err := r.group(ctx, groupID)
	if err != nil {
		return 0, err
	}

	seen := make(map[primitive.ObjectID]struct{}, len(userIDs))
	targets := make([]primitive.ObjectID, 0, len(userIDs))
	for _, id := range userIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if id == g.CreatedBy {
			return 0, ErrCreatorLocked
		}
		if _, ok := g.Member(id); ok {
			targets = append(targets, id)
		}
	}
	if len(targets) == 0 {
		return 0, ErrMemberNotFound
	}

	err = r.tx.Run(ctx, func(ctx context.Context) error {
		if err := r.groups.RemoveMembers(ctx, groupID, targets); err != nil {
			return err
		}
		return r.users.RemoveMembership(ctx, groupID, targets)
	})
	if err != nil {
		return 0, err
	}
	for _, id := range targets {
		r.audit.MemberRemoved(ctx, actorID, groupID, id)
	}
	return len(targets), nil
}

// SetMemberStatus activates or deactivates a member on both sides.
func (r *Registry) SetMemberStatus(ctx context.Context, groupID, actorID, userID primitive.ObjectID, status string) error {
	status = normalize.Status(status)
	if status != models.MemberActive && status != models.MemberInactive {
		return ErrBadStatus
	}
	g, err := r.group(ctx, groupID)
	if err != nil {
		return err
	}
	if _, ok := g.Member(userID); !ok {
		return ErrMemberNotFound
	}
	if userID == g.CreatedBy && status != models.MemberActive {
		return ErrCreatorLocked
	}

	err = r.tx.Run(ctx, func(ctx context.Context) error {
		if err := r.groups.SetMemberStatus(ctx, groupID, userID, status); err != nil {
			return err
		}
		return r.users.SetMembershipStatus(ctx, userID, groupID, status)
	})
	if err != nil {
		return err
	}
	r.audit.MemberStatusChanged(ctx, actorID, groupID, userID, status)
	return nil
}

// MemberView is a member entry joined with the user's profile.
type MemberView struct {
	UserID       primitive.ObjectID  `json:"user_id"`
	FullName     string              `json:"full_name"`
	Email        string              `json:"email"`
	Phone        string              `json:"phone,omitempty"`
	MemberNumber string              `json:"member_number"`
	Status       string              `json:"status"`
	Permissions  []models.Permission `json:"permissions"`
	JoinedAt     time.Time           `json:"joined_at"`
}

// ListMembers returns the group's members ordered by name. An empty status
// returns every member.
func (r *Registry) ListMembers(ctx context.Context, groupID primitive.ObjectID, status string) ([]MemberView, error) {
	g, err := r.group(ctx, groupID)
	if err != nil {
		return nil, err
	}
	status = normalize.Status(status)

	byUser := make(map[primitive.ObjectID]models.GroupMember, len(g.Members))
	ids := make([]primitive.ObjectID, 0, len(g.Members))
	for _, m := range g.Members {
		if status != "" && m.Status != status {
			continue
		}
		byUser[m.UserID] = m
		ids = append(ids, m.UserID)
	}

	users, err := r.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]MemberView, 0, len(users))
	for _, u := range users {
		m, ok := byUser[u.ID]
		if !ok {
			continue
		}
		out = append(out, MemberView{
			UserID:       u.ID,
			FullName:     u.FullName,
			Email:        u.Email,
			Phone:        u.Phone,
			MemberNumber: m.MemberNumber,
			Status:       m.Status,
			Permissions:  m.Permissions,
			JoinedAt:     m.JoinedAt,
		})
	}
	return out, nil
}

// GroupSummary is one of the caller's memberships.
type GroupSummary struct {
	GroupID      primitive.ObjectID  `json:"group_id"`
	Name         string              `json:"name"`
	Abbreviation string              `json:"abbreviation"`
	MemberNumber string              `json:"member_number"`
	Status       string              `json:"status"`
	Permissions  []models.Permission `json:"permissions"`
	Current      bool                `json:"current"`
}

// MyGroups lists the user's memberships in join order.
func (r *Registry) MyGroups(ctx context.Context, userID primitive.ObjectID) ([]GroupSummary, error) {
	u, err := r.lookupUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(u.Groups))
	for _, ug := range u.Groups {
		ids = append(ids, ug.GroupID)
	}
	groups, err := r.groups.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]models.Group, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}

	out := make([]GroupSummary, 0, len(u.Groups))
	for _, ug := range u.Groups {
		g, ok := byID[ug.GroupID]
		if !ok {
			continue
		}
		out = append(out, GroupSummary{
			GroupID:      g.ID,
			Name:         g.Name,
			Abbreviation: g.Abbreviation,
			MemberNumber: ug.MemberNumber,
			Status:       ug.Status,
			Permissions:  ug.Permissions,
			Current:      u.CurrentGroup != nil && *u.CurrentGroup == g.ID,
		})
	}
	return out, nil
}
