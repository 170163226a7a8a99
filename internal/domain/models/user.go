// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Member status values shared by both sides of a membership.
const (
	MemberActive   = "active"
	MemberInactive = "inactive"
)

// User is an account that can belong to any number of groups.
//
// NOTE:
//   - Groups mirrors Group.Members. Both sides are written in the same
//     transaction; see membership.Registry.
//   - CurrentGroup only records the last group a token was issued for.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"` // lowercase, unique
	PasswordHash string             `bson:"password_hash" json:"-"`
	FullName     string             `bson:"full_name" json:"full_name"`
	FullNameCI   string             `bson:"full_name_ci" json:"-"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Gender       string             `bson:"gender,omitempty" json:"gender,omitempty"`
	Bio          string             `bson:"bio,omitempty" json:"bio,omitempty"`
	Verified     bool               `bson:"verified" json:"verified"`

	Groups       []UserGroup         `bson:"groups" json:"groups"`
	CurrentGroup *primitive.ObjectID `bson:"current_group,omitempty" json:"current_group,omitempty"`

	OTPAttempts int `bson:"otp_attempts" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// UserGroup is the user-side copy of a membership.
type UserGroup struct {
	GroupID      primitive.ObjectID `bson:"group_id" json:"group_id"`
	Status       string             `bson:"status" json:"status"`
	Permissions  []Permission       `bson:"permissions" json:"permissions"`
	MemberNumber string             `bson:"member_number" json:"member_number"`
	JoinedAt     time.Time          `bson:"joined_at" json:"joined_at"`
}

// Membership returns the user's entry for groupID, if any.
func (u User) Membership(groupID primitive.ObjectID) (UserGroup, bool) {
	for _, g := range u.Groups {
		if g.GroupID == groupID {
			return g, true
		}
	}
	return UserGroup{}, false
}

// FirstActive returns the first active membership in join order.
func (u User) FirstActive() (UserGroup, bool) {
	for _, g := range u.Groups {
		if g.Status == MemberActive {
			return g, true
		}
	}
	return UserGroup{}, false
}
