// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is a tenant. Every record, payment and membership is scoped to one.
//
// NOTE:
//   - Members is owned by the group document; there is no separate
//     membership collection. User.Groups holds the mirror.
//   - MemberCounter only ever increases. Member numbers are never reused.
type Group struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	Name           string             `bson:"name" json:"name"`
	NameCI         string             `bson:"name_ci" json:"-"`
	Description    string             `bson:"description" json:"description"`
	JoinSecretHash string             `bson:"join_secret_hash" json:"-"`
	JoinCode       string             `bson:"join_code" json:"-"`
	Abbreviation   string             `bson:"abbreviation" json:"abbreviation"`

	MemberCounter int64         `bson:"member_counter" json:"member_counter"`
	Members       []GroupMember `bson:"members" json:"-"`

	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// GroupMember is the group-side copy of a membership.
type GroupMember struct {
	UserID        primitive.ObjectID `bson:"user_id" json:"user_id"`
	MemberNumber  string             `bson:"member_number" json:"member_number"`
	Status        string             `bson:"status" json:"status"`
	Permissions   []Permission       `bson:"permissions" json:"permissions"`
	Notifications bool               `bson:"notifications" json:"notifications"`
	JoinedAt      time.Time          `bson:"joined_at" json:"joined_at"`
}

// Member returns the entry for userID, if any.
func (g Group) Member(userID primitive.ObjectID) (GroupMember, bool) {
	for _, m := range g.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return GroupMember{}, false
}
