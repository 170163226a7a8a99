// internal/domain/models/record.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RecordKind names a tenant-scoped record collection.
type RecordKind string

const (
	KindAnnouncements RecordKind = "announcements"
	KindConstitutions RecordKind = "constitutions"
	KindMinutes       RecordKind = "minutes"
	KindExpenses      RecordKind = "expenses"
	KindEvents        RecordKind = "events"
)

// RecordKinds lists every kind in route order.
func RecordKinds() []RecordKind {
	return []RecordKind{KindAnnouncements, KindConstitutions, KindMinutes, KindExpenses, KindEvents}
}

// Record is the shared shape of announcements, constitutions, minutes,
// expenses and events. Amount is only meaningful for expenses and
// OccursAt for events and minutes.
type Record struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	GroupID   primitive.ObjectID `bson:"group_id" json:"group_id"`
	Title     string             `bson:"title" json:"title"`
	TitleCI   string             `bson:"title_ci" json:"-"`
	Body      string             `bson:"body" json:"body"`
	Amount    *float64           `bson:"amount,omitempty" json:"amount,omitempty"`
	OccursAt  *time.Time         `bson:"occurs_at,omitempty" json:"occurs_at,omitempty"`
	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
