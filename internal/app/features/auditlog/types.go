// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/dalemusser/grouphub/internal/app/store/audit"
)

// listItem is one audit event with names resolved.
type listItem struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"event_type"`
	ActorID       string            `json:"actor_id,omitempty"`
	ActorName     string            `json:"actor_name,omitempty"`
	UserID        string            `json:"user_id,omitempty"`
	UserName      string            `json:"user_name,omitempty"`
	IP            string            `json:"ip"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

type listResponse struct {
	Items      []listItem `json:"items"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
	Total      int64      `json:"total"`
}

var categories = []string{
	audit.CategoryAuth,
	audit.CategoryMembership,
	audit.CategoryLedger,
	audit.CategoryRecords,
}

func knownCategory(c string) bool {
	for _, k := range categories {
		if k == c {
			return true
		}
	}
	return false
}
