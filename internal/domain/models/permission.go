// internal/domain/models/permission.go
package models

import "fmt"

// Permission is a capability a member holds within one group.
// The set is closed: only the constants below are valid.
type Permission string

const (
	PermAdmin               Permission = "admin"
	PermManageMembers       Permission = "manage_members"
	PermManageAnnouncements Permission = "manage_announcements"
	PermManageEvents        Permission = "manage_events"
	PermManagePayments      Permission = "manage_payments"
	PermUser                Permission = "user"
)

var allPermissions = map[Permission]struct{}{
	PermAdmin:               {},
	PermManageMembers:       {},
	PermManageAnnouncements: {},
	PermManageEvents:        {},
	PermManagePayments:      {},
	PermUser:                {},
}

// Valid reports whether p is one of the known permissions.
func (p Permission) Valid() bool {
	_, ok := allPermissions[p]
	return ok
}

// ParsePermission converts a raw string into a Permission.
func ParsePermission(s string) (Permission, error) {
	p := Permission(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown permission %q", s)
	}
	return p, nil
}

// ParsePermissions converts every entry or fails on the first unknown one.
func ParsePermissions(raw []string) ([]Permission, error) {
	out := make([]Permission, 0, len(raw))
	for _, s := range raw {
		p, err := ParsePermission(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// OwnerPermissions is the set granted to whoever creates a group.
func OwnerPermissions() []Permission {
	return []Permission{PermAdmin, PermManageMembers, PermManageAnnouncements, PermManageEvents}
}

// JoinerPermissions is the set granted to a member who joins by code.
func JoinerPermissions() []Permission {
	return []Permission{PermUser}
}

// HasAny reports whether held and required intersect. An empty required set
// is satisfied by any holder. Unknown permissions never match.
func HasAny(held, required []Permission) bool {
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if !r.Valid() {
			continue
		}
		for _, h := range held {
			if h == r {
				return true
			}
		}
	}
	return false
}
