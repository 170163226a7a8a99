// Package normalize canonicalizes user input before it is compared or stored.
package normalize

import "strings"

// Email trims and lowercases an address. Emails are unique case-insensitively.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name but keeps its case.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Status trims and lowercases a status value such as "active".
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// JoinCode trims and uppercases a group join code.
func JoinCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// QueryParam trims a raw query parameter and keeps its case.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
