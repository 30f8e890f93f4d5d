package models

import (
	"fmt"
	"slices"
	"strings"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleUser      Role = "user"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

var allRoles = []Role{RoleUser, RoleOrganizer, RoleAdmin}

func (r Role) Valid() bool {
	return slices.Contains(allRoles, r)
}

func (r Role) String() string {
	return string(r)
}

// ParseRole accepts the stored names plus a few spellings the frontend
// sends. The empty string yields RoleUser.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "user", "standard", "student":
		return RoleUser, nil
	case "organizer", "organiser":
		return RoleOrganizer, nil
	case "admin", "administrator":
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
}

// Authorized reports whether role satisfies the required set. An empty set
// admits any valid role.
func Authorized(role Role, required ...Role) bool {
	if !role.Valid() {
		return false
	}
	if len(required) == 0 {
		return true
	}
	return slices.Contains(required, role)
}
