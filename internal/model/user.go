// Package model defines domain entities for the application.
package model

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Role is an authorization role granted by the pizza service.
type Role string

// Role constants. RoleUnauthenticated is the role of an absent user.
const (
	RoleUnauthenticated Role = ""
	RoleDiner           Role = "diner"
	RoleFranchisee      Role = "franchisee"
	RoleAdmin           Role = "admin"
)

// ValidRoles contains all roles the pizza service hands out.
var ValidRoles = []Role{RoleDiner, RoleFranchisee, RoleAdmin}

// IsValid checks if the role belongs to the closed role set.
func (r Role) IsValid() bool {
	return slices.Contains(ValidRoles, r)
}

// RoleAssignment is a single role claim, optionally scoped to an object
// such as a franchise.
type RoleAssignment struct {
	Role     Role `json:"role"`
	ObjectID int  `json:"objectId,omitempty"`
}

// User is the authenticated identity returned by the pizza service.
type User struct {
	ID    int              `json:"id"`
	Name  string           `json:"name"`
	Email string           `json:"email"`
	Roles []RoleAssignment `json:"roles"`
}

// HasRole reports whether the user holds the given role.
// Roles are matched exactly; admin does not imply franchisee.
func (u *User) HasRole(role Role) bool {
	if u == nil || role == RoleUnauthenticated {
		return false
	}
	for _, r := range u.Roles {
		if r.Role == role {
			return true
		}
	}
	return false
}

// IsRole is the nil-safe form of HasRole used by templates.
func IsRole(u *User, role Role) bool {
	return u.HasRole(role)
}

// PrimaryRole returns the most privileged role held by the user.
func (u *User) PrimaryRole() Role {
	for _, r := range []Role{RoleAdmin, RoleFranchisee, RoleDiner} {
		if u.HasRole(r) {
			return r
		}
	}
	return RoleUnauthenticated
}

// ObjectIDsFor returns the object IDs attached to a role, e.g. the
// franchises a franchisee operates.
func (u *User) ObjectIDsFor(role Role) []int {
	if u == nil {
		return nil
	}
	var ids []int
	for _, r := range u.Roles {
		if r.Role == role && r.ObjectID != 0 {
			ids = append(ids, r.ObjectID)
		}
	}
	return ids
}

// Initials returns up to two uppercase initials for the navbar avatar.
func (u *User) Initials() string {
	if u == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range strings.Fields(u.Name) {
		r, _ := utf8.DecodeRuneInString(part)
		b.WriteRune(unicode.ToUpper(r))
		if utf8.RuneCountInString(b.String()) == 2 {
			break
		}
	}
	return b.String()
}

// RoleNames returns the user's roles as display strings.
func (u *User) RoleNames() []string {
	if u == nil {
		return nil
	}
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		if !slices.Contains(names, string(r.Role)) {
			names = append(names, string(r.Role))
		}
	}
	return names
}
