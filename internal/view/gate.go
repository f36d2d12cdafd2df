// Package view renders the server-side pages of the JWT Pizza front end.
//
// Role-gated pages pick their variant with Decide on every render; the
// decision is never cached in the session.
package view

import "github.com/jwtpizza/pizzaweb/internal/model"

// Variant is the branch of a role-gated page.
type Variant string

// Page variants.
const (
	VariantUnauthorized Variant = "unauthorized"
	VariantAuthorized   Variant = "authorized"
)

// Decide returns VariantAuthorized only when user holds required.
// A nil user, a user without roles or a malformed role list yields
// VariantUnauthorized.
func Decide(user *model.User, required model.Role) Variant {
	if user == nil || len(user.Roles) == 0 || !required.IsValid() {
		return VariantUnauthorized
	}
	if !user.HasRole(required) {
		return VariantUnauthorized
	}
	return VariantAuthorized
}
