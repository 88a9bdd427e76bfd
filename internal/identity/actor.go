// Package identity issues and verifies bearer tokens, hashes passwords and
// carries the authenticated actor through request contexts.
package identity

import (
	"context"
	"slices"
)

// Roles.
const (
	RoleUser      = "user"
	RolePublisher = "publisher"
	RoleAdmin     = "admin"
)

// Roles lists every assignable role.
var Roles = []string{RoleUser, RolePublisher, RoleAdmin}

// ValidRole reports whether role is assignable.
func ValidRole(role string) bool {
	return slices.Contains(Roles, role)
}

// Actor is the authenticated caller of a request.
type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// HasRole reports whether the actor holds one of roles.
func (a Actor) HasRole(roles ...string) bool {
	return slices.Contains(roles, a.Role)
}

// Owns reports whether the actor may modify a record owned by ownerID.
// Admins own everything.
func (a Actor) Owns(ownerID string) bool {
	return a.IsAdmin() || (a.ID != "" && a.ID == ownerID)
}

type contextKey string

const actorKey contextKey = "actor"

// WithActor returns a copy of ctx carrying a.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFrom returns the actor stored by the authentication middleware.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey).(Actor)
	return a, ok
}
