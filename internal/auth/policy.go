package auth

import (
	"context"
	"errors"
	"strings"
)

// ErrForbidden means the caller is known but may not perform the action.
// It is distinct from a not-found error: the resource exists.
var ErrForbidden = errors.New("forbidden")

// ErrUnauthorized means the caller could not be identified.
var ErrUnauthorized = errors.New("unauthorized")

// Actor is the authenticated identity behind a request.
type Actor struct {
	UserID string
	Role   Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Owns reports whether the actor is the manager recorded on a team.
func (a Actor) Owns(managerUserID string) bool {
	id := strings.TrimSpace(a.UserID)
	return id != "" && strings.EqualFold(id, strings.TrimSpace(managerUserID))
}

// CanManageTeam allows admins and the team's own manager.
func CanManageTeam(a Actor, managerUserID string) error {
	if a.IsAdmin() {
		return nil
	}
	if a.Role == RoleTeamManager && a.Owns(managerUserID) {
		return nil
	}
	return ErrForbidden
}

// CanManagePlayer is decided through the player's team: whoever may manage
// the team may manage its players.
func CanManagePlayer(a Actor, teamManagerUserID string) error {
	return CanManageTeam(a, teamManagerUserID)
}

// CanCreateTeam allows admins and team managers.
func CanCreateTeam(a Actor) error {
	if a.IsAdmin() || a.Role == RoleTeamManager {
		return nil
	}
	return ErrForbidden
}

// RequireAdmin guards tournament and match administration and registration
// review.
func RequireAdmin(a Actor) error {
	if a.IsAdmin() {
		return nil
	}
	return ErrForbidden
}

type actorKey struct{}

// WithActor stores the acting identity on ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the identity stored by WithActor.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
