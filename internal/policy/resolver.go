package policy

import (
	"context"
	"fmt"

	"github.com/newsdesk-api/internal/models"
)

// RoleLister is the slice of the role store the resolver needs
type RoleLister interface {
	ListByUser(ctx context.Context, userID string) ([]*models.UserRoleAssignment, error)
}

// Resolver determines a user's single effective role
type Resolver struct {
	roles RoleLister
}

// NewResolver creates a Resolver backed by the given role store
func NewResolver(roles RoleLister) *Resolver {
	return &Resolver{roles: roles}
}

// Resolve returns the actor's effective role. Anonymous actors and users without
// an assignment row are plain users. When several rows exist the first one in
// store order wins and the rest are ignored.
func (r *Resolver) Resolve(ctx context.Context, actor models.Actor) (models.Role, error) {
	if actor.IsAnonymous() {
		return models.RoleUser, nil
	}

	rows, err := r.roles.ListByUser(ctx, actor.UserID)
	if err != nil {
		return models.RoleUser, fmt.Errorf("failed to resolve role: %w", err)
	}
	for _, row := range rows {
		if row == nil {
			continue
		}
		if _, ok := models.ParseRole(string(row.Role)); ok {
			return row.Role, nil
		}
	}
	return models.RoleUser, nil
}
