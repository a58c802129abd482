package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/newsdesk-api/internal/events"
	"github.com/newsdesk-api/internal/models"
	"github.com/newsdesk-api/internal/policy"
	"github.com/newsdesk-api/internal/repository"
	"github.com/newsdesk-api/internal/validation"
	"github.com/rs/zerolog"
)

// userService is the concrete implementation of UserService
type userService struct {
	roles    repository.RoleRepository
	profiles repository.ProfileRepository
	resolver *policy.Resolver
	feed     events.Feed
	now      func() time.Time
	log      zerolog.Logger
}

func newUserService(deps Dependencies, resolver *policy.Resolver, log zerolog.Logger) *userService {
	return &userService{
		roles:    deps.Repos.Role,
		profiles: deps.Repos.Profile,
		resolver: resolver,
		feed:     deps.Feed,
		now:      deps.Now,
		log:      log.With().Str("service", "user").Logger(),
	}
}

func (s *userService) authorize(ctx context.Context, actor models.Actor) error {
	role, err := authenticated(ctx, s.resolver, actor)
	if err != nil {
		return err
	}
	if !policy.CanManageUsers(role) {
		return ErrForbidden
	}
	return nil
}

// ListUsers merges profiles with role rows. Each user appears once with their
// effective role; users that only have a role row are included too.
func (s *userService) ListUsers(ctx context.Context, actor models.Actor) ([]*models.UserWithRole, error) {
	if err := s.authorize(ctx, actor); err != nil {
		return nil, err
	}

	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	rows, err := s.roles.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	// rows arrive in store order, so the first one per user is the effective role
	first := make(map[string]*models.UserRoleAssignment, len(rows))
	for _, row := range rows {
		if _, ok := first[row.UserID]; !ok {
			first[row.UserID] = row
		}
	}

	users := make([]*models.UserWithRole, 0, len(profiles)+len(first))
	seen := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		seen[p.UserID] = true
		u := &models.UserWithRole{ID: p.UserID, DisplayName: p.DisplayName, CreatedAt: p.CreatedAt}
		attachRole(u, first[p.UserID])
		users = append(users, u)
	}

	var roleOnly []*models.UserWithRole
	for userID, row := range first {
		if seen[userID] {
			continue
		}
		u := &models.UserWithRole{ID: userID, CreatedAt: row.CreatedAt}
		attachRole(u, row)
		roleOnly = append(roleOnly, u)
	}
	sort.Slice(roleOnly, func(i, j int) bool { return roleOnly[i].ID < roleOnly[j].ID })

	return append(users, roleOnly...), nil
}

func attachRole(u *models.UserWithRole, row *models.UserRoleAssignment) {
	if row == nil {
		return
	}
	role, id := row.Role, row.ID
	u.Role = &role
	u.RoleID = &id
}

// AssignRole sets a user's role, rewriting their effective row or inserting one
func (s *userService) AssignRole(ctx context.Context, actor models.Actor, userID string, role models.Role) (*models.UserRoleAssignment, error) {
	if err := s.authorize(ctx, actor); err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, invalidField("user_id", "user_id is required", nil)
	}
	if _, ok := models.ParseRole(string(role)); !ok {
		return nil, invalidField("role", "role must be one of: admin, editor, user", role)
	}
	if userID == actor.UserID {
		return nil, fmt.Errorf("%w: admins cannot change their own role", ErrForbidden)
	}

	rows, err := s.roles.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	var assignment *models.UserRoleAssignment
	changeType := models.ChangeUpdate
	if len(rows) > 0 {
		assignment = rows[0]
		ok, err := s.roles.UpdateRole(ctx, assignment.ID, role)
		if err != nil {
			return nil, fmt.Errorf("failed to update role: %w", err)
		}
		if !ok {
			// revoked between the lookup and the update
			return nil, ErrNotFound
		}
		assignment.Role = role
	} else {
		assignment = &models.UserRoleAssignment{
			ID:        uuid.New().String(),
			UserID:    userID,
			Role:      role,
			CreatedAt: s.now().UTC(),
		}
		if err := s.roles.Create(ctx, assignment); err != nil {
			return nil, fmt.Errorf("failed to create role: %w", err)
		}
		changeType = models.ChangeInsert
	}

	s.log.Info().
		Str("user_id", userID).
		Str("role", string(role)).
		Str("by", actor.UserID).
		Msg("Role assigned")

	publish(ctx, s.feed, s.log, models.NewChangeEvent(models.TableUserRoles, changeType, assignment.ID, assignment))
	return assignment, nil
}

// RevokeRole deletes a role row; the user falls back to their next row or to user
func (s *userService) RevokeRole(ctx context.Context, actor models.Actor, roleID string) error {
	if err := s.authorize(ctx, actor); err != nil {
		return err
	}

	if !validation.IsValidUUID(roleID) {
		return ErrNotFound
	}

	row, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return fmt.Errorf("failed to get role: %w", err)
	}
	if row == nil {
		return ErrNotFound
	}
	if row.UserID == actor.UserID && row.Role == models.RoleAdmin {
		return fmt.Errorf("%w: admins cannot revoke their own admin role", ErrForbidden)
	}

	ok, err := s.roles.Delete(ctx, roleID)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if !ok {
		return ErrNotFound
	}

	s.log.Info().Str("role_id", roleID).Str("user_id", row.UserID).Str("by", actor.UserID).Msg("Role revoked")
	publish(ctx, s.feed, s.log, models.NewChangeEvent(models.TableUserRoles, models.ChangeDelete, roleID, nil))
	return nil
}

// MyRole returns the effective role of the actor
func (s *userService) MyRole(ctx context.Context, actor models.Actor) (models.Role, error) {
	return s.resolver.Resolve(ctx, actor)
}
