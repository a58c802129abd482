package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/newsdesk-api/internal/models"
	"github.com/newsdesk-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_ListUsersMergesProfilesAndRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := f.clock.Now()

	f.store.Profiles.Upsert(ctx, &models.Profile{ID: "p1", UserID: editor.UserID, DisplayName: "Asha", CreatedAt: now})
	f.store.Profiles.Upsert(ctx, &models.Profile{ID: "p2", UserID: reader.UserID, DisplayName: "Ravi", CreatedAt: now.Add(-time.Hour)})
	// a second row for the editor is ignored
	f.store.Roles.Grant(editor.UserID, models.RoleAdmin)

	users, err := f.svc.User.ListUsers(ctx, admin)
	require.NoError(t, err)

	byID := make(map[string]*models.UserWithRole)
	for _, u := range users {
		byID[u.ID] = u
	}

	require.Contains(t, byID, editor.UserID)
	assert.Equal(t, "Asha", byID[editor.UserID].DisplayName)
	require.NotNil(t, byID[editor.UserID].Role)
	assert.Equal(t, models.RoleEditor, *byID[editor.UserID].Role)

	require.Contains(t, byID, reader.UserID)
	assert.Nil(t, byID[reader.UserID].Role, "users without a row have no explicit role")

	require.Contains(t, byID, admin.UserID, "role-only users are listed")
	assert.Equal(t, models.RoleAdmin, *byID[admin.UserID].Role)

	assert.Len(t, users, 4)
}

func TestUserService_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.User.ListUsers(ctx, editor)
	assert.ErrorIs(t, err, service.ErrForbidden)
	_, err = f.svc.User.AssignRole(ctx, editor, reader.UserID, models.RoleEditor)
	assert.ErrorIs(t, err, service.ErrForbidden)
	_, err = f.svc.User.ListUsers(ctx, anon)
	assert.ErrorIs(t, err, service.ErrUnauthenticated)
}

func TestUserService_AssignRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	changes := f.recordEvents(models.TableUserRoles)

	// no row yet: insert
	row, err := f.svc.User.AssignRole(ctx, admin, reader.UserID, models.RoleEditor)
	require.NoError(t, err)
	assert.Equal(t, models.RoleEditor, row.Role)

	role, err := f.svc.User.MyRole(ctx, reader)
	require.NoError(t, err)
	assert.Equal(t, models.RoleEditor, role)

	// existing row: rewritten in place
	again, err := f.svc.User.AssignRole(ctx, admin, reader.UserID, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, row.ID, again.ID)

	rows, _ := f.store.Roles.ListByUser(ctx, reader.UserID)
	require.Len(t, rows, 1)
	assert.Equal(t, models.RoleAdmin, rows[0].Role)

	evs := changes()
	require.Len(t, evs, 2)
	assert.Equal(t, models.ChangeInsert, evs[0].Type)
	assert.Equal(t, models.ChangeUpdate, evs[1].Type)
}

func TestUserService_AssignRoleRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.User.AssignRole(ctx, admin, reader.UserID, models.Role("superuser"))
	var verr *service.ValidationErrors
	assert.ErrorAs(t, err, &verr)

	_, err = f.svc.User.AssignRole(ctx, admin, "  ", models.RoleEditor)
	assert.ErrorAs(t, err, &verr)

	_, err = f.svc.User.AssignRole(ctx, admin, admin.UserID, models.RoleUser)
	assert.ErrorIs(t, err, service.ErrForbidden, "admins cannot demote themselves")
}

func TestUserService_RevokeRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	own, _ := f.store.Roles.ListByUser(ctx, admin.UserID)
	require.Len(t, own, 1)
	assert.ErrorIs(t, f.svc.User.RevokeRole(ctx, admin, own[0].ID), service.ErrForbidden)

	rows, _ := f.store.Roles.ListByUser(ctx, editor.UserID)
	require.NoError(t, f.svc.User.RevokeRole(ctx, admin, rows[0].ID))

	role, err := f.svc.User.MyRole(ctx, editor)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, role)

	assert.ErrorIs(t, f.svc.User.RevokeRole(ctx, admin, rows[0].ID), service.ErrNotFound)
}

func TestUserService_RevokeRoleMalformedID(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.svc.User.RevokeRole(context.Background(), admin, "not-a-uuid"), service.ErrNotFound)
}

func TestUserService_AssignRoleRevokedConcurrently(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// the row disappears between the lookup and the update
	f.store.Roles.OnUpdateRole = func(id string) {
		f.store.Roles.OnUpdateRole = nil
		_, err := f.store.Roles.Delete(ctx, id)
		require.NoError(t, err)
	}

	_, err := f.svc.User.AssignRole(ctx, admin, editor.UserID, models.RoleUser)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestUserService_MyRoleAnonymous(t *testing.T) {
	f := newFixture(t)
	role, err := f.svc.User.MyRole(context.Background(), anon)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, role)
}

func TestProfileService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Profile.Get(ctx, editor.UserID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	blank, err := f.svc.Profile.GetOwn(ctx, editor)
	require.NoError(t, err)
	assert.Equal(t, editor.UserID, blank.UserID)

	_, err = f.svc.Profile.UpdateOwn(ctx, anon, &models.ProfileInput{DisplayName: strPtr("x")})
	assert.ErrorIs(t, err, service.ErrUnauthenticated)

	saved, err := f.svc.Profile.UpdateOwn(ctx, editor, &models.ProfileInput{
		DisplayName: strPtr("  Asha Verma "),
		Bio:         strPtr("राजनीति संवाददाता"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha Verma", saved.DisplayName)

	// absent fields are left alone
	saved, err = f.svc.Profile.UpdateOwn(ctx, editor, &models.ProfileInput{AvatarURL: strPtr("https://cdn.example.com/a.png")})
	require.NoError(t, err)
	assert.Equal(t, "Asha Verma", saved.DisplayName)
	assert.Equal(t, "https://cdn.example.com/a.png", saved.AvatarURL)

	public, err := f.svc.Profile.Get(ctx, editor.UserID)
	require.NoError(t, err)
	assert.Equal(t, "राजनीति संवाददाता", public.Bio)

	_, err = f.svc.Profile.UpdateOwn(ctx, editor, &models.ProfileInput{AvatarURL: strPtr("not a url")})
	var verr *service.ValidationErrors
	assert.ErrorAs(t, err, &verr)
}
