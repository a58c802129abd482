package repository

import (
	"context"
	"database/sql"

	"github.com/newsdesk-api/internal/database"
	"github.com/newsdesk-api/internal/models"
)

type roleRepo struct {
	db *database.DB
}

// NewRoleRepo creates a new role assignment repository
func NewRoleRepo(db *database.DB) RoleRepository {
	return &roleRepo{db: db}
}

// ListByUser returns the user's role rows in resolution order
func (r *roleRepo) ListByUser(ctx context.Context, userID string) ([]*models.UserRoleAssignment, error) {
	return r.query(ctx, `
		SELECT id, user_id, role, created_at FROM user_roles
		WHERE user_id = $1 ORDER BY created_at, id
	`, userID)
}

// ListAll returns every role row in resolution order
func (r *roleRepo) ListAll(ctx context.Context) ([]*models.UserRoleAssignment, error) {
	return r.query(ctx, "SELECT id, user_id, role, created_at FROM user_roles ORDER BY created_at, id")
}

// GetByID retrieves a single role row
func (r *roleRepo) GetByID(ctx context.Context, id string) (*models.UserRoleAssignment, error) {
	var a models.UserRoleAssignment
	err := r.db.QueryRowContext(ctx, "SELECT id, user_id, role, created_at FROM user_roles WHERE id = $1", id).
		Scan(&a.ID, &a.UserID, &a.Role, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a role row
func (r *roleRepo) Create(ctx context.Context, a *models.UserRoleAssignment) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO user_roles (id, user_id, role, created_at) VALUES ($1, $2, $3, $4)",
		a.ID, a.UserID, a.Role, a.CreatedAt,
	)
	return err
}

// UpdateRole changes the role held by an existing row
func (r *roleRepo) UpdateRole(ctx context.Context, id string, role models.Role) (bool, error) {
	return affected(r.db.ExecContext(ctx, "UPDATE user_roles SET role = $1 WHERE id = $2", role, id))
}

// Delete removes a role row
func (r *roleRepo) Delete(ctx context.Context, id string) (bool, error) {
	return affected(r.db.ExecContext(ctx, "DELETE FROM user_roles WHERE id = $1", id))
}

func (r *roleRepo) query(ctx context.Context, query string, args ...interface{}) ([]*models.UserRoleAssignment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.UserRoleAssignment
	for rows.Next() {
		var a models.UserRoleAssignment
		if err := rows.Scan(&a.ID, &a.UserID, &a.Role, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

type profileRepo struct {
	db *database.DB
}

// NewProfileRepo creates a new profile repository
func NewProfileRepo(db *database.DB) ProfileRepository {
	return &profileRepo{db: db}
}

// GetByUserID retrieves the profile of a user
func (r *profileRepo) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, display_name, avatar_url, bio, created_at, updated_at
		FROM profiles WHERE user_id = $1
	`, userID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// Upsert inserts a profile or replaces the editable fields of an existing one
func (r *profileRepo) Upsert(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO profiles (id, user_id, display_name, avatar_url, bio, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			avatar_url = EXCLUDED.avatar_url,
			bio = EXCLUDED.bio,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.UserID, nullString(p.DisplayName), nullString(p.AvatarURL), nullString(p.Bio),
		p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// List returns every profile, newest first
func (r *profileRepo) List(ctx context.Context) ([]*models.Profile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, display_name, avatar_url, bio, created_at, updated_at
		FROM profiles ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	var p models.Profile
	var displayName, avatarURL, bio sql.NullString
	if err := row.Scan(&p.ID, &p.UserID, &displayName, &avatarURL, &bio, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.DisplayName = displayName.String
	p.AvatarURL = avatarURL.String
	p.Bio = bio.String
	return &p, nil
}
