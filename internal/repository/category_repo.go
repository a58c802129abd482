package repository

import (
	"context"
	"database/sql"

	"github.com/newsdesk-api/internal/database"
	"github.com/newsdesk-api/internal/models"
)

const categoryColumns = "id, name, label, color, is_active, sort_order, created_at, updated_at"

type categoryRepo struct {
	db *database.DB
}

// NewCategoryRepo creates a new category repository
func NewCategoryRepo(db *database.DB) CategoryRepository {
	return &categoryRepo{db: db}
}

// Create inserts a new category. A taken name yields ErrDuplicate.
func (r *categoryRepo) Create(ctx context.Context, c *models.Category) error {
	query := `
		INSERT INTO categories (` + categoryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.Name, c.Label, c.Color, c.IsActive, c.SortOrder, c.CreatedAt, c.UpdatedAt,
	)
	return duplicate(err)
}

// Update writes the mutable fields of a category, keyed by name
func (r *categoryRepo) Update(ctx context.Context, c *models.Category) (bool, error) {
	query := `
		UPDATE categories SET label = $1, color = $2, is_active = $3, sort_order = $4, updated_at = $5
		WHERE name = $6
	`
	return affected(r.db.ExecContext(ctx, query, c.Label, c.Color, c.IsActive, c.SortOrder, c.UpdatedAt, c.Name))
}

// Delete removes a category. Articles referencing it are left alone.
func (r *categoryRepo) Delete(ctx context.Context, name string) (bool, error) {
	return affected(r.db.ExecContext(ctx, "DELETE FROM categories WHERE name = $1", name))
}

// GetByName retrieves a category by its stable name
func (r *categoryRepo) GetByName(ctx context.Context, name string) (*models.Category, error) {
	var c models.Category
	err := r.db.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE name = $1", name).Scan(
		&c.ID, &c.Name, &c.Label, &c.Color, &c.IsActive, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns categories ordered by sort_order, then name
func (r *categoryRepo) List(ctx context.Context, activeOnly bool) ([]*models.Category, error) {
	sb := psql.Select(categoryColumns).From("categories").OrderBy("sort_order ASC", "name ASC")
	if activeOnly {
		sb = sb.Where("is_active")
	}

	query, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Label, &c.Color, &c.IsActive, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}
