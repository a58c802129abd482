package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/newsdesk-api/internal/database"
	"github.com/newsdesk-api/internal/models"
)

// ErrDuplicate is returned when an insert collides with a unique key
var ErrDuplicate = errors.New("duplicate key")

// pgUniqueViolation is the SQLSTATE postgres reports for a unique index collision
const pgUniqueViolation = "23505"

// ArticleRepository defines the interface for article data operations
type ArticleRepository interface {
	Create(ctx context.Context, article *models.Article) error
	// Update writes every mutable column of the article in a single statement
	Update(ctx context.Context, article *models.Article) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Article, error)
	GetBySlug(ctx context.Context, slug string) (*models.Article, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, filter models.ArticleFilter) ([]*models.Article, error)
	Count(ctx context.Context, filter models.ArticleFilter) (int, error)
	// IncrementViewCount atomically adds one view and returns the new total.
	// found is false when no article has the id.
	IncrementViewCount(ctx context.Context, id string) (count int64, found bool, err error)
	GetViewCount(ctx context.Context, id string) (count int64, found bool, err error)
	CategoryStats(ctx context.Context) (map[string]models.CategoryStats, error)
}

// CategoryRepository defines the interface for the category registry
type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) (bool, error)
	Delete(ctx context.Context, name string) (bool, error)
	GetByName(ctx context.Context, name string) (*models.Category, error)
	List(ctx context.Context, activeOnly bool) ([]*models.Category, error)
}

// RoleRepository defines the interface for role assignment rows
type RoleRepository interface {
	// ListByUser returns a user's rows ordered by created_at, id
	ListByUser(ctx context.Context, userID string) ([]*models.UserRoleAssignment, error)
	ListAll(ctx context.Context) ([]*models.UserRoleAssignment, error)
	GetByID(ctx context.Context, id string) (*models.UserRoleAssignment, error)
	Create(ctx context.Context, assignment *models.UserRoleAssignment) error
	UpdateRole(ctx context.Context, id string, role models.Role) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// ProfileRepository defines the interface for user profiles
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) error
	List(ctx context.Context) ([]*models.Profile, error)
}

// VisitorRepository defines the interface for visitor analytics rows
type VisitorRepository interface {
	Create(ctx context.Context, visit *models.Visit) error
	List(ctx context.Context, filter models.VisitorFilter) ([]*models.Visit, error)
	StreamAll(ctx context.Context, filter models.VisitorFilter, callback func(*models.Visit) error) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SEORepository defines the interface for site-wide SEO settings
type SEORepository interface {
	GetAll(ctx context.Context) (map[string]string, error)
	Upsert(ctx context.Context, settings map[string]string) error
}

// Repositories holds all repository interfaces
type Repositories struct {
	Article  ArticleRepository
	Category CategoryRepository
	Role     RoleRepository
	Profile  ProfileRepository
	Visitor  VisitorRepository
	SEO      SEORepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Article:  NewArticleRepo(db),
		Category: NewCategoryRepo(db),
		Role:     NewRoleRepo(db),
		Profile:  NewProfileRepo(db),
		Visitor:  NewVisitorRepo(db),
		SEO:      NewSEORepo(db),
	}
}

// psql builds statements with PostgreSQL placeholders
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return nullString(*s)
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// duplicate maps a unique violation to ErrDuplicate and passes other errors through
func duplicate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
	}
	return err
}
