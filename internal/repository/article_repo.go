package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/newsdesk-api/internal/database"
	"github.com/newsdesk-api/internal/models"
)

const articleColumns = `id, slug, title, excerpt, content, category, image_url, is_breaking, is_featured,
	status, published_at, author_id, view_count, seo_title, meta_description, keywords, og_image,
	canonical_url, created_at, updated_at`

type articleRepo struct {
	db *database.DB
}

// NewArticleRepo creates a new article repository
func NewArticleRepo(db *database.DB) ArticleRepository {
	return &articleRepo{db: db}
}

// Create inserts a new article
func (r *articleRepo) Create(ctx context.Context, a *models.Article) error {
	query := `
		INSERT INTO news_articles (` + articleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Slug, a.Title, nullString(a.Excerpt), a.Content, a.Category, nullString(a.ImageURL),
		a.IsBreaking, a.IsFeatured, a.Status, a.PublishedAt, nullStringPtr(a.AuthorID), a.ViewCount,
		nullString(a.SEOTitle), nullString(a.MetaDescription), pq.Array(a.Keywords), nullString(a.OGImage),
		nullString(a.CanonicalURL), a.CreatedAt, a.UpdatedAt,
	)
	return err
}

// Update writes content, flags, SEO fields, status and published_at together.
// view_count and author_id are never touched here.
func (r *articleRepo) Update(ctx context.Context, a *models.Article) (bool, error) {
	query := `
		UPDATE news_articles SET
			title = $1, excerpt = $2, content = $3, category = $4, image_url = $5,
			is_breaking = $6, is_featured = $7, status = $8, published_at = $9,
			seo_title = $10, meta_description = $11, keywords = $12, og_image = $13,
			canonical_url = $14, updated_at = $15
		WHERE id = $16
	`
	return affected(r.db.ExecContext(ctx, query,
		a.Title, nullString(a.Excerpt), a.Content, a.Category, nullString(a.ImageURL),
		a.IsBreaking, a.IsFeatured, a.Status, a.PublishedAt,
		nullString(a.SEOTitle), nullString(a.MetaDescription), pq.Array(a.Keywords), nullString(a.OGImage),
		nullString(a.CanonicalURL), a.UpdatedAt, a.ID,
	))
}

// Delete permanently removes an article
func (r *articleRepo) Delete(ctx context.Context, id string) (bool, error) {
	return affected(r.db.ExecContext(ctx, "DELETE FROM news_articles WHERE id = $1", id))
}

// GetByID retrieves an article by ID
func (r *articleRepo) GetByID(ctx context.Context, id string) (*models.Article, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+articleColumns+" FROM news_articles WHERE id = $1", id)
	return scanArticleRow(row)
}

// GetBySlug retrieves an article by its URL slug
func (r *articleRepo) GetBySlug(ctx context.Context, slug string) (*models.Article, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+articleColumns+" FROM news_articles WHERE slug = $1", slug)
	return scanArticleRow(row)
}

// SlugExists checks if an article with the given slug exists
func (r *articleRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM news_articles WHERE slug = $1)", slug).Scan(&exists)
	return exists, err
}

// List returns the articles matching filter
func (r *articleRepo) List(ctx context.Context, filter models.ArticleFilter) ([]*models.Article, error) {
	sb := applyArticleFilter(psql.Select(articleColumns).From("news_articles"), filter)

	switch filter.OrderBy {
	case models.OrderMostViewed:
		sb = sb.OrderBy("view_count DESC", "created_at ASC", "id ASC")
	case models.OrderRecent:
		sb = sb.OrderBy("created_at DESC", "id ASC")
	default:
		sb = sb.OrderBy("published_at DESC NULLS LAST", "created_at DESC", "id ASC")
	}
	if filter.Limit > 0 {
		sb = sb.Limit(uint64(filter.Limit))
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

	var articles []*models.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// Count returns the number of articles matching filter
func (r *articleRepo) Count(ctx context.Context, filter models.ArticleFilter) (int, error) {
	query, args, err := applyArticleFilter(psql.Select("COUNT(*)").From("news_articles"), filter).ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// IncrementViewCount adds one view in a single statement so concurrent readers never lose updates
func (r *articleRepo) IncrementViewCount(ctx context.Context, id string) (int64, bool, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		"UPDATE news_articles SET view_count = view_count + 1 WHERE id = $1 RETURNING view_count", id,
	).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

// GetViewCount returns the current view counter of an article
func (r *articleRepo) GetViewCount(ctx context.Context, id string) (int64, bool, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT view_count FROM news_articles WHERE id = $1", id).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

// CategoryStats sums views and counts articles per category over every article
func (r *articleRepo) CategoryStats(ctx context.Context) (map[string]models.CategoryStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, COALESCE(SUM(view_count), 0), COUNT(*)
		FROM news_articles GROUP BY category
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[string]models.CategoryStats)
	for rows.Next() {
		var category string
		var s models.CategoryStats
		if err := rows.Scan(&category, &s.TotalViews, &s.ArticleCount); err != nil {
			return nil, err
		}
		stats[category] = s
	}
	return stats, rows.Err()
}

func applyArticleFilter(sb squirrel.SelectBuilder, filter models.ArticleFilter) squirrel.SelectBuilder {
	if filter.Category != "" {
		sb = sb.Where(squirrel.Eq{"category": filter.Category})
	}
	if filter.Status != "" {
		sb = sb.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.AuthorID != "" {
		sb = sb.Where(squirrel.Eq{"author_id": filter.AuthorID})
	}
	if filter.OnlyBreaking {
		sb = sb.Where(squirrel.Eq{"is_breaking": true})
	}
	if filter.OnlyFeatured {
		sb = sb.Where(squirrel.Eq{"is_featured": true})
	}
	if filter.PublishedOn != nil {
		day := filter.PublishedOn.UTC().Truncate(24 * time.Hour)
		sb = sb.Where(squirrel.GtOrEq{"published_at": day}).
			Where(squirrel.Lt{"published_at": day.Add(24 * time.Hour)})
	}
	return sb
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArticleRow(row *sql.Row) (*models.Article, error) {
	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func scanArticle(row rowScanner) (*models.Article, error) {
	var a models.Article
	var excerpt, imageURL, authorID, seoTitle, metaDescription, ogImage, canonicalURL sql.NullString
	var publishedAt sql.NullTime
	var keywords pq.StringArray

	err := row.Scan(
		&a.ID, &a.Slug, &a.Title, &excerpt, &a.Content, &a.Category, &imageURL, &a.IsBreaking, &a.IsFeatured,
		&a.Status, &publishedAt, &authorID, &a.ViewCount, &seoTitle, &metaDescription, &keywords, &ogImage,
		&canonicalURL, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Excerpt = excerpt.String
	a.ImageURL = imageURL.String
	a.SEOTitle = seoTitle.String
	a.MetaDescription = metaDescription.String
	a.OGImage = ogImage.String
	a.CanonicalURL = canonicalURL.String
	if len(keywords) > 0 {
		a.Keywords = []string(keywords)
	}
	if authorID.Valid {
		a.AuthorID = &authorID.String
	}
	if publishedAt.Valid {
		a.PublishedAt = &publishedAt.Time
	}
	return &a, nil
}
