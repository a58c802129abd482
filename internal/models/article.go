package models

import (
	"time"
)

// ArticleStatus is the publication state of an article
type ArticleStatus string

const (
	StatusDraft         ArticleStatus = "draft"
	StatusPendingReview ArticleStatus = "pending_review"
	StatusPublished     ArticleStatus = "published"
)

// ValidStatuses defines allowed article statuses
var ValidStatuses = map[ArticleStatus]bool{
	StatusDraft:         true,
	StatusPendingReview: true,
	StatusPublished:     true,
}

// ParseArticleStatus converts a raw string into an ArticleStatus
func ParseArticleStatus(s string) (ArticleStatus, bool) {
	status := ArticleStatus(s)
	return status, ValidStatuses[status]
}

// Article represents a news article
type Article struct {
	ID          string        `json:"id" db:"id"`
	Slug        string        `json:"slug" db:"slug"`
	Title       string        `json:"title" db:"title"`
	Excerpt     string        `json:"excerpt,omitempty" db:"excerpt"`
	Content     string        `json:"content" db:"content"`
	Category    string        `json:"category" db:"category"`
	ImageURL    string        `json:"image_url,omitempty" db:"image_url"`
	IsBreaking  bool          `json:"is_breaking" db:"is_breaking"`
	IsFeatured  bool          `json:"is_featured" db:"is_featured"`
	Status      ArticleStatus `json:"status" db:"status"`
	PublishedAt *time.Time    `json:"published_at,omitempty" db:"published_at"`
	AuthorID    *string       `json:"author_id" db:"author_id"`
	ViewCount   int64         `json:"view_count" db:"view_count"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`

	// SEO shadow fields, independently settable
	SEOTitle        string   `json:"seo_title,omitempty" db:"seo_title"`
	MetaDescription string   `json:"meta_description,omitempty" db:"meta_description"`
	Keywords        []string `json:"keywords,omitempty" db:"keywords"`
	OGImage         string   `json:"og_image,omitempty" db:"og_image"`
	CanonicalURL    string   `json:"canonical_url,omitempty" db:"canonical_url"`
}

// IsAuthoredBy reports whether userID is the article's author
func (a *Article) IsAuthoredBy(userID string) bool {
	return userID != "" && a.AuthorID != nil && *a.AuthorID == userID
}

// ArticleInput is the writable part of an article, used for create and full update
type ArticleInput struct {
	Title      string        `json:"title" validate:"required,max=300"`
	Excerpt    string        `json:"excerpt" validate:"max=1000"`
	Content    string        `json:"content" validate:"required"`
	Category   string        `json:"category" validate:"omitempty,max=64"`
	ImageURL   string        `json:"image_url" validate:"omitempty,url"`
	IsBreaking bool          `json:"is_breaking"`
	IsFeatured bool          `json:"is_featured"`
	Status     ArticleStatus `json:"status" validate:"omitempty,oneof=draft pending_review published"`

	SEOTitle        string   `json:"seo_title" validate:"max=70"`
	MetaDescription string   `json:"meta_description" validate:"max=160"`
	Keywords        []string `json:"keywords" validate:"max=20,dive,max=64"`
	OGImage         string   `json:"og_image" validate:"omitempty,url"`
	CanonicalURL    string   `json:"canonical_url" validate:"omitempty,url"`
}

// StatusChangeRequest asks the state machine to move an article to a new status
type StatusChangeRequest struct {
	Status ArticleStatus `json:"status" binding:"required"`
}

// ArticleOrder selects the sort order of an article listing
type ArticleOrder string

const (
	OrderNewest     ArticleOrder = "published_at"
	OrderRecent     ArticleOrder = "created_at"
	OrderMostViewed ArticleOrder = "view_count"
)

// ArticleFilter narrows an article listing. Zero values mean "no constraint".
type ArticleFilter struct {
	Category     string
	Status       ArticleStatus
	AuthorID     string
	OnlyBreaking bool
	OnlyFeatured bool
	PublishedOn  *time.Time // calendar day in UTC
	OrderBy      ArticleOrder
	Limit        int
}

// CategoryStats aggregates engagement for one category
type CategoryStats struct {
	TotalViews   int64 `json:"totalViews"`
	ArticleCount int   `json:"articleCount"`
}
