package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/newsdesk-api/internal/models"
	"github.com/newsdesk-api/internal/service"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticleService_CreateByEditor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inserted := f.recordEvents(models.TableArticles)

	article, err := f.svc.Article.Create(ctx, editor, articleInput("Budget Session Begins"))
	require.NoError(t, err)

	assert.Equal(t, models.StatusDraft, article.Status)
	assert.Nil(t, article.PublishedAt)
	require.NotNil(t, article.AuthorID)
	assert.Equal(t, editor.UserID, *article.AuthorID)
	assert.Equal(t, "national", article.Category, "omitted category falls back to the default")
	assert.Equal(t, fmt.Sprintf("budget-session-begins-%d", f.clock.Now().UnixMilli()), article.Slug)
	assert.Zero(t, article.ViewCount)

	stored, _ := f.store.Articles.GetByID(ctx, article.ID)
	require.NotNil(t, stored)
	assert.Equal(t, article.Slug, stored.Slug)

	evs := inserted()
	require.Len(t, evs, 1)
	assert.Equal(t, models.ChangeInsert, evs[0].Type)
	assert.Equal(t, article.ID, evs[0].RowID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ArticleTransitions.WithLabelValues("draft")))
}

func TestArticleService_CreateDenied(t *testing.T) {
	tests := []struct {
		name   string
		actor  models.Actor
		status models.ArticleStatus
		want   error
	}{
		{"anonymous", anon, "", service.ErrUnauthenticated},
		{"plain user", reader, "", service.ErrForbidden},
		{"editor publishing directly", editor, models.StatusPublished, service.ErrForbidden},
		{"admin submitting for review", admin, models.StatusPendingReview, service.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := articleInput("Denied")
			in.Status = tt.status

			_, err := f.svc.Article.Create(context.Background(), tt.actor, in)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.store.Articles.Articles, "nothing may be written")
		})
	}
}

func TestArticleService_AdminCreatesPublished(t *testing.T) {
	f := newFixture(t)
	in := articleInput("चुनाव परिणाम")
	in.Status = models.StatusPublished
	in.Category = "politics"

	article, err := f.svc.Article.Create(context.Background(), admin, in)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, article.Status)
	require.NotNil(t, article.PublishedAt)
	assert.True(t, article.PublishedAt.Equal(f.clock.Now()))
	assert.True(t, strings.HasPrefix(article.Slug, "चुनाव-परिणाम-"), "slug %q keeps the Devanagari title", article.Slug)
}

func TestArticleService_CreateValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		in    *models.ArticleInput
		field string
	}{
		{"blank title", &models.ArticleInput{Title: "   ", Content: "body"}, "title"},
		{"missing content", &models.ArticleInput{Title: "Title"}, "content"},
		{"unknown category", &models.ArticleInput{Title: "Title", Content: "body", Category: "weather"}, "category"},
		{"bad image url", &models.ArticleInput{Title: "Title", Content: "body", ImageURL: "not a url"}, "image_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Article.Create(context.Background(), editor, tt.in)
			var verr *service.ValidationErrors
			require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)

			fields := make([]string, 0, len(verr.Errors))
			for _, fe := range verr.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
	assert.Empty(t, f.store.Articles.Articles)
}

func TestArticleService_Workflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	article, err := f.svc.Article.Create(ctx, editor, articleInput("Monsoon Arrives Early"))
	require.NoError(t, err)

	// editor submits for review
	article, err = f.svc.Article.SetStatus(ctx, editor, article.ID, models.StatusPendingReview)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingReview, article.Status)

	// editors cannot publish
	_, err = f.svc.Article.SetStatus(ctx, editor, article.ID, models.StatusPublished)
	assert.ErrorIs(t, err, service.ErrForbidden)

	// admin approves
	f.clock.Advance(time.Hour)
	article, err = f.svc.Article.SetStatus(ctx, admin, article.ID, models.StatusPublished)
	require.NoError(t, err)
	require.NotNil(t, article.PublishedAt)
	firstPublish := *article.PublishedAt
	assert.True(t, firstPublish.Equal(f.clock.Now()))

	// published articles cannot go back to review
	_, err = f.svc.Article.SetStatus(ctx, editor, article.ID, models.StatusPendingReview)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	// revert keeps the original publish time
	article, err = f.svc.Article.SetStatus(ctx, editor, article.ID, models.StatusDraft)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, article.Status)
	require.NotNil(t, article.PublishedAt)
	assert.True(t, article.PublishedAt.Equal(firstPublish))

	// re-publishing stamps a fresh time
	f.clock.Advance(time.Hour)
	article, err = f.svc.Article.SetStatus(ctx, admin, article.ID, models.StatusPublished)
	require.NoError(t, err)
	assert.True(t, article.PublishedAt.After(firstPublish))

	stored, _ := f.store.Articles.GetByID(ctx, article.ID)
	assert.Equal(t, models.StatusPublished, stored.Status)
}

func TestArticleService_ClearPublishedAtOnRevert(t *testing.T) {
	cfg := testConfig()
	cfg.Articles.ClearPublishedAtOnRevert = true
	f := newFixtureWith(t, cfg, nil)
	ctx := context.Background()

	in := articleInput("Published Then Pulled")
	in.Status = models.StatusPublished
	article, err := f.svc.Article.Create(ctx, admin, in)
	require.NoError(t, err)

	article, err = f.svc.Article.SetStatus(ctx, admin, article.ID, models.StatusDraft)
	require.NoError(t, err)
	assert.Nil(t, article.PublishedAt)
}

func TestArticleService_UpdateOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	article, err := f.svc.Article.Create(ctx, editor, articleInput("Original Title"))
	require.NoError(t, err)

	update := articleInput("Hijacked Title")
	_, err = f.svc.Article.Update(ctx, editor2, article.ID, update)
	assert.ErrorIs(t, err, service.ErrForbidden)
	assert.Zero(t, f.store.Articles.Updates, "a denied update must not write")

	update = articleInput("Edited By Admin")
	update.IsBreaking = true
	update.Keywords = []string{"monsoon", "weather"}
	updated, err := f.svc.Article.Update(ctx, admin, article.ID, update)
	require.NoError(t, err)
	assert.Equal(t, "Edited By Admin", updated.Title)
	assert.True(t, updated.IsBreaking)
	assert.Equal(t, article.Slug, updated.Slug, "slug is stable across edits")
	assert.Equal(t, editor.UserID, *updated.AuthorID, "author is never reassigned")
	assert.Equal(t, 1, f.store.Articles.Updates)
}

func TestArticleService_UpdateAppliesStatusInSameWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	article, err := f.svc.Article.Create(ctx, editor, articleInput("Draft Story"))
	require.NoError(t, err)

	in := articleInput("Ready Story")
	in.Status = models.StatusPublished
	_, err = f.svc.Article.Update(ctx, editor, article.ID, in)
	assert.ErrorIs(t, err, service.ErrForbidden)

	stored, _ := f.store.Articles.GetByID(ctx, article.ID)
	assert.Equal(t, "Draft Story", stored.Title, "a rejected transition leaves every field untouched")

	in.Status = models.StatusPendingReview
	updated, err := f.svc.Article.Update(ctx, editor, article.ID, in)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingReview, updated.Status)
	assert.Equal(t, "Ready Story", updated.Title)
	assert.Equal(t, 1, f.store.Articles.Updates)
}

func TestArticleService_GetBySlugVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft := f.seedArticle(t, models.Article{Slug: "secret-draft", Status: models.StatusDraft, AuthorID: strPtr(editor.UserID)})
	f.seedArticle(t, models.Article{Slug: "public-story"})

	_, err := f.svc.Article.GetBySlug(ctx, anon, "secret-draft")
	assert.ErrorIs(t, err, service.ErrNotFound)
	_, err = f.svc.Article.GetBySlug(ctx, editor2, "secret-draft")
	assert.ErrorIs(t, err, service.ErrNotFound)

	got, err := f.svc.Article.GetBySlug(ctx, editor, "secret-draft")
	require.NoError(t, err)
	assert.Equal(t, draft.ID, got.ID)

	_, err = f.svc.Article.GetBySlug(ctx, admin, "secret-draft")
	assert.NoError(t, err)

	_, err = f.svc.Article.GetBySlug(ctx, anon, "public-story")
	assert.NoError(t, err)

	_, err = f.svc.Article.GetBySlug(ctx, anon, "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestArticleService_ListForAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedArticle(t, models.Article{AuthorID: strPtr(editor.UserID)})
	f.seedArticle(t, models.Article{AuthorID: strPtr(editor2.UserID)})
	f.seedArticle(t, models.Article{})

	all, err := f.svc.Article.ListForAdmin(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	own, err := f.svc.Article.ListForAdmin(ctx, editor)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, editor.UserID, *own[0].AuthorID)

	_, err = f.svc.Article.ListForAdmin(ctx, reader)
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestArticleService_PublicListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := f.clock.Now()

	for i := 0; i < 7; i++ {
		published := base.Add(time.Duration(i) * time.Minute)
		f.seedArticle(t, models.Article{IsBreaking: true, PublishedAt: &published, Category: "sports"})
	}
	f.seedArticle(t, models.Article{Status: models.StatusDraft, IsBreaking: true, IsFeatured: true})

	breaking, err := f.svc.Article.Breaking(ctx)
	require.NoError(t, err)
	require.Len(t, breaking, 5)
	assert.True(t, breaking[0].PublishedAt.After(*breaking[4].PublishedAt), "newest first")

	_, err = f.svc.Article.Featured(ctx)
	assert.ErrorIs(t, err, service.ErrNotFound, "drafts are never featured")

	featuredAt := base.Add(time.Hour)
	featured := f.seedArticle(t, models.Article{IsFeatured: true, PublishedAt: &featuredAt})
	got, err := f.svc.Article.Featured(ctx)
	require.NoError(t, err)
	assert.Equal(t, featured.ID, got.ID)

	sports, err := f.svc.Article.ListPublished(ctx, "sports", 0)
	require.NoError(t, err)
	assert.Len(t, sports, 7)
}

func TestArticleService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	article, err := f.svc.Article.Create(ctx, editor, articleInput("Short Lived"))
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Article.Delete(ctx, editor2, article.ID), service.ErrForbidden)
	require.NoError(t, f.svc.Article.Delete(ctx, editor, article.ID))
	assert.ErrorIs(t, f.svc.Article.Delete(ctx, editor, article.ID), service.ErrNotFound)
	assert.ErrorIs(t, f.svc.Article.Delete(ctx, admin, "not-a-uuid"), service.ErrNotFound)
}

func TestArticleService_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.Articles.Err = errors.New("connection reset")

	_, err := f.svc.Article.Create(context.Background(), editor, articleInput("Unlucky"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
