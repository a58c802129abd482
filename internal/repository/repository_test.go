package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/newsdesk-api/internal/mocks"
	"github.com/newsdesk-api/internal/models"
)

func TestMockArticleRepository_IncrementViewCountConcurrent(t *testing.T) {
	repo := mocks.NewMockArticleRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, &models.Article{ID: "a1", Slug: "a1", Status: models.StatusPublished}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			repo.IncrementViewCount(ctx, "a1")
		}()
	}
	wg.Wait()

	count, found, err := repo.GetViewCount(ctx, "a1")
	if err != nil || !found {
		t.Fatalf("GetViewCount failed: found=%v err=%v", found, err)
	}
	if count != 100 {
		t.Errorf("Expected 100 views, got %d", count)
	}

	if _, found, _ := repo.IncrementViewCount(ctx, "missing"); found {
		t.Error("Unknown article should not be found")
	}
}

func TestMockArticleRepository_ListMostViewed(t *testing.T) {
	repo := mocks.NewMockArticleRepository()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	views := map[string]int64{"a": 10, "b": 30, "c": 10, "d": 0}
	i := 0
	for _, id := range []string{"a", "b", "c", "d"} {
		repo.Create(ctx, &models.Article{
			ID: id, Slug: id, Status: models.StatusPublished,
			ViewCount: views[id], CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		i++
	}

	list, err := repo.List(ctx, models.ArticleFilter{Status: models.StatusPublished, OrderBy: models.OrderMostViewed, Limit: 3})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	want := []string{"b", "a", "c"}
	if len(list) != len(want) {
		t.Fatalf("Expected %d articles, got %d", len(want), len(list))
	}
	for i, id := range want {
		if list[i].ID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, list[i].ID)
		}
	}
}

func TestMockArticleRepository_CategoryStats(t *testing.T) {
	repo := mocks.NewMockArticleRepository()
	ctx := context.Background()

	for i, c := range []string{"sports", "sports", "politics"} {
		repo.Create(ctx, &models.Article{ID: fmt.Sprintf("a%d", i), Category: c, ViewCount: int64(i + 1)})
	}

	stats, err := repo.CategoryStats(ctx)
	if err != nil {
		t.Fatalf("CategoryStats failed: %v", err)
	}
	if stats["sports"].TotalViews != 3 || stats["sports"].ArticleCount != 2 {
		t.Errorf("Unexpected sports stats: %+v", stats["sports"])
	}
	if stats["politics"].TotalViews != 3 || stats["politics"].ArticleCount != 1 {
		t.Errorf("Unexpected politics stats: %+v", stats["politics"])
	}
}

func TestMockRoleRepository_OrderPreserved(t *testing.T) {
	repo := mocks.NewMockRoleRepository()
	ctx := context.Background()

	repo.Grant("u1", models.RoleEditor)
	repo.Grant("u2", models.RoleAdmin)
	repo.Grant("u1", models.RoleAdmin)

	rows, err := repo.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(rows) != 2 || rows[0].Role != models.RoleEditor {
		t.Errorf("Expected editor row first, got %+v", rows)
	}

	deleted, _ := repo.Delete(ctx, rows[0].ID)
	if !deleted {
		t.Error("Row should be deleted")
	}
	rows, _ = repo.ListByUser(ctx, "u1")
	if len(rows) != 1 || rows[0].Role != models.RoleAdmin {
		t.Errorf("Expected only the admin row, got %+v", rows)
	}
}

func TestMockVisitorRepository_FilterAndRetention(t *testing.T) {
	repo := mocks.NewMockVisitorRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	repo.Create(ctx, &models.Visit{ID: "v1", IPAddress: "10.0.0.1", DeviceType: "mobile", CreatedAt: now})
	repo.Create(ctx, &models.Visit{ID: "v2", IPAddress: "10.0.0.2", DeviceType: "desktop", VisitorName: "Asha", CreatedAt: now})
	repo.Create(ctx, &models.Visit{ID: "v3", IPAddress: "192.168.1.9", DeviceType: "mobile", CreatedAt: now.Add(-100 * 24 * time.Hour)})

	mobile, _ := repo.List(ctx, models.VisitorFilter{DeviceType: "mobile"})
	if len(mobile) != 2 {
		t.Errorf("Expected 2 mobile visits, got %d", len(mobile))
	}

	byName, _ := repo.List(ctx, models.VisitorFilter{Search: "asha", SearchField: models.SearchName})
	if len(byName) != 1 || byName[0].ID != "v2" {
		t.Errorf("Expected v2 by name, got %+v", byName)
	}

	removed, err := repo.DeleteOlderThan(ctx, now.Add(-90*24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 removed, got %d", removed)
	}
}
