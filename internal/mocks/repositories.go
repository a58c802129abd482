package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newsdesk-api/internal/models"
	"github.com/newsdesk-api/internal/repository"
)

var (
	_ repository.ArticleRepository  = (*MockArticleRepository)(nil)
	_ repository.CategoryRepository = (*MockCategoryRepository)(nil)
	_ repository.RoleRepository     = (*MockRoleRepository)(nil)
	_ repository.ProfileRepository  = (*MockProfileRepository)(nil)
	_ repository.VisitorRepository  = (*MockVisitorRepository)(nil)
	_ repository.SEORepository      = (*MockSEORepository)(nil)
)

// MockArticleRepository is an in-memory ArticleRepository
type MockArticleRepository struct {
	mu        sync.Mutex
	Articles  map[string]*models.Article
	Err       error // returned by every call when set
	Updates   int
	Increment int

	// AfterList runs once List has released the lock
	AfterList func()
}

func NewMockArticleRepository() *MockArticleRepository {
	return &MockArticleRepository{Articles: make(map[string]*models.Article)}
}

func cloneArticle(a *models.Article) *models.Article {
	c := *a
	return &c
}

func (m *MockArticleRepository) Create(ctx context.Context, a *models.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Articles[a.ID] = cloneArticle(a)
	return nil
}

func (m *MockArticleRepository) Update(ctx context.Context, a *models.Article) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	existing, ok := m.Articles[a.ID]
	if !ok {
		return false, nil
	}
	updated := cloneArticle(a)
	updated.ViewCount = existing.ViewCount
	updated.AuthorID = existing.AuthorID
	updated.Slug = existing.Slug
	updated.CreatedAt = existing.CreatedAt
	m.Articles[a.ID] = updated
	m.Updates++
	return true, nil
}

func (m *MockArticleRepository) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	_, ok := m.Articles[id]
	delete(m.Articles, id)
	return ok, nil
}

func (m *MockArticleRepository) GetByID(ctx context.Context, id string) (*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if a, ok := m.Articles[id]; ok {
		return cloneArticle(a), nil
	}
	return nil, nil
}

func (m *MockArticleRepository) GetBySlug(ctx context.Context, slug string) (*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, a := range m.Articles {
		if a.Slug == slug {
			return cloneArticle(a), nil
		}
	}
	return nil, nil
}

func (m *MockArticleRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	a, err := m.GetBySlug(ctx, slug)
	return a != nil, err
}

func (m *MockArticleRepository) List(ctx context.Context, filter models.ArticleFilter) ([]*models.Article, error) {
	if hook := m.AfterList; hook != nil {
		defer hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	var out []*models.Article
	for _, a := range m.Articles {
		if matchesArticle(a, filter) {
			out = append(out, cloneArticle(a))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch filter.OrderBy {
		case models.OrderMostViewed:
			if a.ViewCount != b.ViewCount {
				return a.ViewCount > b.ViewCount
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		case models.OrderRecent:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		default:
			if pa, pb := a.PublishedAt, b.PublishedAt; pa != nil || pb != nil {
				if pa == nil || pb == nil {
					return pb == nil
				}
				if !pa.Equal(*pb) {
					return pa.After(*pb)
				}
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MockArticleRepository) Count(ctx context.Context, filter models.ArticleFilter) (int, error) {
	filter.Limit = 0
	list, err := m.List(ctx, filter)
	return len(list), err
}

func (m *MockArticleRepository) IncrementViewCount(ctx context.Context, id string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, false, m.Err
	}
	a, ok := m.Articles[id]
	if !ok {
		return 0, false, nil
	}
	a.ViewCount++
	m.Increment++
	return a.ViewCount, true, nil
}

func (m *MockArticleRepository) GetViewCount(ctx context.Context, id string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, false, m.Err
	}
	a, ok := m.Articles[id]
	if !ok {
		return 0, false, nil
	}
	return a.ViewCount, true, nil
}

func (m *MockArticleRepository) CategoryStats(ctx context.Context) (map[string]models.CategoryStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	stats := make(map[string]models.CategoryStats)
	for _, a := range m.Articles {
		s := stats[a.Category]
		s.TotalViews += a.ViewCount
		s.ArticleCount++
		stats[a.Category] = s
	}
	return stats, nil
}

func matchesArticle(a *models.Article, f models.ArticleFilter) bool {
	if f.Category != "" && a.Category != f.Category {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.AuthorID != "" && (a.AuthorID == nil || *a.AuthorID != f.AuthorID) {
		return false
	}
	if f.OnlyBreaking && !a.IsBreaking {
		return false
	}
	if f.OnlyFeatured && !a.IsFeatured {
		return false
	}
	if f.PublishedOn != nil {
		day := f.PublishedOn.UTC().Truncate(24 * time.Hour)
		if a.PublishedAt == nil || a.PublishedAt.Before(day) || !a.PublishedAt.Before(day.Add(24*time.Hour)) {
			return false
		}
	}
	return true
}

// MockCategoryRepository is an in-memory CategoryRepository keyed by name
type MockCategoryRepository struct {
	mu         sync.Mutex
	Categories map[string]*models.Category
	Err        error

	// BeforeCreate runs before Create takes the lock
	BeforeCreate func(c *models.Category)
}

func NewMockCategoryRepository() *MockCategoryRepository {
	return &MockCategoryRepository{Categories: make(map[string]*models.Category)}
}

// SeedCategories fills the registry with the given names, all active
func (m *MockCategoryRepository) SeedCategories(names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, name := range names {
		m.Categories[name] = &models.Category{ID: "cat-" + name, Name: name, Label: name, IsActive: true, SortOrder: i + 1}
	}
}

func (m *MockCategoryRepository) Create(ctx context.Context, c *models.Category) error {
	if m.BeforeCreate != nil {
		m.BeforeCreate(c)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, taken := m.Categories[c.Name]; taken {
		return repository.ErrDuplicate
	}
	cp := *c
	m.Categories[c.Name] = &cp
	return nil
}

func (m *MockCategoryRepository) Update(ctx context.Context, c *models.Category) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	if _, ok := m.Categories[c.Name]; !ok {
		return false, nil
	}
	cp := *c
	m.Categories[c.Name] = &cp
	return true, nil
}

func (m *MockCategoryRepository) Delete(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	_, ok := m.Categories[name]
	delete(m.Categories, name)
	return ok, nil
}

func (m *MockCategoryRepository) GetByName(ctx context.Context, name string) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if c, ok := m.Categories[name]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (m *MockCategoryRepository) List(ctx context.Context, activeOnly bool) ([]*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*models.Category
	for _, c := range m.Categories {
		if activeOnly && !c.IsActive {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// MockRoleRepository is an in-memory RoleRepository that keeps insertion order
type MockRoleRepository struct {
	mu    sync.Mutex
	Rows  []*models.UserRoleAssignment
	Err   error
	Calls int

	// OnUpdateRole runs before UpdateRole looks the row up, outside the lock
	OnUpdateRole func(id string)
}

func NewMockRoleRepository() *MockRoleRepository {
	return &MockRoleRepository{}
}

// Grant appends a role row for userID and returns it
func (m *MockRoleRepository) Grant(userID string, role models.Role) *models.UserRoleAssignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := &models.UserRoleAssignment{
		ID:        uuid.New().String(),
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	m.Rows = append(m.Rows, row)
	return row
}

func (m *MockRoleRepository) ListByUser(ctx context.Context, userID string) ([]*models.UserRoleAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*models.UserRoleAssignment
	for _, r := range m.Rows {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockRoleRepository) ListAll(ctx context.Context) ([]*models.UserRoleAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]*models.UserRoleAssignment, 0, len(m.Rows))
	for _, r := range m.Rows {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockRoleRepository) GetByID(ctx context.Context, id string) (*models.UserRoleAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, r := range m.Rows {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockRoleRepository) Create(ctx context.Context, a *models.UserRoleAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	cp := *a
	m.Rows = append(m.Rows, &cp)
	return nil
}

func (m *MockRoleRepository) UpdateRole(ctx context.Context, id string, role models.Role) (bool, error) {
	if m.OnUpdateRole != nil {
		m.OnUpdateRole(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	for _, r := range m.Rows {
		if r.ID == id {
			r.Role = role
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRoleRepository) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	for i, r := range m.Rows {
		if r.ID == id {
			m.Rows = append(m.Rows[:i], m.Rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// MockProfileRepository is an in-memory ProfileRepository keyed by user id
type MockProfileRepository struct {
	mu       sync.Mutex
	Profiles map[string]*models.Profile
	Err      error
}

func NewMockProfileRepository() *MockProfileRepository {
	return &MockProfileRepository{Profiles: make(map[string]*models.Profile)}
}

func (m *MockProfileRepository) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if p, ok := m.Profiles[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *MockProfileRepository) Upsert(ctx context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	cp := *p
	if existing, ok := m.Profiles[p.UserID]; ok {
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
	}
	m.Profiles[p.UserID] = &cp
	return nil
}

func (m *MockProfileRepository) List(ctx context.Context) ([]*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]*models.Profile, 0, len(m.Profiles))
	for _, p := range m.Profiles {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// MockVisitorRepository is an in-memory VisitorRepository
type MockVisitorRepository struct {
	mu     sync.Mutex
	Visits []*models.Visit
	Err    error
}

func NewMockVisitorRepository() *MockVisitorRepository {
	return &MockVisitorRepository{}
}

func (m *MockVisitorRepository) Create(ctx context.Context, v *models.Visit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	cp := *v
	m.Visits = append(m.Visits, &cp)
	return nil
}

func (m *MockVisitorRepository) List(ctx context.Context, filter models.VisitorFilter) ([]*models.Visit, error) {
	var out []*models.Visit
	err := m.StreamAll(ctx, filter, func(v *models.Visit) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

func (m *MockVisitorRepository) StreamAll(ctx context.Context, filter models.VisitorFilter, callback func(*models.Visit) error) error {
	m.mu.Lock()
	if m.Err != nil {
		m.mu.Unlock()
		return m.Err
	}
	var matched []*models.Visit
	for _, v := range m.Visits {
		if matchesVisit(v, filter) {
			cp := *v
			matched = append(matched, &cp)
		}
	}
	m.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	for _, v := range matched {
		if err := callback(v); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockVisitorRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	kept := m.Visits[:0]
	var removed int64
	for _, v := range m.Visits {
		if v.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	m.Visits = kept
	return removed, nil
}

func matchesVisit(v *models.Visit, f models.VisitorFilter) bool {
	if f.DeviceType != "" && f.DeviceType != "all" && v.DeviceType != f.DeviceType {
		return false
	}
	if f.Search == "" {
		return true
	}
	term := strings.ToLower(f.Search)
	contains := func(s string) bool { return strings.Contains(strings.ToLower(s), term) }
	userID := ""
	if v.UserID != nil {
		userID = *v.UserID
	}
	switch f.SearchField {
	case models.SearchIP:
		return contains(v.IPAddress)
	case models.SearchName:
		return contains(v.VisitorName)
	case models.SearchUser:
		return contains(userID)
	default:
		return contains(v.IPAddress) || contains(v.VisitorName) || contains(userID) || contains(v.PageVisited)
	}
}

// MockSEORepository is an in-memory SEORepository
type MockSEORepository struct {
	mu       sync.Mutex
	Settings map[string]string
	Err      error
}

func NewMockSEORepository() *MockSEORepository {
	return &MockSEORepository{Settings: make(map[string]string)}
}

func (m *MockSEORepository) GetAll(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[string]string, len(m.Settings))
	for k, v := range m.Settings {
		out[k] = v
	}
	return out, nil
}

func (m *MockSEORepository) Upsert(ctx context.Context, settings map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for k, v := range settings {
		m.Settings[k] = v
	}
	return nil
}

// Store bundles one of every in-memory repository
type Store struct {
	Articles   *MockArticleRepository
	Categories *MockCategoryRepository
	Roles      *MockRoleRepository
	Profiles   *MockProfileRepository
	Visitors   *MockVisitorRepository
	SEO        *MockSEORepository
}

// NewStore creates empty in-memory repositories
func NewStore() *Store {
	return &Store{
		Articles:   NewMockArticleRepository(),
		Categories: NewMockCategoryRepository(),
		Roles:      NewMockRoleRepository(),
		Profiles:   NewMockProfileRepository(),
		Visitors:   NewMockVisitorRepository(),
		SEO:        NewMockSEORepository(),
	}
}

// Repositories exposes the store through the repository aggregate
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Article:  s.Articles,
		Category: s.Categories,
		Role:     s.Roles,
		Profile:  s.Profiles,
		Visitor:  s.Visitors,
		SEO:      s.SEO,
	}
}
