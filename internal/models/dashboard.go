package models

// DashboardSummary is the admin console's landing page data
type DashboardSummary struct {
	TotalArticles  int            `json:"total_articles"`
	Breaking       int            `json:"breaking"`
	Featured       int            `json:"featured"`
	PublishedToday int            `json:"published_today"`
	PendingReview  int            `json:"pending_review"`
	ByCategory     map[string]int `json:"by_category"`
	Recent         []*Article     `json:"recent"`
}
