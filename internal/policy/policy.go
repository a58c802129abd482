// Package policy answers "may this actor do that?" for articles, categories,
// users and site settings. Every predicate is a pure function of the resolved
// role, the actor id and the resource; callers enforce the answer.
package policy

import (
	"errors"

	"github.com/newsdesk-api/internal/models"
)

// ErrForbidden is returned by callers when a predicate denies an action
var ErrForbidden = errors.New("not permitted")

func isStaff(role models.Role) bool {
	return role == models.RoleAdmin || role == models.RoleEditor
}

// CanViewArticleList reports whether role may open the article management list.
// Whether that list holds every article or only the actor's own is decided at the query layer.
func CanViewArticleList(role models.Role) bool {
	return isStaff(role)
}

// CanCreateArticle reports whether role may write new articles
func CanCreateArticle(role models.Role) bool {
	return isStaff(role)
}

// CanSetStatus reports whether role may move an article into target
func CanSetStatus(role models.Role, target models.ArticleStatus) bool {
	switch target {
	case models.StatusDraft:
		return isStaff(role)
	case models.StatusPendingReview:
		// admins publish directly and never submit for review
		return role == models.RoleEditor
	case models.StatusPublished:
		return role == models.RoleAdmin
	default:
		return false
	}
}

// CanModifyArticle reports whether the actor may edit an article written by authorID.
// Admins may edit anything; editors only their own articles.
func CanModifyArticle(role models.Role, actorID string, authorID *string) bool {
	switch role {
	case models.RoleAdmin:
		return true
	case models.RoleEditor:
		return actorID != "" && authorID != nil && *authorID == actorID
	default:
		return false
	}
}

// CanDeleteArticle follows the same rule as CanModifyArticle
func CanDeleteArticle(role models.Role, actorID string, authorID *string) bool {
	return CanModifyArticle(role, actorID, authorID)
}

// CanApprovePendingReview reports whether role may publish an article awaiting review
func CanApprovePendingReview(role models.Role) bool {
	return role == models.RoleAdmin
}

// CanManageCategories reports whether role may edit the category registry
func CanManageCategories(role models.Role) bool {
	return role == models.RoleAdmin
}

// CanManageUsers reports whether role may assign and revoke roles
func CanManageUsers(role models.Role) bool {
	return role == models.RoleAdmin
}

// CanManageGlobalSEO reports whether role may change site-wide SEO settings
func CanManageGlobalSEO(role models.Role) bool {
	return role == models.RoleAdmin
}

// CanViewVisitorAnalytics reports whether role may read raw visitor records
func CanViewVisitorAnalytics(role models.Role) bool {
	return role == models.RoleAdmin
}

// CanViewDashboard reports whether role may open the admin dashboard
func CanViewDashboard(role models.Role) bool {
	return isStaff(role)
}

// CanPreviewArticle reports whether the actor may read an unpublished article
func CanPreviewArticle(role models.Role, actorID string, article *models.Article) bool {
	if article.Status == models.StatusPublished {
		return true
	}
	return CanModifyArticle(role, actorID, article.AuthorID)
}
