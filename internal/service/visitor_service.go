package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/newsdesk-api/internal/cache"
	"github.com/newsdesk-api/internal/config"
	"github.com/newsdesk-api/internal/metrics"
	"github.com/newsdesk-api/internal/models"
	"github.com/newsdesk-api/internal/policy"
	"github.com/newsdesk-api/internal/repository"
	"github.com/rs/zerolog"
)

// Device types stored with each visit
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

var (
	mobileUA = regexp.MustCompile(`(?i)mobile`)
	tabletUA = regexp.MustCompile(`(?i)tablet|ipad`)
	chromeUA = regexp.MustCompile(`(?i)chrome`)
	edgeUA   = regexp.MustCompile(`(?i)edge|edg/`)
	firefoxU = regexp.MustCompile(`(?i)firefox`)
	safariUA = regexp.MustCompile(`(?i)safari`)
	operaUA  = regexp.MustCompile(`(?i)opera|opr/`)
)

// VisitInput is one page view as seen by the HTTP layer
type VisitInput struct {
	Actor        models.Actor
	SessionToken string
	Page         string
	Referrer     string
	UserAgent    string
	IPAddress    string
}

// visitorService is the concrete implementation of VisitorService
type visitorService struct {
	repo     repository.VisitorRepository
	deduper  cache.Deduper
	resolver *policy.Resolver
	metrics  *metrics.Metrics
	cfg      config.VisitorsConfig
	now      func() time.Time
	log      zerolog.Logger
}

func newVisitorService(deps Dependencies, resolver *policy.Resolver, cfg config.VisitorsConfig, log zerolog.Logger) *visitorService {
	return &visitorService{
		repo:     deps.Repos.Visitor,
		deduper:  deps.Deduper,
		resolver: resolver,
		metrics:  deps.Metrics,
		cfg:      cfg,
		now:      deps.Now,
		log:      log.With().Str("service", "visitor").Logger(),
	}
}

// DetectDevice classifies a user agent as mobile, tablet or desktop
func DetectDevice(userAgent string) string {
	switch {
	case mobileUA.MatchString(userAgent):
		return DeviceMobile
	case tabletUA.MatchString(userAgent):
		return DeviceTablet
	default:
		return DeviceDesktop
	}
}

// DetectBrowser names the browser family of a user agent
func DetectBrowser(userAgent string) string {
	switch {
	case chromeUA.MatchString(userAgent) && !edgeUA.MatchString(userAgent):
		return "Chrome"
	case firefoxU.MatchString(userAgent):
		return "Firefox"
	case safariUA.MatchString(userAgent) && !chromeUA.MatchString(userAgent):
		return "Safari"
	case edgeUA.MatchString(userAgent):
		return "Edge"
	case operaUA.MatchString(userAgent):
		return "Opera"
	default:
		return "Unknown"
	}
}

// Record stores a page view, once per session and page
func (s *visitorService) Record(ctx context.Context, in *VisitInput) (bool, error) {
	page := strings.TrimSpace(in.Page)
	if page == "" {
		return false, invalidField("page", "page is required", nil)
	}

	key := ""
	if in.SessionToken != "" {
		key = "visit:" + in.SessionToken + ":" + page
		first, err := s.deduper.FirstSeen(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Str("page", page).Msg("Visit de-duplication unavailable")
			key = ""
		} else if !first {
			return false, nil
		}
	}

	visit := &models.Visit{
		ID:          uuid.New().String(),
		IPAddress:   in.IPAddress,
		UserAgent:   in.UserAgent,
		PageVisited: page,
		Referrer:    in.Referrer,
		DeviceType:  DetectDevice(in.UserAgent),
		Browser:     DetectBrowser(in.UserAgent),
		CreatedAt:   s.now().UTC(),
	}
	if !in.Actor.IsAnonymous() {
		userID := in.Actor.UserID
		visit.UserID = &userID
		visit.VisitorName, _, _ = strings.Cut(in.Actor.Email, "@")
	}

	if err := s.repo.Create(ctx, visit); err != nil {
		// let the next report from this session try again
		if key != "" {
			if ferr := s.deduper.Forget(ctx, key); ferr != nil {
				s.log.Warn().Err(ferr).Str("key", key).Msg("Failed to release visit mark")
			}
		}
		return false, fmt.Errorf("failed to record visit: %w", err)
	}
	s.metrics.Visits.Inc()
	return true, nil
}

func (s *visitorService) authorize(ctx context.Context, actor models.Actor) error {
	role, err := authenticated(ctx, s.resolver, actor)
	if err != nil {
		return err
	}
	if !policy.CanViewVisitorAnalytics(role) {
		return ErrForbidden
	}
	return nil
}

func (s *visitorService) normalize(filter models.VisitorFilter) models.VisitorFilter {
	if filter.SearchField == "" {
		filter.SearchField = models.SearchAll
	}
	filter.DeviceType = strings.ToLower(filter.DeviceType)
	filter.Limit = clampLimit(filter.Limit, s.cfg.ListLimit, s.cfg.ListLimit)
	return filter
}

// List returns the newest visits matching the filter
func (s *visitorService) List(ctx context.Context, actor models.Actor, filter models.VisitorFilter) ([]*models.Visit, error) {
	if err := s.authorize(ctx, actor); err != nil {
		return nil, err
	}
	visits, err := s.repo.List(ctx, s.normalize(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	return visits, nil
}

// Stats summarises the visits the same filter would list
func (s *visitorService) Stats(ctx context.Context, actor models.Actor, filter models.VisitorFilter) (*models.VisitorStats, error) {
	visits, err := s.List(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	return summarize(visits), nil
}

func summarize(visits []*models.Visit) *models.VisitorStats {
	stats := &models.VisitorStats{TotalVisits: len(visits)}
	ips := make(map[string]struct{})
	users := make(map[string]struct{})
	for _, v := range visits {
		if v.IPAddress != "" {
			ips[v.IPAddress] = struct{}{}
		}
		if v.UserID != nil {
			users[*v.UserID] = struct{}{}
		}
		if v.DeviceType == DeviceMobile {
			stats.MobileVisitors++
		}
		if v.IsSubscribedPush {
			stats.PushSubscribers++
		}
	}
	stats.UniqueIPs = len(ips)
	stats.RegisteredUsers = len(users)
	return stats
}

// ExportCSV streams every matching visit as CSV. The list limit does not apply.
func (s *visitorService) ExportCSV(ctx context.Context, actor models.Actor, filter models.VisitorFilter, w io.Writer) error {
	if err := s.authorize(ctx, actor); err != nil {
		return err
	}
	filter = s.normalize(filter)
	filter.Limit = 0

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"id", "created_at", "ip_address", "user_id", "visitor_name", "page_visited", "referrer", "device_type", "browser", "is_subscribed_push"}); err != nil {
		return err
	}

	count := 0
	err := s.repo.StreamAll(ctx, filter, func(v *models.Visit) error {
		userID := ""
		if v.UserID != nil {
			userID = *v.UserID
		}
		count++
		// Flush every 100 records for streaming
		if count%100 == 0 {
			writer.Flush()
		}
		return writer.Write([]string{
			v.ID,
			v.CreatedAt.Format(time.RFC3339),
			v.IPAddress,
			userID,
			v.VisitorName,
			v.PageVisited,
			v.Referrer,
			v.DeviceType,
			v.Browser,
			strconv.FormatBool(v.IsSubscribedPush),
		})
	})
	if err != nil {
		return fmt.Errorf("failed to export visits: %w", err)
	}

	s.log.Info().Int("rows", count).Str("user_id", actor.UserID).Msg("Visitor data exported")
	return nil
}
