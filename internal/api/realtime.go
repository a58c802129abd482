package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/newsdesk-api/internal/events"
	"github.com/newsdesk-api/internal/metrics"
	"github.com/newsdesk-api/internal/models"
	"github.com/newsdesk-api/internal/policy"
	"github.com/newsdesk-api/internal/service"
	"github.com/rs/zerolog"
)

const (
	realtimeBuffer   = 32
	realtimeWrite    = 10 * time.Second
	realtimePong     = 60 * time.Second
	realtimePingTick = realtimePong * 9 / 10
)

// streamableTables maps each table to the roles allowed to subscribe; nil means anyone
var streamableTables = map[string]func(models.Role) bool{
	models.TableArticles:   nil,
	models.TableCategories: nil,
	models.TableUserRoles:  policy.CanManageUsers,
	models.TableProfiles:   policy.CanManageUsers,
	models.TableSEO:        policy.CanManageGlobalSEO,
}

// RealtimeHandler streams change events to browsers over websockets
type RealtimeHandler struct {
	services *service.Services
	feed     events.Feed
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewRealtimeHandler creates a new RealtimeHandler
func NewRealtimeHandler(services *service.Services, feed events.Feed, m *metrics.Metrics, allowedOrigins []string, log zerolog.Logger) *RealtimeHandler {
	allowAll, origins := originPolicy(allowedOrigins)
	return &RealtimeHandler{
		services: services,
		feed:     feed,
		metrics:  m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || origins[strings.TrimRight(origin, "/")]
			},
		},
		log: log.With().Str("handler", "realtime").Logger(),
	}
}

// Stream handles GET /v1/realtime?table=&id=
func (h *RealtimeHandler) Stream(c *gin.Context) {
	table := c.Query("table")
	allowed, known := streamableTables[table]
	if !known {
		badRequest(c, "table must be one of: news_articles, categories, user_roles, profiles, seo_settings")
		return
	}
	rowID := c.Query("id")

	actor := actorFrom(c)
	role, err := h.services.User.MyRole(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if allowed != nil && !allowed(role) {
		if actor.IsAnonymous() {
			respondError(c, h.log, service.ErrUnauthenticated)
			return
		}
		respondError(c, h.log, fmt.Errorf("%w: %s cannot watch %s", service.ErrForbidden, role, table))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.log.Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	h.metrics.FeedSubscribers.Inc()
	defer h.metrics.FeedSubscribers.Dec()

	queue := make(chan models.ChangeEvent, realtimeBuffer)
	unsubscribe := h.feed.Subscribe(table, events.Filter{RowID: rowID}, func(ev models.ChangeEvent) {
		ev = redact(role, actor.UserID, ev)
		select {
		case queue <- ev:
		default:
			h.log.Warn().Str("table", ev.Table).Str("row_id", ev.RowID).Msg("Realtime client too slow, dropping event")
		}
	})
	defer unsubscribe()

	closed := make(chan struct{})
	go h.readLoop(conn, closed)

	ping := time.NewTicker(realtimePingTick)
	defer ping.Stop()

	for {
		select {
		case ev := <-queue:
			conn.SetWriteDeadline(time.Now().Add(realtimeWrite))
			if err := conn.WriteJSON(ev); err != nil {
				h.log.Debug().Err(err).Msg("Realtime write failed")
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(realtimeWrite)); err != nil {
				return
			}
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

// readLoop discards client frames and closes done once the peer goes away
func (h *RealtimeHandler) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(realtimePong))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(realtimePong))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// redact drops the row payload of events the subscriber may not read.
// Subscribers still learn which row changed and re-fetch it through the API.
func redact(role models.Role, actorID string, ev models.ChangeEvent) models.ChangeEvent {
	if len(ev.New) == 0 || rowVisible(role, actorID, ev) {
		return ev
	}
	ev.New = nil
	return ev
}

func rowVisible(role models.Role, actorID string, ev models.ChangeEvent) bool {
	switch ev.Table {
	case models.TableArticles:
		var article models.Article
		if err := json.Unmarshal(ev.New, &article); err != nil {
			return false
		}
		if article.Status == "" {
			// view counter updates carry only the id and the count
			return article.Title == "" && article.Content == ""
		}
		return policy.CanPreviewArticle(role, actorID, &article)
	case models.TableCategories:
		var category models.Category
		if err := json.Unmarshal(ev.New, &category); err != nil {
			return false
		}
		return category.IsActive || policy.CanManageCategories(role)
	default:
		// the remaining tables are only streamed to admins
		return true
	}
}
