package models

import (
	"encoding/json"
	"time"
)

// Table names carried by change events
const (
	TableArticles   = "news_articles"
	TableCategories = "categories"
	TableUserRoles  = "user_roles"
	TableProfiles   = "profiles"
	TableSEO        = "seo_settings"
)

// ChangeType is the kind of row mutation
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent notifies subscribers that a row changed
type ChangeEvent struct {
	Table string          `json:"table"`
	Type  ChangeType      `json:"type"`
	RowID string          `json:"row_id"`
	New   json.RawMessage `json:"new,omitempty"`
	At    time.Time       `json:"at"`
}

// NewChangeEvent builds an event, encoding row as the new state when non-nil
func NewChangeEvent(table string, typ ChangeType, rowID string, row interface{}) ChangeEvent {
	ev := ChangeEvent{Table: table, Type: typ, RowID: rowID, At: time.Now().UTC()}
	if row != nil {
		if data, err := json.Marshal(row); err == nil {
			ev.New = data
		}
	}
	return ev
}
