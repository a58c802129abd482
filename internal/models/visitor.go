package models

import (
	"time"
)

// Visit is a raw record of a page view used by visitor analytics
type Visit struct {
	ID               string    `json:"id" db:"id"`
	IPAddress        string    `json:"ip_address,omitempty" db:"ip_address"`
	UserID           *string   `json:"user_id" db:"user_id"`
	VisitorName      string    `json:"visitor_name,omitempty" db:"visitor_name"`
	UserAgent        string    `json:"user_agent,omitempty" db:"user_agent"`
	PageVisited      string    `json:"page_visited,omitempty" db:"page_visited"`
	Referrer         string    `json:"referrer,omitempty" db:"referrer"`
	DeviceType       string    `json:"device_type,omitempty" db:"device_type"`
	Browser          string    `json:"browser,omitempty" db:"browser"`
	Country          string    `json:"country,omitempty" db:"country"`
	City             string    `json:"city,omitempty" db:"city"`
	PushToken        string    `json:"-" db:"push_token"`
	IsSubscribedPush bool      `json:"is_subscribed_push" db:"is_subscribed_push"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// VisitRequest is what the reader site reports for a page view
type VisitRequest struct {
	Page     string `json:"page" binding:"required"`
	Referrer string `json:"referrer"`
}

// VisitorSearchField selects which column a visitor search term applies to
type VisitorSearchField string

const (
	SearchAll  VisitorSearchField = "all"
	SearchIP   VisitorSearchField = "ip"
	SearchName VisitorSearchField = "name"
	SearchUser VisitorSearchField = "user"
)

// VisitorFilter narrows the visitor analytics listing
type VisitorFilter struct {
	Search      string
	SearchField VisitorSearchField
	DeviceType  string
	Limit       int
}

// VisitorStats summarises a visitor listing
type VisitorStats struct {
	TotalVisits     int `json:"total_visits"`
	UniqueIPs       int `json:"unique_ips"`
	RegisteredUsers int `json:"registered_users"`
	MobileVisitors  int `json:"mobile_visitors"`
	PushSubscribers int `json:"push_subscribers"`
}
