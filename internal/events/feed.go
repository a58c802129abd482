// Package events carries row change notifications from writers to interested
// readers: caches that need invalidating and browsers watching a table.
package events

import (
	"context"
	"sync"

	"github.com/newsdesk-api/internal/models"
)

// Handler receives matching change events
type Handler func(models.ChangeEvent)

// Filter narrows a subscription. Zero values match everything.
type Filter struct {
	Types []models.ChangeType
	RowID string
}

func (f Filter) matches(ev models.ChangeEvent) bool {
	if f.RowID != "" && f.RowID != ev.RowID {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if t == ev.Type {
			return true
		}
	}
	return false
}

// Feed publishes change events and fans them out to subscribers
type Feed interface {
	Publish(ctx context.Context, ev models.ChangeEvent) error
	// Subscribe registers handler for events on table and returns a function that removes it
	Subscribe(table string, filter Filter, handler Handler) (unsubscribe func())
}

type subscription struct {
	table   string
	filter  Filter
	handler Handler
}

// LocalFeed delivers events to subscribers in the same process
type LocalFeed struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]subscription
}

// NewLocalFeed creates an in-process feed
func NewLocalFeed() *LocalFeed {
	return &LocalFeed{subs: make(map[int]subscription)}
}

// Publish delivers ev synchronously to every matching subscriber
func (f *LocalFeed) Publish(ctx context.Context, ev models.ChangeEvent) error {
	f.dispatch(ev)
	return nil
}

// Subscribe registers handler for events on table
func (f *LocalFeed) Subscribe(table string, filter Filter, handler Handler) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = subscription{table: table, filter: filter, handler: handler}
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

// Subscribers returns the number of registered handlers
func (f *LocalFeed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

func (f *LocalFeed) dispatch(ev models.ChangeEvent) {
	f.mu.RLock()
	var targets []Handler
	for _, s := range f.subs {
		if s.table == ev.Table && s.filter.matches(ev) {
			targets = append(targets, s.handler)
		}
	}
	f.mu.RUnlock()

	for _, h := range targets {
		h(ev)
	}
}
