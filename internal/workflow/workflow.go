// Package workflow implements the article publication state machine:
// draft, pending_review and published, with role-gated transitions.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/looplab/fsm"
	"github.com/newsdesk-api/internal/models"
	"github.com/newsdesk-api/internal/policy"
)

// ErrInvalidTransition is returned for a move that is not in the transition table
var ErrInvalidTransition = errors.New("invalid status transition")

// stateNew is the pseudo-state a brand new article starts from
const stateNew = "new"

// Events, named after what the newsroom calls them
const (
	EventRevert  = "revert"
	EventSubmit  = "submit"
	EventPublish = "publish"
)

var eventFor = map[models.ArticleStatus]string{
	models.StatusDraft:         EventRevert,
	models.StatusPendingReview: EventSubmit,
	models.StatusPublished:     EventPublish,
}

// Options tunes behaviour the product has not settled on
type Options struct {
	// ClearPublishedAtOnRevert nulls published_at when an article goes back to draft
	ClearPublishedAtOnRevert bool
}

// Change is the status and timestamp a transition writes
type Change struct {
	Status      models.ArticleStatus
	PublishedAt *time.Time
}

// Machine validates article status transitions
type Machine struct {
	opts Options
}

// New creates a state machine
func New(opts Options) *Machine {
	return &Machine{opts: opts}
}

// request travels through the fsm callbacks as the single event argument
type request struct {
	role        models.Role
	actorID     string
	authorID    *string
	publishedAt *time.Time
	now         time.Time
	change      Change
}

func articleEvents() fsm.Events {
	draft := string(models.StatusDraft)
	review := string(models.StatusPendingReview)
	published := string(models.StatusPublished)

	return fsm.Events{
		{Name: EventRevert, Src: []string{stateNew, draft, review, published}, Dst: draft},
		{Name: EventSubmit, Src: []string{stateNew, draft, review}, Dst: review},
		{Name: EventPublish, Src: []string{stateNew, draft, review, published}, Dst: published},
	}
}

func (m *Machine) callbacks() fsm.Callbacks {
	return fsm.Callbacks{
		"before_event":           guardRole,
		"before_" + EventPublish: guardApproval,
		"before_" + EventSubmit:  guardOwnership,
		"before_" + EventRevert:  guardOwnership,
		// after_event also fires for self-transitions such as a re-publish
		"after_event": m.record,
	}
}

func requestFrom(e *fsm.Event) *request {
	if len(e.Args) == 0 {
		return nil
	}
	req, _ := e.Args[0].(*request)
	return req
}

func guardRole(_ context.Context, e *fsm.Event) {
	req := requestFrom(e)
	if req == nil {
		e.Cancel(errors.New("workflow: missing transition request"))
		return
	}
	target := models.ArticleStatus(e.Dst)
	if e.Src == stateNew && !policy.CanCreateArticle(req.role) {
		e.Cancel(fmt.Errorf("%w: %s cannot create articles", policy.ErrForbidden, req.role))
		return
	}
	if !policy.CanSetStatus(req.role, target) {
		e.Cancel(fmt.Errorf("%w: %s cannot move articles to %s", policy.ErrForbidden, req.role, target))
	}
}

func guardApproval(_ context.Context, e *fsm.Event) {
	req := requestFrom(e)
	if req == nil {
		return
	}
	if e.Src == string(models.StatusPendingReview) && !policy.CanApprovePendingReview(req.role) {
		e.Cancel(fmt.Errorf("%w: %s cannot approve articles", policy.ErrForbidden, req.role))
	}
}

func guardOwnership(_ context.Context, e *fsm.Event) {
	req := requestFrom(e)
	if req == nil || e.Src == stateNew {
		return
	}
	if !policy.CanModifyArticle(req.role, req.actorID, req.authorID) {
		e.Cancel(fmt.Errorf("%w: article belongs to another author", policy.ErrForbidden))
	}
}

func (m *Machine) record(_ context.Context, e *fsm.Event) {
	req := requestFrom(e)
	if req == nil {
		return
	}
	target := models.ArticleStatus(e.Dst)
	req.change = Change{Status: target, PublishedAt: req.publishedAt}
	switch target {
	case models.StatusPublished:
		// every publish, re-publish included, stamps a fresh time
		req.change.PublishedAt = stamp(req.now)
	case models.StatusDraft:
		if m.opts.ClearPublishedAtOnRevert {
			req.change.PublishedAt = nil
		}
	}
}

// run fires the event for target from src and translates fsm errors
func (m *Machine) run(src string, target models.ArticleStatus, req *request) (Change, error) {
	event, ok := eventFor[target]
	if !ok {
		return Change{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, target)
	}

	machine := fsm.NewFSM(src, articleEvents(), m.callbacks())
	err := machine.Event(context.Background(), event, req)

	var (
		canceled  fsm.CanceledError
		unchanged fsm.NoTransitionError
	)
	switch {
	case err == nil:
	case errors.As(err, &unchanged) && unchanged.Err == nil:
		// self-transition; after_event has already recorded the change
	case errors.As(err, &canceled) && canceled.Err != nil:
		return Change{}, canceled.Err
	default:
		var invalid fsm.InvalidEventError
		if errors.As(err, &invalid) {
			return Change{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, src, target)
		}
		return Change{}, fmt.Errorf("failed to transition article: %w", err)
	}
	return req.change, nil
}

// Create decides the initial state of a new article. An empty target means draft.
func (m *Machine) Create(role models.Role, target models.ArticleStatus, now time.Time) (Change, error) {
	if target == "" {
		target = models.StatusDraft
	}
	return m.run(stateNew, target, &request{role: role, now: now})
}

// Transition decides the outcome of moving article to target on behalf of actorID.
// The article is not modified; the caller applies the returned Change in a single write.
func (m *Machine) Transition(role models.Role, actorID string, article *models.Article, target models.ArticleStatus, now time.Time) (Change, error) {
	return m.run(string(article.Status), target, &request{
		role:        role,
		actorID:     actorID,
		authorID:    article.AuthorID,
		publishedAt: article.PublishedAt,
		now:         now,
	})
}

func stamp(now time.Time) *time.Time {
	t := now.UTC()
	return &t
}
