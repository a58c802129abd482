package service

import (
	"errors"
	"strings"

	"github.com/newsdesk-api/internal/policy"
	"github.com/newsdesk-api/internal/validation"
	"github.com/newsdesk-api/internal/workflow"
)

var (
	// ErrNotFound is returned when the requested row does not exist or is hidden from the actor
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the access policy denies an action
	ErrForbidden = policy.ErrForbidden
	// ErrUnauthenticated is returned when an operation needs a signed-in actor
	ErrUnauthenticated = errors.New("authentication required")
	// ErrConflict is returned when a unique key is already taken
	ErrConflict = errors.New("already exists")
	// ErrTooLarge is returned when an upload exceeds its size limit
	ErrTooLarge = errors.New("payload too large")
	// ErrInvalidTransition is returned for a status change the state machine rejects
	ErrInvalidTransition = workflow.ErrInvalidTransition
)

// ValidationErrors lists every field that failed validation
type ValidationErrors struct {
	Errors []validation.ValidationError
}

func (e *ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func invalid(errs []validation.ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationErrors{Errors: errs}
}

func invalidField(field, message string, value interface{}) error {
	return invalid([]validation.ValidationError{{Field: field, Message: message, Value: value}})
}
