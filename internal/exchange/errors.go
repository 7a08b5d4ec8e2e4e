// internal/exchange/errors.go
package exchange

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is; every *Error matches exactly one of them.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrValidation        = errors.New("validation failed")
)

// Error is a structured failure carrying its kind and the offending entity or field.
type Error struct {
	Kind    error  `json:"-"`
	Entity  string `json:"entity,omitempty"`
	ID      string `json:"id,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	switch {
	case e.Entity != "" && e.ID != "":
		return fmt.Sprintf("%s: %s %s: %s", e.Kind, e.Entity, e.ID, e.Message)
	case e.Field != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

// NotFound reports a referenced entity that does not exist.
func NotFound(entity string, id any) *Error {
	return &Error{Kind: ErrNotFound, Entity: entity, ID: fmt.Sprint(id), Message: "does not exist"}
}

// Conflict reports an operation that would break a uniqueness or in-progress invariant.
func Conflict(entity string, id any, format string, args ...any) *Error {
	return &Error{Kind: ErrConflict, Entity: entity, ID: fmt.Sprint(id), Message: fmt.Sprintf(format, args...)}
}

// InvalidTransition reports a status change outside the state machine.
func InvalidTransition(entity string, id any, from, to Status) *Error {
	return &Error{
		Kind:    ErrInvalidTransition,
		Entity:  entity,
		ID:      fmt.Sprint(id),
		Field:   "status",
		Message: fmt.Sprintf("cannot move from %s to %s", from, to),
	}
}

// Validation reports malformed or out-of-policy input.
func Validation(field, format string, args ...any) *Error {
	return &Error{Kind: ErrValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// KindOf names the kind of err for logs and metric labels.
func KindOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}
