package dcpr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound      = errors.New("dcpr: request not found")
	ErrInvalidAction = errors.New("dcpr: invalid moderation action")
)

// NotAuthorizedError carries the gate's human-readable denial reason.
type NotAuthorizedError struct {
	Reason string
}

func (e *NotAuthorizedError) Error() string {
	return "dcpr: not authorized: " + e.Reason
}

// NotAuthorized wraps a gate denial reason into an error.
func NotAuthorized(reason string) error {
	return &NotAuthorizedError{Reason: reason}
}

// ValidationError aggregates all field-level problems of a payload.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "dcpr: invalid payload"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "dcpr: invalid payload: " + strings.Join(parts, "; ")
}
