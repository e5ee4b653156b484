// Package apperrors defines the typed failure taxonomy shared by services,
// repositories and HTTP handlers. Callers branch on the kind instead of
// matching message strings.
package apperrors

import "errors"

// Kind classifies a failure for callers and the HTTP error mapping.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound means a referenced order, product or user does not exist.
	KindNotFound
	// KindBusinessRule means a domain rule rejected the operation
	// (inactive product, insufficient stock, already-processed order).
	KindBusinessRule
	// KindConflict means a terminal-state or concurrency conflict
	// (settling a non-pending order, retries exhausted).
	KindConflict
	// KindSecurity means a refresh token is missing, expired or owned by
	// someone else.
	KindSecurity
	// KindValidation means the request itself is malformed.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindBusinessRule:
		return "business_rule"
	case KindConflict:
		return "conflict"
	case KindSecurity:
		return "security"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is a typed, terminal failure. EntityID carries the offending
// entity where one exists so callers can act on it without parsing the
// message.
type Error struct {
	Kind     Kind
	Message  string
	EntityID string
}

func (e *Error) Error() string {
	return e.Message
}

// New creates an Error of the given kind.
func New(kind Kind, message, entityID string) *Error {
	return &Error{Kind: kind, Message: message, EntityID: entityID}
}

// NotFound creates a KindNotFound error.
func NotFound(message, entityID string) *Error {
	return New(KindNotFound, message, entityID)
}

// BusinessRule creates a KindBusinessRule error.
func BusinessRule(message, entityID string) *Error {
	return New(KindBusinessRule, message, entityID)
}

// Conflict creates a KindConflict error.
func Conflict(message, entityID string) *Error {
	return New(KindConflict, message, entityID)
}

// Security creates a KindSecurity error.
func Security(message string) *Error {
	return New(KindSecurity, message, "")
}

// Validation creates a KindValidation error.
func Validation(message, entityID string) *Error {
	return New(KindValidation, message, entityID)
}

// KindOf returns the kind of err, or KindUnknown for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err is a typed error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
