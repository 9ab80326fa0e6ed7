// Package wferr defines the error taxonomy returned by governance actions.
//
// Every error carries a Kind (what class of failure) and a Key (a stable
// message key callers can localize without string matching). errors.Is
// matches on Kind; the conflict kinds also match ErrInvalidState.
package wferr

import "errors"

// Kind classifies a governance failure.
type Kind string

const (
	KindValidation             Kind = "validation_error"
	KindUnauthorized           Kind = "unauthorized"
	KindNotFound               Kind = "not_found"
	KindInvalidState           Kind = "invalid_state"
	KindAlreadyMember          Kind = "already_member"
	KindDuplicateRequest       Kind = "duplicate_request"
	KindTransferAlreadyPending Kind = "transfer_already_pending"
	KindIsManager              Kind = "is_manager"
)

// Conflict reports whether k is one of the domain conflict kinds, all of
// which are InvalidState subtypes.
func (k Kind) Conflict() bool {
	switch k {
	case KindAlreadyMember, KindDuplicateRequest, KindTransferAlreadyPending, KindIsManager:
		return true
	}
	return false
}

// Error is a typed governance failure.
type Error struct {
	Kind    Kind
	Key     string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches by kind so callers can compare against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return t.Kind == KindInvalidState && e.Kind.Conflict()
}

// Sentinels for errors.Is.
var (
	ErrValidation             = &Error{Kind: KindValidation, Key: "validation.invalid", Message: "invalid input"}
	ErrUnauthorized           = &Error{Kind: KindUnauthorized, Key: "auth.forbidden", Message: "not permitted"}
	ErrNotFound               = &Error{Kind: KindNotFound, Key: "entity.not_found", Message: "not found"}
	ErrInvalidState           = &Error{Kind: KindInvalidState, Key: "state.invalid", Message: "invalid state"}
	ErrAlreadyMember          = &Error{Kind: KindAlreadyMember, Key: "join.already_member", Message: "already a participant of this organization"}
	ErrDuplicateRequest       = &Error{Kind: KindDuplicateRequest, Key: "join.duplicate_request", Message: "a join request is already pending"}
	ErrTransferAlreadyPending = &Error{Kind: KindTransferAlreadyPending, Key: "transfer.already_pending", Message: "a transfer is already pending for this organization"}
	ErrIsManager              = &Error{Kind: KindIsManager, Key: "leave.is_manager", Message: "the manager must transfer the organization before leaving"}
)

// New builds an error of the given kind with a specific key and message.
func New(kind Kind, key, message string) *Error {
	return &Error{Kind: kind, Key: key, Message: message}
}

func Validation(key, message string) *Error   { return New(KindValidation, key, message) }
func Unauthorized(key, message string) *Error { return New(KindUnauthorized, key, message) }
func NotFound(key, message string) *Error     { return New(KindNotFound, key, message) }
func InvalidState(key, message string) *Error { return New(KindInvalidState, key, message) }

// KindOf returns the Kind of err, or "" when err is not a governance error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// As extracts the governance error from err.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
