package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the application. Services return these (possibly
// wrapped); the transport layer maps them to status codes.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("resource already exists")
	ErrInternal     = errors.New("internal error")
)

// ErrAlreadyReacted is returned when a user applies the same reaction to the
// same message twice. It is a Conflict, distinct from generic write errors.
var ErrAlreadyReacted = fmt.Errorf("already reacted with this reaction: %w", ErrConflict)

// ConversationExistsError is returned when a conversation between the two
// users already exists. It carries the existing conversation id so callers
// can redirect instead of retrying.
type ConversationExistsError struct {
	ConversationID int64
}

func (e *ConversationExistsError) Error() string {
	return fmt.Sprintf("conversation %d already exists between these users", e.ConversationID)
}

func (e *ConversationExistsError) Unwrap() error {
	return ErrConflict
}
