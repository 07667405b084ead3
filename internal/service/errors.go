package service

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is against these; the HTTP layer maps them to
// status codes.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrNotFound        = errors.New("not found")
	ErrStorage         = errors.New("storage error")
)

// Error pairs an error kind with the message shown to clients.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func invalidInput(msg string) error {
	return &Error{Kind: ErrInvalidInput, Message: msg}
}

func storageError(msg string, err error) error {
	return &Error{Kind: ErrStorage, Message: msg, Err: err}
}

// PayloadTooLarge builds the error reported for files above limit bytes.
func PayloadTooLarge(limit int64) error {
	return &Error{
		Kind:    ErrPayloadTooLarge,
		Message: fmt.Sprintf("File too large (max %s)", formatMiB(limit)),
	}
}
