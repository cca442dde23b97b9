// Package domainerrors carries the error taxonomy surfaced by services.
//
// Services translate store sentinels into a *Error with a Code; transports map
// codes to status codes without inspecting messages.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure.
type Code string

const (
	CodeValidation          Code = "validation_error"
	CodeUniquenessConflict  Code = "uniqueness_conflict"
	CodeUniquenessUnchecked Code = "uniqueness_unchecked"
	CodeStoreUnavailable    Code = "store_unavailable"
	CodeBusy                Code = "busy"
	CodeNotFound            Code = "not_found"
	CodeBadRequest          Code = "bad_request"
	CodeInternal            Code = "internal_error"
)

// Error is a coded domain error. Err is the optional underlying cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a coded error without a cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
