package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindInvalidInput      ErrorKind = "InvalidInput"
	KindInvalidDateRange  ErrorKind = "InvalidDateRange"
	KindInvalidDepartment ErrorKind = "InvalidDepartment"
	KindInvalidDiscount   ErrorKind = "InvalidDiscount"
	KindBaselineNotFound  ErrorKind = "BaselineNotFound"
	KindScenarioNotFound  ErrorKind = "ScenarioNotFound"
	KindComputationError  ErrorKind = "ComputationError"
)

// Error is the structured failure returned across pipeline component boundaries.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func WrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first domain error in the chain, or "" if none.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
