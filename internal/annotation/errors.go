package annotation

import (
	"errors"
	"fmt"
)

var (
	ErrNoLabel             = errors.New("please select a label first")
	ErrUnknownLabel        = errors.New("label is not part of this task")
	ErrShapeTooSmall       = errors.New("shape is too small")
	ErrTooFewPoints        = errors.New("a polygon needs at least 3 points")
	ErrNotDrawing          = errors.New("no shape is being drawn")
	ErrNoSelection         = errors.New("please select some text first")
	ErrOverlap             = errors.New("entity overlaps an existing entity")
	ErrNoKeypointSelected  = errors.New("no keypoint selected")
	ErrOutOfRange          = errors.New("value out of range")
	ErrEmptyAnnotation     = errors.New("annotation is empty")
	ErrWrongAnnotationType = errors.New("annotation type does not match task")
)

// ValidationError is a local, recoverable input error. Widgets return it instead of
// mutating state; it is never produced by network calls.
type ValidationError struct {
	Reason error
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%s: %s", e.Reason.Error(), e.Detail)
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

func NewValidationError(reason error, format string, args ...any) error {
	return invalidf(reason, format, args...)
}

func invalid(reason error) error {
	return &ValidationError{Reason: reason}
}

func invalidf(reason error, format string, args ...any) error {
	return &ValidationError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
