// Package failure defines the fatal error taxonomy shared by the survey pipeline stages.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies fatal pipeline errors.
type Kind int

// Fatal error kinds. Each aborts the pipeline immediately.
const (
	KindUnknown Kind = iota
	KindMissingInput
	KindLoad
	KindSchema
	KindProjection
)

func (k Kind) String() string {
	switch k {
	case KindMissingInput:
		return "missing input"
	case KindLoad:
		return "load"
	case KindSchema:
		return "schema"
	case KindProjection:
		return "projection"
	default:
		return "unknown"
	}
}

// Error is a fatal pipeline error tagged with its Kind and the input it
// relates to.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error (%s): %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewMissingInputError reports a required input that does not exist.
func NewMissingInputError(path string, err error) *Error {
	return &Error{Kind: KindMissingInput, Path: path, Err: err}
}

// NewLoadError reports an input that exists but cannot be parsed.
func NewLoadError(path string, err error) *Error {
	return &Error{Kind: KindLoad, Path: path, Err: err}
}

// NewSchemaError reports an absent geometry or attribute field.
func NewSchemaError(path string, err error) *Error {
	return &Error{Kind: KindSchema, Path: path, Err: err}
}

// NewProjectionError reports a failed or mismatched coordinate reference system.
func NewProjectionError(path string, err error) *Error {
	return &Error{Kind: KindProjection, Path: path, Err: err}
}

// KindOf returns the Kind of the first Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err's chain carries an Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
