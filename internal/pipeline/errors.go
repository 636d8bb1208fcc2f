// Package pipeline turns user text into persisted workflows or chat replies.
package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

// Failure kinds.
const (
	KindInvalidInput    Kind = "InvalidInput"
	KindMalformedOutput Kind = "MalformedOutput"
	KindSchemaViolation Kind = "SchemaViolation"
	KindToolValidation  Kind = "ToolValidationError"
	KindNotFound        Kind = "NotFound"
	KindConflict        Kind = "Conflict"
	KindUpstream        Kind = "UpstreamFailure"
	KindInternal        Kind = "Internal"
)

// Failure is a classified pipeline error.
type Failure struct {
	Kind    Kind
	Message string
	// Field names the offending document field for schema violations.
	Field string
	// RawOutput is the model text that failed to parse or validate.
	RawOutput string
	Err       error
}

// Error implements error.
func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error {
	return f.Err
}

// Fail creates a failure of the given kind.
func Fail(kind Kind, message string, cause error) *Failure {
	return &Failure{Kind: kind, Message: message, Err: cause}
}

// AsFailure extracts a Failure from err, classifying anything else as Internal.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return Fail(KindInternal, "unexpected error", err)
}
