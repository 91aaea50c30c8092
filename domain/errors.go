package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTargetNil is returned when the passed target, which should be a
	// pointer, is passed as a nil value.
	ErrTargetNil = errors.New("target interface is nil")
	// ErrNonPointer is returned when a decoding target is not a pointer.
	ErrNonPointer = errors.New("target must be a non-nil pointer")
	// ErrCursorClosed is returned when trying to perform operations on a
	// closed [Cursor].
	ErrCursorClosed = errors.New("cursor is closed")
	// ErrScanBeforeNext is returned when calling [Cursor.Scan] before
	// calling [Cursor.Next].
	ErrScanBeforeNext = errors.New("called Scan before calling Next")
)

// ErrUnknownOperator is returned by the matcher and the evaluator when a
// query or an expression uses an operator they do not implement.
type ErrUnknownOperator struct {
	Operator string
}

func (e ErrUnknownOperator) Error() string {
	return fmt.Sprintf("unknown operator %s", e.Operator)
}

// ErrUnknownStage is returned by [Pipeline] for stages it cannot run.
type ErrUnknownStage struct {
	Stage string
}

func (e ErrUnknownStage) Error() string {
	return fmt.Sprintf("unrecognized pipeline stage name: %s", e.Stage)
}

// ErrStageFormat is returned when a pipeline stage is not a document with a
// single key or carries an argument of the wrong type.
type ErrStageFormat struct {
	Stage  string
	Reason string
}

func (e ErrStageFormat) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("invalid pipeline stage: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s stage: %s", e.Stage, e.Reason)
}

// ErrArgument is returned when an operator receives arguments of the wrong
// type or arity.
type ErrArgument struct {
	Operator string
	Reason   string
}

func (e ErrArgument) Error() string {
	return fmt.Sprintf("%s %s", e.Operator, e.Reason)
}

// ErrExtendedJSON is returned when an extended JSON wrapper such as $date or
// $uuid carries a value that cannot be converted.
type ErrExtendedJSON struct {
	Wrapper string
	Value   any
	Reason  error
}

func (e ErrExtendedJSON) Error() string {
	return fmt.Sprintf("invalid %s value %v: %s", e.Wrapper, e.Value, e.Reason)
}

func (e ErrExtendedJSON) Unwrap() error {
	return e.Reason
}

// ErrDecode is returned by [Decoder.Decode] to easily wrap third party decoding
// errors.
type ErrDecode struct {
	Source any
	Target any
	Reason error
}

func (e ErrDecode) Error() string {
	return fmt.Sprintf("decoding %T into %T: %s", e.Source, e.Target, e.Reason)
}

func (e ErrDecode) Unwrap() error {
	return e.Reason
}

// ErrDocumentType is returned when a value cannot be used as a document.
type ErrDocumentType struct {
	Value any
}

func (e ErrDocumentType) Error() string {
	return fmt.Sprintf("expected map or struct, got %T", e.Value)
}

// ErrDuplicateID is returned when inserting a document whose _id is already
// stored in the collection.
type ErrDuplicateID struct {
	ID any
}

func (e ErrDuplicateID) Error() string {
	return fmt.Sprintf("duplicate _id %v", e.ID)
}

// ErrFieldName is returned when a stored document has a top level field name
// starting with $.
type ErrFieldName struct {
	Field string
}

func (e ErrFieldName) Error() string {
	return fmt.Sprintf("field names cannot begin with the $ character: %s", e.Field)
}
