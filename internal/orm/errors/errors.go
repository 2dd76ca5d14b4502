// Package errors defines the error taxonomy shared by the bakuretsu ORM
// packages. Every failure surfaced to callers is an *Error carrying a Kind
// and, where one exists, the original cause.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an ORM failure
type Kind int

const (
	// KindConfiguration means an entity declaration is missing or malformed.
	// The affected type cannot be served until the declaration is fixed.
	KindConfiguration Kind = iota + 1
	// KindFieldBinding means a column value could not be converted into a field
	KindFieldBinding
	// KindInvalidFieldValue means a non-nullable field received NULL
	KindInvalidFieldValue
	// KindQueryExecution means statement preparation or execution failed
	KindQueryExecution
	// KindRelationResolution means an eager-load path could not be resolved
	KindRelationResolution
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration error"
	case KindFieldBinding:
		return "field binding error"
	case KindInvalidFieldValue:
		return "invalid field value"
	case KindQueryExecution:
		return "query execution error"
	case KindRelationResolution:
		return "relation resolution error"
	default:
		return "unknown error"
	}
}

var (
	// ErrNotFound is returned when no row matches an identifier lookup
	ErrNotFound = errors.New("record not found")

	// ErrUniqueViolation is returned when a unique constraint is violated
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrForeignKeyViolation is returned when a foreign key constraint is violated
	ErrForeignKeyViolation = errors.New("foreign key constraint violation")

	// ErrCheckViolation is returned when a check constraint is violated
	ErrCheckViolation = errors.New("check constraint violation")

	// ErrNotNullViolation is returned when a NOT NULL constraint is violated
	ErrNotNullViolation = errors.New("not null constraint violation")
)

// Error is the error type returned by the ORM packages
type Error struct {
	Kind   Kind
	Entity string // entity type name
	Field  string // field or relation name, when known
	Column string // mapped column, when known
	Op     string // operation that failed, e.g. "insert"
	Msg    string
	Err    error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("bakuretsu: ")
	b.WriteString(e.Kind.String())

	subject := e.Entity
	if e.Field != "" {
		if subject != "" {
			subject += "."
		}
		subject += e.Field
	}
	if subject != "" {
		b.WriteString(": ")
		b.WriteString(subject)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " (column %q)", e.Column)
	}
	if e.Op != "" {
		fmt.Fprintf(&b, " during %s", e.Op)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Configuration returns a KindConfiguration error for the entity
func Configuration(entity, format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Entity: entity, Msg: fmt.Sprintf(format, args...)}
}

// FieldBinding returns a KindFieldBinding error wrapping cause
func FieldBinding(entity, field, column string, cause error) *Error {
	return &Error{Kind: KindFieldBinding, Entity: entity, Field: field, Column: column, Err: cause}
}

// InvalidFieldValue returns a KindInvalidFieldValue error for a NULL read
// into a field that cannot hold it
func InvalidFieldValue(entity, field, column string) *Error {
	return &Error{
		Kind:   KindInvalidFieldValue,
		Entity: entity,
		Field:  field,
		Column: column,
		Msg:    "NULL is not assignable to a non-nullable field",
	}
}

// QueryExecution returns a KindQueryExecution error wrapping cause. Driver
// constraint errors are classified so that errors.Is matches the
// constraint sentinels.
func QueryExecution(entity, op string, cause error) *Error {
	return &Error{Kind: KindQueryExecution, Entity: entity, Op: op, Err: Classify(cause)}
}

// RelationResolution returns a KindRelationResolution error
func RelationResolution(entity, relation, format string, args ...any) *Error {
	return &Error{Kind: KindRelationResolution, Entity: entity, Field: relation, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or zero
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsConfiguration returns true if err is a configuration error
func IsConfiguration(err error) bool {
	return KindOf(err) == KindConfiguration
}

// IsFieldBinding returns true if err is a field binding error
func IsFieldBinding(err error) bool {
	return KindOf(err) == KindFieldBinding
}

// IsInvalidFieldValue returns true if err is an invalid field value error
func IsInvalidFieldValue(err error) bool {
	return KindOf(err) == KindInvalidFieldValue
}

// IsQueryExecution returns true if err is a query execution error
func IsQueryExecution(err error) bool {
	return KindOf(err) == KindQueryExecution
}

// IsRelationResolution returns true if err is a relation resolution error
func IsRelationResolution(err error) bool {
	return KindOf(err) == KindRelationResolution
}

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUniqueViolation returns true if the error is ErrUniqueViolation
func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}

// IsForeignKeyViolation returns true if the error is ErrForeignKeyViolation
func IsForeignKeyViolation(err error) bool {
	return errors.Is(err, ErrForeignKeyViolation)
}
