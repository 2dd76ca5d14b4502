// Package schema turns entity declarations into the metadata the rest of the
// ORM runs on. Entities declare their table, fields and relations through
// explicit configuration structs and generic accessor binders, so reading
// and writing a field never needs runtime introspection.
package schema

import (
	"time"
)

// Model is implemented by every persisted entity type, always on the
// pointer receiver. Declare is called once per type when the registry
// derives metadata and must return the same mapping on every call.
type Model interface {
	Declare() *Declaration
}

// Declaration is the static mapping of an entity type onto a table
type Declaration struct {
	// Name identifies the entity type in errors and logs. Defaults to the
	// Go type name.
	Name string

	// Table is the table the entity is stored in
	Table string

	// Fields lists the persisted fields in column order. Exactly one must be
	// marked Primary.
	Fields []Field

	// Relations lists the relation fields
	Relations []Relation

	// Cache opts the type into the entity cache. Nil means never cached.
	Cache *CachePolicy
}

// CachePolicy bounds the per-type entity cache
type CachePolicy struct {
	MaxSize int
	TTL     time.Duration
}

// FieldType is the storage type of a persisted field. It selects the
// conversion applied to raw column values.
type FieldType int

const (
	TypeInvalid FieldType = iota
	TypeBool
	TypeInt
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeUint
	TypeUint32
	TypeUint64
	TypeFloat32
	TypeFloat64
	TypeString
	TypeBytes
	TypeUUID
	TypeTimestamp
	TypeDate
	TypeDecimal
)

// String returns the string representation of the field type
func (t FieldType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeInt8:
		return "int8"
	case TypeInt16:
		return "int16"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeUint:
		return "uint"
	case TypeUint32:
		return "uint32"
	case TypeUint64:
		return "uint64"
	case TypeFloat32:
		return "float32"
	case TypeFloat64:
		return "float64"
	case TypeString:
		return "string"
	case TypeBytes:
		return "bytes"
	case TypeUUID:
		return "uuid"
	case TypeTimestamp:
		return "timestamp"
	case TypeDate:
		return "date"
	case TypeDecimal:
		return "decimal"
	default:
		return "invalid"
	}
}

// IsInteger reports whether the type is one of the integer widths
func (t FieldType) IsInteger() bool {
	switch t {
	case TypeInt, TypeInt8, TypeInt16, TypeInt32, TypeInt64, TypeUint, TypeUint32, TypeUint64:
		return true
	}
	return false
}

// RelationKind is the tagged variant of a relation descriptor
type RelationKind int

const (
	OneToMany RelationKind = iota + 1
	ManyToOne
	OneToOne
	ManyToMany
)

// String returns the string representation of the relation kind
func (k RelationKind) String() string {
	switch k {
	case OneToMany:
		return "one_to_many"
	case ManyToOne:
		return "many_to_one"
	case OneToOne:
		return "one_to_one"
	case ManyToMany:
		return "many_to_many"
	default:
		return "unknown"
	}
}

// Single reports whether the relation attaches at most one entity
func (k RelationKind) Single() bool {
	return k == ManyToOne || k == OneToOne
}
