package schema

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Field binds one persisted struct field to a column. Fields are built with
// Column and carry typed accessors, so the materializer assigns values
// without looking fields up at runtime.
type Field struct {
	Name     string
	Column   string
	Type     FieldType
	Nullable bool

	primary bool
	get     func(Model) any
	set     func(Model, any) error
}

// Column binds the struct field returned by ptr to the named column. V must
// be one of the supported field types or a pointer to one, in which case the
// field is nullable.
//
//	schema.Column("Coins", "coins", func(c *Character) *int { return &c.Coins })
func Column[T any, V any](name, column string, ptr func(*T) *V) Field {
	typ, nullable := fieldTypeOf[V]()
	return Field{
		Name:     name,
		Column:   column,
		Type:     typ,
		Nullable: nullable,
		get: func(m Model) any {
			return load(ptr(any(m).(*T)))
		},
		set: func(m Model, v any) error {
			return store(ptr(any(m).(*T)), v)
		},
	}
}

// Primary marks the field as the entity identifier
func (f Field) Primary() Field {
	f.primary = true
	return f
}

// AsDate stores a time.Time field as a calendar date
func (f Field) AsDate() Field {
	if f.Type == TypeTimestamp {
		f.Type = TypeDate
	}
	return f
}

// IsPrimary reports whether the field is the identifier
func (f *Field) IsPrimary() bool {
	return f.primary
}

// Get returns the field value of m. Nil pointer fields yield nil, other
// pointer fields are dereferenced.
func (f *Field) Get(m Model) any {
	return f.get(m)
}

// Set assigns an already converted value to the field of m. The value must
// have the field's Go type (or its element type for pointer fields); nil
// clears a nullable field.
func (f *Field) Set(m Model, v any) error {
	if v == nil && !f.Nullable {
		return fmt.Errorf("field %s is not nullable", f.Name)
	}
	return f.set(m, v)
}

// Copy copies the field value from src to dst
func (f *Field) Copy(dst, src Model) error {
	return f.set(dst, f.get(src))
}

func fieldTypeOf[V any]() (FieldType, bool) {
	var zero V
	switch any(zero).(type) {
	case bool:
		return TypeBool, false
	case *bool:
		return TypeBool, true
	case int:
		return TypeInt, false
	case *int:
		return TypeInt, true
	case int8:
		return TypeInt8, false
	case int16:
		return TypeInt16, false
	case int32:
		return TypeInt32, false
	case *int32:
		return TypeInt32, true
	case int64:
		return TypeInt64, false
	case *int64:
		return TypeInt64, true
	case uint:
		return TypeUint, false
	case uint32:
		return TypeUint32, false
	case uint64:
		return TypeUint64, false
	case float32:
		return TypeFloat32, false
	case float64:
		return TypeFloat64, false
	case *float64:
		return TypeFloat64, true
	case string:
		return TypeString, false
	case *string:
		return TypeString, true
	case []byte:
		return TypeBytes, true
	case uuid.UUID:
		return TypeUUID, false
	case *uuid.UUID:
		return TypeUUID, true
	case time.Time:
		return TypeTimestamp, false
	case *time.Time:
		return TypeTimestamp, true
	case decimal.Decimal:
		return TypeDecimal, false
	case *decimal.Decimal:
		return TypeDecimal, true
	default:
		return TypeInvalid, false
	}
}

func load[V any](p *V) any {
	switch x := any(p).(type) {
	case **bool:
		return deref(*x)
	case **int:
		return deref(*x)
	case **int32:
		return deref(*x)
	case **int64:
		return deref(*x)
	case **float64:
		return deref(*x)
	case **string:
		return deref(*x)
	case **uuid.UUID:
		return deref(*x)
	case **time.Time:
		return deref(*x)
	case **decimal.Decimal:
		return deref(*x)
	case *[]byte:
		if *x == nil {
			return nil
		}
		return *x
	}
	return *p
}

func deref[E any](p *E) any {
	if p == nil {
		return nil
	}
	return *p
}

func store[V any](p *V, v any) error {
	if v == nil {
		var zero V
		*p = zero
		return nil
	}
	if tv, ok := v.(V); ok {
		*p = tv
		return nil
	}

	switch x := any(p).(type) {
	case **bool:
		return storeElem(x, v)
	case **int:
		return storeElem(x, v)
	case **int32:
		return storeElem(x, v)
	case **int64:
		return storeElem(x, v)
	case **float64:
		return storeElem(x, v)
	case **string:
		return storeElem(x, v)
	case **uuid.UUID:
		return storeElem(x, v)
	case **time.Time:
		return storeElem(x, v)
	case **decimal.Decimal:
		return storeElem(x, v)
	}
	return fmt.Errorf("cannot assign %T to %T", v, *p)
}

func storeElem[E any](p **E, v any) error {
	e, ok := v.(E)
	if !ok {
		return fmt.Errorf("cannot assign %T to %T", v, *p)
	}
	*p = &e
	return nil
}
