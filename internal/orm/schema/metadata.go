package schema

import (
	"strings"

	"github.com/google/uuid"

	"github.com/crimson-games/bakuretsu/internal/orm/dialect"
)

// Metadata is the derived, immutable description of an entity type. It is
// produced once per type by a Registry and shared by every operation on
// that type.
type Metadata struct {
	Name  string
	Table string

	// Fields holds the persisted fields in declaration order
	Fields []*Field
	// ID is the identifier field
	ID *Field
	// InsertFields is Fields without the identifier
	InsertFields []*Field

	// Relations holds the relation descriptors keyed by relation name
	Relations map[string]*Relation
	// RelationNames lists relation names in declaration order
	RelationNames []string

	Cache *CachePolicy

	// Precompiled statements in the registry's dialect
	SelectSQL     string
	SelectByIDSQL string
	InsertSQL     string
	UpdateSQL     string
	DeleteByIDSQL string
	CountSQL      string

	Dialect dialect.Dialect

	newFn    func() Model
	byName   map[string]*Field
	byColumn map[string]*Field
}

// New returns a zero instance of the entity type
func (m *Metadata) New() Model {
	return m.newFn()
}

// Cached reports whether the type opted into the entity cache
func (m *Metadata) Cached() bool {
	return m.Cache != nil
}

// FieldByName returns the field with the given Go field name
func (m *Metadata) FieldByName(name string) (*Field, bool) {
	f, ok := m.byName[name]
	return f, ok
}

// FieldByColumn returns the field mapped to column, compared case-insensitively
func (m *Metadata) FieldByColumn(column string) (*Field, bool) {
	f, ok := m.byColumn[strings.ToLower(column)]
	return f, ok
}

// HasColumn reports whether column is a persisted column of the type
func (m *Metadata) HasColumn(column string) bool {
	_, ok := m.FieldByColumn(column)
	return ok
}

// Relation returns the relation descriptor with the given name
func (m *Metadata) Relation(name string) (*Relation, bool) {
	r, ok := m.Relations[name]
	return r, ok
}

// Columns returns the persisted column names in declaration order
func (m *Metadata) Columns() []string {
	cols := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		cols[i] = f.Column
	}
	return cols
}

// Quote quotes an identifier for the registry's dialect
func (m *Metadata) Quote(ident string) string {
	return m.Dialect.Quote(ident)
}

// IDValue returns the identifier value of e
func (m *Metadata) IDValue(e Model) any {
	return m.ID.Get(e)
}

// IsNew reports whether e has not been persisted yet, which is the case
// when its identifier holds the zero value of its type.
func (m *Metadata) IsNew(e Model) bool {
	return IsZeroID(m.IDValue(e))
}

// InsertArgs returns the bind arguments for InsertSQL
func (m *Metadata) InsertArgs(e Model) []any {
	args := make([]any, 0, len(m.InsertFields))
	for _, f := range m.InsertFields {
		args = append(args, f.Get(e))
	}
	return args
}

// UpdateArgs returns the bind arguments for UpdateSQL
func (m *Metadata) UpdateArgs(e Model) []any {
	args := m.InsertArgs(e)
	return append(args, m.IDValue(e))
}

// IsZeroID reports whether an identifier value is unset
func IsZeroID(id any) bool {
	switch v := id.(type) {
	case nil:
		return true
	case int:
		return v == 0
	case int8:
		return v == 0
	case int16:
		return v == 0
	case int32:
		return v == 0
	case int64:
		return v == 0
	case uint:
		return v == 0
	case uint32:
		return v == 0
	case uint64:
		return v == 0
	case string:
		return v == ""
	case uuid.UUID:
		return v == uuid.Nil
	case []byte:
		return len(v) == 0
	}
	return false
}
