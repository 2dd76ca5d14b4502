package schema

import (
	"fmt"
	"strings"

	"github.com/crimson-games/bakuretsu/internal/orm/dialect"
	ormerrors "github.com/crimson-games/bakuretsu/internal/orm/errors"
)

// derive validates a declaration and builds its metadata. Related types are
// checked through their declarations only, so mutually related types never
// wait on each other's derivation.
func derive(d dialect.Dialect, proto Model, newFn func() Model) (*Metadata, error) {
	decl := proto.Declare()
	name := typeName(proto)
	if decl == nil {
		return nil, ormerrors.Configuration(name, "Declare returned nil")
	}
	if decl.Name != "" {
		name = decl.Name
	}

	if strings.TrimSpace(decl.Table) == "" {
		return nil, ormerrors.Configuration(name, "no table declared")
	}
	if len(decl.Fields) == 0 {
		return nil, ormerrors.Configuration(name, "no persisted fields declared")
	}

	meta := &Metadata{
		Name:      name,
		Table:     decl.Table,
		Relations: make(map[string]*Relation, len(decl.Relations)),
		Dialect:   d,
		newFn:     newFn,
		byName:    make(map[string]*Field, len(decl.Fields)),
		byColumn:  make(map[string]*Field, len(decl.Fields)),
	}

	for i := range decl.Fields {
		f := decl.Fields[i]
		if err := validateField(name, &f); err != nil {
			return nil, err
		}
		if _, dup := meta.byName[f.Name]; dup {
			return nil, ormerrors.Configuration(name, "duplicate field %s", f.Name)
		}
		col := strings.ToLower(f.Column)
		if _, dup := meta.byColumn[col]; dup {
			return nil, ormerrors.Configuration(name, "duplicate column %s", f.Column)
		}

		field := &f
		meta.Fields = append(meta.Fields, field)
		meta.byName[f.Name] = field
		meta.byColumn[col] = field

		if f.primary {
			if meta.ID != nil {
				return nil, ormerrors.Configuration(name, "multiple identifier fields: %s and %s", meta.ID.Name, f.Name)
			}
			meta.ID = field
		} else {
			meta.InsertFields = append(meta.InsertFields, field)
		}
	}
	if meta.ID == nil {
		return nil, ormerrors.Configuration(name, "no identifier field declared")
	}

	if decl.Cache != nil {
		if decl.Cache.MaxSize <= 0 {
			return nil, ormerrors.Configuration(name, "cache policy needs a positive max size")
		}
		if decl.Cache.TTL < 0 {
			return nil, ormerrors.Configuration(name, "cache policy has a negative TTL")
		}
		policy := *decl.Cache
		meta.Cache = &policy
	}

	for i := range decl.Relations {
		rel := decl.Relations[i]
		if err := resolveRelation(meta, &rel); err != nil {
			return nil, err
		}
		if _, dup := meta.Relations[rel.Name]; dup {
			return nil, ormerrors.Configuration(name, "duplicate relation %s", rel.Name)
		}
		meta.Relations[rel.Name] = &rel
		meta.RelationNames = append(meta.RelationNames, rel.Name)
	}

	buildStatements(meta)
	return meta, nil
}

func validateField(entity string, f *Field) error {
	if f.Name == "" {
		return ormerrors.Configuration(entity, "field without a name")
	}
	if f.Column == "" {
		return ormerrors.Configuration(entity, "field %s has no column", f.Name)
	}
	if f.Type == TypeInvalid {
		return ormerrors.Configuration(entity, "field %s has an unsupported Go type", f.Name)
	}
	if f.get == nil || f.set == nil {
		return ormerrors.Configuration(entity, "field %s was not built with schema.Column", f.Name)
	}
	if f.primary && f.Nullable {
		return ormerrors.Configuration(entity, "identifier field %s must not be nullable", f.Name)
	}
	return nil
}

// resolveRelation validates a relation against both sides and fills in the
// defaulted keys.
func resolveRelation(meta *Metadata, rel *Relation) error {
	entity := meta.Name
	if rel.Name == "" {
		return ormerrors.Configuration(entity, "relation without a name")
	}
	if rel.newRelated == nil || rel.loaded == nil || rel.attach == nil {
		return ormerrors.Configuration(entity, "relation %s has no related type", rel.Name)
	}

	related := rel.newRelated()
	relDecl := related.Declare()
	if relDecl == nil || strings.TrimSpace(relDecl.Table) == "" {
		return ormerrors.Configuration(entity, "relation %s targets %s, which declares no table", rel.Name, typeName(related))
	}
	rel.related = relDecl.Name
	if rel.related == "" {
		rel.related = typeName(related)
	}
	rel.relatedTable = relDecl.Table

	for _, f := range relDecl.Fields {
		if f.primary {
			rel.relatedIDColumn = f.Column
			break
		}
	}
	if rel.relatedIDColumn == "" {
		return ormerrors.Configuration(entity, "relation %s targets %s, which declares no identifier", rel.Name, rel.related)
	}

	relatedHas := func(column string) bool {
		for _, f := range relDecl.Fields {
			if strings.EqualFold(f.Column, column) {
				return true
			}
		}
		return false
	}

	switch rel.Kind {
	case OneToMany, OneToOne:
		if rel.ForeignKey == "" {
			return ormerrors.Configuration(entity, "%s relation %s needs a foreign key", rel.Kind, rel.Name)
		}
		if rel.LocalKey == "" {
			rel.LocalKey = meta.ID.Column
		}
		if !meta.HasColumn(rel.LocalKey) {
			return ormerrors.Configuration(entity, "relation %s: local key %s is not a column of %s", rel.Name, rel.LocalKey, entity)
		}
		if !relatedHas(rel.ForeignKey) {
			return ormerrors.Configuration(entity, "relation %s: foreign key %s is not a column of %s", rel.Name, rel.ForeignKey, rel.related)
		}

	case ManyToOne:
		if rel.LocalKey == "" {
			return ormerrors.Configuration(entity, "%s relation %s needs a local key", rel.Kind, rel.Name)
		}
		if rel.ForeignKey == "" {
			rel.ForeignKey = rel.relatedIDColumn
		}
		if !meta.HasColumn(rel.LocalKey) {
			return ormerrors.Configuration(entity, "relation %s: local key %s is not a column of %s", rel.Name, rel.LocalKey, entity)
		}
		if !relatedHas(rel.ForeignKey) {
			return ormerrors.Configuration(entity, "relation %s: foreign key %s is not a column of %s", rel.Name, rel.ForeignKey, rel.related)
		}

	case ManyToMany:
		if rel.JoinTable == "" || rel.JoinForeignKey == "" || rel.JoinRelatedKey == "" {
			return ormerrors.Configuration(entity, "%s relation %s needs a join table and both join keys", rel.Kind, rel.Name)
		}
		if rel.LocalKey == "" {
			rel.LocalKey = meta.ID.Column
		}
		if !meta.HasColumn(rel.LocalKey) {
			return ormerrors.Configuration(entity, "relation %s: local key %s is not a column of %s", rel.Name, rel.LocalKey, entity)
		}

	default:
		return ormerrors.Configuration(entity, "relation %s has unknown kind %d", rel.Name, rel.Kind)
	}
	return nil
}

func buildStatements(meta *Metadata) {
	d := meta.Dialect
	table := d.Quote(meta.Table)
	id := d.Quote(meta.ID.Column)

	cols := make([]string, len(meta.Fields))
	for i, f := range meta.Fields {
		cols[i] = d.Quote(f.Column)
	}
	meta.SelectSQL = fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), table)
	meta.SelectByIDSQL = dialect.Rebind(d, fmt.Sprintf("%s WHERE %s = ? LIMIT 1", meta.SelectSQL, id))
	meta.DeleteByIDSQL = dialect.Rebind(d, fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, id))
	meta.CountSQL = fmt.Sprintf("SELECT COUNT(*) FROM %s", table)

	insertCols := make([]string, len(meta.InsertFields))
	sets := make([]string, len(meta.InsertFields))
	for i, f := range meta.InsertFields {
		insertCols[i] = d.Quote(f.Column)
		sets[i] = d.Quote(f.Column) + " = ?"
	}

	var insert string
	switch {
	case len(insertCols) > 0:
		insert = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			table, strings.Join(insertCols, ", "), dialect.Placeholders(len(insertCols)))
	case d == dialect.MySQL:
		insert = fmt.Sprintf("INSERT INTO %s () VALUES ()", table)
	default:
		insert = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", table)
	}
	if d.Returning() {
		insert += " RETURNING " + id
	}
	meta.InsertSQL = dialect.Rebind(d, insert)

	if len(sets) > 0 {
		meta.UpdateSQL = dialect.Rebind(d, fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
			table, strings.Join(sets, ", "), id))
	}
}

// typeName returns the bare Go type name of m, e.g. "User" for *models.User
func typeName(m Model) string {
	name := fmt.Sprintf("%T", m)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimPrefix(name, "*")
}
