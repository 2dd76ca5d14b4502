package crud

import (
	"database/sql"
	"errors"
	"strings"

	ormerrors "github.com/crimson-games/bakuretsu/internal/orm/errors"
	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

// ErrColumnMissing is the cause of a field binding error when a result set
// lacks the column a persisted field maps to
var ErrColumnMissing = errors.New("column missing from result set")

// columnIndex maps every persisted field of a type to its position in a
// result set. Column names are matched case-insensitively.
func columnIndex(meta *schema.Metadata, columns []string) ([]int, error) {
	positions := make(map[string]int, len(columns))
	for i, c := range columns {
		positions[strings.ToLower(c)] = i
	}

	index := make([]int, len(meta.Fields))
	for i, f := range meta.Fields {
		pos, ok := positions[strings.ToLower(f.Column)]
		if !ok {
			return nil, ormerrors.FieldBinding(meta.Name, f.Name, f.Column, ErrColumnMissing)
		}
		index[i] = pos
	}
	return index, nil
}

// Materialize builds one entity from a row of raw driver values. Either
// every field is assigned or an error is returned; a partially populated
// entity is never handed out.
func Materialize(meta *schema.Metadata, columns []string, values []any) (schema.Model, error) {
	index, err := columnIndex(meta, columns)
	if err != nil {
		return nil, err
	}
	return materialize(meta, index, values)
}

func materialize(meta *schema.Metadata, index []int, values []any) (schema.Model, error) {
	e := meta.New()
	for i, f := range meta.Fields {
		raw := values[index[i]]
		if raw == nil {
			if !f.Nullable {
				return nil, ormerrors.InvalidFieldValue(meta.Name, f.Name, f.Column)
			}
			if err := f.Set(e, nil); err != nil {
				return nil, ormerrors.FieldBinding(meta.Name, f.Name, f.Column, err)
			}
			continue
		}

		v, err := Convert(raw, f.Type)
		if err != nil {
			return nil, ormerrors.FieldBinding(meta.Name, f.Name, f.Column, err)
		}
		if err := f.Set(e, v); err != nil {
			return nil, ormerrors.FieldBinding(meta.Name, f.Name, f.Column, err)
		}
	}
	return e, nil
}

// MaterializeRows reads every row of rows into entities and closes rows
func MaterializeRows(meta *schema.Metadata, rows *sql.Rows) ([]schema.Model, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	index, err := columnIndex(meta, columns)
	if err != nil {
		return nil, err
	}

	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	var entities []schema.Model
	for rows.Next() {
		for i := range values {
			values[i] = nil
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}
		e, err := materialize(meta, index, values)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entities, nil
}
