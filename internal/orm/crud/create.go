package crud

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	ormerrors "github.com/crimson-games/bakuretsu/internal/orm/errors"
	"github.com/crimson-games/bakuretsu/internal/orm/schema"
)

// ErrUnresolvedGeneratedKey is the cause of a field binding error when the
// key generated by an insert cannot be assigned to the identifier
var ErrUnresolvedGeneratedKey = errors.New("generated key could not be assigned to the identifier")

// Insert inserts e and assigns the generated key to its identifier. Dialects
// with RETURNING read the key from the insert itself, the others use
// sql.Result.LastInsertId.
func (o *Operations) Insert(ctx context.Context, meta *schema.Metadata, e schema.Model) error {
	args := meta.InsertArgs(e)
	o.trace(meta, OperationInsert, meta.InsertSQL, args)

	var key any
	if meta.Dialect.Returning() {
		if err := o.db.QueryRowContext(ctx, meta.InsertSQL, args...).Scan(&key); err != nil {
			return ormerrors.QueryExecution(meta.Name, OperationInsert.String(), err)
		}
	} else {
		res, err := o.db.ExecContext(ctx, meta.InsertSQL, args...)
		if err != nil {
			return ormerrors.QueryExecution(meta.Name, OperationInsert.String(), err)
		}
		if id, err := res.LastInsertId(); err == nil {
			key = id
		}
	}

	if err := assignGeneratedKey(meta, e, key); err != nil {
		if o.strictKeys {
			return err
		}
		o.logger.Warn("generated key left unassigned",
			zap.String("entity", meta.Name),
			zap.Any("key", key),
			zap.Error(err))
		return nil
	}

	o.cache.Put(meta, meta.IDValue(e), e)
	return nil
}

// assignGeneratedKey stores a driver supplied key into the identifier of e.
// Numeric keys are coerced to integer identifiers and UUID keys, textual or
// binary, to UUID identifiers. A missing or zero key is unresolved.
func assignGeneratedKey(meta *schema.Metadata, e schema.Model, key any) error {
	id := meta.ID
	unresolved := func(cause error) error {
		if cause == nil {
			cause = ErrUnresolvedGeneratedKey
		} else {
			cause = fmt.Errorf("%w: %w", ErrUnresolvedGeneratedKey, cause)
		}
		return ormerrors.FieldBinding(meta.Name, id.Name, id.Column, cause)
	}

	if key == nil || schema.IsZeroID(key) {
		return unresolved(nil)
	}

	var (
		v   any
		err error
	)
	switch {
	case id.Type.IsInteger():
		v, err = Convert(key, id.Type)
	case id.Type == schema.TypeUUID:
		v, err = Convert(key, id.Type)
		if err == nil && v.(uuid.UUID) == uuid.Nil {
			return unresolved(nil)
		}
	case id.Type == schema.TypeString:
		v, err = Convert(key, id.Type)
	default:
		return unresolved(fmt.Errorf("identifier type %s has no generated key mapping", id.Type))
	}
	if err != nil {
		return unresolved(err)
	}
	if err := id.Set(e, v); err != nil {
		return unresolved(err)
	}
	return nil
}

