package schema

// Keys names the columns a relation resolves through. Which keys are
// required depends on the relation kind:
//
//	HasMany        ForeignKey on the related type; LocalKey defaults to the id
//	BelongsTo      LocalKey on this type; ForeignKey defaults to the related id
//	HasOne         ForeignKey on the related type; LocalKey defaults to the id
//	BelongsToMany  JoinTable, JoinForeignKey and JoinRelatedKey
type Keys struct {
	ForeignKey     string
	LocalKey       string
	JoinTable      string
	JoinForeignKey string
	JoinRelatedKey string
}

// Relation describes a relation field of an entity type. Relations are
// built with HasMany, BelongsTo, HasOne and BelongsToMany, which capture
// typed accessors for the field holding the related entities.
type Relation struct {
	Name string
	Kind RelationKind
	Keys

	newRelated func() Model
	loaded     func(Model) bool
	attach     func(Model, []Model)
	attached   func(Model) []Model

	// resolved during derivation
	related         string
	relatedTable    string
	relatedIDColumn string
}

// HasMany declares a one-to-many relation: children whose ForeignKey
// column equals the parent's LocalKey.
func HasMany[P any, C any, PC interface {
	*C
	Model
}](name string, keys Keys, field func(*P) *[]*C) Relation {
	return Relation{
		Name:       name,
		Kind:       OneToMany,
		Keys:       keys,
		newRelated: func() Model { return PC(new(C)) },
		loaded:     manyLoaded(field),
		attach:     manyAttach(field),
		attached:   manyAttached(field),
	}
}

// BelongsTo declares a many-to-one relation: the single parent whose
// ForeignKey column equals this entity's LocalKey.
func BelongsTo[P any, R any, PR interface {
	*R
	Model
}](name string, keys Keys, field func(*P) **R) Relation {
	return Relation{
		Name:       name,
		Kind:       ManyToOne,
		Keys:       keys,
		newRelated: func() Model { return PR(new(R)) },
		loaded:     oneLoaded(field),
		attach:     oneAttach(field),
		attached:   oneAttached(field),
	}
}

// HasOne declares a one-to-one relation: the single related entity whose
// ForeignKey column equals this entity's LocalKey.
func HasOne[P any, R any, PR interface {
	*R
	Model
}](name string, keys Keys, field func(*P) **R) Relation {
	return Relation{
		Name:       name,
		Kind:       OneToOne,
		Keys:       keys,
		newRelated: func() Model { return PR(new(R)) },
		loaded:     oneLoaded(field),
		attach:     oneAttach(field),
		attached:   oneAttached(field),
	}
}

// BelongsToMany declares a many-to-many relation through a join table
// holding (JoinForeignKey, JoinRelatedKey) pairs.
func BelongsToMany[P any, R any, PR interface {
	*R
	Model
}](name string, keys Keys, field func(*P) *[]*R) Relation {
	return Relation{
		Name:       name,
		Kind:       ManyToMany,
		Keys:       keys,
		newRelated: func() Model { return PR(new(R)) },
		loaded:     manyLoaded(field),
		attach:     manyAttach(field),
		attached:   manyAttached(field),
	}
}

// NewRelated returns a zero instance of the related type
func (r *Relation) NewRelated() Model {
	return r.newRelated()
}

// Related returns the related entity type name
func (r *Relation) Related() string {
	return r.related
}

// RelatedTable returns the related entity's table
func (r *Relation) RelatedTable() string {
	return r.relatedTable
}

// RelatedIDColumn returns the identifier column of the related type
func (r *Relation) RelatedIDColumn() string {
	return r.relatedIDColumn
}

// Loaded reports whether the relation field of m is already populated, or
// m is a LoadTracker that has seen the relation attached
func (r *Relation) Loaded(m Model) bool {
	if r.loaded(m) {
		return true
	}
	t, ok := m.(LoadTracker)
	return ok && t.RelationLoaded(r.Name)
}

// Attach sets the relation field of m. Single relations take the first
// entity or nil; many relations always receive a non-nil slice.
func (r *Relation) Attach(m Model, related []Model) {
	r.attach(m, related)
	if t, ok := m.(LoadTracker); ok {
		t.MarkLoaded(r.Name)
	}
}

// Attached returns the entities currently held by the relation field of m
func (r *Relation) Attached(m Model) []Model {
	return r.attached(m)
}

func manyLoaded[P, C any](field func(*P) *[]*C) func(Model) bool {
	return func(m Model) bool {
		return *field(any(m).(*P)) != nil
	}
}

func manyAttach[P, C any](field func(*P) *[]*C) func(Model, []Model) {
	return func(m Model, related []Model) {
		out := make([]*C, 0, len(related))
		for _, e := range related {
			out = append(out, any(e).(*C))
		}
		*field(any(m).(*P)) = out
	}
}

func manyAttached[P, C any](field func(*P) *[]*C) func(Model) []Model {
	return func(m Model) []Model {
		children := *field(any(m).(*P))
		out := make([]Model, 0, len(children))
		for _, c := range children {
			out = append(out, any(c).(Model))
		}
		return out
	}
}

func oneLoaded[P, R any](field func(*P) **R) func(Model) bool {
	return func(m Model) bool {
		return *field(any(m).(*P)) != nil
	}
}

func oneAttach[P, R any](field func(*P) **R) func(Model, []Model) {
	return func(m Model, related []Model) {
		if len(related) == 0 {
			*field(any(m).(*P)) = nil
			return
		}
		*field(any(m).(*P)) = any(related[0]).(*R)
	}
}

func oneAttached[P, R any](field func(*P) **R) func(Model) []Model {
	return func(m Model) []Model {
		r := *field(any(m).(*P))
		if r == nil {
			return nil
		}
		return []Model{any(r).(Model)}
	}
}
