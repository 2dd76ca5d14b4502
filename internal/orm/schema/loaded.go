package schema

// LoadTracker is implemented by entities that remember which relations have
// been loaded. A single relation with no match leaves its field nil, which
// looks unloaded; tracked entities are not fetched for it again.
type LoadTracker interface {
	MarkLoaded(relation string)
	RelationLoaded(relation string) bool
}

// RelationState implements LoadTracker for the entity embedding it. The
// zero value tracks nothing. Like the relation fields it guards, it is not
// safe for concurrent loads of the same entity.
//
//	type Character struct {
//		schema.RelationState
//		...
//	}
type RelationState struct {
	loaded map[string]struct{}
}

// MarkLoaded records relation as loaded
func (s *RelationState) MarkLoaded(relation string) {
	if s.loaded == nil {
		s.loaded = make(map[string]struct{})
	}
	s.loaded[relation] = struct{}{}
}

// RelationLoaded reports whether relation has been loaded
func (s *RelationState) RelationLoaded(relation string) bool {
	_, ok := s.loaded[relation]
	return ok
}

// ResetLoaded forgets every loaded relation so the next load fetches again.
// Relation fields keep their values until they are overwritten.
func (s *RelationState) ResetLoaded() {
	s.loaded = nil
}
