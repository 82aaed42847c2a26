package budget

// OrderedSet is an insertion-ordered set of node ids.
type OrderedSet struct {
	ids   []NodeID
	index map[NodeID]struct{}
}

// Add inserts id at the end of the set. It reports false when id was
// already present.
func (s *OrderedSet) Add(id NodeID) bool {
	if s.index == nil {
		s.index = make(map[NodeID]struct{})
	}
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

func (s *OrderedSet) Len() int {
	return len(s.ids)
}

// Items returns the ids in insertion order. The slice must not be modified.
func (s *OrderedSet) Items() []NodeID {
	return s.ids
}
