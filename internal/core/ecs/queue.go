package ecs

// pendingSet is an insertion-ordered set of holders waiting for Resolve.
type pendingSet[T comparable] struct {
	items []T
	seen  map[T]struct{}
}

// add reports whether v was not already queued.
func (s *pendingSet[T]) add(v T) bool {
	if _, ok := s.seen[v]; ok {
		return false
	}
	if s.seen == nil {
		s.seen = make(map[T]struct{})
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

func (s *pendingSet[T]) len() int {
	return len(s.items)
}

// drain empties the set and returns its contents in insertion order.
func (s *pendingSet[T]) drain() []T {
	out := s.items
	s.items = nil
	s.seen = nil
	return out
}
