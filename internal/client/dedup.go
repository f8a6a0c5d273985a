package client

import "sync"

const defaultDedupCapacity = 4096

// idSet remembers the most recent ids, forgetting the oldest first.
type idSet struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
	max   int
}

func newIDSet(max int) *idSet {
	if max <= 0 {
		max = defaultDedupCapacity
	}
	return &idSet{seen: make(map[string]struct{}, max), max: max}
}

// add records id and reports whether it was new.
func (s *idSet) add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
	if len(s.order) > s.max {
		evict := s.order[0]
		s.order = s.order[1:]
		delete(s.seen, evict)
	}
	return true
}
