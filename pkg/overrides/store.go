package overrides

import (
	"slices"
)

// Store indexes rules by crate and by action.
type Store struct {
	byCrate map[string][]Rule
	crates  []string
}

// NewStore builds a store over rules. The slice is copied.
func NewStore(rules []Rule) *Store {
	s := &Store{byCrate: make(map[string][]Rule)}
	for _, r := range rules {
		if _, ok := s.byCrate[r.Crate]; !ok {
			s.crates = append(s.crates, r.Crate)
		}
		r.Features = slices.Clone(r.Features)
		s.byCrate[r.Crate] = append(s.byCrate[r.Crate], r)
	}
	slices.Sort(s.crates)
	return s
}

// Rules returns every rule of the given action, in crate order.
func (s *Store) Rules(action Action) []Rule {
	var out []Rule
	for _, name := range s.crates {
		for _, r := range s.byCrate[name] {
			if r.Action == action {
				out = append(out, r)
			}
		}
	}
	return out
}

// For returns the rules attached to one crate.
func (s *Store) For(crate string) []Rule {
	return slices.Clone(s.byCrate[crate])
}

// Crates lists the crates that carry at least one rule, sorted.
func (s *Store) Crates() []string {
	return slices.Clone(s.crates)
}

// Len returns the total number of rules.
func (s *Store) Len() int {
	n := 0
	for _, rs := range s.byCrate {
		n += len(rs)
	}
	return n
}
