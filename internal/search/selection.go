package search

import "bitbucket.org/creachadair/stringset"

// selection is the set of raw result ids picked for saving.
type selection struct {
	ids stringset.Set
}

func newSelection() selection {
	return selection{ids: make(stringset.Set)}
}

func (s *selection) reset() { s.ids = make(stringset.Set) }

// add reports whether id was newly added.
func (s *selection) add(id string) bool {
	if s.ids.Contains(id) {
		return false
	}
	s.ids.Add(id)
	return true
}

// remove reports whether id was present.
func (s *selection) remove(id string) bool { return s.ids.Discard(id) }

func (s *selection) has(id string) bool { return s.ids.Contains(id) }

func (s *selection) len() int { return len(s.ids) }

// elements returns the members in sorted order.
func (s *selection) elements() []string { return s.ids.Elements() }

// retain drops every member for which keep returns false.
func (s *selection) retain(keep func(id string) bool) int {
	dropped := 0
	for _, id := range s.ids.Elements() {
		if !keep(id) {
			s.ids.Discard(id)
			dropped++
		}
	}
	return dropped
}
