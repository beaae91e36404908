package adviser

import "slices"

// IDSet is an unordered set of adviser IDs.
type IDSet map[ID]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...ID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id.
func (s IDSet) Add(id ID) { s[id] = struct{}{} }

// Has reports membership. A nil set contains nothing.
func (s IDSet) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

// Len returns the set size.
func (s IDSet) Len() int { return len(s) }

// Sorted returns the members in ascending order.
func (s IDSet) Sorted() []ID {
	out := make([]ID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
