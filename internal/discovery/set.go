package discovery

// OrderedSet is a deduplicated string set preserving insertion order, used
// for candidate URL collection so batch slicing stays deterministic.
type OrderedSet struct {
	seen  map[string]bool
	items []string
}

// NewOrderedSet creates an empty set.
func NewOrderedSet() *OrderedSet {
	return &OrderedSet{seen: make(map[string]bool)}
}

// Add appends item unless already present. Reports whether it was added.
func (s *OrderedSet) Add(item string) bool {
	if item == "" || s.seen[item] {
		return false
	}
	s.seen[item] = true
	s.items = append(s.items, item)
	return true
}

// Contains reports membership.
func (s *OrderedSet) Contains(item string) bool {
	return s.seen[item]
}

// Len returns the number of items.
func (s *OrderedSet) Len() int {
	return len(s.items)
}

// Items returns the items in insertion order.
func (s *OrderedSet) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}
