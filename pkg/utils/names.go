package utils

import "strings"

// NameDelimiter separates entity names inside a legacy taxonomy field.
const NameDelimiter = ","

// NameSet is an insertion-ordered set of entity names. Names are compared
// case-insensitively; the first spelling added is the one kept.
type NameSet struct {
	names []string
	seen  map[string]struct{}
}

// NewNameSet returns an empty set.
func NewNameSet() *NameSet {
	return &NameSet{seen: make(map[string]struct{})}
}

// Add trims name and inserts it. Blank names and names already present
// (ignoring case) are rejected.
func (s *NameSet) Add(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	key := FoldName(name)
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	s.names = append(s.names, name)
	return true
}

// AddText splits a delimited field and adds every segment.
func (s *NameSet) AddText(text string) {
	for _, part := range strings.Split(text, NameDelimiter) {
		s.Add(part)
	}
}

// Contains reports whether name is in the set, ignoring case.
func (s *NameSet) Contains(name string) bool {
	_, ok := s.seen[FoldName(name)]
	return ok
}

// Len returns the number of names.
func (s *NameSet) Len() int { return len(s.names) }

// Names returns the names in first-seen order.
func (s *NameSet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// ParseNames turns a delimited legacy field into its set of names:
// segments are trimmed, blank segments dropped and duplicates collapsed.
// A nil or empty field yields an empty slice.
func ParseNames(text *string) []string {
	if text == nil {
		return []string{}
	}
	set := NewNameSet()
	set.AddText(*text)
	return set.Names()
}

// FoldName is the key under which two spellings of a name are considered equal.
func FoldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
