package member

import (
	"encoding/json"
	"strings"
)

// SkillSet is an ordered set of skill names with case-insensitive
// equality. The first spelling added is the one kept for display.
type SkillSet struct {
	items []string
}

// NewSkillSet trims every value and drops case-insensitive duplicates.
// An empty (or whitespace only) value is rejected.
func NewSkillSet(values ...string) (SkillSet, error) {
	var s SkillSet
	for _, v := range values {
		if _, err := s.add(v); err != nil {
			return SkillSet{}, err
		}
	}
	return s, nil
}

func (s *SkillSet) add(value string) (bool, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return false, ErrEmptySkill
	}
	if s.Contains(v) {
		return false, nil
	}
	s.items = append(s.items, v)
	return true, nil
}

// With returns a copy of the set with value added, and whether it was new.
func (s SkillSet) With(value string) (SkillSet, bool, error) {
	next := SkillSet{items: s.Values()}
	added, err := next.add(value)
	if err != nil {
		return s, false, err
	}
	return next, added, nil
}

// Contains reports whether value is in the set, ignoring case and
// surrounding whitespace.
func (s SkillSet) Contains(value string) bool {
	_, ok := s.Lookup(value)
	return ok
}

// Lookup returns the stored spelling of value.
func (s SkillSet) Lookup(value string) (string, bool) {
	v := strings.TrimSpace(value)
	for _, item := range s.items {
		if strings.EqualFold(item, v) {
			return item, true
		}
	}
	return "", false
}

// FindContaining returns the first element whose text contains needle,
// case-insensitively.
func (s SkillSet) FindContaining(needle string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(needle))
	if n == "" {
		return "", false
	}
	for _, item := range s.items {
		if strings.Contains(strings.ToLower(item), n) {
			return item, true
		}
	}
	return "", false
}

// Values returns a copy of the elements in insertion order.
func (s SkillSet) Values() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

func (s SkillSet) Len() int { return len(s.items) }

func (s SkillSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

func (s *SkillSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	set, err := NewSkillSet(raw...)
	if err != nil {
		return err
	}
	*s = set
	return nil
}
