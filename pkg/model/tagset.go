package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
)

// TagSet is a sorted, duplicate free set of class tags stored as a JSON text column.
type TagSet []string

func NewTagSet(tags ...string) TagSet {
	s := TagSet{}
	for _, t := range tags {
		if t == "" {
			continue
		}
		s = append(s, t)
	}
	slices.Sort(s)
	return slices.Compact(s)
}

func (s TagSet) Has(tag string) bool {
	_, ok := slices.BinarySearch(s, tag)
	return ok
}

func (s TagSet) Union(other TagSet) TagSet {
	merged := make([]string, 0, len(s)+len(other))
	merged = append(merged, s...)
	merged = append(merged, other...)
	return NewTagSet(merged...)
}

func (s TagSet) Intersects(other TagSet) bool {
	for _, t := range other {
		if s.Has(t) {
			return true
		}
	}
	return false
}

func (s TagSet) Equal(other TagSet) bool {
	return slices.Equal(s, other)
}

func (s *TagSet) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*s = TagSet{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("failed to convert %v to []byte", value)
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return err
	}
	*s = NewTagSet(tags...)
	return nil
}

func (s TagSet) Value() (driver.Value, error) {
	if s == nil {
		s = TagSet{}
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
