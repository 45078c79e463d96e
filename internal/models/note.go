// Package models defines the domain types for tissue.
package models

import (
	"encoding/json"
	"sort"
)

// Note is the unit of content stored as one file in the notebook.
type Note struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
	Tags  TagSet `json:"tags"`
}

// HasTag reports whether the note carries tag.
func (n Note) HasTag(tag string) bool {
	return n.Tags.Has(tag)
}

// Clone returns a copy that shares no tag storage with n.
func (n Note) Clone() Note {
	c := n
	c.Tags = n.Tags.Clone()
	return c
}

// TagSet is an unordered set of tag tokens.
type TagSet map[string]struct{}

// NewTagSet builds a set from the given tags.
func NewTagSet(tags ...string) TagSet {
	s := make(TagSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// Add inserts tag, allocating the set on first use.
func (s *TagSet) Add(tag string) {
	if *s == nil {
		*s = make(TagSet)
	}
	(*s)[tag] = struct{}{}
}

// Has reports membership.
func (s TagSet) Has(tag string) bool {
	_, ok := s[tag]
	return ok
}

// Clone returns an independent copy.
func (s TagSet) Clone() TagSet {
	if s == nil {
		return nil
	}
	c := make(TagSet, len(s))
	for t := range s {
		c[t] = struct{}{}
	}
	return c
}

// Sorted returns the tags in lexicographic order.
func (s TagSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s TagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array of tags.
func (s *TagSet) UnmarshalJSON(data []byte) error {
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	*s = NewTagSet(tags...)
	return nil
}

// Entry is an id/title pair used to show an operator which notes exist.
type Entry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// FileMeta describes one note file in the notebook directory.
type FileMeta struct {
	Name string `json:"name"`
}
