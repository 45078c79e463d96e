package notebook

import (
	"sort"

	"github.com/starford/tissue/internal/models"
)

// idSet is a set of note identifiers.
type idSet map[string]struct{}

func (s idSet) clone() idSet {
	c := make(idSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

func (s idSet) sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// tagIndex maps each tag to the identifiers of the notes carrying it.
type tagIndex struct {
	byTag map[string]idSet
	// byID holds the tags currently recorded for each identifier so that a
	// purge does not have to scan every tag.
	byID map[string]models.TagSet
}

func newTagIndex() *tagIndex {
	return &tagIndex{
		byTag: make(map[string]idSet),
		byID:  make(map[string]models.TagSet),
	}
}

// reindex removes every edge pointing at id, then records tags for it.
func (x *tagIndex) reindex(id string, tags models.TagSet) {
	x.purge(id)
	for t := range tags {
		ids, ok := x.byTag[t]
		if !ok {
			ids = make(idSet)
			x.byTag[t] = ids
		}
		ids[id] = struct{}{}
	}
	x.byID[id] = tags.Clone()
}

// purge drops all edges of id. Tags left without identifiers are removed.
func (x *tagIndex) purge(id string) {
	for t := range x.byID[id] {
		ids := x.byTag[t]
		delete(ids, id)
		if len(ids) == 0 {
			delete(x.byTag, t)
		}
	}
	delete(x.byID, id)
}

// expand returns the identifiers tagged with tag. A tag with no entry expands
// to itself so that a raw identifier can be used as a one-element tag.
func (x *tagIndex) expand(tag string) idSet {
	if ids, ok := x.byTag[tag]; ok {
		return ids.clone()
	}
	return idSet{tag: {}}
}

func (x *tagIndex) tags() []string {
	out := make([]string, 0, len(x.byTag))
	for t := range x.byTag {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
