package outline

import (
	"maps"
	"slices"
)

// TagSet is a set of tag names. It implements Cloner so it can be used as
// a Walk context.
type TagSet map[string]struct{}

// NewTagSet returns a set holding tags.
func NewTagSet(tags ...string) TagSet {
	t := TagSet{}
	t.Add(tags...)
	return t
}

func (t TagSet) Add(tags ...string) {
	for _, tag := range tags {
		t[tag] = struct{}{}
	}
}

func (t TagSet) Has(tag string) bool {
	_, ok := t[tag]
	return ok
}

// HasAll reports whether every one of tags is in the set.
func (t TagSet) HasAll(tags []string) bool {
	for _, tag := range tags {
		if !t.Has(tag) {
			return false
		}
	}
	return true
}

func (t TagSet) Clone() TagSet { return maps.Clone(t) }

// Sorted returns the tags in lexical order.
func (t TagSet) Sorted() []string {
	return slices.Sorted(maps.Keys(t))
}

// Tags reads the "tags" attribute of o.
func Tags(o *Outline) ([]string, error) {
	tags, _, err := Get(o, "tags", Words)
	return tags, err
}

// Tags reads the "tags" attribute of the section's body.
func (s *Section) Tags() ([]string, error) {
	return Tags(&s.Body)
}

// WalkTags walks o with tag inheritance. fn receives each section together
// with its effective tags: the tags inherited from enclosing outlines plus
// the section's own. A section whose head is a WikiWord also passes the
// kebab-cased title down to its descendants. A malformed tags attribute
// stops the walk with a *DecodeError.
func WalkTags(o *Outline, fn func(tags TagSet, s *Section) error) error {
	root, err := Tags(o)
	if err != nil {
		return err
	}
	return Walk(o, NewTagSet(root...), func(ctx *TagSet, s *Section) error {
		own, err := s.Tags()
		if err != nil {
			return err
		}
		ctx.Add(own...)
		if err := fn(*ctx, s); err != nil {
			return err
		}
		if title, ok := s.WikiTitle(); ok {
			ctx.Add(CamelToKebab(title))
		}
		return nil
	})
}

// Tagged selects the sections of o that carry tags of their own and whose
// effective tags include every one of search. With flatten the matches are
// returned as a flat list; otherwise the original structure is kept, pruned
// to the branches that lead to a match. Matching sections are copied whole
// and not searched further unless flattening.
func Tagged(o *Outline, search []string, flatten bool) (*Outline, error) {
	out := &Outline{}
	if flatten {
		err := WalkTags(o, func(tags TagSet, s *Section) error {
			if ok, err := isMatch(tags, s, search); err != nil || !ok {
				return err
			}
			out.Push(s.Clone())
			return nil
		})
		return out, err
	}
	inherited, err := Tags(o)
	if err != nil {
		return nil, err
	}
	if err := prune(out, o, NewTagSet(inherited...), search); err != nil {
		return nil, err
	}
	return out, nil
}

func isMatch(tags TagSet, s *Section, search []string) (bool, error) {
	own, err := s.Tags()
	if err != nil || len(own) == 0 {
		return false, err
	}
	return tags.HasAll(search), nil
}

func prune(dst, src *Outline, inherited TagSet, search []string) error {
	for i := range src.Children {
		s := &src.Children[i]
		own, err := s.Tags()
		if err != nil {
			return err
		}
		tags := inherited.Clone()
		tags.Add(own...)
		if len(own) > 0 && tags.HasAll(search) {
			dst.Push(s.Clone())
			continue
		}
		if title, ok := s.WikiTitle(); ok {
			tags.Add(CamelToKebab(title))
		}
		var body Outline
		if err := prune(&body, &s.Body, tags, search); err != nil {
			return err
		}
		if len(body.Children) > 0 {
			dst.Push(Section{Head: s.Head, Body: body})
		}
	}
	return nil
}
