package index

import (
	"path"
	"slices"

	"github.com/starford/ont/internal/collection"
	"github.com/starford/ont/internal/models"
	"github.com/starford/ont/internal/outline"
)

// walkCtx is what a section inherits from the sections enclosing it.
type walkCtx struct {
	dir   string // collection directory, "" at the root
	file  string // file holding the section, "" while still in directories
	depth int
	trail []string
	tags  outline.TagSet
}

func (c walkCtx) Clone() walkCtx {
	c.trail = slices.Clone(c.trail)
	c.tags = c.tags.Clone()
	return c
}

// Extract flattens a collection tree into index rows. Directory sections
// are not rows themselves but pass their tags and trail on; the first
// section below them is a file, numbered from zero with its content in
// document order. ext is the conventional extension the tree was read
// with.
func Extract(tree *outline.Outline, ext string) ([]models.Section, error) {
	root, err := outline.Tags(tree)
	if err != nil {
		return nil, err
	}
	var out []models.Section
	ords := make(map[string]int)

	err = outline.Walk(tree, walkCtx{tags: outline.NewTagSet(root...)}, func(ctx *walkCtx, s *outline.Section) error {
		own, err := s.Tags()
		if err != nil {
			return err
		}
		ctx.tags.Add(own...)

		if ctx.file == "" {
			e, ok, err := collection.EntryFor(s.Head, ext)
			if err != nil {
				return err
			}
			if !ok {
				return outline.SkipChildren
			}
			if e.Dir {
				ctx.dir = path.Join(ctx.dir, e.Name)
				ctx.trail = append(ctx.trail, s.Head)
				inheritTitle(ctx, s)
				return nil
			}
			ctx.file = path.Join(ctx.dir, e.Name)
		}

		uris, err := s.Body.URIs()
		if err != nil {
			return err
		}
		out = append(out, models.Section{
			File:      ctx.file,
			Ord:       ords[ctx.file],
			Depth:     ctx.depth,
			Head:      s.Head,
			Trail:     slices.Clone(ctx.trail),
			Tags:      ctx.tags.Sorted(),
			OwnTags:   own,
			URIs:      uris,
			Important: s.IsImportant(),
			Body:      attrText(&s.Body),
		})
		ords[ctx.file]++

		ctx.depth++
		ctx.trail = append(ctx.trail, s.Head)
		inheritTitle(ctx, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// inheritTitle passes a WikiWord head on to descendants as a kebab tag.
func inheritTitle(ctx *walkCtx, s *outline.Section) {
	if title, ok := s.WikiTitle(); ok {
		ctx.tags.Add(outline.CamelToKebab(title))
	}
}

// attrText renders the attribute block of o, which is all of a section's
// own text besides its head.
func attrText(o *outline.Outline) string {
	if o.Attrs.Len() == 0 {
		return ""
	}
	return outline.Format(&outline.Outline{Attrs: o.Attrs.Clone()}, outline.DefaultStyle())
}
