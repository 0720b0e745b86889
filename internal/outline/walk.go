package outline

import (
	"errors"
	"slices"
)

var (
	// SkipChildren is returned by a Walk or Transform callback to leave the
	// current section's body unvisited.
	SkipChildren = errors.New("skip children")
	// SkipAll is returned by a callback to end the traversal early. The
	// traversal itself then returns nil.
	SkipAll = errors.New("skip all")
)

// Cloner is implemented by contexts that need a deep copy when they are
// handed down to a child section. Contexts that do not implement it are
// copied by value.
type Cloner[C any] interface {
	Clone() C
}

func cloneCtx[C any](c C) C {
	if cl, ok := any(c).(Cloner[C]); ok {
		return cl.Clone()
	}
	return c
}

type frame[C any] struct {
	ctx  C
	body *Outline
	next int
}

// Walk visits every section of o in document order, depth first.
//
// Each section receives its own context: a clone of its parent's context as
// it stood after the parent's callback returned (init for top-level
// sections). Changes made through ctx are seen by the section's descendants
// and by nothing else. fn may edit s.Body; the edited body is what gets
// visited next.
func Walk[C any](o *Outline, init C, fn func(ctx *C, s *Section) error) error {
	stack := []*frame[C]{{ctx: init, body: o}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.body.Children) {
			stack = stack[:len(stack)-1]
			continue
		}
		s := &top.body.Children[top.next]
		top.next++

		child := &frame[C]{ctx: cloneCtx(top.ctx), body: &s.Body}
		switch err := fn(&child.ctx, s); {
		case errors.Is(err, SkipChildren):
			continue
		case errors.Is(err, SkipAll):
			return nil
		case err != nil:
			return err
		}
		stack = append(stack, child)
	}
	return nil
}

// Transform rewrites o in document order. fn receives each section and
// returns its replacement: nothing to remove it, one section to replace
// it, several to expand it. The bodies of the returned sections are then
// transformed in turn with the context fn left behind. Sections produced by
// fn are not passed to fn themselves, only their children are.
func Transform[C any](o *Outline, init C, fn func(ctx *C, s Section) ([]Section, error)) error {
	err := transform(o, init, fn)
	if errors.Is(err, SkipAll) {
		return nil
	}
	return err
}

func transform[C any](o *Outline, ctx C, fn func(ctx *C, s Section) ([]Section, error)) error {
	for i := 0; i < len(o.Children); {
		local := cloneCtx(ctx)
		out, err := fn(&local, o.Children[i])
		descend := true
		switch {
		case errors.Is(err, SkipChildren):
			descend = false
		case errors.Is(err, SkipAll):
			o.Children = slices.Replace(o.Children, i, i+1, out...)
			return err
		case err != nil:
			return err
		}
		o.Children = slices.Replace(o.Children, i, i+1, out...)
		if descend {
			for j := i; j < i+len(out); j++ {
				if err := transform(&o.Children[j].Body, cloneCtx(local), fn); err != nil {
					return err
				}
			}
		}
		i += len(out)
	}
	return nil
}
