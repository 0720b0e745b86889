// Package outline models indentation-structured outline documents.
//
// An Outline is an ordered list of attributes followed by an ordered list
// of child Sections; every Section is a one-line headline with a nested
// Outline body. Parse and Format convert between text and the tree, Walk
// and Transform traverse it with a per-branch context.
package outline

import (
	"strings"
)

// Outline is a block of attributes and child sections.
type Outline struct {
	Attrs    Attrs
	Children []Section
}

// Section is a headline plus its indented body. Head never contains a
// newline.
type Section struct {
	Head string
	Body Outline
}

// New builds an outline from the given children.
func New(children ...Section) *Outline {
	return &Outline{Children: children}
}

// NewSection returns a section with the given head and body. It panics if
// head spans more than one line.
func NewSection(head string, body Outline) Section {
	if strings.ContainsAny(head, "\r\n") {
		panic("outline: section head must be a single line: " + head)
	}
	return Section{Head: head, Body: body}
}

// Leaf returns a section with no body.
func Leaf(head string) Section {
	return NewSection(head, Outline{})
}

// IsEmpty reports whether o has neither attributes nor children.
func (o *Outline) IsEmpty() bool {
	return o.Attrs.Len() == 0 && len(o.Children) == 0
}

// Push appends a section.
func (o *Outline) Push(s Section) {
	o.Children = append(o.Children, s)
}

// PushLine appends a leaf section with the given head.
func (o *Outline) PushLine(head string) {
	o.Push(Leaf(head))
}

// Attr returns the raw value of the named attribute.
func (o *Outline) Attr(name string) (string, bool) {
	return o.Attrs.Get(name)
}

// SetAttr stores a raw attribute value.
func (o *Outline) SetAttr(name, value string) {
	o.Attrs.Set(name, value)
}

// Clone returns a deep copy of o.
func (o *Outline) Clone() *Outline {
	c := o.clone()
	return &c
}

func (o *Outline) clone() Outline {
	c := Outline{Attrs: o.Attrs.Clone()}
	if o.Children != nil {
		c.Children = make([]Section, len(o.Children))
		for i := range o.Children {
			c.Children[i] = o.Children[i].Clone()
		}
	}
	return c
}

// Clone returns a deep copy of s.
func (s Section) Clone() Section {
	return Section{Head: s.Head, Body: s.Body.clone()}
}

// Equal reports whether a and b are structurally identical.
func Equal(a, b *Outline) bool {
	if !a.Attrs.Equal(&b.Attrs) || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if a.Children[i].Head != b.Children[i].Head {
			return false
		}
		if !Equal(&a.Children[i].Body, &b.Children[i].Body) {
			return false
		}
	}
	return true
}

// String formats o with two-space indentation.
func (o *Outline) String() string {
	return Format(o, DefaultStyle())
}

// URIs returns the "uri" attribute followed by the entries of the
// "sequence" attribute. It is empty when "uri" is absent.
func (o *Outline) URIs() ([]string, error) {
	uri, ok := o.Attr("uri")
	if !ok {
		return nil, nil
	}
	uris := []string{uri}
	seq, _, err := Get(o, "sequence", Words)
	if err != nil {
		return nil, err
	}
	return append(uris, seq...), nil
}

// IsImportant reports whether the head is marked with a trailing " *".
func (s *Section) IsImportant() bool {
	_, ok := Important(s.Head)
	return ok
}

// Title returns the head without its importance marker.
func (s *Section) Title() string {
	if t, ok := Important(s.Head); ok {
		return t
	}
	return s.Head
}

// WikiTitle returns the head as a WikiWord, ignoring the importance
// marker, if it is one.
func (s *Section) WikiTitle() (string, bool) {
	return WikiWord(s.Title())
}
