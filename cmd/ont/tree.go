package main

import (
	"io"
	"strings"

	"github.com/ddddddO/gtree"

	"github.com/starford/ont/internal/outline"
)

// renderTree draws o below a root labelled label. Sibling sections with
// identical heads share one node.
func renderTree(w io.Writer, label string, o *outline.Outline, attrs bool) error {
	root := gtree.NewRoot(label)
	addOutline(root, o, attrs)
	return gtree.OutputFromRoot(w, root)
}

func addOutline(node *gtree.Node, o *outline.Outline, attrs bool) {
	if attrs {
		for name, value := range o.Attrs.All() {
			first, _, _ := strings.Cut(value, "\n")
			node.Add(":" + name + " " + first)
		}
	}
	for i := range o.Children {
		s := &o.Children[i]
		addOutline(node.Add(s.Head), &s.Body, attrs)
	}
}
