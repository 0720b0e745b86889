package weave

import (
	"regexp"
	"strings"

	"github.com/starford/ont/internal/checksum"
	"github.com/starford/ont/internal/outline"
)

const (
	// ScriptMarker starts the head of a script section.
	ScriptMarker = ">"
	// OutputMarker is the head of the section that receives script output.
	OutputMarker = "=="
	// InputAttr holds the recorded hashes of a script. The first entry is
	// the hash of the script itself.
	InputAttr = "input"
	// Anonymous is the script path that materialises under the script hash.
	Anonymous = "-"
)

var scriptPath = regexp.MustCompile(`^[A-Za-z0-9_-][.A-Za-z0-9_/-]*$`)

// ScriptPath returns the relative path named by a script head.
func ScriptPath(head string) (string, bool) {
	p, ok := strings.CutPrefix(strings.TrimSpace(head), ScriptMarker)
	if !ok {
		return "", false
	}
	if strings.ContainsAny(p, " \t\r\n") || strings.Contains(p, "..") || strings.HasPrefix(p, "/") {
		return "", false
	}
	if !scriptPath.MatchString(p) {
		return "", false
	}
	return p, true
}

// Hash identifies a script by its path and its text.
func Hash(path, text string) string {
	return checksum.Digest(path, text)
}

// script is one discovered script section.
type script struct {
	parent *outline.Outline
	index  int

	path     string
	text     string
	hash     string
	changed  bool
	runnable bool

	// outputs are the output sections the script sits inside, outermost
	// first.
	outputs []*outline.Section
}

// replacedBy reports whether one of the output sections enclosing the
// script has had its body replaced, which detaches the script from the
// document.
func (s *script) replacedBy(replaced map[*outline.Section]bool) bool {
	for _, out := range s.outputs {
		if replaced[out] {
			return true
		}
	}
	return false
}

// section returns the script section in its parent.
func (s *script) section() *outline.Section {
	return &s.parent.Children[s.index]
}

// output returns the output marker section right after the script, if any.
func (s *script) output() *outline.Section {
	next := s.index + 1
	if next < len(s.parent.Children) && s.parent.Children[next].Head == OutputMarker {
		return &s.parent.Children[next]
	}
	return nil
}

// file is the name the script is materialised under.
func (s *script) file() string {
	if s.path == Anonymous {
		return s.hash
	}
	return s.path
}

// newScript reads the script at parent.Children[i]. Sections that are not
// scripts, or whose text is empty, yield false.
func newScript(parent *outline.Outline, i int, style outline.Style) (*script, bool, error) {
	sec := &parent.Children[i]
	p, ok := ScriptPath(sec.Head)
	if !ok {
		return nil, false, nil
	}
	text := outline.Format(&outline.Outline{Children: sec.Body.Children}, style)
	if strings.TrimSpace(text) == "" {
		return nil, false, nil
	}
	input, _, err := outline.Get(&sec.Body, InputAttr, outline.Words)
	if err != nil {
		return nil, false, err
	}

	s := &script{
		parent:   parent,
		index:    i,
		path:     p,
		text:     text,
		hash:     Hash(p, text),
		runnable: strings.HasPrefix(text, "#!"),
	}
	s.changed = len(input) == 0 || input[0] != s.hash
	return s, true, nil
}
