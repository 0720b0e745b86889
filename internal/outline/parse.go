package outline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/ont/internal/apperr"
)

// ParseError reports the line at which a document stopped making sense.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("outline: line %d: %s", e.Line, e.Msg)
}

func (e *ParseError) Unwrap() error { return apperr.ErrParse }

var attrLine = regexp.MustCompile(`^:([^\s/]+)(?: (.*))?$`)

type line struct {
	ws    string
	text  string
	blank bool
	depth int
}

// InferStyle returns the indentation style of the first indented line in
// text. ok is false when no line is indented.
func InferStyle(text string) (style Style, ok bool, err error) {
	for i, raw := range splitLines(text) {
		ws, rest := splitIndent(raw)
		if ws == "" || rest == "" {
			continue
		}
		switch {
		case strings.Trim(ws, "\t") == "":
			return Tabs, true, nil
		case strings.Trim(ws, " ") == "":
			return Spaces(len(ws)), true, nil
		default:
			return Style{}, false, &ParseError{Line: i + 1, Msg: "indentation mixes tabs and spaces"}
		}
	}
	return DefaultStyle(), false, nil
}

// Parse reads an outline document and reports the indentation style it
// was written in. It is the inverse of Format.
func Parse(text string) (*Outline, Style, error) {
	style, _, err := InferStyle(text)
	if err != nil {
		return nil, Style{}, err
	}
	p := &parser{unit: style.Unit()}
	p.scan(splitLines(text))
	o, err := p.block(0)
	if err != nil {
		return nil, Style{}, err
	}
	return o, style, nil
}

type parser struct {
	unit  string
	lines []line
	pos   int
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func splitIndent(s string) (ws, rest string) {
	rest = strings.TrimLeft(s, " \t")
	return s[:len(s)-len(rest)], rest
}

// floorDepth counts the whole indentation units that prefix ws.
func (p *parser) floorDepth(ws string) int {
	n := 0
	for strings.HasPrefix(ws, p.unit) {
		ws = ws[len(p.unit):]
		n++
	}
	return n
}

// scan splits the raw lines and assigns every line a depth. Blank lines
// take the depth of their own whitespace when they have any, otherwise the
// depth of the next non-blank line; either way at most one level below the
// line before them.
func (p *parser) scan(raw []string) {
	p.lines = make([]line, len(raw))
	for i, r := range raw {
		ws, rest := splitIndent(r)
		p.lines[i] = line{ws: ws, text: rest, blank: rest == "", depth: p.floorDepth(ws)}
	}
	prev := -1
	for i := range p.lines {
		l := &p.lines[i]
		if l.blank {
			d := 0
			if l.ws != "" {
				d = p.floorDepth(l.ws)
			} else {
				for j := i + 1; j < len(p.lines); j++ {
					if !p.lines[j].blank {
						d = p.lines[j].depth
						break
					}
				}
			}
			l.depth = min(d, prev+1)
		}
		prev = l.depth
	}
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Line: p.pos + 1, Msg: fmt.Sprintf(format, args...)}
}

// exact checks that a structural line is indented with whole units only.
func (p *parser) exact(l line) error {
	if l.blank {
		return nil
	}
	if strings.Repeat(p.unit, l.depth) != l.ws {
		if strings.Contains(l.ws, "\t") && strings.Contains(l.ws, " ") {
			return p.errorf("indentation mixes tabs and spaces")
		}
		return p.errorf("indentation is not a multiple of %q", p.unit)
	}
	return nil
}

func (p *parser) block(depth int) (*Outline, error) {
	o := &Outline{}
	attrs := true
	for p.pos < len(p.lines) {
		l := p.lines[p.pos]
		if l.depth < depth {
			break
		}
		if err := p.exact(l); err != nil {
			return nil, err
		}
		if l.depth > depth {
			if !l.blank {
				return nil, p.errorf("unexpected indentation")
			}
			l.depth = depth
		}
		if attrs && !l.blank {
			if m := attrLine.FindStringSubmatch(l.text); m != nil {
				p.pos++
				if strings.Contains(l.text, " ") {
					o.Attrs.Set(m[1], m[2])
				} else {
					o.Attrs.Set(m[1], p.value(depth))
				}
				continue
			}
		}
		attrs = false
		p.pos++
		body, err := p.block(depth + 1)
		if err != nil {
			return nil, err
		}
		o.Children = append(o.Children, Section{Head: l.text, Body: *body})
	}
	return o, nil
}

// value collects the lines of a multi-line attribute value declared at
// depth, normalising their relative indentation to two spaces per level.
func (p *parser) value(depth int) string {
	prefix := strings.Repeat(p.unit, depth+1)
	var out []string
	for p.pos < len(p.lines) {
		l := p.lines[p.pos]
		if l.depth <= depth {
			break
		}
		p.pos++
		if l.blank {
			out = append(out, "")
			continue
		}
		ws, ok := strings.CutPrefix(l.ws, prefix)
		if !ok {
			ws = ""
		}
		n := p.floorDepth(ws)
		out = append(out, strings.Repeat(valueIndent, n)+ws[n*len(p.unit):]+l.text)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
