package outline

import (
	"strings"
)

// valueIndent is the per-level indentation of multi-line attribute values
// as stored in Attrs. Format re-expands it to the output style.
const valueIndent = "  "

// Format prints o in the given indentation style. Attributes come first,
// as ":name value" or, for multi-line values, ":name" followed by the
// value lines one level deeper. Children follow, each head on its own line
// with its body one level deeper. Empty heads print as empty lines
// carrying their indentation.
func Format(o *Outline, style Style) string {
	var b strings.Builder
	writeOutline(&b, o, 0, style.Unit())
	return b.String()
}

func writeOutline(b *strings.Builder, o *Outline, depth int, unit string) {
	indent := strings.Repeat(unit, depth)
	for name, value := range o.Attrs.All() {
		b.WriteString(indent)
		b.WriteByte(':')
		b.WriteString(name)
		switch {
		case value == "":
			b.WriteByte('\n')
		case strings.Contains(value, "\n"):
			b.WriteByte('\n')
			for _, line := range strings.Split(value, "\n") {
				if strings.TrimSpace(line) != "" {
					b.WriteString(indent)
					b.WriteString(unit)
					b.WriteString(reindent(line, unit))
				}
				b.WriteByte('\n')
			}
		default:
			b.WriteByte(' ')
			b.WriteString(value)
			b.WriteByte('\n')
		}
	}
	for i := range o.Children {
		s := &o.Children[i]
		if s.Head != "" {
			b.WriteString(indent)
			b.WriteString(s.Head)
		} else if depth > 0 {
			b.WriteString(indent)
		}
		b.WriteByte('\n')
		writeOutline(b, &s.Body, depth+1, unit)
	}
}

// FormatValue prints a multi-line attribute value on its own, one line per
// value line, with its nesting expressed in style.
func FormatValue(value string, style Style) string {
	var b strings.Builder
	unit := style.Unit()
	for _, line := range strings.Split(value, "\n") {
		if strings.TrimSpace(line) != "" {
			b.WriteString(reindent(line, unit))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// reindent replaces the leading two-space levels of line with unit.
func reindent(line, unit string) string {
	n := 0
	for strings.HasPrefix(line, valueIndent) {
		line = line[len(valueIndent):]
		n++
	}
	return strings.Repeat(unit, n) + line
}
