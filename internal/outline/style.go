package outline

import (
	"fmt"
	"strconv"
	"strings"
)

// Style is the indentation style of a document: tabs, or a fixed number
// of spaces per level. The zero value behaves as Spaces(2).
type Style struct {
	tabs  bool
	width int
}

// Tabs indents one tab character per level.
var Tabs = Style{tabs: true}

// Spaces indents n spaces per level.
func Spaces(n int) Style {
	if n <= 0 {
		n = 2
	}
	return Style{width: n}
}

// DefaultStyle is used when a document has no indented lines to infer from.
func DefaultStyle() Style { return Spaces(2) }

// IsTabs reports whether s indents with tabs.
func (s Style) IsTabs() bool { return s.tabs }

// Width returns the number of spaces per level, or 1 for tabs.
func (s Style) Width() int {
	if s.tabs {
		return 1
	}
	if s.width <= 0 {
		return 2
	}
	return s.width
}

// Unit returns the whitespace for one indentation level.
func (s Style) Unit() string {
	if s.tabs {
		return "\t"
	}
	return strings.Repeat(" ", s.Width())
}

func (s Style) String() string {
	if s.tabs {
		return "tab"
	}
	return strconv.Itoa(s.Width())
}

// ParseStyle parses the textual form produced by String: "tab" (or
// "tabs") or a positive space count.
func ParseStyle(text string) (Style, error) {
	switch t := strings.TrimSpace(strings.ToLower(text)); t {
	case "tab", "tabs":
		return Tabs, nil
	case "":
		return DefaultStyle(), nil
	default:
		n, err := strconv.Atoi(t)
		if err != nil || n <= 0 {
			return Style{}, fmt.Errorf("outline: invalid indentation style %q", text)
		}
		return Spaces(n), nil
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Style) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Style) UnmarshalText(text []byte) error {
	parsed, err := ParseStyle(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
