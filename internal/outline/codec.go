package outline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/starford/ont/internal/apperr"
)

// Codec converts between an attribute's raw text and a typed value.
type Codec[T any] interface {
	Decode(raw string) (T, error)
	Encode(v T) (string, error)
}

// Provided codecs.
var (
	String Codec[string]    = stringCodec{}
	Words  Codec[[]string]  = wordsCodec{}
	Int    Codec[int]       = intCodec{}
	Bool   Codec[bool]      = boolCodec{}
	Date   Codec[time.Time] = dateCodec{}
)

// DateLayout is the textual form used by the Date codec.
const DateLayout = "2006-01-02"

// DecodeError reports an attribute that is present but malformed.
type DecodeError struct {
	Name  string
	Value string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("outline: attribute %q: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() []error { return []error{apperr.ErrMalformed, e.Err} }

// Get decodes the named attribute. A missing attribute yields ok == false
// and no error; a malformed one yields a *DecodeError.
func Get[T any](o *Outline, name string, c Codec[T]) (v T, ok bool, err error) {
	raw, ok := o.Attrs.Get(name)
	if !ok {
		return v, false, nil
	}
	v, err = c.Decode(raw)
	if err != nil {
		return v, true, &DecodeError{Name: name, Value: raw, Err: err}
	}
	return v, true, nil
}

// GetOr is Get with a fallback used only when the attribute is absent.
func GetOr[T any](o *Outline, name string, c Codec[T], fallback T) (T, error) {
	v, ok, err := Get(o, name, c)
	if err != nil {
		return v, err
	}
	if !ok {
		return fallback, nil
	}
	return v, nil
}

// Set encodes v and stores it under name, in place if the attribute
// already exists.
func Set[T any](o *Outline, name string, v T, c Codec[T]) error {
	if name == "" || strings.ContainsAny(name, " \t\r\n/") {
		return fmt.Errorf("outline: invalid attribute name %q: %w", name, apperr.ErrStructural)
	}
	raw, err := c.Encode(v)
	if err != nil {
		return fmt.Errorf("outline: encode attribute %q: %w", name, err)
	}
	o.Attrs.Set(name, raw)
	return nil
}

type stringCodec struct{}

func (stringCodec) Decode(raw string) (string, error) { return raw, nil }
func (stringCodec) Encode(v string) (string, error)   { return v, nil }

// wordsCodec reads a whitespace separated list on one line, or one item
// per line when the value spans several lines.
type wordsCodec struct{}

func (wordsCodec) Decode(raw string) ([]string, error) {
	if !strings.Contains(raw, "\n") {
		return strings.Fields(raw), nil
	}
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}

func (wordsCodec) Encode(v []string) (string, error) {
	spaced := false
	for _, w := range v {
		if w == "" || strings.ContainsAny(w, "\r\n") || strings.TrimSpace(w) != w {
			return "", fmt.Errorf("list item %q cannot be encoded", w)
		}
		if strings.ContainsAny(w, " \t") {
			spaced = true
		}
	}
	if !spaced {
		return strings.Join(v, " "), nil
	}
	if len(v) < 2 {
		return "", errors.New("a single list item cannot contain whitespace")
	}
	return strings.Join(v, "\n"), nil
}

type intCodec struct{}

func (intCodec) Decode(raw string) (int, error) { return strconv.Atoi(strings.TrimSpace(raw)) }
func (intCodec) Encode(v int) (string, error)   { return strconv.Itoa(v), nil }

type boolCodec struct{}

func (boolCodec) Decode(raw string) (bool, error) { return strconv.ParseBool(strings.TrimSpace(raw)) }
func (boolCodec) Encode(v bool) (string, error)   { return strconv.FormatBool(v), nil }

type dateCodec struct{}

func (dateCodec) Decode(raw string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(raw))
}

func (dateCodec) Encode(v time.Time) (string, error) { return v.Format(DateLayout), nil }
