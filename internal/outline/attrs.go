package outline

import (
	"iter"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Attrs is an insertion-ordered string map. The zero value is an empty map
// ready to use. Copying an Attrs value shares the underlying storage; use
// Clone for an independent copy.
type Attrs struct {
	m *orderedmap.OrderedMap[string, string]
}

func (a *Attrs) init() {
	if a.m == nil {
		a.m = orderedmap.New[string, string]()
	}
}

// Len returns the number of attributes.
func (a *Attrs) Len() int {
	if a.m == nil {
		return 0
	}
	return a.m.Len()
}

// Get returns the raw value stored under name.
func (a *Attrs) Get(name string) (string, bool) {
	if a.m == nil {
		return "", false
	}
	return a.m.Get(name)
}

// Set stores value under name. An existing key keeps its position, a new
// key is appended. Trailing newlines are dropped so that every value has a
// single printed form.
func (a *Attrs) Set(name, value string) {
	a.init()
	a.m.Set(name, strings.TrimRight(value, "\n"))
}

// Delete removes name and reports whether it was present.
func (a *Attrs) Delete(name string) bool {
	if a.m == nil {
		return false
	}
	_, ok := a.m.Delete(name)
	return ok
}

// MoveToFront promotes the given keys to the front, in the order given.
// Missing keys are ignored.
func (a *Attrs) MoveToFront(names ...string) {
	if a.m == nil {
		return
	}
	for i := len(names) - 1; i >= 0; i-- {
		_ = a.m.MoveToFront(names[i])
	}
}

// Keys returns the attribute names in order.
func (a *Attrs) Keys() []string {
	keys := make([]string, 0, a.Len())
	for k := range a.All() {
		keys = append(keys, k)
	}
	return keys
}

// All iterates attributes in order.
func (a *Attrs) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if a.m == nil {
			return
		}
		for p := a.m.Oldest(); p != nil; p = p.Next() {
			if !yield(p.Key, p.Value) {
				return
			}
		}
	}
}

// Clone returns an independent copy.
func (a *Attrs) Clone() Attrs {
	var c Attrs
	for k, v := range a.All() {
		c.init()
		c.m.Set(k, v)
	}
	return c
}

// Equal reports whether a and b hold the same pairs in the same order.
func (a *Attrs) Equal(b *Attrs) bool {
	if a.Len() != b.Len() {
		return false
	}
	if a.Len() == 0 {
		return true
	}
	p, q := a.m.Oldest(), b.m.Oldest()
	for p != nil && q != nil {
		if p.Key != q.Key || p.Value != q.Value {
			return false
		}
		p, q = p.Next(), q.Next()
	}
	return p == nil && q == nil
}
