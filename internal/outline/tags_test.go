package outline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWikiWord(t *testing.T) {
	for _, s := range []string{"WikiWord", "WikiWord666", "Wiki666", "ProjectAlphaBeta"} {
		_, ok := WikiWord(s)
		assert.True(t, ok, s)
	}
	for _, s := range []string{"", "Wiki", "wikiWord", "666Wiki", "WikiWord-", "Wiki Word", "HTTPServer"} {
		_, ok := WikiWord(s)
		assert.False(t, ok, s)
	}
}

func TestCamelToKebab(t *testing.T) {
	assert.Equal(t, "camel-case", CamelToKebab("CamelCase"))
	assert.Equal(t, "camel-case-666", CamelToKebab("CamelCase666"))
	assert.Equal(t, "666-camel", CamelToKebab("666Camel"))
	assert.Equal(t, "lower", CamelToKebab("lower"))
}

func TestSection_Markers(t *testing.T) {
	s := Leaf("ProjectAlpha *")
	assert.True(t, s.IsImportant())
	assert.Equal(t, "ProjectAlpha", s.Title())
	title, ok := s.WikiTitle()
	require.True(t, ok)
	assert.Equal(t, "ProjectAlpha", title)

	s = Leaf("plain")
	assert.False(t, s.IsImportant())
	_, ok = s.WikiTitle()
	assert.False(t, ok)
}

func TestWalkTags_Inheritance(t *testing.T) {
	o := mustParse(t, doc(`
		:tags b
		Parent
		  :tags a
		  Child
		ProjectAlpha
		  Task
		    :tags todo
		Loose
	`))
	got := map[string][]string{}
	require.NoError(t, WalkTags(o, func(tags TagSet, s *Section) error {
		got[s.Head] = tags.Sorted()
		return nil
	}))
	assert.Equal(t, []string{"a", "b"}, got["Parent"])
	assert.Equal(t, []string{"a", "b"}, got["Child"])
	assert.Equal(t, []string{"b"}, got["ProjectAlpha"])
	assert.Equal(t, []string{"b", "project-alpha", "todo"}, got["Task"])
	assert.Equal(t, []string{"b"}, got["Loose"])
}

func TestWalkTags_SkipAll(t *testing.T) {
	o := mustParse(t, "a\nb\n")
	var seen []string
	err := WalkTags(o, func(_ TagSet, s *Section) error {
		seen = append(seen, s.Head)
		return SkipAll
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, seen)
}

const taggedDoc = `
	Doc
	  :tags misc
	  Alpha
	    :tags x y
	  Beta
	    Gamma
	      :tags x
	Other
`

func TestTagged_Prune(t *testing.T) {
	got, err := Tagged(mustParse(t, doc(taggedDoc)), []string{"x"}, false)
	require.NoError(t, err)
	assert.Equal(t, doc(`
		Doc
		  Alpha
		    :tags x y
		  Beta
		    Gamma
		      :tags x
	`), got.String())
}

func TestTagged_Flatten(t *testing.T) {
	got, err := Tagged(mustParse(t, doc(taggedDoc)), []string{"x", "misc"}, true)
	require.NoError(t, err)
	assert.Equal(t, doc(`
		Alpha
		  :tags x y
		Gamma
		  :tags x
	`), got.String())
}
