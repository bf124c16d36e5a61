package trie

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPrefix(t *testing.T) {
	t.Parallel()
	arena := NewArena()
	arena.Insert([]string{"home", "app", "vendor"})
	arena.Insert([]string{"home", "app", "db", "schema.rb"})

	tests := []struct {
		name     string
		sequence []string
		expected bool
	}{
		{"inserted path", []string{"home", "app", "vendor"}, true},
		{"below inserted directory", []string{"home", "app", "vendor", "gems", "a.rb"}, true},
		{"inserted file", []string{"home", "app", "db", "schema.rb"}, true},
		{"sibling file", []string{"home", "app", "db", "seeds.rb"}, false},
		{"parent of inserted path", []string{"home", "app"}, false},
		{"segment prefix is not a path prefix", []string{"home", "app", "vendored"}, false},
		{"empty sequence", nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, arena.HasPrefix(tc.sequence))
		})
	}
}

func TestEmptySequenceMatchesEverything(t *testing.T) {
	t.Parallel()
	arena := NewArena()
	assert.False(t, arena.HasPrefix([]string{"a"}))

	arena.Insert(nil)
	assert.True(t, arena.HasPrefix([]string{"a"}))
	assert.True(t, arena.HasPrefix(nil))
}

func TestLenAndPaths(t *testing.T) {
	t.Parallel()
	arena := NewArena()
	arena.Insert([]string{"b", "c"})
	arena.Insert([]string{"a"})
	arena.Insert([]string{"b", "c"})
	arena.Insert([]string{"b"})

	assert.Equal(t, 3, arena.Len())
	assert.Equal(t, []string{"a", "b", "b/c"}, arena.Paths("/"))
}
