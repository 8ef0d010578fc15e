package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectionAddRemove(t *testing.T) {
	s := newSelection()
	assert.True(t, s.add("b"))
	assert.False(t, s.add("b"))
	assert.True(t, s.add("a"))
	assert.Equal(t, []string{"a", "b"}, s.elements())

	assert.True(t, s.remove("b"))
	assert.False(t, s.remove("b"))
	assert.False(t, s.remove("missing"))
	assert.Equal(t, []string{"a"}, s.elements())
	assert.False(t, s.has("b"))
}

func TestSelectionRetain(t *testing.T) {
	s := newSelection()
	for _, id := range []string{"keep-1", "drop-1", "keep-2", "drop-2"} {
		s.add(id)
	}
	dropped := s.retain(func(id string) bool { return strings.HasPrefix(id, "keep") })
	assert.Equal(t, 2, dropped)
	assert.Equal(t, []string{"keep-1", "keep-2"}, s.elements())

	s.reset()
	assert.Zero(t, s.len())
}
