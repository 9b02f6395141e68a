package arbiter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResumeStack_PushIsLIFO(t *testing.T) {
	var s resumeStack

	s.push("A")
	s.push("B")
	s.push("C")
	assert.Equal(t, []string{"C", "B", "A"}, s.snapshot())

	id, ok := s.pop()
	assert.True(t, ok)
	assert.Equal(t, "C", id)
	assert.Equal(t, 2, s.len())
}

func TestResumeStack_PushDedupes(t *testing.T) {
	var s resumeStack

	s.push("A")
	s.push("B")
	// Re-pushing moves the entry to the front instead of duplicating it.
	s.push("A")
	assert.Equal(t, []string{"A", "B"}, s.snapshot())
}

func TestResumeStack_Remove(t *testing.T) {
	var s resumeStack

	s.push("A")
	s.push("B")
	s.push("C")

	s.remove("B")
	assert.Equal(t, []string{"C", "A"}, s.snapshot())
	assert.False(t, s.contains("B"))

	// Removing an absent id is a no-op.
	s.remove("B")
	assert.Equal(t, 2, s.len())
}

func TestResumeStack_PopEmpty(t *testing.T) {
	var s resumeStack

	id, ok := s.pop()
	assert.False(t, ok)
	assert.Empty(t, id)
}
