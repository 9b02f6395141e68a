package arbiter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_UpsertAndStatus(t *testing.T) {
	r := NewRegistry()

	r.Upsert("A", StatusPlaying)
	r.Upsert("B", StatusPaused)

	st, ok := r.Status("A")
	assert.True(t, ok)
	assert.Equal(t, StatusPlaying, st)

	// Overwrite
	r.Upsert("A", StatusStopped)
	st, _ = r.Status("A")
	assert.Equal(t, StatusStopped, st)

	// Empty ids are ignored
	r.Upsert("", StatusPlaying)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()
	r.Upsert("A", StatusPlaying)
	r.MarkAutoPaused("A")

	r.Remove("A")
	assert.False(t, r.Contains("A"))
	assert.False(t, r.IsAutoPaused("A"))

	// Idempotent
	r.Remove("A")
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_AnyPlaying(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.AnyPlaying())

	r.Upsert("A", StatusPaused)
	r.Upsert("B", StatusStopped)
	assert.False(t, r.AnyPlaying())

	r.Upsert("C", StatusPlaying)
	assert.True(t, r.AnyPlaying())
	assert.Equal(t, []string{"C"}, r.Playing())
}

func TestRegistry_AutoPausedFlags(t *testing.T) {
	r := NewRegistry()
	r.Upsert("A", StatusPlaying)
	r.Upsert("B", StatusPlaying)

	assert.False(t, r.IsAutoPaused("A"))

	r.MarkAutoPaused("A")
	r.MarkAutoPaused("B")
	assert.True(t, r.IsAutoPaused("A"))

	r.ClearAutoPaused("A")
	assert.False(t, r.IsAutoPaused("A"))
	assert.True(t, r.IsAutoPaused("B"))

	r.ClearAllAutoPaused()
	assert.False(t, r.IsAutoPaused("B"))
}
