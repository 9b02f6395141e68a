package control

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine is a minimal Engine facade for exercising the exported methods.
type fakeEngine struct {
	enabled bool
	delay   time.Duration
	tracked int
	stacked int
}

func (f *fakeEngine) SetEnabled(v bool)              { f.enabled = v }
func (f *fakeEngine) Enabled() bool                  { return f.enabled }
func (f *fakeEngine) SetResumeDelay(d time.Duration) { f.delay = d }
func (f *fakeEngine) ResumeDelay() time.Duration     { return f.delay }
func (f *fakeEngine) Stats() (int, int)              { return f.tracked, f.stacked }

func TestService_Toggle(t *testing.T) {
	eng := &fakeEngine{enabled: true}
	s := &service{engine: eng}

	require.Nil(t, s.Disable())
	assert.False(t, eng.enabled)

	require.Nil(t, s.Enable())
	assert.True(t, eng.enabled)

	enabled, derr := s.Enabled()
	require.Nil(t, derr)
	assert.True(t, enabled)
}

func TestService_ResumeDelay(t *testing.T) {
	eng := &fakeEngine{}
	s := &service{engine: eng}

	require.Nil(t, s.SetResumeDelayMs(250))
	assert.Equal(t, 250*time.Millisecond, eng.delay)

	ms, derr := s.ResumeDelayMs()
	require.Nil(t, derr)
	assert.Equal(t, uint32(250), ms)
}

func TestService_Stats(t *testing.T) {
	eng := &fakeEngine{tracked: 3, stacked: 2}
	s := &service{engine: eng}

	tracked, stacked, derr := s.Stats()
	require.Nil(t, derr)
	assert.Equal(t, uint32(3), tracked)
	assert.Equal(t, uint32(2), stacked)
}
