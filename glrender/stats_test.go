package glrender

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewStats(t *testing.T) {
	assert.Equal(t, Stats{}, NewStats(nil))
	assert.Zero(t, Stats{}.FPS())

	s := NewStats([]float64{0.04, 0.01, 0.03, 0.02})
	assert.Equal(t, 4, s.Frames)
	assert.InDelta(t, 0.025, s.Mean, 1e-12)
	assert.Equal(t, 0.01, s.Min)
	assert.Equal(t, 0.04, s.Max)
	assert.InDelta(t, 40, s.FPS(), 1e-9)
	assert.Greater(t, s.StdDev, 0.0)
	assert.LessOrEqual(t, s.P50, s.P95)
	assert.LessOrEqual(t, s.P95, s.P99)
	assert.LessOrEqual(t, s.P99, s.Max)
	assert.GreaterOrEqual(t, s.P50, s.Min)
}

func TestFrameTimer(t *testing.T) {
	clock := time.Unix(0, 0)
	ft := &FrameTimer{now: func() time.Time { return clock }}
	ft.last = clock
	for i := 0; i < 150; i++ {
		clock = clock.Add(10 * time.Millisecond)
		assert.Equal(t, 10*time.Millisecond, ft.Tick())
	}
	assert.Len(t, ft.Samples(), 150)
	// One second elapsed: the window was logged and restarted.
	assert.Equal(t, 50, ft.frames)
	s := ft.Stats()
	assert.InDelta(t, 100, s.FPS(), 1e-6)
}
