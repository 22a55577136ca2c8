package glrender

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// FrameTimer measures the time between frames and logs the frame rate
// once per second.
type FrameTimer struct {
	last    time.Time
	window  time.Duration
	frames  int
	samples []float64
	now     func() time.Time
}

// NewFrameTimer returns a timer started now.
func NewFrameTimer() *FrameTimer {
	ft := &FrameTimer{now: time.Now}
	ft.last = ft.now()
	return ft
}

// Tick marks the end of a frame and returns its duration.
func (ft *FrameTimer) Tick() time.Duration {
	now := ft.now()
	dt := now.Sub(ft.last)
	ft.last = now
	ft.samples = append(ft.samples, dt.Seconds())
	ft.frames++
	ft.window += dt
	if ft.window >= time.Second {
		logger.Infof("%.1f fps", float64(ft.frames)/ft.window.Seconds())
		ft.frames, ft.window = 0, 0
	}
	return dt
}

// Stats summarizes the frame times recorded so far.
func (ft *FrameTimer) Stats() Stats { return NewStats(ft.samples) }

// Samples returns the recorded frame times in seconds.
func (ft *FrameTimer) Samples() []float64 { return ft.samples }

// Stats is a summary of frame times in seconds.
type Stats struct {
	Frames        int
	Mean, StdDev  float64
	Min, Max      float64
	P50, P95, P99 float64
}

// NewStats summarizes frame times given in seconds.
func NewStats(seconds []float64) Stats {
	if len(seconds) == 0 {
		return Stats{}
	}
	sorted := append([]float64(nil), seconds...)
	sort.Float64s(sorted)
	s := Stats{
		Frames: len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		P50:    stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
		P99:    stat.Quantile(0.99, stat.Empirical, sorted, nil),
	}
	s.Mean, s.StdDev = stat.MeanStdDev(sorted, nil)
	return s
}

// FPS returns the mean frame rate.
func (s Stats) FPS() float64 {
	if s.Mean == 0 {
		return 0
	}
	return 1 / s.Mean
}
