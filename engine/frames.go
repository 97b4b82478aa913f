package engine

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sbinet/npyio"
)

// DroppedFrameFactor is how much longer than the nominal refresh period an
// interval must be before the frame counts as dropped.
const DroppedFrameFactor = 1.2

// FrameRecorder keeps the interval between consecutive flips. The first
// interval runs from recorder creation to the first flip and is neither
// counted nor saved.
type FrameRecorder struct {
	mu        sync.Mutex
	period    time.Duration
	last      time.Time
	intervals []time.Duration
	dropped   int
}

func NewFrameRecorder(refreshRate float64, start time.Time) *FrameRecorder {
	if refreshRate <= 0 {
		refreshRate = 60
	}
	return &FrameRecorder{
		period: time.Duration(float64(time.Second) / refreshRate),
		last:   start,
	}
}

func (r *FrameRecorder) Period() time.Duration {
	return r.period
}

func (r *FrameRecorder) Flip(at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dt := at.Sub(r.last)
	r.last = at
	if len(r.intervals) > 0 && float64(dt) > float64(r.period)*DroppedFrameFactor {
		r.dropped++
	}
	r.intervals = append(r.intervals, dt)
}

func (r *FrameRecorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

func (r *FrameRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.intervals)
}

// Intervals returns the recorded intervals in seconds, without the first one.
func (r *FrameRecorder) Intervals() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.intervals) < 2 {
		return []float64{}
	}
	out := make([]float64, 0, len(r.intervals)-1)
	for _, d := range r.intervals[1:] {
		out = append(out, d.Seconds())
	}
	return out
}

// SaveNPY writes values as a one-dimensional float64 NumPy array.
func SaveNPY(path string, values []float64) error {
	if values == nil {
		values = []float64{}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := npyio.Write(w, values); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
