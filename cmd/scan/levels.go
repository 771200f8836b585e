package scan

import (
	"math"

	"github.com/tphakala/tapedeck/internal/tape"
)

// Levels accumulates per-channel peak and RMS over played frames.
type Levels struct {
	peak   []float64
	sumSq  []float64
	frames int64
}

// NewLevels returns an empty accumulator for channels tracks.
func NewLevels(channels int) *Levels {
	return &Levels{
		peak:  make([]float64, channels),
		sumSq: make([]float64, channels),
	}
}

// Add folds frames into the running totals.
func (l *Levels) Add(frames []tape.Frame) {
	for _, f := range frames {
		for ch, v := range f[:min(len(f), len(l.peak))] {
			a := math.Abs(float64(v))
			l.peak[ch] = max(l.peak[ch], a)
			l.sumSq[ch] += a * a
		}
	}
	l.frames += int64(len(frames))
}

// Frames returns how many frames were added.
func (l *Levels) Frames() int64 { return l.frames }

// Peak returns the absolute peak of channel ch.
func (l *Levels) Peak(ch int) float64 { return l.peak[ch] }

// RMS returns the root mean square of channel ch.
func (l *Levels) RMS(ch int) float64 {
	if l.frames == 0 {
		return 0
	}
	return math.Sqrt(l.sumSq[ch] / float64(l.frames))
}

// DBFS converts a linear amplitude to decibels relative to full scale.
// Silence maps to negative infinity.
func DBFS(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v)
}
