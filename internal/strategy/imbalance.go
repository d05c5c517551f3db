// Package strategy derives statistical trading signals from the order book
// and the trade stream, and combines them into a single trade decision.
//
// Detectors keep single-owner mutable state and are driven from one decision
// loop; they need external synchronization before being shared.
package strategy

import (
	"math"
	"time"

	"github.com/Xtley001/front-run-vanilla/internal/book"
	"github.com/Xtley001/front-run-vanilla/internal/model"
)

// stddev below this is treated as a flat history: a z-score over it would
// be numerically meaningless.
const minStddev = 1e-6

// ImbalanceDetector watches the bid/ask depth ratio for deviations from its
// rolling average. A large z-score suggests one side of the book is being
// loaded up faster than usual.
type ImbalanceDetector struct {
	levels     int
	windowSize int
	threshold  float64
	minSamples int

	history []float64
	now     func() time.Time
}

// NewImbalanceDetector creates a detector over the top `levels` book levels
// with a rolling window of `windowSize` ratios and a z-score threshold.
func NewImbalanceDetector(levels, windowSize int, threshold float64) *ImbalanceDetector {
	return &ImbalanceDetector{
		levels:     levels,
		windowSize: windowSize,
		threshold:  threshold,
		minSamples: windowSize / 2,
		history:    make([]float64, 0, windowSize),
		now:        time.Now,
	}
}

// CalculateSignal samples the order book and returns a signal when the
// current ratio deviates from the rolling mean by at least the threshold.
// A nil result is the normal case, not an error.
func (d *ImbalanceDetector) CalculateSignal(ob *book.OrderBook) *model.Signal {
	ratio, ok := ob.Imbalance(d.levels)
	if !ok {
		return nil
	}

	d.history = append(d.history, ratio)
	if len(d.history) > d.windowSize {
		d.history = d.history[1:]
	}

	if len(d.history) < d.minSamples {
		return nil
	}

	mean := d.mean()
	stddev := d.stddev(mean)
	if stddev < minStddev {
		return nil
	}

	z := (ratio - mean) / stddev
	if math.Abs(z) < d.threshold {
		return nil
	}

	direction := model.SideBuy
	if z < 0 {
		direction = model.SideSell
	}

	confidence := math.Min(math.Abs(z)/(d.threshold+1), 1.0)

	return &model.Signal{
		Strength:   z,
		Direction:  direction,
		Confidence: confidence,
		Timestamp:  d.now(),
		Components: []model.SignalComponent{
			{Name: "imbalance_ratio", Value: ratio, Weight: 1},
			{Name: "mean", Value: mean},
			{Name: "stddev", Value: stddev},
			{Name: "z_score", Value: z, Weight: 1},
		},
	}
}

func (d *ImbalanceDetector) mean() float64 {
	if len(d.history) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range d.history {
		sum += v
	}
	return sum / float64(len(d.history))
}

// stddev is the population standard deviation of the history.
func (d *ImbalanceDetector) stddev(mean float64) float64 {
	if len(d.history) < 2 {
		return 0
	}
	variance := 0.0
	for _, v := range d.history {
		diff := v - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(d.history)))
}

// ImbalanceStats is a monitoring snapshot of the detector state.
type ImbalanceStats struct {
	CurrentRatio *float64
	Mean         float64
	Stddev       float64
	SampleCount  int
}

// Stats returns the current rolling statistics.
func (d *ImbalanceDetector) Stats() ImbalanceStats {
	mean := d.mean()
	stats := ImbalanceStats{
		Mean:        mean,
		Stddev:      d.stddev(mean),
		SampleCount: len(d.history),
	}
	if n := len(d.history); n > 0 {
		last := d.history[n-1]
		stats.CurrentRatio = &last
	}
	return stats
}

// Reset clears the rolling history. Used on detector restart, never on a
// timer.
func (d *ImbalanceDetector) Reset() {
	d.history = d.history[:0]
}
