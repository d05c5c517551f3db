package strategy

import (
	"math"
	"time"

	"github.com/Xtley001/front-run-vanilla/internal/model"
)

// CompositeSignal is one dominant signal plus same-direction corroboration.
// Direction always equals the primary's direction.
type CompositeSignal struct {
	Primary         model.Signal
	Confirming      []model.Signal
	OverallStrength float64
	Direction       model.Side
	Confidence      float64
	Timestamp       time.Time
}

// IsTradeable reports whether the composite carries enough corroboration
// and confidence to act on.
func (c *CompositeSignal) IsTradeable(minConfirming int) bool {
	return len(c.Confirming) >= minConfirming && c.Confidence >= 0.5
}

// SignalAggregator combines a batch of detector signals into a single
// composite. It is stateless; every call is independent.
type SignalAggregator struct {
	primaryThreshold    float64
	confirmingThreshold float64
	minConfirming       int
}

// NewSignalAggregator configures the aggregation thresholds.
func NewSignalAggregator(primaryThreshold, confirmingThreshold float64, minConfirming int) *SignalAggregator {
	return &SignalAggregator{
		primaryThreshold:    primaryThreshold,
		confirmingThreshold: confirmingThreshold,
		minConfirming:       minConfirming,
	}
}

// Aggregate picks the strongest signal as primary and collects confirming
// signals in the same direction. Nil means the batch did not amount to a
// decision.
//
// Tie-break: under the linear scan below, equal absolute strengths resolve
// to the LAST maximal element. Confirming signals are separated from the
// primary by timestamp identity; two distinct signals sharing an identical
// timestamp would be conflated. Signal timestamps come from a
// nanosecond-resolution clock, so collisions are not expected in practice,
// but callers batching signals from exotic sources should keep this in mind.
func (a *SignalAggregator) Aggregate(signals []model.Signal) *CompositeSignal {
	if len(signals) == 0 {
		return nil
	}

	primary := signals[0]
	for _, s := range signals[1:] {
		if s.AbsStrength() >= primary.AbsStrength() {
			primary = s
		}
	}

	if primary.AbsStrength() < a.primaryThreshold {
		return nil
	}

	var confirming []model.Signal
	for _, s := range signals {
		if s.Direction == primary.Direction &&
			s.AbsStrength() >= a.confirmingThreshold &&
			!s.Timestamp.Equal(primary.Timestamp) {
			confirming = append(confirming, s)
		}
	}

	if len(confirming) < a.minConfirming {
		return nil
	}

	return &CompositeSignal{
		Primary:         primary,
		Confirming:      confirming,
		OverallStrength: a.overallStrength(primary, confirming),
		Direction:       primary.Direction,
		Confidence:      a.compositeConfidence(primary, confirming),
		Timestamp:       time.Now(),
	}
}

// compositeConfidence blends primary confidence (40%), confirming count
// (30%) and average confirming confidence (30%).
func (a *SignalAggregator) compositeConfidence(primary model.Signal, confirming []model.Signal) float64 {
	countFactor := math.Min(float64(len(confirming))/float64(a.minConfirming+2), 1.0)

	avgConfirming := 0.0
	if len(confirming) > 0 {
		for _, s := range confirming {
			avgConfirming += s.Confidence
		}
		avgConfirming /= float64(len(confirming))
	}

	return math.Min(0.4*primary.Confidence+0.3*countFactor+0.3*avgConfirming, 1.0)
}

// overallStrength blends primary strength (60%) with the average confirming
// strength (40%).
func (a *SignalAggregator) overallStrength(primary model.Signal, confirming []model.Signal) float64 {
	avgConfirming := 0.0
	if len(confirming) > 0 {
		for _, s := range confirming {
			avgConfirming += s.Strength
		}
		avgConfirming /= float64(len(confirming))
	}

	return 0.6*primary.Strength + 0.4*avgConfirming
}
