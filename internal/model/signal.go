package model

import "time"

// SignalComponent is a named diagnostic value attached to a signal so that
// downstream consumers can inspect how the signal was built.
type SignalComponent struct {
	Name   string
	Value  float64
	Weight float64
}

// Signal is a single directional trading signal produced by one detector
// invocation. It is immutable once created.
type Signal struct {
	// Strength is a signed magnitude. For the imbalance detector this is a
	// z-score; for the flow analyzer it is the threshold-normalized
	// imbalance. Positive strength always points in the Buy direction.
	Strength   float64
	Direction  Side
	Confidence float64
	Timestamp  time.Time
	Components []SignalComponent
}

// AbsStrength returns the unsigned strength.
func (s Signal) AbsStrength() float64 {
	if s.Strength < 0 {
		return -s.Strength
	}
	return s.Strength
}
