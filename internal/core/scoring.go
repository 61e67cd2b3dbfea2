package core

import (
	"math"
	"time"
)

// Contribution is the weighted output of a single signal extractor
type Contribution struct {
	Weight  float64
	Reasons []string
}

// None is the contribution of an extractor whose signal is absent
var None = Contribution{}

// Flat returns a contribution with one reason
func Flat(weight float64, reason string) Contribution {
	return Contribution{Weight: weight, Reasons: []string{reason}}
}

// Accumulator collects contributions for a single analysis call.
// It must not be shared between calls.
type Accumulator struct {
	total   float64
	reasons []string
}

// NewAccumulator creates an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{reasons: make([]string, 0, 8)}
}

// Add folds a contribution into the running total. Negative weights are ignored.
func (a *Accumulator) Add(c Contribution) {
	if c.Weight > 0 {
		a.total += c.Weight
	}
	a.reasons = append(a.reasons, c.Reasons...)
}

// Total returns the unclamped running total
func (a *Accumulator) Total() float64 {
	return a.total
}

// Reasons returns the reasons in insertion order
func (a *Accumulator) Reasons() []string {
	out := make([]string, len(a.reasons))
	copy(out, a.reasons)
	return out
}

// Clamp bounds v to [0, ceiling]
func Clamp(v, ceiling float64) float64 {
	if v < 0 {
		return 0
	}
	if v > ceiling {
		return ceiling
	}
	return v
}

// Round rounds v to the given number of decimal places
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// ElapsedMs returns whole milliseconds since start
func ElapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
