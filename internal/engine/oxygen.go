package engine

import (
	"math"
	"time"
)

// Oxygen is a lazily evaluated draining resource. The current value is
// derived from a baseline, a drain rate per second, and the instant the
// baseline was taken; nothing ticks it.
type Oxygen struct {
	Baseline float64   `json:"baseline"`
	Rate     float64   `json:"rate"`
	At       time.Time `json:"at"`
}

// NewOxygen returns a resource holding value at now, not draining.
func NewOxygen(value int, now time.Time) Oxygen {
	return Oxygen{Baseline: float64(value), At: now}
}

func (o Oxygen) exact(now time.Time) float64 {
	elapsed := now.Sub(o.At).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	v := o.Baseline - o.Rate*elapsed
	if v < 0 {
		return 0
	}
	return v
}

// ValueAt is max(0, floor(baseline - rate*elapsed)).
func (o Oxygen) ValueAt(now time.Time) int {
	return int(math.Floor(o.exact(now)))
}

// Depleted reports whether the value reads zero at now. It agrees with
// ValueAt, so a player is never shown 0 while still alive.
func (o Oxygen) Depleted(now time.Time) bool {
	return o.ValueAt(now) == 0
}

// DepletesAt is the last instant the value reads 1; any later instant reads
// zero. It is the zero time if the resource is not draining, and At if the
// value already reads zero.
func (o Oxygen) DepletesAt() time.Time {
	if o.Rate <= 0 {
		return time.Time{}
	}
	if o.Baseline < 1 {
		return o.At
	}
	return o.At.Add(time.Duration((o.Baseline - 1) / o.Rate * float64(time.Second)))
}

// Rebase applies delta at now and continues draining at rate. The result is
// clamped to [0, limit]; a non-positive limit disables the upper clamp.
func (o Oxygen) Rebase(now time.Time, delta float64, rate float64, limit int) Oxygen {
	v := o.exact(now) + delta
	if v < 0 {
		v = 0
	}
	if limit > 0 && v > float64(limit) {
		v = float64(limit)
	}
	if rate < 0 {
		rate = 0
	}
	return Oxygen{Baseline: v, Rate: rate, At: now}
}

// WithRate re-bases at now without changing the value.
func (o Oxygen) WithRate(now time.Time, rate float64) Oxygen {
	return o.Rebase(now, 0, rate, 0)
}

// Set re-bases to an absolute value.
func (o Oxygen) Set(now time.Time, value int, rate float64) Oxygen {
	return Oxygen{Baseline: float64(max(value, 0)), Rate: max(rate, 0), At: now}
}
