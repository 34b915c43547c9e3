package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOxygenValueAt(t *testing.T) {
	o := Oxygen{Baseline: 120, Rate: 1, At: epoch}

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"at baseline", epoch, 120},
		{"partial second floors", at(30.5), 89},
		{"exactly empty", at(120), 0},
		{"long past empty", at(500), 0},
		{"clock behind baseline", at(-10), 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, o.ValueAt(tt.now))
		})
	}
}

func TestOxygenNotDrainingHolds(t *testing.T) {
	o := NewOxygen(75, epoch)

	assert.Equal(t, 75, o.ValueAt(at(3600)))
	assert.False(t, o.Depleted(at(3600)))
	assert.True(t, o.DepletesAt().IsZero())
}

func TestOxygenRebaseClamps(t *testing.T) {
	o := Oxygen{Baseline: 100, Rate: 2, At: epoch}

	up := o.Rebase(at(10), 500, 2, 180)
	assert.Equal(t, 180, up.ValueAt(at(10)))
	assert.Equal(t, at(10), up.At)

	down := o.Rebase(at(10), -500, 2, 180)
	assert.Equal(t, 0, down.ValueAt(at(10)))
	assert.True(t, down.Depleted(at(10)))
}

func TestOxygenDepletesAt(t *testing.T) {
	o := Oxygen{Baseline: 31, Rate: 3, At: epoch}

	assert.Equal(t, at(10), o.DepletesAt())
	assert.False(t, o.Depleted(at(9.9)))
	assert.False(t, o.Depleted(at(10)))
	assert.True(t, o.Depleted(at(10.1)))
	assert.Equal(t, at(3), Oxygen{Baseline: 0.5, Rate: 1, At: at(3)}.DepletesAt())
}

func TestOxygenDepletedAgreesWithValue(t *testing.T) {
	o := Oxygen{Baseline: 10, Rate: 1, At: epoch}

	for _, sec := range []float64{0, 5, 8.5, 9, 9.01, 9.5, 9.99, 10, 12} {
		now := at(sec)
		assert.Equal(t, o.ValueAt(now) == 0, o.Depleted(now), "at %vs", sec)
	}
	assert.False(t, o.Depleted(at(9)))
	assert.True(t, o.Depleted(at(9.5)))
}

func TestOxygenWithRateKeepsValue(t *testing.T) {
	o := Oxygen{Baseline: 100, Rate: 1, At: epoch}

	frozen := o.WithRate(at(40), 0)
	assert.Equal(t, 60, frozen.ValueAt(at(40)))
	assert.Equal(t, 60, frozen.ValueAt(at(400)))
}

func TestOxygenNeverNegative(t *testing.T) {
	rng := NewRand(7)
	o := NewOxygen(120, epoch)
	now := epoch

	for range 1000 {
		now = now.Add(time.Duration(rng.IntN(5000)) * time.Millisecond)
		delta := float64(rng.IntN(60) - 40)
		rate := float64(rng.IntN(4))
		o = o.Rebase(now, delta, rate, 180)

		v := o.ValueAt(now)
		assert.GreaterOrEqual(t, v, 0)
		assert.LessOrEqual(t, v, 180)

		later := now.Add(time.Duration(rng.IntN(10000)) * time.Millisecond)
		want := max(0, o.Baseline-o.Rate*later.Sub(o.At).Seconds())
		assert.InDelta(t, want, float64(o.ValueAt(later)), 1)
	}
}
