package engine

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func populated(n int) *Snapshot {
	s := NewSnapshot("LOCS", DefaultRules().MaxSeats, epoch)
	for i := range n {
		p := &s.Players[i]
		p.Session = session(p.Seat)
		p.Role = RoleGoose
		p.Alive = true
	}
	return s
}

func TestAssignLocationsOccupancy(t *testing.T) {
	rules := DefaultRules()
	choices := append(slices.Clone(rules.Locations), "", "", Location("nowhere"))

	for seed := uint64(1); seed <= 300; seed++ {
		rng := NewRand(seed)
		n := rules.MinPlayers + rng.IntN(rules.MaxSeats-rules.MinPlayers+1)
		s := populated(n)
		openLocations(s, rules, rng)

		for _, p := range s.Alive() {
			p.TargetLocation = choices[rng.IntN(len(choices))]
		}
		dispatch := 0
		if rng.IntN(4) == 0 {
			dispatch = 1 + rng.IntN(n)
		}

		rec := AssignLocations(s, rules, rng, dispatch)

		total := 0
		for _, loc := range s.ActiveLocations {
			count := len(s.Occupants(loc))
			total += count
			assert.GreaterOrEqual(t, count, 1, "seed %d: %s empty", seed, loc)
			assert.LessOrEqual(t, count, rules.MaxOccupancy, "seed %d: %s over capacity", seed, loc)
			assert.Len(t, rec.Occupants[loc], count)
		}
		require.Equal(t, n, total, "seed %d", seed)

		for _, p := range s.Alive() {
			assert.True(t, s.LocationActive(p.Location), "seed %d: seat %d unplaced", seed, p.Seat)
		}
	}
}

func TestAssignLocationsHonorsPreferences(t *testing.T) {
	rules := DefaultRules()
	s := populated(6)
	s.ActiveLocations = []Location{LocationKitchen, LocationPower, LocationMedical}
	for _, n := range []int{1, 2, 3} {
		s.Player(n).TargetLocation = LocationKitchen
	}

	AssignLocations(s, rules, NewRand(3), 0)

	var seats []int
	for _, p := range s.Occupants(LocationKitchen) {
		seats = append(seats, p.Seat)
	}
	assert.Equal(t, []int{1, 2, 3}, seats)
}

func TestAssignLocationsOverflow(t *testing.T) {
	rules := DefaultRules()
	s := populated(6)
	s.ActiveLocations = []Location{LocationKitchen, LocationPower, LocationMedical}
	for _, p := range s.Alive() {
		p.TargetLocation = LocationKitchen
	}

	AssignLocations(s, rules, NewRand(9), 0)

	assert.Len(t, s.Occupants(LocationKitchen), rules.MaxOccupancy)
	assert.NotEmpty(t, s.Occupants(LocationPower))
	assert.NotEmpty(t, s.Occupants(LocationMedical))
}

func TestAssignLocationsDispatchKeepsInitiator(t *testing.T) {
	rules := DefaultRules()

	for seed := uint64(1); seed <= 50; seed++ {
		s := populated(7)
		s.ActiveLocations = []Location{LocationKitchen, LocationPower, LocationMedical, LocationStasis}
		for _, p := range s.Alive() {
			p.TargetLocation = LocationStasis
		}

		rec := AssignLocations(s, rules, NewRand(seed), 4)

		assert.Equal(t, LocationStasis, s.Player(4).Location, "seed %d", seed)
		assert.Equal(t, 4, rec.Dispatch)
	}
}

func TestAssignLocationsFewerAliveThanLocations(t *testing.T) {
	rules := DefaultRules()
	s := populated(2)
	s.ActiveLocations = []Location{LocationKitchen, LocationPower, LocationMedical}

	AssignLocations(s, rules, NewRand(1), 0)

	for _, p := range s.Alive() {
		assert.True(t, s.LocationActive(p.Location))
	}
}

func TestOpenLocationsKeepsTableOrder(t *testing.T) {
	rules := DefaultRules()
	s := populated(9)

	openLocations(s, rules, NewRand(5))

	require.Len(t, s.ActiveLocations, rules.ActiveLocationCount(9))
	assert.True(t, slices.IsSortedFunc(s.ActiveLocations, func(a, b Location) int {
		return slices.Index(rules.Locations, a) - slices.Index(rules.Locations, b)
	}))
}
