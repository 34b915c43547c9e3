package engine

import (
	"math/rand/v2"
	"slices"
)

// openLocations picks the locations used for the coming round. The set
// keeps the table's order.
func openLocations(s *Snapshot, rules Rules, rng *rand.Rand) {
	k := rules.ActiveLocationCount(len(s.Alive()))

	picked := slices.Clone(rules.Locations)
	shuffle(rng, picked)
	picked = picked[:k]

	active := make([]Location, 0, k)
	for _, loc := range rules.Locations {
		if slices.Contains(picked, loc) {
			active = append(active, loc)
		}
	}
	s.ActiveLocations = active
}

// AssignLocations places every living player into an active location.
//
// Stated preferences are honored up to capacity, with random overflow into
// a no-preference pool. Empty locations are then filled from that pool, and
// whoever remains goes to the least occupied location that still has room.
// When dispatch names a seat, everyone except that seat is treated as having
// no preference.
func AssignLocations(s *Snapshot, rules Rules, rng *rand.Rand, dispatch int) LocationRecord {
	active := s.ActiveLocations
	capacity := rules.MaxOccupancy
	if capacity < 1 {
		capacity = 1
	}

	rooms := make(map[Location][]*Player, len(active))
	var pool []*Player

	byPref := make(map[Location][]*Player)
	for _, p := range s.Alive() {
		pref := p.TargetLocation
		if dispatch != 0 && p.Seat != dispatch {
			pref = ""
		}
		if pref == "" || !slices.Contains(active, pref) {
			pool = append(pool, p)
			continue
		}
		byPref[pref] = append(byPref[pref], p)
	}

	for _, loc := range active {
		group := byPref[loc]
		if len(group) > capacity {
			shuffle(rng, group)
			pool = append(pool, group[capacity:]...)
			group = group[:capacity]
		}
		rooms[loc] = group
	}

	shuffle(rng, pool)

	for _, loc := range active {
		if len(rooms[loc]) > 0 {
			continue
		}
		if len(pool) > 0 {
			rooms[loc] = append(rooms[loc], pool[0])
			pool = pool[1:]
			continue
		}
		donor := mostOccupied(rooms, active)
		if donor == "" || len(rooms[donor]) < 2 {
			continue
		}
		members := rooms[donor]
		i := rng.IntN(len(members))
		moved := members[i]
		rooms[donor] = slices.Delete(slices.Clone(members), i, i+1)
		rooms[loc] = append(rooms[loc], moved)
	}

	for _, p := range pool {
		loc := leastOccupied(rooms, active, capacity, rng)
		rooms[loc] = append(rooms[loc], p)
	}

	rec := LocationRecord{
		Round:     s.RoundCount,
		Dispatch:  dispatch,
		Occupants: make(map[Location][]int, len(active)),
	}
	for _, loc := range active {
		for _, p := range rooms[loc] {
			p.Location = loc
			rec.Occupants[loc] = append(rec.Occupants[loc], p.Seat)
		}
		slices.Sort(rec.Occupants[loc])
	}
	return rec
}

func mostOccupied(rooms map[Location][]*Player, active []Location) Location {
	var best Location
	n := 0
	for _, loc := range active {
		if len(rooms[loc]) > n {
			best, n = loc, len(rooms[loc])
		}
	}
	return best
}

// leastOccupied picks randomly among the emptiest locations with room. If
// every location is full it falls back to the emptiest overall.
func leastOccupied(rooms map[Location][]*Player, active []Location, capacity int, rng *rand.Rand) Location {
	var ties []Location
	low := -1
	for _, loc := range active {
		n := len(rooms[loc])
		if n >= capacity {
			continue
		}
		switch {
		case low == -1 || n < low:
			low = n
			ties = []Location{loc}
		case n == low:
			ties = append(ties, loc)
		}
	}
	if len(ties) == 0 {
		for _, loc := range active {
			n := len(rooms[loc])
			switch {
			case low == -1 || n < low:
				low = n
				ties = []Location{loc}
			case n == low:
				ties = append(ties, loc)
			}
		}
	}
	return ties[rng.IntN(len(ties))]
}
