package engine

import (
	"fmt"
	"math/rand/v2"
	"time"
)

const lifeCodeSpace = 100

// lifeCodePool returns every two-digit code not in exclude, shuffled.
func lifeCodePool(rng *rand.Rand, exclude map[string]bool) []string {
	pool := make([]string, 0, lifeCodeSpace)
	for i := range lifeCodeSpace {
		code := fmt.Sprintf("%02d", i)
		if !exclude[code] {
			pool = append(pool, code)
		}
	}
	shuffle(rng, pool)
	return pool
}

// issueLifeCodes hands every living player a fresh code drawn without
// replacement. Codes currently held are excluded so that a code honored
// during the grace window can never also be someone's new code.
func issueLifeCodes(s *Snapshot, rng *rand.Rand, keepPrevious bool) {
	held := make(map[string]bool)
	for _, p := range s.Alive() {
		if p.LifeCode != "" {
			held[p.LifeCode] = true
		}
	}
	pool := lifeCodePool(rng, held)

	for i, p := range s.Alive() {
		if keepPrevious {
			p.PrevLifeCode = p.LifeCode
		} else {
			p.PrevLifeCode = ""
		}
		p.LifeCode = pool[i]
		p.CodeVersion++
	}
}

// startLifeCodes issues codes for a red light and schedules the one
// mid-round rotation somewhere in its middle half.
func startLifeCodes(s *Snapshot, rules Rules, rng *rand.Rand, now time.Time) {
	issueLifeCodes(s, rng, false)

	red := rules.Durations.RedLight
	offset := red/4 + time.Duration(rng.Int64N(int64(red/2)+1))
	s.LifeCodes = LifeCodeState{RotateAt: now.Add(offset)}
}

// rotateLifeCodes replaces every living player's code.
func rotateLifeCodes(s *Snapshot, rng *rand.Rand, now time.Time) {
	issueLifeCodes(s, rng, true)
	s.LifeCodes.RotateAt = time.Time{}
	s.LifeCodes.RotatedAt = now
	s.LifeCodes.Rotations++
	s.logf(now, "rotate", 0, 0, "life codes rotated")
}

// clearLifeCodes drops all targeting state.
func clearLifeCodes(s *Snapshot) {
	for i := range s.Players {
		s.Players[i].LifeCode = ""
		s.Players[i].PrevLifeCode = ""
	}
	s.LifeCodes = LifeCodeState{}
}

// ResolveLifeCode maps a code to the living player holding it. The previous
// code also resolves while the configured grace window is open.
func ResolveLifeCode(s *Snapshot, rules Rules, code string, now time.Time) (*Player, error) {
	if len(code) != 2 || code[0] < '0' || code[0] > '9' || code[1] < '0' || code[1] > '9' {
		return nil, ErrInvalidCode
	}

	for _, p := range s.Alive() {
		if p.LifeCode == code {
			return p, nil
		}
	}

	if rules.LifeCodeGrace > 0 && !s.LifeCodes.RotatedAt.IsZero() &&
		now.Before(s.LifeCodes.RotatedAt.Add(rules.LifeCodeGrace)) {
		for _, p := range s.Alive() {
			if p.PrevLifeCode == code {
				return p, nil
			}
		}
	}

	return nil, ErrInvalidCode
}
