package engine

import (
	"fmt"
	"time"
)

// drainRate is the current per-second oxygen loss for p.
func drainRate(s *Snapshot, rules Rules, p *Player) float64 {
	if s.Paused || s.Phase != PhaseRedLight || !p.Alive || p.Stasis {
		return 0
	}
	rate := rules.DrainRate
	if haunted(s, p) {
		rate += rules.LeakRate
	}
	return rate
}

// refreshDrain re-bases every living player at now with the rate the
// current state calls for.
func refreshDrain(s *Snapshot, rules Rules, now time.Time) {
	for _, p := range s.Alive() {
		p.Oxygen = p.Oxygen.WithRate(now, drainRate(s, rules, p))
	}
}

// adjustOxygen applies delta to p at now, capped at MaxOxygen.
func adjustOxygen(s *Snapshot, rules Rules, p *Player, delta int, now time.Time) {
	p.Oxygen = p.Oxygen.Rebase(now, float64(delta), drainRate(s, rules, p), rules.MaxOxygen)
}

// killPlayer removes p from play and records the death unrevealed.
func killPlayer(s *Snapshot, rules Rules, p *Player, killer int, cause Cause, now time.Time) {
	if !p.Alive {
		return
	}
	p.Alive = false
	p.Oxygen = p.Oxygen.WithRate(now, 0)
	p.Stasis = false
	p.PoisonAt = time.Time{}
	p.PoisonedBy = 0
	p.LifeCode = ""
	p.PrevLifeCode = ""

	s.Deaths = append(s.Deaths, Death{
		Seat:     p.Seat,
		Killer:   killer,
		Cause:    cause,
		Round:    s.RoundCount,
		Location: p.Location,
		At:       now,
		Revealed: cause == CauseExecution,
	})
	s.logf(now, "death", killer, p.Seat, string(cause))

	banish(s, p.Seat)
	dropFromTasks(s, rules, p.Seat, now)
	refreshDrain(s, rules, now)
}

// sweepOxygen handles everyone whose oxygen has run out: a role with an
// unused emergency refill is topped up once, anyone else dies.
func sweepOxygen(s *Snapshot, rules Rules, now time.Time) bool {
	changed := false
	for _, p := range s.Alive() {
		if !p.Oxygen.Depleted(now) {
			continue
		}
		changed = true

		if refill := rules.EmergencyOxygen[p.Role]; refill > 0 && !p.EmergencyUsed {
			p.EmergencyUsed = true
			p.Oxygen = p.Oxygen.Set(now, refill, drainRate(s, rules, p))
			s.logf(now, "emergency_oxygen", p.Seat, p.Seat, fmt.Sprintf("refilled to %d", refill))
			continue
		}

		killPlayer(s, rules, p, 0, CauseOxygen, now)
	}
	return changed
}

// resolvePoison kills every poisoned player whose countdown has elapsed.
func resolvePoison(s *Snapshot, rules Rules, now time.Time) bool {
	changed := false
	for _, p := range s.Alive() {
		if p.PoisonAt.IsZero() || now.Before(p.PoisonAt) {
			continue
		}
		changed = true
		killPlayer(s, rules, p, p.PoisonedBy, CausePoison, now)
	}
	return changed
}
