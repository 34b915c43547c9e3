package engine

import "slices"

// Ghosts are players whose death has been revealed at a meeting. Each round
// a ghost picks a location to drift to and a living player to haunt; while
// both end up in the same place during a red light, the haunted player
// leaks oxygen at the elevated rate.

// haunted reports whether any ghost is actively haunting p.
func haunted(s *Snapshot, p *Player) bool {
	if s.Phase != PhaseRedLight || p.Location == "" {
		return false
	}
	for i := range s.Players {
		g := &s.Players[i]
		if g.HauntTarget != p.Seat || g.GhostLocation != p.Location {
			continue
		}
		if s.ghostRevealed(g.Seat) {
			return true
		}
	}
	return false
}

// Haunters lists the ghosts currently draining seat.
func Haunters(s *Snapshot, seat int) []int {
	p := s.Player(seat)
	if p == nil || !p.Alive || s.Phase != PhaseRedLight {
		return nil
	}
	var out []int
	for i := range s.Players {
		g := &s.Players[i]
		if g.HauntTarget == seat && g.GhostLocation == p.Location && s.ghostRevealed(g.Seat) {
			out = append(out, g.Seat)
		}
	}
	return out
}

// banish releases every haunt aimed at seat.
func banish(s *Snapshot, seat int) {
	for i := range s.Players {
		if s.Players[i].HauntTarget == seat {
			s.Players[i].HauntTarget = 0
		}
	}
}

func (t *turn) ghost(actor *Player, phases ...Phase) error {
	if !slices.Contains(phases, t.s.Phase) {
		return ErrWrongPhase
	}
	if !t.s.ghostRevealed(actor.Seat) {
		return ErrNotDead
	}
	return nil
}

// ghostMove sets where the ghost drifts this round.
func (t *turn) ghostMove(actor *Player, loc Location) (any, string, error) {
	if err := t.ghost(actor, PhaseGreenLight, PhaseYellowLight); err != nil {
		return nil, "", err
	}
	if !t.s.LocationActive(loc) {
		return nil, "", ErrUnknownLocation
	}

	actor.GhostLocation = loc
	return nil, "drifting to " + string(loc), nil
}

// haunt picks the living player the ghost drains.
func (t *turn) haunt(actor *Player, target *int) (any, string, error) {
	if err := t.ghost(actor, PhaseGreenLight, PhaseYellowLight, PhaseRedLight); err != nil {
		return nil, "", err
	}
	if target == nil {
		actor.HauntTarget = 0
		refreshDrain(t.s, t.rules, t.now)
		return nil, "haunt released", nil
	}
	p := t.s.Player(*target)
	if p == nil || !p.Bound() || !p.Alive {
		return nil, "", ErrInvalidTarget
	}

	actor.HauntTarget = p.Seat
	refreshDrain(t.s, t.rules, t.now)
	t.s.logf(t.now, "haunt", actor.Seat, p.Seat, "")
	return nil, "haunting " + p.Name, nil
}
