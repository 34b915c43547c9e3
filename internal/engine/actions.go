package engine

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// turn carries everything a handler needs for one command or tick. The
// snapshot it points at is a private clone until the room commits it.
type turn struct {
	s     *Snapshot
	rules Rules
	rng   *rand.Rand
	now   time.Time
}

// living is the validation shared by every action a living player takes.
func (t *turn) living(actor *Player, phase Phase) error {
	if t.s.Phase != phase {
		return ErrWrongPhase
	}
	if actor.Role == "" {
		return ErrRoleNotAssigned
	}
	if !actor.Alive {
		return ErrNotAlive
	}
	return nil
}

// setTarget records where the actor wants to go in the coming round. An
// empty location clears the preference.
func (t *turn) setTarget(actor *Player, loc Location) (any, string, error) {
	if err := t.living(actor, PhaseGreenLight); err != nil {
		return nil, "", err
	}
	if loc != "" && !t.s.LocationActive(loc) {
		return nil, "", ErrUnknownLocation
	}

	actor.TargetLocation = loc
	if loc == "" {
		return nil, "preference cleared", nil
	}
	return nil, "heading to " + string(loc), nil
}

// kill resolves a life code into a victim. Killers pay oxygen for a wrong
// code; anyone else who lands a real code commits a foul and dies.
func (t *turn) kill(actor *Player, code string) (any, string, error) {
	if err := t.living(actor, PhaseRedLight); err != nil {
		return nil, "", err
	}

	armed := actor.Role.CanKill()
	if armed && t.s.Round.used(actor.Seat, AbilityKill) {
		return nil, "", ErrAlreadyKilled
	}

	target, err := ResolveLifeCode(t.s, t.rules, code, t.now)
	if err != nil {
		if !armed {
			return nil, "", err
		}
		adjustOxygen(t.s, t.rules, actor, -t.rules.WrongCodePenalty, t.now)
		t.s.logf(t.now, "wrong_code", actor.Seat, 0, code)
		return nil, "", penalty(ErrWrongCode)
	}
	if target.Seat == actor.Seat {
		return nil, "", ErrSelfTarget
	}

	if !armed {
		killPlayer(t.s, t.rules, actor, 0, CauseFoul, t.now)
		return nil, "", penalty(ErrFoul)
	}

	if target.Location != actor.Location {
		return nil, "", ErrNotSameLocation
	}

	if actor.Role == RolePoisoner {
		if !target.PoisonAt.IsZero() {
			return nil, "", ErrInvalidTarget
		}
		t.s.Round.mark(actor.Seat, AbilityKill)
		target.PoisonAt = t.now.Add(t.rules.Durations.Poison)
		target.PoisonedBy = actor.Seat
		t.s.logf(t.now, "poison", actor.Seat, target.Seat, "")
		return nil, "poison administered", nil
	}

	t.s.Round.mark(actor.Seat, AbilityKill)
	killPlayer(t.s, t.rules, target, actor.Seat, CauseKill, t.now)
	return nil, "kill confirmed", nil
}

// giveOxygen hands a fixed refill to a co-located player. Once per round.
func (t *turn) giveOxygen(actor *Player, code string) (any, string, error) {
	if err := t.living(actor, PhaseRedLight); err != nil {
		return nil, "", err
	}
	if t.s.Round.used(actor.Seat, AbilityGiveOxygen) {
		return nil, "", ErrAlreadyGaveOxygen
	}

	target, err := ResolveLifeCode(t.s, t.rules, code, t.now)
	if err != nil {
		return nil, "", err
	}
	if target.Seat == actor.Seat {
		return nil, "", ErrSelfTarget
	}
	if target.Location != actor.Location {
		return nil, "", ErrNotSameLocation
	}

	t.s.Round.mark(actor.Seat, AbilityGiveOxygen)
	adjustOxygen(t.s, t.rules, target, t.rules.GiveOxygen, t.now)
	t.s.logf(t.now, "give_oxygen", actor.Seat, target.Seat, "")

	return nil, fmt.Sprintf("gave %d oxygen", t.rules.GiveOxygen), nil
}

// ability uses the actor's current location. The actor must be alone there
// and each location works once per player per round.
func (t *turn) ability(actor *Player, cmd Command) (any, string, error) {
	if err := t.living(actor, PhaseRedLight); err != nil {
		return nil, "", err
	}
	loc := actor.Location
	if !t.s.LocationActive(loc) {
		return nil, "", ErrUnknownLocation
	}
	if len(t.s.Occupants(loc)) != 1 {
		return nil, "", ErrNotSoleOccupant
	}
	if t.s.Round.used(actor.Seat, Ability(loc)) {
		return nil, "", ErrAlreadyUsed
	}

	var (
		data any
		msg  string
	)

	switch loc {
	case LocationMonitor:
		peek := cmd.Location
		if peek == loc {
			return nil, "", ErrInvalidTarget
		}
		if !t.s.LocationActive(peek) {
			return nil, "", ErrUnknownLocation
		}
		seats := []int{}
		for _, p := range t.s.Occupants(peek) {
			seats = append(seats, p.Seat)
		}
		data = map[string]any{"location": peek, "occupants": seats}
		msg = fmt.Sprintf("%d in %s", len(seats), peek)

	case LocationPower:
		t.s.Round.PowerBoost = true
		msg = "tasks boosted this round"

	case LocationKitchen:
		adjustOxygen(t.s, t.rules, actor, t.rules.KitchenOxygen, t.now)
		msg = fmt.Sprintf("refilled %d oxygen", t.rules.KitchenOxygen)

	case LocationMedical:
		banish(t.s, actor.Seat)
		refreshDrain(t.s, t.rules, t.now)
		adjustOxygen(t.s, t.rules, actor, t.rules.MedicalOxygen, t.now)
		msg = "treated"

	case LocationWarehouse:
		target, err := ResolveLifeCode(t.s, t.rules, cmd.Code, t.now)
		if err != nil {
			return nil, "", err
		}
		if target.Seat == actor.Seat {
			return nil, "", ErrSelfTarget
		}
		adjustOxygen(t.s, t.rules, target, t.rules.WarehouseOxygen, t.now)
		t.s.logf(t.now, "supply", actor.Seat, target.Seat, "")
		msg = fmt.Sprintf("sent %d oxygen", t.rules.WarehouseOxygen)

	case LocationDispatch:
		t.s.PendingDispatch = actor.Seat
		msg = "random dispatch next round"

	case LocationStasis:
		actor.Stasis = true
		refreshDrain(t.s, t.rules, t.now)
		msg = "in stasis"

	default:
		return nil, "", ErrUnknownLocation
	}

	t.s.Round.mark(actor.Seat, Ability(loc))
	t.s.logf(t.now, "ability", actor.Seat, 0, string(loc))
	return data, msg, nil
}

// investigate lets the detective read another player's task contribution.
func (t *turn) investigate(actor *Player, code string) (any, string, error) {
	if err := t.living(actor, PhaseRedLight); err != nil {
		return nil, "", err
	}
	if actor.Role != RoleDetective {
		return nil, "", ErrNotPermitted
	}
	if t.s.Round.used(actor.Seat, AbilityInvestigate) {
		return nil, "", ErrAlreadyUsed
	}

	target, err := ResolveLifeCode(t.s, t.rules, code, t.now)
	if err != nil {
		return nil, "", err
	}
	if target.Seat == actor.Seat {
		return nil, "", ErrSelfTarget
	}

	t.s.Round.mark(actor.Seat, AbilityInvestigate)
	t.s.logf(t.now, "investigate", actor.Seat, target.Seat, "")

	return map[string]any{
		"seat":         target.Seat,
		"contribution": target.TaskContribution,
	}, fmt.Sprintf("%s has contributed %.1f", target.Name, target.TaskContribution), nil
}
