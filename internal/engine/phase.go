/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package engine

import (
	"fmt"
	"slices"
	"time"
)

var transitions = map[Phase][]Phase{
	PhaseLobby:       {PhaseRoleReveal},
	PhaseRoleReveal:  {PhaseGreenLight, PhaseGameOver},
	PhaseGreenLight:  {PhaseYellowLight, PhaseGameOver},
	PhaseYellowLight: {PhaseRedLight, PhaseGameOver},
	PhaseRedLight:    {PhaseMeeting, PhaseGreenLight, PhaseGameOver},
	PhaseMeeting:     {PhaseVoting, PhaseGameOver},
	PhaseVoting:      {PhaseExecution, PhaseGameOver},
	PhaseExecution:   {PhaseGreenLight, PhaseGameOver},
	PhaseGameOver:    {PhaseLobby},
}

// CanTransition reports whether from -> to is an edge of the phase cycle.
func CanTransition(from, to Phase) bool {
	return slices.Contains(transitions[from], to)
}

// natural is the phase a timed phase expires into.
func natural(p Phase) (Phase, bool) {
	switch p {
	case PhaseRoleReveal, PhaseRedLight, PhaseExecution:
		return PhaseGreenLight, true
	case PhaseGreenLight:
		return PhaseYellowLight, true
	case PhaseYellowLight:
		return PhaseRedLight, true
	case PhaseMeeting:
		return PhaseVoting, true
	case PhaseVoting:
		return PhaseExecution, true
	}
	return "", false
}

// enter moves the room into next. Round scratch and transient targeting
// are cleared on every transition and a fresh deadline is set.
func (t *turn) enter(next Phase) error {
	s := t.s
	if !CanTransition(s.Phase, next) {
		return fmt.Errorf("%w: %s to %s", ErrBadTransition, s.Phase, next)
	}

	if s.Phase == PhaseRedLight {
		for i := range s.Players {
			s.Players[i].Stasis = false
		}
		closeTasks(s, t.now)
	}

	s.Phase = next
	s.Round = RoundState{}
	clearLifeCodes(s)

	var d time.Duration
	switch next {
	case PhaseRoleReveal:
		d = t.rules.Durations.RoleReveal

	case PhaseGreenLight:
		s.RoundCount++
		s.Meeting = nil
		s.Tasks.Shared = nil
		s.Tasks.Emergency = nil
		for i := range s.Players {
			s.Players[i].TargetLocation = ""
			s.Players[i].GhostLocation = ""
			s.Players[i].Voted = false
		}
		openLocations(s, t.rules, t.rng)
		d = t.rules.Durations.GreenLight

	case PhaseYellowLight:
		rec := AssignLocations(s, t.rules, t.rng, s.PendingDispatch)
		s.PendingDispatch = 0
		s.LocationHistory = append(s.LocationHistory, rec)
		d = t.rules.Durations.YellowLight

	case PhaseRedLight:
		startLifeCodes(s, t.rules, t.rng, t.now)
		startEmergency(s, t.rules, t.now)
		d = t.rules.Durations.RedLight

	case PhaseMeeting:
		for i := range s.Players {
			s.Players[i].Voted = false
		}
		d = t.rules.meetingDuration(len(s.Alive()))

	case PhaseVoting:
		if s.Meeting == nil {
			s.Meeting = &Meeting{}
		}
		s.Meeting.Ballots = make(map[int]int)
		for i := range s.Players {
			s.Players[i].Voted = false
		}
		d = t.rules.Durations.Voting

	case PhaseExecution:
		execute(s, t.rules, t.now)
		d = t.rules.Durations.Execution
	}

	s.Deadline = time.Time{}
	if d > 0 {
		s.Deadline = t.now.Add(d)
	}
	refreshDrain(s, t.rules, t.now)
	s.logf(t.now, "phase", 0, 0, string(next))

	return nil
}

// advance fires the natural transition once the deadline has passed.
func (t *turn) advance() (bool, error) {
	s := t.s
	if s.Paused || s.Deadline.IsZero() || t.now.Before(s.Deadline) {
		return false, nil
	}
	next, ok := natural(s.Phase)
	if !ok {
		return false, nil
	}
	return true, t.enter(next)
}

// checkWin ends the game when the evaluator names a winner.
func (t *turn) checkWin() (bool, error) {
	s := t.s
	if s.Phase == PhaseLobby || s.Phase == PhaseGameOver {
		return false, nil
	}
	res := Evaluate(s, t.rules)
	if res == nil {
		return false, nil
	}
	res.At = t.now
	s.Result = res
	s.logf(t.now, "game_over", 0, 0, res.Reason)
	return true, t.enter(PhaseGameOver)
}

// resetToLobby returns a room to the lobby with every seat kept. The
// finished game is moved into the archive.
func (t *turn) resetToLobby() {
	s := t.s
	if s.Phase != PhaseLobby {
		s.Archive = append(s.Archive, GameSummary{
			Rounds:        s.RoundCount,
			Result:        s.Result,
			Deaths:        s.Deaths,
			VotingHistory: s.VotingHistory,
			EndedAt:       t.now,
		})
	}

	for i := range s.Players {
		p := &s.Players[i]
		*p = Player{Seat: p.Seat, Session: p.Session, Name: p.Name}
	}

	s.Phase = PhaseLobby
	s.RoundCount = 0
	s.ActiveLocations = nil
	s.PendingDispatch = 0
	s.LifeCodes = LifeCodeState{}
	s.Round = RoundState{}
	s.Meeting = nil
	s.Tasks = TaskState{}
	s.Deaths = nil
	s.VotingHistory = nil
	s.LocationHistory = nil
	s.Paused = false
	s.PausedAt = time.Time{}
	s.Deadline = time.Time{}
	s.Result = nil
	s.logf(t.now, "reset", 0, 0, "")
}

// ResetToLobby re-initializes a room's snapshot for another game.
func (r *Room) ResetToLobby(now time.Time) {
	s := r.snap.Clone()
	t := &turn{s: s, rules: r.rules, rng: r.rng, now: now}
	t.resetToLobby()
	r.commit(s, now)
}

func (t *turn) pause() (any, string, error) {
	s := t.s
	if s.Phase == PhaseLobby || s.Phase == PhaseGameOver {
		return nil, "", ErrWrongPhase
	}
	if s.Paused {
		return nil, "", ErrPaused
	}

	s.Paused = true
	s.PausedAt = t.now
	refreshDrain(s, t.rules, t.now)
	s.logf(t.now, "pause", 0, 0, "")
	return nil, "paused", nil
}

// resume shifts every absolute timer by the time spent paused and restarts
// the oxygen drain from now.
func (t *turn) resume() (any, string, error) {
	s := t.s
	if !s.Paused {
		return nil, "", ErrNotPaused
	}

	span := t.now.Sub(s.PausedAt)
	if span < 0 {
		span = 0
	}
	shift := func(at *time.Time) {
		if !at.IsZero() {
			*at = at.Add(span)
		}
	}

	shift(&s.Deadline)
	shift(&s.LifeCodes.RotateAt)
	shift(&s.LifeCodes.RotatedAt)
	for i := range s.Players {
		shift(&s.Players[i].PoisonAt)
	}
	if e := s.Tasks.Emergency; e != nil {
		shift(&e.JoinUntil)
		shift(&e.Deadline)
	}

	s.Paused = false
	s.PausedAt = time.Time{}
	refreshDrain(s, t.rules, t.now)
	s.logf(t.now, "resume", 0, 0, span.Round(time.Second).String())
	return nil, "resumed", nil
}
