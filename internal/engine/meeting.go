package engine

import (
	"fmt"
	"maps"
	"time"
)

// Tally resolves a set of ballots (voter seat -> target seat, 0 = abstain).
// A unique leader is executed only when their count beats the abstentions.
func Tally(ballots map[int]int) VoteRecord {
	rec := VoteRecord{
		Ballots: maps.Clone(ballots),
		Tally:   make(map[int]int),
	}
	if rec.Ballots == nil {
		rec.Ballots = make(map[int]int)
	}

	for _, target := range ballots {
		if target == 0 {
			rec.Abstain++
			continue
		}
		rec.Tally[target]++
	}

	top, leaders := 0, 0
	leader := 0
	for target, n := range rec.Tally {
		switch {
		case n > top:
			top, leaders, leader = n, 1, target
		case n == top:
			leaders++
		}
	}

	switch {
	case top == 0 || top <= rec.Abstain:
		rec.Reason = "skip"
	case leaders > 1:
		rec.Reason = "tie"
	default:
		rec.Reason = "executed"
		rec.Executed = leader
	}
	return rec
}

// report opens a meeting from the red light. All unrevealed deaths become
// public; a report with nothing to reveal costs the reporter oxygen.
func (t *turn) report(actor *Player) (any, string, error) {
	if err := t.living(actor, PhaseRedLight); err != nil {
		return nil, "", err
	}

	revealed := make([]int, 0)
	for i := range t.s.Deaths {
		if !t.s.Deaths[i].Revealed {
			t.s.Deaths[i].Revealed = true
			revealed = append(revealed, t.s.Deaths[i].Seat)
		}
	}

	msg := fmt.Sprintf("meeting called, %d dead revealed", len(revealed))
	if len(revealed) == 0 {
		adjustOxygen(t.s, t.rules, actor, -t.rules.FalseReportPenalty, t.now)
		t.s.logf(t.now, "false_report", actor.Seat, 0, "")
		msg = "false report"
	}
	t.s.logf(t.now, "report", actor.Seat, 0, fmt.Sprint(revealed))

	if err := t.enter(PhaseMeeting); err != nil {
		return nil, "", err
	}
	t.s.Meeting = &Meeting{Reporter: actor.Seat, Ballots: make(map[int]int)}

	return map[string]any{"revealed": revealed}, msg, nil
}

// vote records a single ballot. A nil target abstains.
func (t *turn) vote(actor *Player, target *int) (any, string, error) {
	if err := t.living(actor, PhaseVoting); err != nil {
		return nil, "", err
	}
	if t.s.Meeting == nil {
		return nil, "", fmt.Errorf("%w: voting without a meeting", ErrCorruptSnapshot)
	}
	if actor.Voted {
		return nil, "", ErrAlreadyVoted
	}

	choice := 0
	if target != nil {
		p := t.s.Player(*target)
		if p == nil || !p.Bound() || !p.Alive {
			return nil, "", ErrInvalidTarget
		}
		choice = p.Seat
	}

	t.s.Meeting.Ballots[actor.Seat] = choice
	actor.Voted = true

	if livingBallots(t.s) >= len(t.s.Alive()) {
		if err := t.enter(PhaseExecution); err != nil {
			return nil, "", err
		}
	}
	return nil, "vote recorded", nil
}

// livingBallots counts ballots cast by players who are still alive.
func livingBallots(s *Snapshot) int {
	n := 0
	for voter := range s.Meeting.Ballots {
		if p := s.Player(voter); p != nil && p.Alive {
			n++
		}
	}
	return n
}

// execute tallies the meeting's ballots and carries out the verdict.
func execute(s *Snapshot, rules Rules, now time.Time) {
	var ballots map[int]int
	reporter := 0
	if s.Meeting != nil {
		ballots = s.Meeting.Ballots
		reporter = s.Meeting.Reporter
	}

	rec := Tally(ballots)
	rec.Round = s.RoundCount
	rec.Reporter = reporter
	s.VotingHistory = append(s.VotingHistory, rec)
	if s.Meeting != nil {
		out := rec.clone()
		s.Meeting.Outcome = &out
	}

	if rec.Executed == 0 {
		s.logf(now, "vote", 0, 0, rec.Reason)
		return
	}
	if p := s.Player(rec.Executed); p != nil {
		killPlayer(s, rules, p, 0, CauseExecution, now)
	}
	s.logf(now, "vote", 0, rec.Executed, rec.Reason)
}
