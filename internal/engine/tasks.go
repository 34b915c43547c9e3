package engine

import (
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"time"
)

// TaskStatus is the lifecycle state of a shared or emergency task.
type TaskStatus string

const (
	TaskGathering TaskStatus = "gathering"
	TaskSolving   TaskStatus = "solving"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

func (s TaskStatus) resolved() bool {
	return s == TaskSucceeded || s == TaskFailed || s == TaskCancelled
}

// SharedTask is a cooperative puzzle for players sharing a location.
type SharedTask struct {
	Location     Location       `json:"location"`
	Round        int            `json:"round"`
	Status       TaskStatus     `json:"status"`
	Participants []int          `json:"participants"`
	Submissions  map[int]string `json:"submissions,omitempty"`
	Puzzle       *Puzzle        `json:"puzzle,omitempty"`
	Correct      map[int]bool   `json:"correct,omitempty"`
}

// EmergencyTask is a globally announced, competitive puzzle.
type EmergencyTask struct {
	Round        int            `json:"round"`
	Status       TaskStatus     `json:"status"`
	JoinUntil    time.Time      `json:"joinUntil"`
	Deadline     time.Time      `json:"deadline"`
	Participants []int          `json:"participants"`
	Attempts     map[int]string `json:"attempts,omitempty"`
	Puzzle       *Puzzle        `json:"puzzle,omitempty"`
	Solver       int            `json:"solver,omitempty"`
}

// TaskState feeds the global completion meter.
type TaskState struct {
	Progress  float64                  `json:"progress"`
	Shared    map[Location]*SharedTask `json:"shared,omitempty"`
	Emergency *EmergencyTask           `json:"emergency,omitempty"`
}

func (ts TaskState) clone() TaskState {
	c := TaskState{Progress: ts.Progress}
	if ts.Shared != nil {
		c.Shared = make(map[Location]*SharedTask, len(ts.Shared))
		for loc, st := range ts.Shared {
			cp := *st
			cp.Participants = slices.Clone(st.Participants)
			cp.Submissions = maps.Clone(st.Submissions)
			cp.Correct = maps.Clone(st.Correct)
			cp.Puzzle = st.Puzzle.clone()
			c.Shared[loc] = &cp
		}
	}
	if ts.Emergency != nil {
		cp := *ts.Emergency
		cp.Participants = slices.Clone(ts.Emergency.Participants)
		cp.Attempts = maps.Clone(ts.Emergency.Attempts)
		cp.Puzzle = ts.Emergency.Puzzle.clone()
		c.Emergency = &cp
	}
	return c
}

// addProgress credits contributor and, for the goose camp, the global meter.
func addProgress(s *Snapshot, p *Player, amount float64) float64 {
	if p.Camp() != CampGoose || amount <= 0 {
		return 0
	}
	p.TaskContribution += amount
	s.Tasks.Progress = min(100, s.Tasks.Progress+amount)
	return amount
}

func (s *Snapshot) inUnresolvedTask(seat int) bool {
	for _, st := range s.Tasks.Shared {
		if !st.Status.resolved() && slices.Contains(st.Participants, seat) {
			return true
		}
	}
	if e := s.Tasks.Emergency; e != nil && !e.Status.resolved() && slices.Contains(e.Participants, seat) {
		return true
	}
	return false
}

// individualTask spends oxygen for a fixed slice of progress, doubled when
// a power boost is active and the actor works alone.
func (t *turn) individualTask(actor *Player) (any, string, error) {
	if err := t.living(actor, PhaseRedLight); err != nil {
		return nil, "", err
	}
	if !t.s.LocationActive(actor.Location) {
		return nil, "", ErrUnknownLocation
	}
	if actor.Oxygen.ValueAt(t.now) <= t.rules.TaskCost {
		return nil, "", ErrLowOxygen
	}

	reward := t.rules.TaskReward
	if t.s.Round.PowerBoost && len(t.s.Occupants(actor.Location)) == 1 {
		reward = t.rules.BoostedTaskReward
	}

	adjustOxygen(t.s, t.rules, actor, -t.rules.TaskCost, t.now)
	addProgress(t.s, actor, reward)
	t.s.logf(t.now, "task", actor.Seat, 0, "")

	return map[string]any{"progress": t.s.Tasks.Progress}, "task complete", nil
}

// joinShared signs the actor up for the shared task at their location,
// opening one if none is gathering.
func (t *turn) joinShared(actor *Player) (any, string, error) {
	if err := t.living(actor, PhaseRedLight); err != nil {
		return nil, "", err
	}
	loc := actor.Location
	if !t.s.LocationActive(loc) {
		return nil, "", ErrUnknownLocation
	}
	if t.s.inUnresolvedTask(actor.Seat) {
		return nil, "", ErrTaskBusy
	}

	st := t.s.Tasks.Shared[loc]
	switch {
	case st == nil || st.Status.resolved():
		st = &SharedTask{Location: loc, Round: t.s.RoundCount, Status: TaskGathering}
		if t.s.Tasks.Shared == nil {
			t.s.Tasks.Shared = make(map[Location]*SharedTask)
		}
		t.s.Tasks.Shared[loc] = st
	case st.Status != TaskGathering:
		return nil, "", ErrTaskClosed
	}

	st.Participants = append(st.Participants, actor.Seat)
	return nil, fmt.Sprintf("joined shared task (%d waiting)", len(st.Participants)), nil
}

// beginShared closes enrolment and deals the puzzle.
func (t *turn) beginShared(actor *Player) (any, string, error) {
	if err := t.living(actor, PhaseRedLight); err != nil {
		return nil, "", err
	}
	st := t.s.Tasks.Shared[actor.Location]
	if st == nil || !slices.Contains(st.Participants, actor.Seat) {
		return nil, "", ErrNoTask
	}
	if st.Status != TaskGathering {
		return nil, "", ErrTaskClosed
	}
	if len(st.Participants) < 2 {
		return nil, "", ErrTooFewParticipants
	}

	if t.rng.IntN(2) == 0 {
		st.Puzzle = newGridPuzzle(t.rng, st.Participants)
	} else {
		st.Puzzle = newSegmentPuzzle(t.rng, st.Participants)
	}
	st.Status = TaskSolving
	st.Submissions = make(map[int]string, len(st.Participants))
	t.s.logf(t.now, "shared_task", actor.Seat, 0, string(st.Puzzle.Kind))

	return st.Puzzle.Views[actor.Seat], "shared task started", nil
}

// submitShared records the actor's answer; the task resolves once everyone
// has answered.
func (t *turn) submitShared(actor *Player, answer string) (any, string, error) {
	if err := t.living(actor, PhaseRedLight); err != nil {
		return nil, "", err
	}
	st := t.s.Tasks.Shared[actor.Location]
	if st == nil || !slices.Contains(st.Participants, actor.Seat) {
		return nil, "", ErrNoTask
	}
	if st.Status != TaskSolving {
		return nil, "", ErrTaskClosed
	}
	if _, ok := st.Submissions[actor.Seat]; ok {
		return nil, "", ErrAlreadySubmitted
	}

	st.Submissions[actor.Seat] = answer
	if len(st.Submissions) < len(st.Participants) {
		return nil, "answer recorded", nil
	}

	resolveShared(t.s, t.rules, st, t.now)
	return map[string]any{"status": st.Status}, "shared task " + string(st.Status), nil
}

// resolveShared grades a shared task all-or-nothing.
func resolveShared(s *Snapshot, rules Rules, st *SharedTask, now time.Time) {
	st.Correct = make(map[int]bool, len(st.Participants))
	ok := len(st.Participants) >= 2
	for _, seat := range st.Participants {
		good := st.Puzzle.Check(st.Submissions[seat])
		st.Correct[seat] = good
		ok = ok && good
	}

	if !ok {
		st.Status = TaskFailed
		for _, seat := range st.Participants {
			if p := s.Player(seat); p != nil && p.Alive {
				adjustOxygen(s, rules, p, -rules.SharedTaskPenalty, now)
			}
		}
		s.logf(now, "shared_task_failed", 0, 0, string(st.Location))
		return
	}

	st.Status = TaskSucceeded
	share := rules.SharedTaskReward / float64(len(st.Participants))
	for _, seat := range st.Participants {
		if p := s.Player(seat); p != nil {
			addProgress(s, p, share)
		}
	}
	s.logf(now, "shared_task_succeeded", 0, 0, string(st.Location))
}

// startEmergency announces an emergency task on the configured rounds.
func startEmergency(s *Snapshot, rules Rules, now time.Time) {
	if rules.EmergencyTaskInterval <= 0 || s.RoundCount%rules.EmergencyTaskInterval != 0 {
		return
	}
	join := now.Add(rules.Durations.EmergencyJoin)
	s.Tasks.Emergency = &EmergencyTask{
		Round:     s.RoundCount,
		Status:    TaskGathering,
		JoinUntil: join,
		Deadline:  join.Add(rules.Durations.EmergencySolve),
	}
	s.logf(now, "emergency_task", 0, 0, "announced")
}

func (t *turn) joinEmergency(actor *Player) (any, string, error) {
	if err := t.living(actor, PhaseRedLight); err != nil {
		return nil, "", err
	}
	e := t.s.Tasks.Emergency
	if e == nil || e.Round != t.s.RoundCount {
		return nil, "", ErrNoTask
	}
	if e.Status != TaskGathering || !t.now.Before(e.JoinUntil) {
		return nil, "", ErrTaskClosed
	}
	if t.s.inUnresolvedTask(actor.Seat) {
		return nil, "", ErrTaskBusy
	}

	e.Participants = append(e.Participants, actor.Seat)
	return nil, "joined emergency task", nil
}

// submitEmergency takes one attempt per participant. The first correct
// answer resolves the task for everyone.
func (t *turn) submitEmergency(actor *Player, answer string) (any, string, error) {
	if err := t.living(actor, PhaseRedLight); err != nil {
		return nil, "", err
	}
	e := t.s.Tasks.Emergency
	if e == nil || !slices.Contains(e.Participants, actor.Seat) {
		return nil, "", ErrNoTask
	}
	if e.Status != TaskSolving || !t.now.Before(e.Deadline) {
		return nil, "", ErrTaskClosed
	}
	if _, ok := e.Attempts[actor.Seat]; ok {
		return nil, "", ErrAlreadySubmitted
	}

	if e.Attempts == nil {
		e.Attempts = make(map[int]string)
	}
	e.Attempts[actor.Seat] = answer

	if e.Puzzle.Check(answer) {
		e.Status = TaskSucceeded
		e.Solver = actor.Seat
		addProgress(t.s, actor, t.rules.EmergencyTaskReward)
		t.s.logf(t.now, "emergency_task_succeeded", actor.Seat, 0, "")
		return map[string]any{"correct": true}, "emergency task solved", nil
	}

	if len(e.Attempts) >= len(e.Participants) {
		failEmergency(t.s, t.rules, t.now)
	}
	return map[string]any{"correct": false}, "wrong answer", nil
}

func failEmergency(s *Snapshot, rules Rules, now time.Time) {
	e := s.Tasks.Emergency
	e.Status = TaskFailed
	s.Tasks.Progress = max(0, s.Tasks.Progress-rules.EmergencyTaskPenalty)
	s.logf(now, "emergency_task_failed", 0, 0, "")
}

// advanceEmergency moves the emergency task through its windows.
func advanceEmergency(s *Snapshot, rules Rules, rng *rand.Rand, now time.Time) bool {
	e := s.Tasks.Emergency
	if e == nil || e.Status.resolved() {
		return false
	}

	switch e.Status {
	case TaskGathering:
		if now.Before(e.JoinUntil) {
			return false
		}
		if len(e.Participants) == 0 {
			failEmergency(s, rules, now)
			return true
		}
		e.Puzzle = newMissingPuzzle(rng, e.Participants)
		e.Status = TaskSolving
		s.logf(now, "emergency_task", 0, 0, "started")
		return true
	case TaskSolving:
		if now.Before(e.Deadline) {
			return false
		}
		failEmergency(s, rules, now)
		return true
	}
	return false
}

// closeTasks cancels whatever is still open when the red light ends.
func closeTasks(s *Snapshot, now time.Time) {
	for _, st := range s.Tasks.Shared {
		if !st.Status.resolved() {
			st.Status = TaskCancelled
		}
	}
	if e := s.Tasks.Emergency; e != nil && !e.Status.resolved() {
		e.Status = TaskCancelled
		s.logf(now, "emergency_task_cancelled", 0, 0, "")
	}
}

// dropFromTasks removes a dead player from open tasks, resolving a shared
// task whose remaining participants have all answered.
func dropFromTasks(s *Snapshot, rules Rules, seat int, now time.Time) {
	for _, st := range s.Tasks.Shared {
		if st.Status.resolved() || !slices.Contains(st.Participants, seat) {
			continue
		}
		st.Participants = slices.DeleteFunc(st.Participants, func(v int) bool { return v == seat })
		delete(st.Submissions, seat)

		switch {
		case st.Status == TaskSolving && len(st.Participants) < 2:
			st.Status = TaskCancelled
		case st.Status == TaskSolving && len(st.Submissions) == len(st.Participants):
			resolveShared(s, rules, st, now)
		}
	}
	if e := s.Tasks.Emergency; e != nil && !e.Status.resolved() {
		e.Participants = slices.DeleteFunc(e.Participants, func(v int) bool { return v == seat })
	}
}
