/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package engine

import (
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

const maxNameLength = 24

// CommandType names an operation on the room.
type CommandType string

const (
	CmdJoin            CommandType = "join"
	CmdLeave           CommandType = "leave"
	CmdStart           CommandType = "start"
	CmdReset           CommandType = "reset"
	CmdPause           CommandType = "pause"
	CmdResume          CommandType = "resume"
	CmdSetTarget       CommandType = "set_target"
	CmdKill            CommandType = "kill"
	CmdGiveOxygen      CommandType = "give_oxygen"
	CmdAbility         CommandType = "ability"
	CmdInvestigate     CommandType = "investigate"
	CmdTask            CommandType = "task"
	CmdJoinShared      CommandType = "join_shared"
	CmdBeginShared     CommandType = "begin_shared"
	CmdSubmitShared    CommandType = "submit_shared"
	CmdJoinEmergency   CommandType = "join_emergency"
	CmdSubmitEmergency CommandType = "submit_emergency"
	CmdReport          CommandType = "report"
	CmdVote            CommandType = "vote"
	CmdGhostMove       CommandType = "ghost_move"
	CmdHaunt           CommandType = "haunt"
)

// Command is one request from a participant. Session is filled in by the
// transport from the participant's cookie, never from the payload.
type Command struct {
	Type     CommandType `json:"type"`
	Session  string      `json:"-"`
	Name     string      `json:"name,omitempty"`
	Code     string      `json:"code,omitempty"`
	Location Location    `json:"location,omitempty"`
	Target   *int        `json:"target,omitempty"`
	Answer   string      `json:"answer,omitempty"`
}

// Reply acknowledges a command to its sender. OK is false for penalties
// even though they change the room; Penalty tells the two cases apart.
type Reply struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Penalty bool   `json:"penalty,omitempty"`

	Changed bool  `json:"-"`
	Err     error `json:"-"`
}

// Room owns one snapshot and applies commands to it atomically. A Room is
// not safe for concurrent use; callers serialize access.
type Room struct {
	rules Rules
	rng   *rand.Rand
	snap  *Snapshot
}

// NewRoom creates an empty lobby. A nil rng is seeded randomly.
func NewRoom(code string, rules Rules, rng *rand.Rand, now time.Time) (*Room, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = NewRand(0)
	}
	return &Room{
		rules: rules,
		rng:   rng,
		snap:  NewSnapshot(code, rules.MaxSeats, now),
	}, nil
}

// Snapshot returns a copy of the current state.
func (r *Room) Snapshot() *Snapshot {
	return r.snap.Clone()
}

// Rules returns the rule set the room was created with.
func (r *Room) Rules() Rules {
	return r.rules
}

// Phase is the current phase, without copying the snapshot.
func (r *Room) Phase() Phase {
	return r.snap.Phase
}

// Version is the commit counter of the current snapshot.
func (r *Room) Version() uint64 {
	return r.snap.Version
}

// Apply runs cmd against a copy of the snapshot. Validation failures
// discard the copy; successes and penalties commit it together with any
// deaths and win the command caused.
func (r *Room) Apply(cmd Command, now time.Time) Reply {
	s := r.snap.Clone()
	t := &turn{s: s, rules: r.rules, rng: r.rng, now: now}

	data, msg, err := t.dispatch(cmd)
	if err != nil && !IsPenalty(err) {
		return Reply{Error: err.Error(), Err: err}
	}

	if serr := t.settle(); serr != nil {
		return Reply{Error: serr.Error(), Err: serr}
	}
	r.commit(s, now)

	if err != nil {
		return Reply{Error: err.Error(), Err: err, Penalty: true, Changed: true}
	}
	return Reply{OK: true, Message: msg, Data: data, Changed: true}
}

// Tick performs the time-driven work: poison, oxygen depletion, life code
// rotation, emergency task windows, win checks and expired deadlines. It
// reports whether anything changed.
func (r *Room) Tick(now time.Time) (bool, error) {
	if r.snap.Phase == PhaseLobby || r.snap.Phase == PhaseGameOver || r.snap.Paused {
		return false, nil
	}

	s := r.snap.Clone()
	t := &turn{s: s, rules: r.rules, rng: r.rng, now: now}

	changed := resolvePoison(s, r.rules, now)
	changed = sweepOxygen(s, r.rules, now) || changed

	if s.Phase == PhaseRedLight && !s.LifeCodes.RotateAt.IsZero() && !now.Before(s.LifeCodes.RotateAt) {
		rotateLifeCodes(s, r.rng, now)
		changed = true
	}
	changed = advanceEmergency(s, r.rules, r.rng, now) || changed

	over, err := t.checkWin()
	if err != nil {
		return false, err
	}
	changed = changed || over

	if !over {
		moved, err := t.advance()
		if err != nil {
			return false, err
		}
		if moved {
			changed = true
			if _, err := t.checkWin(); err != nil {
				return false, err
			}
		}
	}

	if !changed {
		return false, nil
	}
	r.commit(s, now)
	return true, nil
}

func (r *Room) commit(s *Snapshot, now time.Time) {
	if n := r.rules.MaxLogEntries; n > 0 && len(s.Log) > n {
		s.Log = slices.Clone(s.Log[len(s.Log)-n:])
	}
	s.touch(now)
	r.snap = s
}

// settle sweeps depleted players and checks for a winner after a command.
func (t *turn) settle() error {
	if t.s.Phase == PhaseLobby || t.s.Phase == PhaseGameOver {
		return nil
	}
	sweepOxygen(t.s, t.rules, t.now)
	_, err := t.checkWin()
	return err
}

var hostOnly = map[CommandType]bool{
	CmdStart:  true,
	CmdReset:  true,
	CmdPause:  true,
	CmdResume: true,
}

func (t *turn) dispatch(cmd Command) (any, string, error) {
	if cmd.Session == "" {
		return nil, "", ErrMalformedCommand
	}
	if cmd.Type == CmdJoin {
		return t.join(cmd.Session, cmd.Name)
	}

	actor := t.s.BySession(cmd.Session)
	if actor == nil {
		return nil, "", ErrUnknownPlayer
	}
	if hostOnly[cmd.Type] && actor.Seat != t.s.Host() {
		return nil, "", ErrNotHost
	}

	switch cmd.Type {
	case CmdLeave:
		return t.leave(actor)
	case CmdStart:
		return t.start()
	case CmdReset:
		if t.s.Phase == PhaseLobby {
			return nil, "", ErrWrongPhase
		}
		t.resetToLobby()
		return nil, "back to the lobby", nil
	case CmdPause:
		return t.pause()
	case CmdResume:
		return t.resume()
	}

	if t.s.Paused {
		return nil, "", ErrPaused
	}

	switch cmd.Type {
	case CmdSetTarget:
		return t.setTarget(actor, cmd.Location)
	case CmdKill:
		return t.kill(actor, cmd.Code)
	case CmdGiveOxygen:
		return t.giveOxygen(actor, cmd.Code)
	case CmdAbility:
		return t.ability(actor, cmd)
	case CmdInvestigate:
		return t.investigate(actor, cmd.Code)
	case CmdTask:
		return t.individualTask(actor)
	case CmdJoinShared:
		return t.joinShared(actor)
	case CmdBeginShared:
		return t.beginShared(actor)
	case CmdSubmitShared:
		return t.submitShared(actor, cmd.Answer)
	case CmdJoinEmergency:
		return t.joinEmergency(actor)
	case CmdSubmitEmergency:
		return t.submitEmergency(actor, cmd.Answer)
	case CmdReport:
		return t.report(actor)
	case CmdVote:
		return t.vote(actor, cmd.Target)
	case CmdGhostMove:
		return t.ghostMove(actor, cmd.Location)
	case CmdHaunt:
		return t.haunt(actor, cmd.Target)
	}

	return nil, "", ErrMalformedCommand
}

// join binds session to the first empty seat.
func (t *turn) join(session, name string) (any, string, error) {
	if t.s.Phase != PhaseLobby {
		return nil, "", ErrWrongPhase
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", ErrNameRequired
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		name = string([]rune(name)[:maxNameLength])
	}
	if t.s.BySession(session) != nil {
		return nil, "", ErrAlreadySeated
	}

	for i := range t.s.Players {
		p := &t.s.Players[i]
		if p.Bound() {
			continue
		}
		p.Session = session
		p.Name = name
		t.s.logf(t.now, "join", p.Seat, 0, name)
		return map[string]any{"seat": p.Seat}, "joined", nil
	}

	return nil, "", ErrRoomFull
}

func (t *turn) leave(actor *Player) (any, string, error) {
	if t.s.Phase != PhaseLobby {
		return nil, "", ErrWrongPhase
	}
	t.s.logf(t.now, "leave", actor.Seat, 0, actor.Name)
	*actor = Player{Seat: actor.Seat}
	return nil, "left", nil
}

func (t *turn) start() (any, string, error) {
	if t.s.Phase != PhaseLobby {
		return nil, "", ErrWrongPhase
	}
	if err := AssignRoles(t.s, t.rules, t.rng, t.now); err != nil {
		return nil, "", err
	}
	if err := t.enter(PhaseRoleReveal); err != nil {
		return nil, "", err
	}
	return map[string]any{"players": len(t.s.Bound())}, "game started", nil
}

// Fatal reports whether err means the room's state or tables are broken
// rather than the command being invalid.
func Fatal(err error) bool {
	return errors.Is(err, ErrCorruptSnapshot) || errors.Is(err, ErrRoleTable) || errors.Is(err, ErrBadTransition)
}
