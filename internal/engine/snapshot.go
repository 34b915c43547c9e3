/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package engine

import (
	"maps"
	"slices"
	"time"
)

// Phase is a state of the room's phase machine.
type Phase string

const (
	PhaseLobby       Phase = "lobby"
	PhaseRoleReveal  Phase = "role_reveal"
	PhaseGreenLight  Phase = "green_light"
	PhaseYellowLight Phase = "yellow_light"
	PhaseRedLight    Phase = "red_light"
	PhaseMeeting     Phase = "meeting"
	PhaseVoting      Phase = "voting"
	PhaseExecution   Phase = "execution"
	PhaseGameOver    Phase = "game_over"
)

// Player is one seat of a room.
type Player struct {
	Seat           int      `json:"seat"`
	Session        string   `json:"session,omitempty"`
	Name           string   `json:"name,omitempty"`
	Role           Role     `json:"role,omitempty"`
	Alive          bool     `json:"alive"`
	Location       Location `json:"location,omitempty"`
	TargetLocation Location `json:"targetLocation,omitempty"`

	LifeCode     string `json:"lifeCode,omitempty"`
	CodeVersion  int    `json:"codeVersion"`
	PrevLifeCode string `json:"prevLifeCode,omitempty"`

	Oxygen        Oxygen    `json:"oxygen"`
	EmergencyUsed bool      `json:"emergencyUsed"`
	Stasis        bool      `json:"stasis,omitempty"`
	PoisonAt      time.Time `json:"poisonAt,omitzero"`
	PoisonedBy    int       `json:"poisonedBy,omitempty"`

	Voted bool `json:"voted"`

	GhostLocation Location `json:"ghostLocation,omitempty"`
	HauntTarget   int      `json:"hauntTarget,omitempty"`

	TaskContribution float64 `json:"taskContribution"`
}

// Bound reports whether a participant occupies the seat.
func (p *Player) Bound() bool {
	return p.Session != ""
}

// Camp derives the player's camp from the role.
func (p *Player) Camp() Camp {
	return p.Role.Camp()
}

// Cause explains how a player died.
type Cause string

const (
	CauseKill      Cause = "kill"
	CausePoison    Cause = "poison"
	CauseOxygen    Cause = "oxygen"
	CauseFoul      Cause = "foul"
	CauseExecution Cause = "execution"
)

// Death is an append-only record in the death log.
type Death struct {
	Seat     int       `json:"seat"`
	Killer   int       `json:"killer,omitempty"`
	Cause    Cause     `json:"cause"`
	Round    int       `json:"round"`
	Location Location  `json:"location,omitempty"`
	At       time.Time `json:"at"`
	Revealed bool      `json:"revealed"`
}

// VoteRecord is the outcome of one voting phase.
type VoteRecord struct {
	Round    int         `json:"round"`
	Reporter int         `json:"reporter"`
	Ballots  map[int]int `json:"ballots"`
	Tally    map[int]int `json:"tally"`
	Abstain  int         `json:"abstain"`
	Executed int         `json:"executed,omitempty"`
	Reason   string      `json:"reason"`
}

// LocationRecord is where everyone ended up in one round.
type LocationRecord struct {
	Round     int                `json:"round"`
	Dispatch  int                `json:"dispatch,omitempty"`
	Occupants map[Location][]int `json:"occupants"`
}

// LogEntry is a structured line of the game log.
type LogEntry struct {
	At      time.Time `json:"at"`
	Round   int       `json:"round"`
	Kind    string    `json:"kind"`
	Actor   int       `json:"actor,omitempty"`
	Target  int       `json:"target,omitempty"`
	Message string    `json:"message,omitempty"`
}

// LifeCodeState tracks code rotation within a red light.
type LifeCodeState struct {
	RotateAt  time.Time `json:"rotateAt,omitzero"`
	RotatedAt time.Time `json:"rotatedAt,omitzero"`
	Rotations int       `json:"rotations"`
}

// Ability is a one-shot action tracked in round scratch.
type Ability string

const (
	AbilityKill        Ability = "kill"
	AbilityGiveOxygen  Ability = "give_oxygen"
	AbilityInvestigate Ability = "investigate"
)

// RoundState is scratch state reset on every phase transition.
type RoundState struct {
	Used       map[int]map[Ability]bool `json:"used"`
	PowerBoost bool                     `json:"powerBoost"`
}

func (r *RoundState) used(seat int, a Ability) bool {
	return r.Used[seat][a]
}

func (r *RoundState) mark(seat int, a Ability) {
	if r.Used == nil {
		r.Used = make(map[int]map[Ability]bool)
	}
	if r.Used[seat] == nil {
		r.Used[seat] = make(map[Ability]bool)
	}
	r.Used[seat][a] = true
}

// Meeting is the live state of a meeting and its vote.
type Meeting struct {
	Reporter int         `json:"reporter"`
	Ballots  map[int]int `json:"ballots"`
	Outcome  *VoteRecord `json:"outcome,omitempty"`
}

// Result is the outcome of a finished game.
type Result struct {
	Camp    Camp      `json:"camp"`
	Role    Role      `json:"role,omitempty"`
	Winners []int     `json:"winners"`
	Reason  string    `json:"reason"`
	At      time.Time `json:"at"`
}

// GameSummary is what survives of a finished game after the room returns
// to the lobby. Archived summaries are never mutated.
type GameSummary struct {
	Rounds        int          `json:"rounds"`
	Result        *Result      `json:"result,omitempty"`
	Deaths        []Death      `json:"deaths"`
	VotingHistory []VoteRecord `json:"votingHistory"`
	EndedAt       time.Time    `json:"endedAt"`
}

// Snapshot is the whole mutable state of one room. It is broadcast verbatim
// after every state change; clients derive current oxygen from it.
type Snapshot struct {
	Code       string `json:"code"`
	Phase      Phase  `json:"phase"`
	RoundCount int    `json:"roundCount"`

	Players         []Player   `json:"players"`
	ActiveLocations []Location `json:"activeLocations"`
	PendingDispatch int        `json:"pendingDispatch,omitempty"`

	LifeCodes LifeCodeState `json:"lifeCodes"`
	Round     RoundState    `json:"round"`
	Meeting   *Meeting      `json:"meeting,omitempty"`
	Tasks     TaskState     `json:"tasks"`

	Deaths          []Death          `json:"deaths"`
	VotingHistory   []VoteRecord     `json:"votingHistory"`
	LocationHistory []LocationRecord `json:"locationHistory"`
	Log             []LogEntry       `json:"log"`

	Paused   bool      `json:"paused"`
	PausedAt time.Time `json:"pausedAt,omitzero"`
	Deadline time.Time `json:"deadline,omitzero"`

	Result  *Result       `json:"result,omitempty"`
	Archive []GameSummary `json:"archive,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
	Version   uint64    `json:"version"`
}

// NewSnapshot creates a lobby with seats empty seats.
func NewSnapshot(code string, seats int, now time.Time) *Snapshot {
	s := &Snapshot{
		Code:      code,
		Phase:     PhaseLobby,
		Players:   make([]Player, seats),
		UpdatedAt: now,
	}
	for i := range s.Players {
		s.Players[i] = Player{Seat: i + 1}
	}
	return s
}

// Player returns the player in seat, or nil.
func (s *Snapshot) Player(seat int) *Player {
	if seat < 1 || seat > len(s.Players) {
		return nil
	}
	return &s.Players[seat-1]
}

// BySession returns the player bound to session, or nil.
func (s *Snapshot) BySession(session string) *Player {
	if session == "" {
		return nil
	}
	for i := range s.Players {
		if s.Players[i].Session == session {
			return &s.Players[i]
		}
	}
	return nil
}

// Host is the lowest bound seat, or 0.
func (s *Snapshot) Host() int {
	for i := range s.Players {
		if s.Players[i].Bound() {
			return s.Players[i].Seat
		}
	}
	return 0
}

// Bound returns seats with a session, in seat order.
func (s *Snapshot) Bound() []*Player {
	out := make([]*Player, 0, len(s.Players))
	for i := range s.Players {
		if s.Players[i].Bound() {
			out = append(out, &s.Players[i])
		}
	}
	return out
}

// Alive returns the living bound players, in seat order.
func (s *Snapshot) Alive() []*Player {
	out := make([]*Player, 0, len(s.Players))
	for i := range s.Players {
		if s.Players[i].Bound() && s.Players[i].Alive {
			out = append(out, &s.Players[i])
		}
	}
	return out
}

// Occupants returns the living players in loc.
func (s *Snapshot) Occupants(loc Location) []*Player {
	var out []*Player
	for _, p := range s.Alive() {
		if p.Location == loc {
			out = append(out, p)
		}
	}
	return out
}

// LocationActive reports whether loc is open this round.
func (s *Snapshot) LocationActive(loc Location) bool {
	return slices.Contains(s.ActiveLocations, loc)
}

// ghostRevealed reports whether seat is dead and its death has been revealed.
func (s *Snapshot) ghostRevealed(seat int) bool {
	p := s.Player(seat)
	if p == nil || !p.Bound() || p.Alive || p.Role == "" {
		return false
	}
	for _, d := range s.Deaths {
		if d.Seat == seat {
			return d.Revealed
		}
	}
	return false
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	c.Players = slices.Clone(s.Players)
	c.ActiveLocations = slices.Clone(s.ActiveLocations)
	c.Round.Used = make(map[int]map[Ability]bool, len(s.Round.Used))
	for seat, used := range s.Round.Used {
		c.Round.Used[seat] = maps.Clone(used)
	}
	if s.Meeting != nil {
		m := *s.Meeting
		m.Ballots = maps.Clone(s.Meeting.Ballots)
		if m.Outcome != nil {
			o := m.Outcome.clone()
			m.Outcome = &o
		}
		c.Meeting = &m
	}
	c.Tasks = s.Tasks.clone()
	c.Deaths = slices.Clone(s.Deaths)
	c.VotingHistory = make([]VoteRecord, len(s.VotingHistory))
	for i, v := range s.VotingHistory {
		c.VotingHistory[i] = v.clone()
	}
	c.LocationHistory = make([]LocationRecord, len(s.LocationHistory))
	for i, l := range s.LocationHistory {
		occ := make(map[Location][]int, len(l.Occupants))
		for loc, seats := range l.Occupants {
			occ[loc] = slices.Clone(seats)
		}
		c.LocationHistory[i] = LocationRecord{Round: l.Round, Dispatch: l.Dispatch, Occupants: occ}
	}
	c.Log = slices.Clone(s.Log)
	if s.Result != nil {
		r := *s.Result
		r.Winners = slices.Clone(s.Result.Winners)
		c.Result = &r
	}
	c.Archive = slices.Clone(s.Archive)
	return &c
}

func (v VoteRecord) clone() VoteRecord {
	v.Ballots = maps.Clone(v.Ballots)
	v.Tally = maps.Clone(v.Tally)
	return v
}

// touch bumps UpdatedAt so it strictly increases even if the clock does not.
func (s *Snapshot) touch(now time.Time) {
	if !now.After(s.UpdatedAt) {
		now = s.UpdatedAt.Add(time.Millisecond)
	}
	s.UpdatedAt = now
	s.Version++
}

func (s *Snapshot) logf(now time.Time, kind string, actor, target int, msg string) {
	s.Log = append(s.Log, LogEntry{
		At:      now,
		Round:   s.RoundCount,
		Kind:    kind,
		Actor:   actor,
		Target:  target,
		Message: msg,
	})
}
