/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package engine

import (
	"errors"
	"fmt"
	"time"
)

// Role is a hidden identity handed out at the start of a game.
type Role string

const (
	RoleGoose     Role = "goose"
	RoleDetective Role = "detective"
	RoleMedic     Role = "medic"
	RoleDuck      Role = "duck"
	RolePoisoner  Role = "poisoner"
	RoleDodo      Role = "dodo"
	RoleFalcon    Role = "falcon"
)

// Camp groups roles that share a win condition. It is never stored.
type Camp string

const (
	CampNone    Camp = ""
	CampGoose   Camp = "goose"
	CampDuck    Camp = "duck"
	CampNeutral Camp = "neutral"
)

// Camp derives the camp a role belongs to.
func (r Role) Camp() Camp {
	switch r {
	case RoleGoose, RoleDetective, RoleMedic:
		return CampGoose
	case RoleDuck, RolePoisoner:
		return CampDuck
	case RoleDodo, RoleFalcon:
		return CampNeutral
	default:
		return CampNone
	}
}

// CanKill reports whether the role is allowed to attempt kills.
func (r Role) CanKill() bool {
	switch r {
	case RoleDuck, RolePoisoner, RoleFalcon:
		return true
	default:
		return false
	}
}

// Armed reports whether the role is a neutral that can kill.
func (r Role) Armed() bool {
	return r.Camp() == CampNeutral && r.CanKill()
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r.Camp() != CampNone
}

// Location names a room on the map. Each location carries an ability
// that its sole occupant may use once per round.
type Location string

const (
	LocationMonitor   Location = "monitor"
	LocationPower     Location = "power"
	LocationKitchen   Location = "kitchen"
	LocationMedical   Location = "medical"
	LocationWarehouse Location = "warehouse"
	LocationDispatch  Location = "dispatch"
	LocationStasis    Location = "stasis"
)

// Durations holds the nominal length of every timed phase and window.
type Durations struct {
	RoleReveal       time.Duration `mapstructure:"role_reveal" json:"roleReveal"`
	GreenLight       time.Duration `mapstructure:"green_light" json:"greenLight"`
	YellowLight      time.Duration `mapstructure:"yellow_light" json:"yellowLight"`
	RedLight         time.Duration `mapstructure:"red_light" json:"redLight"`
	Meeting          time.Duration `mapstructure:"meeting" json:"meeting"`
	MeetingPerPlayer time.Duration `mapstructure:"meeting_per_player" json:"meetingPerPlayer"`
	Voting           time.Duration `mapstructure:"voting" json:"voting"`
	Execution        time.Duration `mapstructure:"execution" json:"execution"`
	EmergencyJoin    time.Duration `mapstructure:"emergency_join" json:"emergencyJoin"`
	EmergencySolve   time.Duration `mapstructure:"emergency_solve" json:"emergencySolve"`
	Poison           time.Duration `mapstructure:"poison" json:"poison"`
}

// Rules is the tunable rule set of a room. Tables are data so that new
// player counts and roles are additive.
type Rules struct {
	MinPlayers   int                  `mapstructure:"min_players" json:"minPlayers"`
	MaxSeats     int                  `mapstructure:"max_seats" json:"maxSeats"`
	Quotas       map[int]map[Role]int `mapstructure:"quotas" json:"quotas"`
	Locations    []Location           `mapstructure:"locations" json:"locations"`
	MaxOccupancy int                  `mapstructure:"max_occupancy" json:"maxOccupancy"`
	Durations    Durations            `mapstructure:"durations" json:"durations"`

	InitialOxygen   int          `mapstructure:"initial_oxygen" json:"initialOxygen"`
	MaxOxygen       int          `mapstructure:"max_oxygen" json:"maxOxygen"`
	DrainRate       float64      `mapstructure:"drain_rate" json:"drainRate"`
	LeakRate        float64      `mapstructure:"leak_rate" json:"leakRate"`
	EmergencyOxygen map[Role]int `mapstructure:"emergency_oxygen" json:"emergencyOxygen"`

	GiveOxygen         int `mapstructure:"give_oxygen" json:"giveOxygen"`
	WrongCodePenalty   int `mapstructure:"wrong_code_penalty" json:"wrongCodePenalty"`
	FalseReportPenalty int `mapstructure:"false_report_penalty" json:"falseReportPenalty"`
	KitchenOxygen      int `mapstructure:"kitchen_oxygen" json:"kitchenOxygen"`
	MedicalOxygen      int `mapstructure:"medical_oxygen" json:"medicalOxygen"`
	WarehouseOxygen    int `mapstructure:"warehouse_oxygen" json:"warehouseOxygen"`

	TaskCost              int     `mapstructure:"task_cost" json:"taskCost"`
	TaskReward            float64 `mapstructure:"task_reward" json:"taskReward"`
	BoostedTaskReward     float64 `mapstructure:"boosted_task_reward" json:"boostedTaskReward"`
	SharedTaskReward      float64 `mapstructure:"shared_task_reward" json:"sharedTaskReward"`
	SharedTaskPenalty     int     `mapstructure:"shared_task_penalty" json:"sharedTaskPenalty"`
	EmergencyTaskReward   float64 `mapstructure:"emergency_task_reward" json:"emergencyTaskReward"`
	EmergencyTaskPenalty  float64 `mapstructure:"emergency_task_penalty" json:"emergencyTaskPenalty"`
	EmergencyTaskInterval int     `mapstructure:"emergency_task_interval" json:"emergencyTaskInterval"`

	// LifeCodeGrace honors the code a player held before the last rotation
	// for this long afterwards. Zero disables the grace window.
	LifeCodeGrace time.Duration `mapstructure:"life_code_grace" json:"lifeCodeGrace"`

	// NeutralBlocksTaskWin prevents task and duck-parity victories while an
	// armed neutral is still alive.
	NeutralBlocksTaskWin bool `mapstructure:"neutral_blocks_task_win" json:"neutralBlocksTaskWin"`
	ArmedNeutralWinAlive int  `mapstructure:"armed_neutral_win_alive" json:"armedNeutralWinAlive"`

	MaxLogEntries int `mapstructure:"max_log_entries" json:"maxLogEntries"`
}

// DefaultRules returns the stock rule set.
func DefaultRules() Rules {
	return Rules{
		MinPlayers: 5,
		MaxSeats:   16,
		Quotas: map[int]map[Role]int{
			5:  {RoleGoose: 4, RoleDuck: 1},
			6:  {RoleGoose: 4, RoleDuck: 1, RoleDodo: 1},
			7:  {RoleGoose: 4, RoleDetective: 1, RoleDuck: 1, RoleDodo: 1},
			8:  {RoleGoose: 4, RoleDetective: 1, RoleDuck: 2, RoleDodo: 1},
			9:  {RoleGoose: 4, RoleDetective: 1, RoleMedic: 1, RoleDuck: 2, RoleDodo: 1},
			10: {RoleGoose: 4, RoleDetective: 1, RoleMedic: 1, RoleDuck: 1, RolePoisoner: 1, RoleDodo: 1, RoleFalcon: 1},
			11: {RoleGoose: 5, RoleDetective: 1, RoleMedic: 1, RoleDuck: 1, RolePoisoner: 1, RoleDodo: 1, RoleFalcon: 1},
			12: {RoleGoose: 5, RoleDetective: 1, RoleMedic: 1, RoleDuck: 2, RolePoisoner: 1, RoleDodo: 1, RoleFalcon: 1},
			13: {RoleGoose: 6, RoleDetective: 1, RoleMedic: 1, RoleDuck: 2, RolePoisoner: 1, RoleDodo: 1, RoleFalcon: 1},
			14: {RoleGoose: 7, RoleDetective: 1, RoleMedic: 1, RoleDuck: 2, RolePoisoner: 1, RoleDodo: 1, RoleFalcon: 1},
			15: {RoleGoose: 7, RoleDetective: 1, RoleMedic: 1, RoleDuck: 3, RolePoisoner: 1, RoleDodo: 1, RoleFalcon: 1},
			16: {RoleGoose: 8, RoleDetective: 1, RoleMedic: 1, RoleDuck: 3, RolePoisoner: 1, RoleDodo: 1, RoleFalcon: 1},
		},
		Locations: []Location{
			LocationMonitor,
			LocationPower,
			LocationKitchen,
			LocationMedical,
			LocationWarehouse,
			LocationDispatch,
			LocationStasis,
		},
		MaxOccupancy: 3,
		Durations: Durations{
			RoleReveal:     10 * time.Second,
			GreenLight:     20 * time.Second,
			YellowLight:    10 * time.Second,
			RedLight:       60 * time.Second,
			Meeting:        60 * time.Second,
			Voting:         30 * time.Second,
			Execution:      5 * time.Second,
			EmergencyJoin:  10 * time.Second,
			EmergencySolve: 30 * time.Second,
			Poison:         20 * time.Second,
		},
		InitialOxygen: 120,
		MaxOxygen:     180,
		DrainRate:     1,
		LeakRate:      2,
		EmergencyOxygen: map[Role]int{
			RoleMedic: 60,
			RoleDuck:  30,
		},
		GiveOxygen:            20,
		WrongCodePenalty:      15,
		FalseReportPenalty:    20,
		KitchenOxygen:         15,
		MedicalOxygen:         10,
		WarehouseOxygen:       20,
		TaskCost:              5,
		TaskReward:            2,
		BoostedTaskReward:     4,
		SharedTaskReward:      8,
		SharedTaskPenalty:     10,
		EmergencyTaskReward:   10,
		EmergencyTaskPenalty:  5,
		EmergencyTaskInterval: 3,
		NeutralBlocksTaskWin:  true,
		ArmedNeutralWinAlive:  2,
		MaxLogEntries:         500,
	}
}

// Validate checks the rule tables for internal consistency.
func (r Rules) Validate() error {
	if r.MinPlayers < 1 {
		return fmt.Errorf("min players must be positive: %d", r.MinPlayers)
	}
	if r.MaxSeats < r.MinPlayers {
		return fmt.Errorf("max seats (%d) below min players (%d)", r.MaxSeats, r.MinPlayers)
	}
	if len(r.Locations) < 2 {
		return errors.New("at least two locations are required")
	}
	if r.MaxOccupancy < 1 {
		return fmt.Errorf("max occupancy must be positive: %d", r.MaxOccupancy)
	}
	if r.InitialOxygen <= 0 || r.MaxOxygen < r.InitialOxygen {
		return fmt.Errorf("invalid oxygen bounds: initial %d, max %d", r.InitialOxygen, r.MaxOxygen)
	}

	for n := r.MinPlayers; n <= r.MaxSeats; n++ {
		quota, ok := r.Quotas[n]
		if !ok {
			return fmt.Errorf("%w: no quota for %d players", ErrRoleTable, n)
		}
		total := 0
		for role, count := range quota {
			if !role.Valid() {
				return fmt.Errorf("%w: unknown role %q", ErrRoleTable, role)
			}
			total += count
		}
		if total != n {
			return fmt.Errorf("%w: quota for %d players sums to %d", ErrRoleTable, n, total)
		}
	}

	d := r.Durations
	for name, v := range map[string]time.Duration{
		"role_reveal":  d.RoleReveal,
		"green_light":  d.GreenLight,
		"yellow_light": d.YellowLight,
		"red_light":    d.RedLight,
		"meeting":      d.Meeting,
		"voting":       d.Voting,
		"execution":    d.Execution,
	} {
		if v <= 0 {
			return fmt.Errorf("duration %s must be positive", name)
		}
	}

	return nil
}

// ActiveLocationCount is the number of locations opened for a round with
// the given number of living players.
func (r Rules) ActiveLocationCount(alive int) int {
	n := (alive + 1) / 2
	if r.MaxOccupancy > 0 {
		if need := (alive + r.MaxOccupancy - 1) / r.MaxOccupancy; need > n {
			n = need
		}
	}
	if n < 2 {
		n = 2
	}
	if n > len(r.Locations) {
		n = len(r.Locations)
	}
	return n
}

func (r Rules) meetingDuration(alive int) time.Duration {
	return r.Durations.Meeting + time.Duration(alive)*r.Durations.MeetingPerPlayer
}
