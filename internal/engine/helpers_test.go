package engine

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func at(seconds float64) time.Time {
	return epoch.Add(time.Duration(seconds * float64(time.Second)))
}

func session(seat int) string {
	return fmt.Sprintf("session-%d", seat)
}

func code(seat int) string {
	return fmt.Sprintf("%02d", 10+seat)
}

func ptr(n int) *int {
	return &n
}

func cmd(seat int, typ CommandType) Command {
	return Command{Type: typ, Session: session(seat)}
}

// newTestRoom returns a lobby with n joined players and a fixed seed.
func newTestRoom(t *testing.T, n int) *Room {
	t.Helper()

	room, err := NewRoom("TEST", DefaultRules(), NewRand(42), epoch)
	require.NoError(t, err)

	for i := 1; i <= n; i++ {
		c := cmd(i, CmdJoin)
		c.Name = fmt.Sprintf("player%d", i)
		reply := room.Apply(c, epoch)
		require.True(t, reply.OK, reply.Error)
	}
	return room
}

// staged returns a room already in the red light of round one. Seat i has
// roles[i-1], everyone stands in the kitchen, every location is open, and
// seat n holds life code code(n).
func staged(t *testing.T, roles ...Role) *Room {
	t.Helper()

	room := newTestRoom(t, len(roles))
	s := room.snap
	rules := room.rules

	s.Phase = PhaseRedLight
	s.RoundCount = 1
	s.ActiveLocations = slices.Clone(rules.Locations)
	for i, role := range roles {
		p := &s.Players[i]
		p.Role = role
		p.Alive = true
		p.Oxygen = NewOxygen(rules.InitialOxygen, epoch)
		p.Location = LocationKitchen
		p.LifeCode = code(p.Seat)
		p.CodeVersion = 1
	}
	s.Deadline = epoch.Add(rules.Durations.RedLight)
	refreshDrain(s, rules, epoch)

	return room
}

// move puts seats into loc on the live snapshot.
func move(room *Room, loc Location, seats ...int) {
	for _, n := range seats {
		room.snap.Player(n).Location = loc
	}
}

func fourGeeseOneDuck() []Role {
	return []Role{RoleGoose, RoleGoose, RoleGoose, RoleGoose, RoleDuck}
}
