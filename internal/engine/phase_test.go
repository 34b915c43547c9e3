package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	valid := [][2]Phase{
		{PhaseLobby, PhaseRoleReveal},
		{PhaseRoleReveal, PhaseGreenLight},
		{PhaseGreenLight, PhaseYellowLight},
		{PhaseYellowLight, PhaseRedLight},
		{PhaseRedLight, PhaseMeeting},
		{PhaseRedLight, PhaseGreenLight},
		{PhaseMeeting, PhaseVoting},
		{PhaseVoting, PhaseExecution},
		{PhaseExecution, PhaseGreenLight},
		{PhaseExecution, PhaseGameOver},
		{PhaseGameOver, PhaseLobby},
	}
	for _, edge := range valid {
		assert.True(t, CanTransition(edge[0], edge[1]), "%s -> %s", edge[0], edge[1])
	}

	invalid := [][2]Phase{
		{PhaseLobby, PhaseGreenLight},
		{PhaseGreenLight, PhaseRedLight},
		{PhaseYellowLight, PhaseMeeting},
		{PhaseMeeting, PhaseExecution},
		{PhaseExecution, PhaseMeeting},
		{PhaseGameOver, PhaseGreenLight},
		{PhaseLobby, PhaseGameOver},
	}
	for _, edge := range invalid {
		assert.False(t, CanTransition(edge[0], edge[1]), "%s -> %s", edge[0], edge[1])
	}
}

func TestEnterRejectsInvalidEdge(t *testing.T) {
	room := staged(t, fourGeeseOneDuck()...)
	tr := &turn{s: room.snap.Clone(), rules: room.rules, rng: room.rng, now: at(1)}

	err := tr.enter(PhaseVoting)
	assert.ErrorIs(t, err, ErrBadTransition)
	assert.True(t, Fatal(err))
}

func TestFullRound(t *testing.T) {
	room := newTestRoom(t, 5)

	reply := room.Apply(cmd(1, CmdStart), epoch)
	require.True(t, reply.OK, reply.Error)
	require.Equal(t, PhaseRoleReveal, room.Phase())
	assert.Equal(t, at(10), room.Snapshot().Deadline)

	changed, err := room.Tick(at(5))
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = room.Tick(at(10))
	require.NoError(t, err)
	s := room.Snapshot()
	require.Equal(t, PhaseGreenLight, s.Phase)
	assert.Equal(t, 1, s.RoundCount)
	assert.Len(t, s.ActiveLocations, room.rules.ActiveLocationCount(5))

	pick := cmd(2, CmdSetTarget)
	pick.Location = s.ActiveLocations[0]
	require.True(t, room.Apply(pick, at(12)).OK)

	_, err = room.Tick(at(30))
	require.NoError(t, err)
	s = room.Snapshot()
	require.Equal(t, PhaseYellowLight, s.Phase)
	require.Len(t, s.LocationHistory, 1)
	assert.Equal(t, s.ActiveLocations[0], s.Player(2).Location)
	for _, p := range s.Alive() {
		assert.True(t, s.LocationActive(p.Location))
	}

	_, err = room.Tick(at(40))
	require.NoError(t, err)
	s = room.Snapshot()
	require.Equal(t, PhaseRedLight, s.Phase)
	assertUniqueCodes(t, s)
	assert.False(t, s.LifeCodes.RotateAt.IsZero())
	for _, p := range s.Alive() {
		assert.Equal(t, room.rules.DrainRate, p.Oxygen.Rate)
	}

	_, err = room.Tick(at(100))
	require.NoError(t, err)
	s = room.Snapshot()
	require.Equal(t, PhaseGreenLight, s.Phase)
	assert.Equal(t, 2, s.RoundCount)
	for _, p := range s.Alive() {
		assert.Empty(t, p.LifeCode)
		assert.Zero(t, p.Oxygen.Rate)
		assert.Equal(t, 60, p.Oxygen.ValueAt(at(500)))
	}
}

func TestLifeCodesRotateDuringRedLight(t *testing.T) {
	room := staged(t, fourGeeseOneDuck()...)
	room.snap.LifeCodes.RotateAt = at(20)
	old := room.Snapshot().Player(1).LifeCode

	changed, err := room.Tick(at(20))
	require.NoError(t, err)
	require.True(t, changed)

	s := room.Snapshot()
	assert.NotEqual(t, old, s.Player(1).LifeCode)
	assert.Equal(t, old, s.Player(1).PrevLifeCode)
	assert.Equal(t, 1, s.LifeCodes.Rotations)
	assertUniqueCodes(t, s)
}

func TestPauseResume(t *testing.T) {
	room := staged(t, fourGeeseOneDuck()...)

	require.True(t, room.Apply(cmd(1, CmdPause), at(10)).OK)
	assert.Zero(t, room.Snapshot().Player(2).Oxygen.Rate)

	changed, err := room.Tick(at(70))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, PhaseRedLight, room.Phase())

	report := room.Apply(cmd(2, CmdReport), at(20))
	assert.ErrorIs(t, report.Err, ErrPaused)

	assert.ErrorIs(t, room.Apply(cmd(2, CmdResume), at(30)).Err, ErrNotHost)
	require.True(t, room.Apply(cmd(1, CmdResume), at(40)).OK)

	s := room.Snapshot()
	assert.Equal(t, at(90), s.Deadline)
	assert.Equal(t, 110, s.Player(2).Oxygen.ValueAt(at(40)))
	assert.Equal(t, 100, s.Player(2).Oxygen.ValueAt(at(50)))

	assert.ErrorIs(t, room.Apply(cmd(1, CmdResume), at(41)).Err, ErrNotPaused)
}

func TestPauseShiftsPoison(t *testing.T) {
	room := staged(t, RoleGoose, RoleGoose, RoleGoose, RoleGoose, RolePoisoner)
	kill := cmd(5, CmdKill)
	kill.Code = code(1)
	require.True(t, room.Apply(kill, at(1)).OK)

	require.True(t, room.Apply(cmd(1, CmdPause), at(5)).OK)
	require.True(t, room.Apply(cmd(1, CmdResume), at(15)).OK)

	assert.Equal(t, at(31), room.Snapshot().Player(1).PoisonAt)
}

func TestResetArchivesGame(t *testing.T) {
	room := staged(t, fourGeeseOneDuck()...)
	kill := cmd(5, CmdKill)
	kill.Code = code(1)
	require.True(t, room.Apply(kill, at(1)).OK)

	assert.ErrorIs(t, room.Apply(cmd(2, CmdReset), at(2)).Err, ErrNotHost)

	// seat 1 is dead but still the host
	reply := room.Apply(cmd(1, CmdReset), at(2))
	require.True(t, reply.OK, reply.Error)

	s := room.Snapshot()
	assert.Equal(t, PhaseLobby, s.Phase)
	assert.Zero(t, s.RoundCount)
	assert.Empty(t, s.Deaths)
	assert.Len(t, s.Bound(), 5)
	require.Len(t, s.Archive, 1)
	assert.Len(t, s.Archive[0].Deaths, 1)
	assert.Equal(t, 1, s.Archive[0].Rounds)

	assert.ErrorIs(t, room.Apply(cmd(1, CmdReset), at(3)).Err, ErrWrongPhase)
}

func TestGameOverIsTerminal(t *testing.T) {
	room := staged(t, fourGeeseOneDuck()...)
	room.snap.Player(5).Alive = false

	changed, err := room.Tick(at(1))
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, PhaseGameOver, room.Phase())
	assert.True(t, room.Snapshot().Deadline.IsZero())

	changed, err = room.Tick(at(1000))
	require.NoError(t, err)
	assert.False(t, changed)

	room.ResetToLobby(at(1001))
	assert.Equal(t, PhaseLobby, room.Phase())
}
