package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGiveOxygenOncePerRound(t *testing.T) {
	room := staged(t, fourGeeseOneDuck()...)

	give := cmd(1, CmdGiveOxygen)
	give.Code = code(2)

	first := room.Apply(give, at(10))
	require.True(t, first.OK, first.Error)

	second := room.Apply(give, at(11))
	assert.False(t, second.OK)
	assert.False(t, second.Penalty)
	assert.Equal(t, "already gave oxygen this round", second.Error)

	// 120 - 10s of drain + one refill of 20, then two more seconds of drain
	assert.Equal(t, 128, room.Snapshot().Player(2).Oxygen.ValueAt(at(12)))
	assert.Equal(t, 108, room.Snapshot().Player(1).Oxygen.ValueAt(at(12)))
}

func TestGiveOxygenRequiresSameLocation(t *testing.T) {
	room := staged(t, fourGeeseOneDuck()...)
	move(room, LocationPower, 2)

	give := cmd(1, CmdGiveOxygen)
	give.Code = code(2)

	reply := room.Apply(give, at(1))
	assert.ErrorIs(t, reply.Err, ErrNotSameLocation)
}

func TestKillByDuck(t *testing.T) {
	room := staged(t, fourGeeseOneDuck()...)

	kill := cmd(5, CmdKill)
	kill.Code = code(1)

	reply := room.Apply(kill, at(5))
	require.True(t, reply.OK, reply.Error)

	s := room.Snapshot()
	assert.False(t, s.Player(1).Alive)
	require.Len(t, s.Deaths, 1)
	assert.Equal(t, Death{
		Seat:     1,
		Killer:   5,
		Cause:    CauseKill,
		Round:    1,
		Location: LocationKitchen,
		At:       at(5),
	}, s.Deaths[0])

	kill.Code = code(2)
	again := room.Apply(kill, at(6))
	assert.ErrorIs(t, again.Err, ErrAlreadyKilled)
	assert.True(t, room.Snapshot().Player(2).Alive)
}

func TestKillWrongCodeCostsKiller(t *testing.T) {
	room := staged(t, fourGeeseOneDuck()...)

	kill := cmd(5, CmdKill)
	kill.Code = "99"

	reply := room.Apply(kill, at(5))
	assert.False(t, reply.OK)
	assert.True(t, reply.Penalty)
	assert.True(t, reply.Changed)
	assert.ErrorIs(t, reply.Err, ErrWrongCode)

	assert.Equal(t, 100, room.Snapshot().Player(5).Oxygen.ValueAt(at(5)))
}

func TestKillWrongCodeByGooseIsNoop(t *testing.T) {
	room := staged(t, fourGeeseOneDuck()...)
	before := room.Snapshot()

	kill := cmd(1, CmdKill)
	kill.Code = "99"

	reply := room.Apply(kill, at(5))
	assert.ErrorIs(t, reply.Err, ErrInvalidCode)
	assert.False(t, reply.Penalty)
	assert.False(t, reply.Changed)

	if diff := cmp.Diff(before, room.Snapshot()); diff != "" {
		t.Errorf("snapshot changed (-before +after):\n%s", diff)
	}
}

func TestFoulKillsActor(t *testing.T) {
	room := staged(t, fourGeeseOneDuck()...)

	kill := cmd(1, CmdKill)
	kill.Code = code(2)

	reply := room.Apply(kill, at(5))
	assert.False(t, reply.OK)
	assert.True(t, reply.Penalty)
	assert.ErrorIs(t, reply.Err, ErrFoul)

	s := room.Snapshot()
	assert.False(t, s.Player(1).Alive)
	assert.True(t, s.Player(2).Alive)
	require.Len(t, s.Deaths, 1)
	assert.Equal(t, CauseFoul, s.Deaths[0].Cause)
}

func TestKillRequiresSameLocation(t *testing.T) {
	room := staged(t, fourGeeseOneDuck()...)
	move(room, LocationPower, 2)

	kill := cmd(5, CmdKill)
	kill.Code = code(2)

	reply := room.Apply(kill, at(1))
	assert.ErrorIs(t, reply.Err, ErrNotSameLocation)
}

func TestKillSelf(t *testing.T) {
	room := staged(t, fourGeeseOneDuck()...)

	kill := cmd(5, CmdKill)
	kill.Code = code(5)

	assert.ErrorIs(t, room.Apply(kill, at(1)).Err, ErrSelfTarget)
}

func TestKillOutsideRedLight(t *testing.T) {
	room := staged(t, fourGeeseOneDuck()...)
	room.snap.Phase = PhaseGreenLight

	kill := cmd(5, CmdKill)
	kill.Code = code(1)

	assert.ErrorIs(t, room.Apply(kill, at(1)).Err, ErrWrongPhase)
}

func TestPoisonResolvesOnTick(t *testing.T) {
	room := staged(t, RoleGoose, RoleGoose, RoleGoose, RoleGoose, RolePoisoner)

	kill := cmd(5, CmdKill)
	kill.Code = code(1)

	reply := room.Apply(kill, at(1))
	require.True(t, reply.OK, reply.Error)
	require.True(t, room.Snapshot().Player(1).Alive)
	assert.Equal(t, at(21), room.Snapshot().Player(1).PoisonAt)

	changed, err := room.Tick(at(10))
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = room.Tick(at(22))
	require.NoError(t, err)
	assert.True(t, changed)

	s := room.Snapshot()
	assert.False(t, s.Player(1).Alive)
	require.Len(t, s.Deaths, 1)
	assert.Equal(t, CausePoison, s.Deaths[0].Cause)
	assert.Equal(t, 5, s.Deaths[0].Killer)
}

func TestLocationAbilityOncePerRound(t *testing.T) {
	room := staged(t, fourGeeseOneDuck()...)
	move(room, LocationPower, 2, 3, 4, 5)

	first := room.Apply(cmd(1, CmdAbility), at(10))
	require.True(t, first.OK, first.Error)

	second := room.Apply(cmd(1, CmdAbility), at(11))
	assert.ErrorIs(t, second.Err, ErrAlreadyUsed)
	assert.Equal(t, "already used this round", second.Error)

	// one kitchen refill of 15 on top of 110
	assert.Equal(t, 123, room.Snapshot().Player(1).Oxygen.ValueAt(at(12)))
}

func TestLocationAbilityNeedsSoleOccupant(t *testing.T) {
	room := staged(t, fourGeeseOneDuck()...)

	reply := room.Apply(cmd(1, CmdAbility), at(1))
	assert.ErrorIs(t, reply.Err, ErrNotSoleOccupant)
}

func TestMonitorPeek(t *testing.T) {
	room := staged(t, fourGeeseOneDuck()...)
	move(room, LocationMonitor, 1)

	peek := cmd(1, CmdAbility)
	peek.Location = LocationKitchen

	reply := room.Apply(peek, at(1))
	require.True(t, reply.OK, reply.Error)

	data, ok := reply.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, LocationKitchen, data["location"])
	assert.Equal(t, []int{2, 3, 4, 5}, data["occupants"])
}

func TestStasisFreezesDrain(t *testing.T) {
	room := staged(t, fourGeeseOneDuck()...)
	move(room, LocationStasis, 1)

	reply := room.Apply(cmd(1, CmdAbility), at(10))
	require.True(t, reply.OK, reply.Error)

	p := room.Snapshot().Player(1)
	assert.True(t, p.Stasis)
	assert.Equal(t, 110, p.Oxygen.ValueAt(at(50)))
}

func TestWarehouseSendsOxygen(t *testing.T) {
	room := staged(t, fourGeeseOneDuck()...)
	move(room, LocationWarehouse, 1)

	supply := cmd(1, CmdAbility)
	supply.Code = code(3)

	reply := room.Apply(supply, at(10))
	require.True(t, reply.OK, reply.Error)
	assert.Equal(t, 130, room.Snapshot().Player(3).Oxygen.ValueAt(at(10)))
}

func TestDispatchSetsPending(t *testing.T) {
	room := staged(t, fourGeeseOneDuck()...)
	move(room, LocationDispatch, 2)

	reply := room.Apply(cmd(2, CmdAbility), at(1))
	require.True(t, reply.OK, reply.Error)
	assert.Equal(t, 2, room.Snapshot().PendingDispatch)
}

func TestInvestigate(t *testing.T) {
	room := staged(t, RoleDetective, RoleGoose, RoleGoose, RoleGoose, RoleDuck)
	room.snap.Player(2).TaskContribution = 4

	look := cmd(1, CmdInvestigate)
	look.Code = code(2)

	reply := room.Apply(look, at(1))
	require.True(t, reply.OK, reply.Error)
	data := reply.Data.(map[string]any)
	assert.Equal(t, 2, data["seat"])
	assert.InDelta(t, 4.0, data["contribution"], 0.001)

	again := room.Apply(look, at(2))
	assert.ErrorIs(t, again.Err, ErrAlreadyUsed)

	other := cmd(3, CmdInvestigate)
	other.Code = code(2)
	assert.ErrorIs(t, room.Apply(other, at(3)).Err, ErrNotPermitted)
}

func TestSetTargetDuringGreenLight(t *testing.T) {
	room := staged(t, fourGeeseOneDuck()...)
	room.snap.Phase = PhaseGreenLight

	pick := cmd(1, CmdSetTarget)
	pick.Location = LocationMedical
	require.True(t, room.Apply(pick, at(1)).OK)
	assert.Equal(t, LocationMedical, room.Snapshot().Player(1).TargetLocation)

	pick.Location = "nowhere"
	assert.ErrorIs(t, room.Apply(pick, at(2)).Err, ErrUnknownLocation)
}
