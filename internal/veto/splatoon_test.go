package veto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csmplay/mapban/internal/lobby"
)

// runSplatoonRound plays the veto part of one round through to the picked
// map, following the round pattern for the given priority side.
func runSplatoonRound(t *testing.T, ctrl *Controller, l *lobby.Lobby, priority, other, mode string) {
	t.Helper()
	pConn, ok := l.ConnByTeam(priority)
	require.True(t, ok)
	oConn, ok := l.ConnByTeam(other)
	require.True(t, ok)

	firstRound := l.Rules.RoundNumber <= 1
	if l.Rules.ModesSize == 4 {
		if firstRound {
			require.NoError(t, ctrl.ModeBan(pConn, l.ID, priority, "clams"))
			require.NoError(t, ctrl.ModeBan(oConn, l.ID, other, "rainmaker"))
			require.NoError(t, ctrl.ModePick(pConn, l.ID, priority, mode))
		} else {
			require.NoError(t, ctrl.ModeBan(pConn, l.ID, priority, "clams"))
			require.NoError(t, ctrl.ModePick(oConn, l.ID, other, mode))
		}
	} else {
		require.NoError(t, ctrl.ModePick(pConn, l.ID, priority, mode))
	}

	pool := l.Rules.MapNames
	require.GreaterOrEqual(t, len(pool), 7)

	if firstRound || l.Rules.ModesSize == 2 {
		require.NoError(t, ctrl.Ban(pConn, l.ID, priority, pool[0]))
		require.NoError(t, ctrl.Ban(pConn, l.ID, priority, pool[1]))
		require.NoError(t, ctrl.Ban(oConn, l.ID, other, pool[2]))
		require.NoError(t, ctrl.Ban(oConn, l.ID, other, pool[3]))
		require.NoError(t, ctrl.Ban(oConn, l.ID, other, pool[4]))
		require.NoError(t, ctrl.Pick(pConn, l.ID, priority, pool[5], ""))
	} else {
		require.NoError(t, ctrl.Ban(pConn, l.ID, priority, pool[0]))
		require.NoError(t, ctrl.Ban(pConn, l.ID, priority, pool[1]))
		require.NoError(t, ctrl.Ban(pConn, l.ID, priority, pool[2]))
		require.NoError(t, ctrl.Pick(oConn, l.ID, other, pool[3], ""))
	}
}

func TestSplatoon_FourModeFirstRound(t *testing.T) {
	ctrl, rec := newTestController(t, false)
	l := setupSplatoonLobby(t, ctrl, SplatoonSettings{ModesSize: 4})

	require.True(t, l.Started)
	require.Equal(t, "Alpha", l.PriorityTeam, "coin flip off: first-joined team has priority")
	require.Len(t, l.Rules.ActiveModes, 4)

	runSplatoonRound(t, ctrl, l, "Alpha", "Bravo", "zones")

	assert.Equal(t, "zones", l.PickedMode)
	assert.ElementsMatch(t, []string{"clams", "rainmaker"}, l.BannedModes)
	assert.Equal(t, 5, l.BansInRound(1))
	require.Len(t, l.Picked, 1)
	assert.Equal(t, 1, l.Picked[0].Round)
	assert.Equal(t, "Alpha", l.Picked[0].TeamName)

	// Both members hold the winner dialog, neither holds a turn.
	for _, conn := range []string{"connA", "connB"} {
		caps := rec.capsState(conn)
		assert.True(t, caps[EvtCanReportWinner], "%s missing canReportWinner", conn)
		assert.False(t, caps[EvtCanWorkUpdated], "%s must not hold canWork", conn)
	}
}

func TestSplatoon_WinnerConfirmTransfersPriority(t *testing.T) {
	ctrl, rec := newTestController(t, false)
	l := setupSplatoonLobby(t, ctrl, SplatoonSettings{ModesSize: 4})

	runSplatoonRound(t, ctrl, l, "Alpha", "Bravo", "zones")
	roundMap := l.Picked[0].Map

	require.NoError(t, ctrl.ProposeWinner("connB", l.ID, "Bravo", "Bravo"))
	assert.NotNil(t, rec.last("conn:connA", EvtWinnerProposed), "proposal must reach the other member")

	require.NoError(t, ctrl.ConfirmWinner("connA", l.ID, true))

	require.Len(t, l.RoundHistory, 1)
	assert.Equal(t, lobby.RoundResult{Round: 1, Mode: "zones", Map: roundMap, Winner: "Bravo"}, l.RoundHistory[0])
	assert.Equal(t, 2, l.Rules.RoundNumber)
	assert.Equal(t, "Bravo", l.PriorityTeam, "confirmed winner takes priority next round")
	assert.Empty(t, l.PickedMode, "per-round state resets")
	assert.Nil(t, l.PendingWinner)
	assert.Len(t, l.Rules.ActiveModes, 4, "mode pool refills between rounds")
	assert.NotNil(t, rec.last("lobby:"+l.ID, EvtWinnerConfirmed))
}

func TestSplatoon_FourModeSecondRoundPattern(t *testing.T) {
	ctrl, _ := newTestController(t, false)
	l := setupSplatoonLobby(t, ctrl, SplatoonSettings{ModesSize: 4})

	runSplatoonRound(t, ctrl, l, "Alpha", "Bravo", "zones")
	require.NoError(t, ctrl.ProposeWinner("connA", l.ID, "Bravo", "Alpha"))
	require.NoError(t, ctrl.ConfirmWinner("connB", l.ID, true))

	// Round 2: Bravo has priority, bans a mode, Alpha picks the mode;
	// Bravo bans three maps, Alpha picks.
	runSplatoonRound(t, ctrl, l, "Bravo", "Alpha", "tower")

	assert.Equal(t, "tower", l.PickedMode)
	assert.Equal(t, 3, l.BansInRound(2))
	require.Len(t, l.Picked, 2)
	assert.Equal(t, 2, l.Picked[1].Round)
	assert.Equal(t, "Alpha", l.Picked[1].TeamName, "non-priority team picks the map after round 1")
}

func TestSplatoon_TwoModePool(t *testing.T) {
	ctrl, _ := newTestController(t, false)
	l := setupSplatoonLobby(t, ctrl, SplatoonSettings{ModesSize: 2})

	require.ElementsMatch(t, []string{"tower", "zones"}, l.Rules.ActiveModes)

	// No mode bans with two modes: the priority team picks straight away.
	runSplatoonRound(t, ctrl, l, "Alpha", "Bravo", "tower")

	assert.Equal(t, "tower", l.PickedMode)
	assert.Empty(t, l.BannedModes)
	assert.Equal(t, 5, l.BansInRound(1), "two-mode rounds always use the long map pattern")
	require.NoError(t, ctrl.ProposeWinner("connB", l.ID, "Alpha", "Bravo"))
	require.NoError(t, ctrl.ConfirmWinner("connA", l.ID, true))

	runSplatoonRound(t, ctrl, l, "Alpha", "Bravo", "zones")
	assert.Equal(t, 5, l.BansInRound(2))
}

func TestSplatoon_WinnerRejection(t *testing.T) {
	ctrl, rec := newTestController(t, false)
	l := setupSplatoonLobby(t, ctrl, SplatoonSettings{ModesSize: 4})

	runSplatoonRound(t, ctrl, l, "Alpha", "Bravo", "zones")

	require.NoError(t, ctrl.ProposeWinner("connA", l.ID, "Alpha", "Alpha"))
	rec.clear()
	require.NoError(t, ctrl.ConfirmWinner("connB", l.ID, false))

	assert.Nil(t, l.PendingWinner)
	assert.Empty(t, l.RoundHistory)
	assert.Equal(t, 1, l.Rules.RoundNumber, "rejection never advances the round")
	assert.NotNil(t, rec.last("lobby:"+l.ID, EvtWinnerRejected))

	// Only the rejecting member can report now.
	assert.True(t, rec.capsState("connB")[EvtCanReportWinner])
	assert.False(t, rec.capsState("connA")[EvtCanReportWinner])

	err := ctrl.ProposeWinner("connA", l.ID, "Alpha", "Alpha")
	assert.ErrorIs(t, err, ErrNotPermitted)

	// After the rejection the counterparty no longer holds the report
	// capability, but it must still be able to answer the new proposal.
	require.NoError(t, ctrl.ProposeWinner("connB", l.ID, "Alpha", "Bravo"))
	require.NoError(t, ctrl.ConfirmWinner("connA", l.ID, true))
	require.Len(t, l.RoundHistory, 1)
	assert.Equal(t, "Alpha", l.RoundHistory[0].Winner)
	assert.Equal(t, 2, l.Rules.RoundNumber, "confirmation closes the round")
	assert.Equal(t, "Alpha", l.PriorityTeam, "the winner takes priority next round")
}

func TestSplatoon_ReporterCannotConfirmOwnProposal(t *testing.T) {
	ctrl, _ := newTestController(t, false)
	l := setupSplatoonLobby(t, ctrl, SplatoonSettings{ModesSize: 4})

	runSplatoonRound(t, ctrl, l, "Alpha", "Bravo", "zones")
	require.NoError(t, ctrl.ProposeWinner("connA", l.ID, "Alpha", "Alpha"))

	err := ctrl.ConfirmWinner("connA", l.ID, true)
	assert.ErrorIs(t, err, ErrNotPermitted)
	assert.NotNil(t, l.PendingWinner)
	assert.Empty(t, l.RoundHistory)
}

func TestSplatoon_AdminSingleTeamRunsAllSteps(t *testing.T) {
	ctrl, _ := newTestController(t, false)
	_, err := ctrl.CreateSplatoon("connA", SplatoonSettings{LobbyID: "solo", ModesSize: 4, Admin: true})
	require.NoError(t, err)
	require.NoError(t, ctrl.Join("connA", "solo", "member"))
	require.NoError(t, ctrl.SetTeamName("connA", "solo", "Alpha"))
	require.NoError(t, ctrl.StartGame("solo"))

	l, ok := ctrl.Store().Get("solo")
	require.True(t, ok)
	require.True(t, l.Started)

	// The lone team takes the opposing side's steps too, so the round
	// runs end to end without stalling on an absent counterparty.
	require.NoError(t, ctrl.ModeBan("connA", l.ID, "Alpha", "clams"))
	require.NoError(t, ctrl.ModeBan("connA", l.ID, "Alpha", "rainmaker"))
	require.NoError(t, ctrl.ModePick("connA", l.ID, "Alpha", "zones"))

	pool := l.Rules.MapNames
	require.GreaterOrEqual(t, len(pool), 6)
	for i := 0; i < 5; i++ {
		require.NoError(t, ctrl.Ban("connA", l.ID, "Alpha", pool[i]))
	}
	require.NoError(t, ctrl.Pick("connA", l.ID, "Alpha", pool[5], ""))

	require.Len(t, l.Picked, 1)
	assert.Equal(t, "zones", l.PickedMode)
	assert.Equal(t, 5, l.BansInRound(1))
}

func TestSplatoon_BannedModeNotPickable(t *testing.T) {
	ctrl, _ := newTestController(t, false)
	l := setupSplatoonLobby(t, ctrl, SplatoonSettings{ModesSize: 4})

	require.NoError(t, ctrl.ModeBan("connA", l.ID, "Alpha", "clams"))
	require.NoError(t, ctrl.ModeBan("connB", l.ID, "Bravo", "zones"))

	err := ctrl.ModePick("connA", l.ID, "Alpha", "zones")
	assert.ErrorIs(t, err, ErrInvalidAction)
	assert.Empty(t, l.PickedMode)
}

func TestSplatoon_MapReusableAcrossRounds(t *testing.T) {
	ctrl, _ := newTestController(t, false)
	l := setupSplatoonLobby(t, ctrl, SplatoonSettings{ModesSize: 4})

	runSplatoonRound(t, ctrl, l, "Alpha", "Bravo", "zones")
	bannedRound1 := l.Banned[0].Map
	require.NoError(t, ctrl.ProposeWinner("connA", l.ID, "Alpha", "Alpha"))
	require.NoError(t, ctrl.ConfirmWinner("connB", l.ID, true))

	// Round 2, Alpha keeps priority. Pick zones again so round 1's banned
	// map is back in the pool.
	require.NoError(t, ctrl.ModeBan("connA", l.ID, "Alpha", "clams"))
	require.NoError(t, ctrl.ModePick("connB", l.ID, "Bravo", "zones"))

	require.NoError(t, ctrl.Ban("connA", l.ID, "Alpha", bannedRound1))
	assert.Equal(t, 1, l.BansInRound(2))
}

func TestSplatoon_UnknownWinnerTeamRejected(t *testing.T) {
	ctrl, _ := newTestController(t, false)
	l := setupSplatoonLobby(t, ctrl, SplatoonSettings{ModesSize: 4})

	runSplatoonRound(t, ctrl, l, "Alpha", "Bravo", "zones")

	err := ctrl.ProposeWinner("connA", l.ID, "Charlie", "Alpha")
	assert.ErrorIs(t, err, ErrInvalidAction)
	assert.Nil(t, l.PendingWinner)
}

func TestSplatoon_CreateValidation(t *testing.T) {
	ctrl, rec := newTestController(t, false)

	_, err := ctrl.CreateSplatoon("conn1", SplatoonSettings{ModesSize: 3})
	require.Error(t, err)
	assert.NotNil(t, rec.last("conn:conn1", EvtLobbyCreationError))
	assert.Empty(t, ctrl.Store().List())
}
