package veto

// Outbound event names. The set is closed: clients ignore anything else,
// and the server never invents new names at runtime.
const (
	EvtLobbyExists        = "lobbyExists"
	EvtLobbyUndefined     = "lobbyUndefined"
	EvtLobbyNotFound      = "lobbyNotFound"
	EvtLobbyCreated       = "lobbyCreated"
	EvtLobbyDeleted       = "lobbyDeleted"
	EvtLobbyCreationError = "lobbyCreationError"
	EvtLobbiesUpdated     = "lobbiesUpdated"

	EvtTeamNamesUpdated = "teamNamesUpdated"
	EvtMapNames         = "mapNames"
	EvtGameName         = "gameName"
	EvtModesSizeUpdated = "modesSizeUpdated"
	EvtFPSLobbySettings = "fpsLobbySettings"

	EvtPickedUpdated     = "pickedUpdated"
	EvtBannedUpdated     = "bannedUpdated"
	EvtDeciderUpdated    = "deciderUpdated"
	EvtModesUpdated      = "modesUpdated"
	EvtModePicked        = "modePicked"
	EvtCurrentPickedMode = "currentPickedMode"
	EvtAvailableMaps     = "availableMaps"

	EvtCanWorkUpdated  = "canWorkUpdated"
	EvtCanBan          = "canBan"
	EvtCanPick         = "canPick"
	EvtCanModeBan      = "canModeBan"
	EvtCanModePick     = "canModePick"
	EvtCanReportWinner = "canReportWinner"

	EvtBackendStartPick = "backend.startPick"
	EvtEndPick          = "endPick"
	EvtGameStateUpdated = "gameStateUpdated"
	EvtStartWithoutCoin = "startWithoutCoin"

	EvtWinnerProposed  = "winnerProposed"
	EvtWinnerConfirmed = "winnerConfirmed"
	EvtWinnerRejected  = "winnerRejected"

	EvtCoinFlipUpdated   = "coinFlipUpdated"
	EvtCardColorsUpdated = "cardColorsUpdated"

	EvtPatternList       = "patternList"
	EvtLobbyGameCategory = "lobbyGameCategory"
	EvtBackendClearObs   = "backend.clear_obs"
	EvtAdminSetObsLobby  = "admin.setObsLobby"
)

// Emitter is the controller's only way out. The transport guarantees
// per-connection FIFO delivery, so emission order here is delivery order.
type Emitter interface {
	// ToConn sends to a single connection.
	ToConn(conn, event string, data interface{})
	// ToLobby sends to every member and observer of a lobby.
	ToLobby(lobbyID, event string, data interface{})
	// ToObs sends to the obs_views room.
	ToObs(event string, data interface{})
	// ToAll sends to every open connection.
	ToAll(event string, data interface{})
}
