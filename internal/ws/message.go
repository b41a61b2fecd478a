package ws

import "encoding/json"

// Inbound event names. Anything outside this set is ignored.
const (
	InJoinLobby            = "joinLobby"
	InCreateFPSLobby       = "createFPSLobby"
	InCreateSplatoonLobby  = "createSplatoonLobby"
	InTeamName             = "lobby.teamName"
	InStartPick            = "lobby.startPick"
	InPick                 = "lobby.pick"
	InBan                  = "lobby.ban"
	InDecider              = "lobby.decider"
	InModeBan              = "lobby.modeBan"
	InModePick             = "lobby.modePick"
	InReportWinner         = "lobby.reportWinner"
	InProposeWinner        = "lobby.proposeWinner"
	InConfirmWinner        = "lobby.confirmWinner"
	InAdminStart           = "admin.start"
	InAdminDelete          = "admin.delete"
	InAdminCoinFlipUpdate  = "admin.coinFlipUpdate"
	InAdminEditFPSMapPool  = "admin.editFPSMapPool"
	InAdminEditCardColors  = "admin.editCardColors"
	InAdminSetObsLobby     = "admin.setObsLobby"
	InAdminPlayObs         = "admin.play_obs"
	InAdminClearObs        = "admin.clear_obs"
	InJoinObsView          = "joinObsView"
	InObsGetPatternList    = "obs.getPatternList"
	InObsGetCurrentPicked  = "obs.getCurrentPickedMode"
	InGetLobbyGameCategory = "getLobbyGameCategory"
)

// Event is the wire envelope in both directions.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encodeEvent(event string, data interface{}) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Event{Event: event, Data: raw})
}

// Inbound payloads.

type joinLobbyPayload struct {
	LobbyID string `json:"lobbyId"`
	Role    string `json:"role"`
}

type createFPSPayload struct {
	LobbyID      string `json:"lobbyId,omitempty"`
	Game         string `json:"game"`
	GameType     string `json:"gameType"`
	KnifeDecider bool   `json:"knifeDecider"`
	CoinFlip     *bool  `json:"coinFlip,omitempty"`
	Admin        bool   `json:"admin"`
	PoolSize     int    `json:"poolSize,omitempty"`
}

type createSplatoonPayload struct {
	LobbyID   string `json:"lobbyId,omitempty"`
	ModesSize int    `json:"modesSize"`
	CoinFlip  *bool  `json:"coinFlip,omitempty"`
	Admin     bool   `json:"admin"`
}

type teamNamePayload struct {
	LobbyID  string `json:"lobbyId"`
	TeamName string `json:"teamName"`
}

type mapActionPayload struct {
	LobbyID  string `json:"lobbyId"`
	Map      string `json:"map"`
	TeamName string `json:"teamName"`
	Side     string `json:"side,omitempty"`
}

type modeActionPayload struct {
	LobbyID  string `json:"lobbyId"`
	Mode     string `json:"mode"`
	TeamName string `json:"teamName"`
}

type winnerPayload struct {
	LobbyID  string `json:"lobbyId"`
	Winner   string `json:"winner"`
	TeamName string `json:"teamName"`
}

type confirmWinnerPayload struct {
	LobbyID   string `json:"lobbyId"`
	Confirmed bool   `json:"confirmed"`
}

type lobbyIDPayload struct {
	LobbyID string `json:"lobbyId"`
}

type coinFlipPayload struct {
	CoinFlip bool `json:"coinFlip"`
}

type mapPoolPayload struct {
	Game    string   `json:"game,omitempty"`
	MapPool []string `json:"mapPool"`
}

type cardColorsPayload struct {
	CardColors []string `json:"cardColors"`
}
