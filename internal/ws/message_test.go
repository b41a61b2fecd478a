package ws

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeTeamName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"plain", "Natus Vincere", "Natus Vincere", true},
		{"trimmed", "  Team Spirit  ", "Team Spirit", true},
		{"control runes stripped", "Fa\x00ze\tClan\n", "FazeClan", true},
		{"cyrillic kept", "Виртус Про", "Виртус Про", true},
		{"empty", "", "", false},
		{"whitespace only", " \t\n ", "", false},
		{"control only", "\x00\x01\x02", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := sanitizeTeamName(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSanitizeTeamNameCapsLength(t *testing.T) {
	long := strings.Repeat("я", 40)
	got, ok := sanitizeTeamName(long)
	require.True(t, ok)
	assert.Equal(t, maxTeamNameLen, len([]rune(got)), "cap counts runes, not bytes")
}

func TestEncodeEvent(t *testing.T) {
	b, err := encodeEvent("teamNamesUpdated", []string{"Alpha", "Bravo"})
	require.NoError(t, err)

	var evt Event
	require.NoError(t, json.Unmarshal(b, &evt))
	assert.Equal(t, "teamNamesUpdated", evt.Event)
	assert.JSONEq(t, `["Alpha","Bravo"]`, string(evt.Data))
}

func TestEncodeEventNilData(t *testing.T) {
	b, err := encodeEvent("backend.endPick", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"backend.endPick"}`, string(b))
}

func TestEventRoundTrip(t *testing.T) {
	in := []byte(`{"event":"lobby.ban","data":{"lobbyId":"x","map":"Nuke","teamName":"Alpha"}}`)
	var evt Event
	require.NoError(t, json.Unmarshal(in, &evt))
	assert.Equal(t, InBan, evt.Event)

	var p mapActionPayload
	require.NoError(t, json.Unmarshal(evt.Data, &p))
	assert.Equal(t, "x", p.LobbyID)
	assert.Equal(t, "Nuke", p.Map)
	assert.Equal(t, "Alpha", p.TeamName)
}
