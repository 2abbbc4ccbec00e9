/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rejoin(id, name, previous string) map[string]any {
	return map[string]any{"gameId": id, "playerName": name, "previousId": previous}
}

func TestRejoinHost(t *testing.T) {
	h := newHarness(t)
	id := h.startGame("host", []string{"a"}, "alice", "bob")

	h.connect("host-2")
	h.send("host-2", EventRejoinGame, rejoin(id, "Host", "host"))

	var ok RejoinSuccess
	h.expect("host-2", EventRejoinSuccess, &ok)
	assert.True(t, ok.IsHost)
	assert.Nil(t, ok.Player)
	assert.Equal(t, "host-2", ok.Game.HostID)

	s := h.session(id)
	assert.True(t, s.IsHost("host-2"))
	assert.False(t, s.IsHost("host"))

	h.send("host-2", EventNextSong, map[string]any{"gameId": id})
	h.expect("alice", EventGameEnded, nil)
}

func TestRejoinPlayerByName(t *testing.T) {
	h := newHarness(t)
	id := h.startGame("host", []string{"a", "b"}, "alice", "bob")

	h.send("host", EventShowKahootOptions, options(id, 0))
	h.send("alice", EventSubmitAnswer, answer(id, "alice", 1, 0, true))
	h.drainAll()

	h.connect("alice-2")
	h.send("alice-2", EventRejoinGame, rejoin(id, "ALICE", "whatever"))

	var ok RejoinSuccess
	h.expect("alice-2", EventRejoinSuccess, &ok)
	assert.False(t, ok.IsHost)
	require.NotNil(t, ok.Player)
	assert.Equal(t, "alice-2", ok.Player.ID)
	assert.Equal(t, 1000, ok.Player.Score)

	var rejoined PlayerJoined
	h.expect("host", EventPlayerRejoined, &rejoined)
	assert.Equal(t, "alice", rejoined.Player.Name)

	assert.Nil(t, h.session(id).PlayerByID("alice"))
	assert.NotNil(t, h.session(id).PlayerByID("alice-2"))

	h.send("host", EventNextSong, map[string]any{"gameId": id})
	h.expect("alice-2", EventSongChanged, nil)
	assert.Empty(t, h.events("alice"), "the old connection left the room")
}

func TestRejoinWithinGrace(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.PlayerGrace = time.Minute })
	id := h.startGame("host", []string{"a"}, "alice", "bob")

	h.engine.Disconnect("alice")
	timer := h.clock.last(t)

	h.connect("alice-2")
	h.send("alice-2", EventRejoinGame, rejoin(id, "alice", "alice"))
	h.expect("alice-2", EventRejoinSuccess, nil)

	p := h.session(id).PlayerByID("alice-2")
	require.NotNil(t, p)
	assert.False(t, p.Disconnected)
	assert.True(t, timer.stopped)

	h.drainAll()
	timer.f()

	assert.Empty(t, h.events("host"), "a stale grace timer leaves the player alone")
	assert.Len(t, h.session(id).Players, 2)
}

func TestRejoinFreshJoinInLobby(t *testing.T) {
	h := newHarness(t)
	id := h.createGame("host", "alice")

	h.connect("bob")
	h.send("bob", EventRejoinGame, rejoin(id, "Bob", "old-bob"))

	var ok RejoinSuccess
	h.expect("bob", EventRejoinSuccess, &ok)
	require.NotNil(t, ok.Player)
	assert.Equal(t, "Bob", ok.Player.Name)

	h.expect("alice", EventPlayerJoined, nil)
	assert.Len(t, h.session(id).Players, 2)
}

func TestRejoinFailures(t *testing.T) {
	h := newHarness(t)
	started := h.startGame("host", []string{"a"}, "alice")

	full := h.createGame("host2", "p1", "p2")
	h.session(full).Settings.MaxPlayers = 2

	open := h.createGame("host3", "q1")

	tests := []struct {
		name    string
		payload map[string]any
		reason  string
	}{
		{"malformed id", rejoin("???", "Bob", ""), "Invalid game code."},
		{"missing game", rejoin("ZZZZZZ", "Bob", ""), "Game no longer exists."},
		{"bad name", rejoin(started, "<b>", ""), "Invalid player name."},
		{"unknown name in progress", rejoin(started, "Mallory", ""), "This game is already in progress."},
		{"lobby full", rejoin(full, "Mallory", ""), "Game is full."},
		{"host name", rejoin(open, "host", ""), "That name is already taken."},
	}

	for _, tt := range tests {
		h.connect("late")
		h.send("late", EventRejoinGame, tt.payload)

		var failed RejoinFailed
		h.expect("late", EventRejoinFailed, &failed)
		assert.Equal(t, tt.reason, failed.Reason, tt.name)
	}

	assert.Len(t, h.session(started).Players, 1)
	assert.Len(t, h.session(full).Players, 2)
	assert.Len(t, h.session(open).Players, 1)
	assert.Empty(t, h.events("host"))
}

func TestRejoinAfterHostDisconnectDelete(t *testing.T) {
	h := newHarness(t)
	id := h.createGame("host", "alice")

	h.engine.Disconnect("host")

	h.connect("host-2")
	h.send("host-2", EventRejoinGame, rejoin(id, "Host", "host"))

	var failed RejoinFailed
	h.expect("host-2", EventRejoinFailed, &failed)
	assert.Equal(t, id, failed.GameID)
}
