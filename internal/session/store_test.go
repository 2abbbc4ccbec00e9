/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreStats(t *testing.T) {
	store := NewMemoryStore(time.Hour)

	lobby := New("LOBBY1", Host{ID: "h1", Name: "H1"}, DefaultSettings(), epoch)
	lobby.AddPlayer("p1", "P1", epoch)

	playing := New("PLAY01", Host{ID: "h2", Name: "H2"}, DefaultSettings(), epoch)
	playing.AddPlayer("p2", "P2", epoch)
	playing.AddPlayer("p3", "P3", epoch)
	playing.Start()

	done := New("DONE01", Host{ID: "h3", Name: "H3"}, DefaultSettings(), epoch)
	done.Finish()

	for _, s := range []*Session{lobby, playing, done} {
		store.Set(s)
	}

	assert.Equal(t, Stats{
		TotalGames:    3,
		ActiveGames:   1,
		LobbyGames:    1,
		FinishedGames: 1,
		TotalPlayers:  3,
	}, store.Stats())
}

func TestMemoryStoreSweep(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	clock := &fakeClock{}

	empty := New("EMPTY1", Host{ID: "h1", Name: "H1"}, DefaultSettings(), epoch)

	old := New("OLD001", Host{ID: "h2", Name: "H2"}, DefaultSettings(), epoch)
	old.AddPlayer("p1", "P1", epoch)
	old.Start()
	old.Round.Open(0, time.Second, clock.AfterFunc, func(uint64) {})

	fresh := New("FRESH1", Host{ID: "h3", Name: "H3"}, DefaultSettings(), epoch.Add(50*time.Minute))
	fresh.AddPlayer("p2", "P2", epoch)

	for _, s := range []*Session{empty, old, fresh} {
		store.Set(s)
	}

	removed := store.Sweep(epoch.Add(61 * time.Minute))
	assert.Equal(t, []string{"EMPTY1", "OLD001"}, removed)
	assert.True(t, clock.timers[0].stopped)

	assert.True(t, store.Has("FRESH1"))
	assert.False(t, store.Has("OLD001"))

	assert.Empty(t, store.Sweep(epoch.Add(61*time.Minute)), "a second sweep is a no-op")
}

func TestMemoryStoreDeleteStopsTimers(t *testing.T) {
	store := NewMemoryStore(0)
	clock := &fakeClock{}

	s := New("ABC123", Host{ID: "h", Name: "H"}, DefaultSettings(), epoch)
	p := s.AddPlayer("p", "P", epoch)
	p.ScheduleRemoval(clock.AfterFunc, time.Minute, func(uint64) {})
	s.Round.Open(0, time.Second, clock.AfterFunc, func(uint64) {})
	store.Set(s)

	require.True(t, store.Delete("ABC123"))
	assert.False(t, store.Delete("ABC123"))

	for _, timer := range clock.timers {
		assert.True(t, timer.stopped)
	}
}

func TestMemoryStoreAllOrder(t *testing.T) {
	store := NewMemoryStore(time.Hour)

	store.Set(New("BBBBBB", Host{}, DefaultSettings(), epoch))
	store.Set(New("AAAAAA", Host{}, DefaultSettings(), epoch))
	store.Set(New("CCCCCC", Host{}, DefaultSettings(), epoch.Add(-time.Minute)))

	var ids []string
	for _, s := range store.All() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"CCCCCC", "AAAAAA", "BBBBBB"}, ids)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := New("ABC123", Host{ID: "h", Name: "Host"}, DefaultSettings(), epoch)
	p := s.AddPlayer("p", "Alice", epoch)
	p.Answers = []Answer{{SongIndex: 0, Points: 500}}
	s.SetSongs([]Song{{Title: "One"}})
	s.AudioURLs = []string{"/uploads/one.mp3"}
	s.KahootOptions[0] = KahootOption{Options: [4]string{"a", "b", "c", "d"}, CorrectIndex: 2}

	snap := s.Snapshot()

	p.Answers[0].Points = 1
	s.Songs[0].Title = "Changed"
	s.AudioURLs[0] = "/uploads/changed.mp3"

	assert.Equal(t, 500, snap.Players[0].Answers[0].Points)
	assert.Equal(t, "One", snap.Songs[0].Title)
	assert.Equal(t, "Host", snap.Host)
	assert.Equal(t, "h", snap.HostID)
	assert.Equal(t, []string{"/uploads/one.mp3"}, snap.AudioURLs)

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "correctIndex")

	empty := New("EMPTY1", Host{}, DefaultSettings(), epoch).Snapshot()
	assert.NotNil(t, empty.Players)
	assert.NotNil(t, empty.Songs)
	assert.NotNil(t, empty.AudioURLs)
}

func TestLeaderboardRanks(t *testing.T) {
	s := New("ABC123", Host{}, DefaultSettings(), epoch)
	for _, name := range []string{"A", "B", "C", "D"} {
		s.AddPlayer(name, name, epoch)
	}
	s.Players[0].Score = 100
	s.Players[1].Score = 900
	s.Players[2].Score = 100
	s.Players[3].Score = 400
	s.Players[1].Answers = []Answer{{IsCorrect: true}, {IsCorrect: false}}

	board := s.Leaderboard()
	require.Len(t, board, 4)

	got := make([][2]any, len(board))
	for i, st := range board {
		got[i] = [2]any{st.Name, st.Rank}
	}
	assert.Equal(t, [][2]any{{"B", 1}, {"D", 2}, {"A", 3}, {"C", 3}}, got)
	assert.Equal(t, 1, board[0].Correct)
}
