/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// fireAll runs every timer ever armed, stopped or not, the way a timer that
// raced its Stop call would.
func (c *fakeClock) fireAll() {
	for _, t := range c.timers {
		t.f()
	}
}

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newSession(t *testing.T, players ...string) *Session {
	t.Helper()

	s := New("ABC123", Host{ID: "host", Name: "Host"}, DefaultSettings(), epoch)
	for i, name := range players {
		s.AddPlayer(name+"-conn", name, epoch.Add(time.Duration(i)*time.Second))
	}
	return s
}

func TestNameTakenIncludesHost(t *testing.T) {
	s := newSession(t, "Alice")

	assert.True(t, s.NameTaken("alice"))
	assert.True(t, s.NameTaken("HOST"))
	assert.False(t, s.NameTaken("Bob"))
}

func TestParticipant(t *testing.T) {
	s := newSession(t, "Alice")

	host, ok := s.Participant("host")
	require.True(t, ok)
	assert.Equal(t, RoleHost, host.Role)
	assert.Nil(t, host.Player)

	player, ok := s.Participant("Alice-conn")
	require.True(t, ok)
	assert.Equal(t, RolePlayer, player.Role)
	assert.Equal(t, "Alice", player.Player.Name)

	_, ok = s.Participant("stranger")
	assert.False(t, ok)

	_, ok = s.Participant("")
	assert.False(t, ok)
}

func TestIsFull(t *testing.T) {
	s := newSession(t, "A", "B")
	s.Settings.MaxPlayers = 2

	assert.True(t, s.IsFull())

	s.RemovePlayer("A-conn")
	assert.False(t, s.IsFull())
}

func TestResetClearsProgress(t *testing.T) {
	s := newSession(t, "Alice")
	s.SetSongs([]Song{{Title: "One", AudioURL: "/uploads/1.mp3"}})
	s.KahootOptions[0] = KahootOption{CorrectIndex: 2}
	s.Start()
	s.Players[0].Score = 900
	s.Players[0].Answers = []Answer{{SongIndex: 0, Points: 900, IsCorrect: true}}
	s.Players[0].IsReady = true

	s.Reset()

	assert.Equal(t, StateLobby, s.State)
	assert.Zero(t, s.CurrentSong)
	assert.Empty(t, s.Songs)
	assert.Empty(t, s.AudioURLs)
	assert.Empty(t, s.KahootOptions)
	assert.Equal(t, PhaseIdle, s.Round.Phase)
	assert.Zero(t, s.Players[0].Score)
	assert.Empty(t, s.Players[0].Answers)
	assert.False(t, s.Players[0].IsReady)
}

func TestSetSongsTracksAudioURLs(t *testing.T) {
	s := newSession(t)
	s.SetSongs([]Song{{AudioURL: "/a"}, {AudioURL: "/b"}})

	assert.Equal(t, []string{"/a", "/b"}, s.AudioURLs)
	assert.Equal(t, 2, s.SongCount())

	s.SetSongs(nil)
	assert.Equal(t, s.Settings.SongsCount, s.SongCount())
}

func TestPromoteFirstSkipsDisconnected(t *testing.T) {
	s := newSession(t, "Alice", "Bob")
	s.Players[0].Disconnected = true

	p := s.PromoteFirst()
	require.NotNil(t, p)
	assert.Equal(t, "Bob", p.Name)
	assert.Equal(t, Host{ID: "Bob-conn", Name: "Bob"}, s.Host)
	assert.Len(t, s.Players, 1)

	s.Players[0].Disconnected = true
	assert.Nil(t, s.PromoteFirst())
}

func TestRemovalGeneration(t *testing.T) {
	clock := &fakeClock{}
	s := newSession(t, "Alice")
	p := s.Players[0]

	var fired []uint64
	p.ScheduleRemoval(clock.AfterFunc, time.Minute, func(gen uint64) { fired = append(fired, gen) })
	p.ScheduleRemoval(clock.AfterFunc, time.Minute, func(gen uint64) { fired = append(fired, gen) })

	require.Len(t, clock.timers, 2)
	assert.True(t, clock.timers[0].stopped)

	clock.fireAll()
	require.Len(t, fired, 2)

	assert.False(t, p.RemovalDue(fired[0]))
	assert.True(t, p.RemovalDue(fired[1]))
	assert.False(t, p.RemovalDue(fired[1]), "a removal is consumed once")
}

func TestRemovePlayerCancelsRemoval(t *testing.T) {
	clock := &fakeClock{}
	s := newSession(t, "Alice")
	p := s.Players[0]

	p.ScheduleRemoval(clock.AfterFunc, time.Minute, func(uint64) {})
	s.RemovePlayer(p.ID)

	assert.True(t, clock.timers[0].stopped)
}

func TestAnsweredCount(t *testing.T) {
	s := newSession(t, "A", "B", "C")
	s.Start()
	s.Players[0].Answers = []Answer{{SongIndex: 0}}
	s.Players[1].Answers = []Answer{{SongIndex: 1}}

	assert.Equal(t, 1, s.AnsweredCount())

	s.CurrentSong = 1
	assert.Equal(t, 1, s.AnsweredCount())
}
