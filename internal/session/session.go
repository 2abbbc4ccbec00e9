/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package session holds the in-memory game model: sessions, their roster,
// the per-round answer window, and the store that owns them.
package session

import (
	"slices"
	"strings"
	"time"
)

type State string

const (
	StateLobby    State = "lobby"
	StatePlaying  State = "playing"
	StateFinished State = "finished"
)

// Settings are always produced by the validation layer, never decoded
// directly from client input.
type Settings struct {
	SongsCount      int  `json:"songsCount"`
	ClipDuration    int  `json:"clipDuration"`
	AnswerTime      int  `json:"answerTime"`
	MaxPlayers      int  `json:"maxPlayers"`
	AutoplayEnabled bool `json:"autoplayEnabled"`
}

const (
	MinSongsCount   = 1
	MaxSongsCount   = 50
	MinClipDuration = 5
	MaxClipDuration = 60
	MinAnswerTime   = 5
	MaxAnswerTime   = 60
	MinMaxPlayers   = 2
	MaxMaxPlayers   = 50
)

func DefaultSettings() Settings {
	return Settings{
		SongsCount:      10,
		ClipDuration:    20,
		AnswerTime:      15,
		MaxPlayers:      8,
		AutoplayEnabled: true,
	}
}

type Song struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	Year     string `json:"year,omitempty"`
	AudioURL string `json:"audioUrl,omitempty"`
	CoverURL string `json:"coverUrl,omitempty"`
}

// KahootOption is the four-choice question shown to players for one song.
type KahootOption struct {
	Options      [4]string `json:"options"`
	CorrectIndex int       `json:"correctIndex"`
}

type Answer struct {
	SongIndex      int     `json:"songIndex"`
	SelectedOption int     `json:"selectedOption"`
	ResponseTime   float64 `json:"responseTime"`
	IsCorrect      bool    `json:"isCorrect"`
	Points         int     `json:"points"`
	TimedOut       bool    `json:"timedOut,omitempty"`
}

type Player struct {
	ID           string
	Name         string
	IsReady      bool
	Score        int
	Answers      []Answer
	Disconnected bool
	JoinedAt     time.Time

	removal    Timer
	removalGen uint64
}

// AnswerFor reports whether the player already answered the given song.
func (p *Player) AnswerFor(song int) (Answer, bool) {
	for _, a := range p.Answers {
		if a.SongIndex == song {
			return a, true
		}
	}
	return Answer{}, false
}

// ScheduleRemoval arms the reconnect grace timer. fire receives a token that
// must be passed back to RemovalDue.
func (p *Player) ScheduleRemoval(after AfterFunc, d time.Duration, fire func(gen uint64)) {
	p.CancelRemoval()
	p.removalGen++
	gen := p.removalGen
	p.removal = after(d, func() { fire(gen) })
}

func (p *Player) CancelRemoval() {
	if p.removal != nil {
		p.removal.Stop()
		p.removal = nil
	}
}

// RemovalDue consumes the grace timer if gen is still current.
func (p *Player) RemovalDue(gen uint64) bool {
	if p.removal == nil || gen != p.removalGen {
		return false
	}
	p.removal = nil
	return true
}

type Host struct {
	ID   string
	Name string
}

type Role int

const (
	RoleHost Role = iota + 1
	RolePlayer
)

// Participant is the answer to "who is this connection in this session".
type Participant struct {
	Role   Role
	ID     string
	Name   string
	Player *Player
}

type Session struct {
	ID            string
	Host          Host
	Settings      Settings
	Players       []*Player
	State         State
	CurrentSong   int
	Songs         []Song
	AudioURLs     []string
	KahootOptions map[int]KahootOption
	Round         Round
	CreatedAt     time.Time
}

func New(id string, host Host, settings Settings, now time.Time) *Session {
	return &Session{
		ID:            id,
		Host:          host,
		Settings:      settings,
		State:         StateLobby,
		KahootOptions: make(map[int]KahootOption),
		Round:         Round{Phase: PhaseIdle},
		CreatedAt:     now,
	}
}

func (s *Session) IsHost(connID string) bool {
	return connID != "" && s.Host.ID == connID
}

func (s *Session) PlayerByID(connID string) *Player {
	if connID == "" {
		return nil
	}
	for _, p := range s.Players {
		if p.ID == connID {
			return p
		}
	}
	return nil
}

func (s *Session) PlayerByName(name string) *Player {
	for _, p := range s.Players {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

// NameTaken checks the roster and the host, case-insensitively.
func (s *Session) NameTaken(name string) bool {
	return strings.EqualFold(s.Host.Name, name) || s.PlayerByName(name) != nil
}

func (s *Session) Participant(connID string) (Participant, bool) {
	if s.IsHost(connID) {
		return Participant{Role: RoleHost, ID: s.Host.ID, Name: s.Host.Name}, true
	}
	if p := s.PlayerByID(connID); p != nil {
		return Participant{Role: RolePlayer, ID: p.ID, Name: p.Name, Player: p}, true
	}
	return Participant{}, false
}

func (s *Session) IsFull() bool {
	return len(s.Players) >= s.Settings.MaxPlayers
}

func (s *Session) AddPlayer(connID, name string, now time.Time) *Player {
	p := &Player{
		ID:       connID,
		Name:     name,
		JoinedAt: now,
	}
	s.Players = append(s.Players, p)
	return p
}

// RemovePlayer drops the player with the given connection ID and stops its
// grace timer.
func (s *Session) RemovePlayer(connID string) *Player {
	for i, p := range s.Players {
		if p.ID == connID {
			p.CancelRemoval()
			s.Players = slices.Delete(s.Players, i, i+1)
			return p
		}
	}
	return nil
}

// PromoteFirst makes the earliest-joined connected player the host.
func (s *Session) PromoteFirst() *Player {
	for _, p := range s.Players {
		if p.Disconnected {
			continue
		}
		s.RemovePlayer(p.ID)
		s.Host = Host{ID: p.ID, Name: p.Name}
		return p
	}
	return nil
}

// SongCount is the number of rounds in the game: the pushed song list when
// present, otherwise the configured count.
func (s *Session) SongCount() int {
	if len(s.Songs) > 0 {
		return len(s.Songs)
	}
	return s.Settings.SongsCount
}

func (s *Session) SetSongs(songs []Song) {
	s.Songs = songs
	s.AudioURLs = make([]string, len(songs))
	for i, song := range songs {
		s.AudioURLs[i] = song.AudioURL
	}
}

// AnsweredCount is how many roster players answered the current song.
func (s *Session) AnsweredCount() int {
	n := 0
	for _, p := range s.Players {
		if _, ok := p.AnswerFor(s.CurrentSong); ok {
			n++
		}
	}
	return n
}

func (s *Session) Start() {
	s.State = StatePlaying
	s.CurrentSong = 0
	s.Round.Listen(0)
}

func (s *Session) Finish() {
	s.State = StateFinished
	s.Round.Close()
}

// Reset returns the session to the lobby and wipes all round results.
func (s *Session) Reset() {
	s.Round.Close()
	s.State = StateLobby
	s.CurrentSong = 0
	s.Songs = nil
	s.AudioURLs = nil
	s.KahootOptions = make(map[int]KahootOption)
	for _, p := range s.Players {
		p.Score = 0
		p.Answers = nil
		p.IsReady = false
	}
}

// StopTimers cancels every callback the session owns.
func (s *Session) StopTimers() {
	s.Round.Close()
	for _, p := range s.Players {
		p.CancelRemoval()
	}
}
