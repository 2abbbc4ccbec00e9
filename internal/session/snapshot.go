/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"slices"
	"sort"
	"time"
)

// PlayerView is the serialized form of a roster entry.
type PlayerView struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	IsHost       bool     `json:"isHost"`
	IsReady      bool     `json:"isReady"`
	Score        int      `json:"score"`
	Answers      []Answer `json:"answers"`
	Disconnected bool     `json:"disconnected,omitempty"`
}

// Snapshot is the sanitized projection of a session sent to clients. It
// shares no memory with the live session, so it can be encoded after the
// engine lock is released. Kahoot options are left out; they carry the
// correct answers.
type Snapshot struct {
	ID          string       `json:"id"`
	Host        string       `json:"host"`
	HostID      string       `json:"hostId"`
	Settings    Settings     `json:"settings"`
	Players     []PlayerView `json:"players"`
	State       State        `json:"state"`
	CurrentSong int          `json:"currentSong"`
	Songs       []Song       `json:"songs"`
	AudioURLs   []string     `json:"audioUrls"`
	RoundPhase  Phase        `json:"roundPhase"`
	CreatedAt   time.Time    `json:"createdAt"`
}

func (p *Player) View() PlayerView {
	answers := slices.Clone(p.Answers)
	if answers == nil {
		answers = []Answer{}
	}
	return PlayerView{
		ID:           p.ID,
		Name:         p.Name,
		IsReady:      p.IsReady,
		Score:        p.Score,
		Answers:      answers,
		Disconnected: p.Disconnected,
	}
}

func (s *Session) Snapshot() Snapshot {
	players := make([]PlayerView, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, p.View())
	}

	songs := slices.Clone(s.Songs)
	if songs == nil {
		songs = []Song{}
	}

	audioURLs := slices.Clone(s.AudioURLs)
	if audioURLs == nil {
		audioURLs = []string{}
	}

	return Snapshot{
		ID:          s.ID,
		Host:        s.Host.Name,
		HostID:      s.Host.ID,
		Settings:    s.Settings,
		Players:     players,
		State:       s.State,
		CurrentSong: s.CurrentSong,
		Songs:       songs,
		AudioURLs:   audioURLs,
		RoundPhase:  s.Round.Phase,
		CreatedAt:   s.CreatedAt,
	}
}

type Standing struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Correct  int    `json:"correct"`
}

// Leaderboard ranks the roster by score; ties keep join order and share a rank.
func (s *Session) Leaderboard() []Standing {
	out := make([]Standing, 0, len(s.Players))
	for _, p := range s.Players {
		correct := 0
		for _, a := range p.Answers {
			if a.IsCorrect {
				correct++
			}
		}
		out = append(out, Standing{PlayerID: p.ID, Name: p.Name, Score: p.Score, Correct: correct})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	for i := range out {
		if i > 0 && out[i].Score == out[i-1].Score {
			out[i].Rank = out[i-1].Rank
			continue
		}
		out[i].Rank = i + 1
	}

	return out
}
