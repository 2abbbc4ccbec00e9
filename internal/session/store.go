/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store is the seam between the handlers and wherever sessions live.
type Store interface {
	Get(id string) (*Session, bool)
	Has(id string) bool
	Set(s *Session)
	Delete(id string) bool
	All() []*Session
	Stats() Stats
	Sweep(now time.Time) []string
}

// Mirror receives copies of session state for outside observers. It is never
// read back.
type Mirror interface {
	Save(ctx context.Context, snap Snapshot) error
	Remove(ctx context.Context, id string) error
}

type Stats struct {
	TotalGames    int `json:"totalGames"`
	ActiveGames   int `json:"activeGames"`
	LobbyGames    int `json:"lobbyGames"`
	FinishedGames int `json:"finishedGames"`
	TotalPlayers  int `json:"totalPlayers"`
}

const DefaultTimeout = 4 * time.Hour

type MemoryStore struct {
	mu      sync.RWMutex
	games   map[string]*Session
	timeout time.Duration
}

func NewMemoryStore(timeout time.Duration) *MemoryStore {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &MemoryStore{
		games:   make(map[string]*Session),
		timeout: timeout,
	}
}

func (m *MemoryStore) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.games[id]
	return s, ok
}

func (m *MemoryStore) Has(id string) bool {
	_, ok := m.Get(id)
	return ok
}

func (m *MemoryStore) Set(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.games[s.ID] = s
}

// Delete stops the session's timers before dropping it.
func (m *MemoryStore) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.games[id]
	if !ok {
		return false
	}
	s.StopTimers()
	delete(m.games, id)
	return true
}

// All returns the sessions oldest first.
func (m *MemoryStore) All() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.games))
	for _, s := range m.games {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m *MemoryStore) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Stats{TotalGames: len(m.games)}
	for _, s := range m.games {
		switch s.State {
		case StatePlaying:
			st.ActiveGames++
		case StateLobby:
			st.LobbyGames++
		case StateFinished:
			st.FinishedGames++
		}
		st.TotalPlayers += len(s.Players)
	}
	return st
}

func (m *MemoryStore) stale(s *Session, now time.Time) bool {
	return len(s.Players) == 0 || now.Sub(s.CreatedAt) > m.timeout
}

// Sweep removes empty or expired sessions and returns their IDs, sorted.
func (m *MemoryStore) Sweep(now time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	for id, s := range m.games {
		if !m.stale(s, now) {
			continue
		}
		s.StopTimers()
		delete(m.games, id)
		removed = append(removed, id)
	}

	sort.Strings(removed)
	return removed
}
