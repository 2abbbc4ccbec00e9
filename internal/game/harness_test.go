/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Seednode/quizbox/internal/hub"
	"github.com/Seednode/quizbox/internal/session"
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

// fakeClock records armed timers; tests fire them by hand.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) session.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) last(t *testing.T) *fakeTimer {
	t.Helper()

	c.mu.Lock()
	defer c.mu.Unlock()

	require.NotEmpty(t, c.timers, "no timer armed")
	return c.timers[len(c.timers)-1]
}

type harness struct {
	t       *testing.T
	engine  *Engine
	hub     *hub.Hub
	store   *session.MemoryStore
	clock   *fakeClock
	clients map[string]*hub.Client
}

func newHarness(t *testing.T, configure ...func(*Options)) *harness {
	t.Helper()

	clock := &fakeClock{}
	opts := Options{
		AfterFunc: clock.AfterFunc,
		Now:       func() time.Time { return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC) },
	}
	for _, c := range configure {
		c(&opts)
	}

	h := hub.New(nil)
	store := session.NewMemoryStore(time.Hour)

	return &harness{
		t:       t,
		engine:  New(store, h, opts),
		hub:     h,
		store:   store,
		clock:   clock,
		clients: make(map[string]*hub.Client),
	}
}

func (h *harness) connect(ids ...string) {
	for _, id := range ids {
		h.clients[id] = h.hub.Register(id, 256)
	}
}

func (h *harness) send(connID, event string, payload any) {
	h.t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(h.t, err)

	h.engine.Dispatch(connID, event, data)
}

// drain returns everything queued for connID so far.
func (h *harness) drain(connID string) []hub.Envelope {
	h.t.Helper()

	c, ok := h.clients[connID]
	require.True(h.t, ok, "unknown client %s", connID)

	var out []hub.Envelope
	for {
		select {
		case msg, ok := <-c.Send():
			if !ok {
				return out
			}
			var env hub.Envelope
			require.NoError(h.t, json.Unmarshal(msg, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func (h *harness) events(connID string) []string {
	h.t.Helper()

	var names []string
	for _, env := range h.drain(connID) {
		names = append(names, env.Event)
	}
	return names
}

// expect drains connID and decodes the last occurrence of event into v.
func (h *harness) expect(connID, event string, v any) {
	h.t.Helper()

	var found *hub.Envelope
	envs := h.drain(connID)
	for i := range envs {
		if envs[i].Event == event {
			found = &envs[i]
		}
	}
	require.NotNil(h.t, found, "%s did not receive %s (got %v)", connID, event, envs)

	if v != nil {
		require.NoError(h.t, json.Unmarshal(found.Data, v))
	}
}

func (h *harness) expectError(connID, code string) ErrorMessage {
	h.t.Helper()

	var msg ErrorMessage
	h.expect(connID, EventError, &msg)
	require.Equal(h.t, code, msg.Code, "message: %s", msg.Message)
	return msg
}

func (h *harness) drainAll() {
	for id := range h.clients {
		h.drain(id)
	}
}

// createGame has host open a game with the given players joined.
func (h *harness) createGame(host string, players ...string) string {
	h.t.Helper()

	h.connect(host)
	h.send(host, EventCreateGame, map[string]any{"hostName": "Host"})

	var created GameCreated
	h.expect(host, EventGameCreated, &created)

	for _, p := range players {
		h.connect(p)
		h.send(p, EventJoinGame, map[string]any{"gameId": created.GameID, "playerName": p})
		h.expect(p, EventGameJoined, nil)
	}

	h.drainAll()
	return created.GameID
}

// startGame creates a game and starts it with the given song titles.
func (h *harness) startGame(host string, songs []string, players ...string) string {
	h.t.Helper()

	id := h.createGame(host, players...)

	list := make([]map[string]any, len(songs))
	for i, title := range songs {
		list[i] = map[string]any{"title": title, "artist": "Artist"}
	}
	h.send(host, EventStartGame, map[string]any{"gameId": id, "songs": list})
	h.expect(host, EventGameStarted, nil)

	h.drainAll()
	return id
}

func (h *harness) session(id string) *session.Session {
	h.t.Helper()

	s, ok := h.store.Get(id)
	require.True(h.t, ok, "game %s not in store", id)
	return s
}

func options(id string, song int) map[string]any {
	return map[string]any{
		"gameId":       id,
		"songIndex":    song,
		"options":      []string{"A", "B", "C", "D"},
		"correctIndex": 1,
	}
}
