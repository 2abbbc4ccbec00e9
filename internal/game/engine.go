/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package game is the authoritative session engine. It routes named client
// events to the lifecycle, gameplay and rejoin handlers and broadcasts the
// resulting state to each game's room.
package game

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Seednode/quizbox/internal/session"
)

// Rooms is the connection registry as seen by the engine.
type Rooms interface {
	Join(room, connID string)
	Leave(room, connID string)
	Clear(room string)
	Emit(connID, event string, payload any)
	Broadcast(room, event string, payload any)
	BroadcastExcept(room, exceptID, event string, payload any)
}

type Options struct {
	Logger      *zap.Logger
	AfterFunc   session.AfterFunc
	Now         func() time.Time
	HostPolicy  HostPolicy
	PlayerGrace time.Duration
	Mirror      session.Mirror
	Random      io.Reader
}

type handlerFunc func(e *Engine, connID string, data json.RawMessage) error

type mirrorOp struct {
	snap   session.Snapshot
	remove string
}

// Engine serializes every handler body behind one mutex, so each inbound
// message is applied atomically to the store. Timer callbacks take the same
// lock.
type Engine struct {
	mu     sync.Mutex
	store  session.Store
	rooms  Rooms
	logger *zap.Logger
	after  session.AfterFunc
	now    func() time.Time
	policy HostPolicy
	grace  time.Duration
	random io.Reader

	mirror  session.Mirror
	dirty   map[string]struct{}
	mirrors chan mirrorOp

	handlers map[string]handlerFunc
}

func New(store session.Store, rooms Rooms, opts Options) *Engine {
	e := &Engine{
		store:  store,
		rooms:  rooms,
		logger: opts.Logger,
		after:  opts.AfterFunc,
		now:    opts.Now,
		policy: opts.HostPolicy,
		grace:  opts.PlayerGrace,
		random: opts.Random,
		mirror: opts.Mirror,
		dirty:  make(map[string]struct{}),
	}

	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.after == nil {
		e.after = session.RealAfterFunc
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.random == nil {
		e.random = rand.Reader
	}
	if e.policy == nil {
		e.policy = DeleteSession{}
	}
	if e.mirror != nil {
		e.mirrors = make(chan mirrorOp, 256)
	}

	e.handlers = map[string]handlerFunc{
		EventCreateGame:        (*Engine).createGame,
		EventJoinGame:          (*Engine).joinGame,
		EventKickPlayer:        (*Engine).kickPlayer,
		EventStartGame:         (*Engine).startGame,
		EventResetGame:         (*Engine).resetGame,
		EventLeaveGame:         (*Engine).leaveGame,
		EventSongPlaying:       (*Engine).songPlaying,
		EventShowKahootOptions: (*Engine).showKahootOptions,
		EventSubmitAnswer:      (*Engine).submitAnswer,
		EventRevealAnswers:     (*Engine).revealAnswers,
		EventNextSong:          (*Engine).nextSong,
		EventEndGame:           (*Engine).endGame,
		EventRejoinGame:        (*Engine).rejoinGame,
	}

	return e
}

// Dispatch runs the handler registered for event on behalf of connID.
// Rejections go back to connID only; panics degrade to a generic error.
func (e *Engine) Dispatch(connID, event string, data json.RawMessage) {
	h, ok := e.handlers[event]
	if !ok {
		e.logger.Debug("ignoring unknown event", zap.String("conn_id", connID), zap.String("event", event))
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.flush()
	defer e.recoverPanic(connID, event)

	if err := h(e, connID, data); err != nil {
		e.logger.Debug("rejected event",
			zap.String("conn_id", connID),
			zap.String("event", event),
			zap.Error(err),
		)
		e.rooms.Emit(connID, EventError, ErrorMessage{
			Message: errorMessage(err),
			Code:    errorCode(err),
		})
	}
}

func (e *Engine) recoverPanic(connID, event string) {
	r := recover()
	if r == nil {
		return
	}

	e.logger.Error("handler panic",
		zap.String("conn_id", connID),
		zap.String("event", event),
		zap.Any("panic", r),
		zap.ByteString("stack", debug.Stack()),
	)

	if connID != "" {
		e.rooms.Emit(connID, EventError, ErrorMessage{
			Message: errorMessage(nil),
			Code:    errorCode(nil),
		})
	}
}

// Disconnect handles the transport-level close of connID. A connection
// belongs to at most one session, so the first match wins.
func (e *Engine) Disconnect(connID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.flush()
	defer e.recoverPanic("", "disconnect")

	for _, s := range e.store.All() {
		if s.IsHost(connID) {
			e.hostLost(s)
			return
		}
		if p := s.PlayerByID(connID); p != nil {
			e.playerLost(s, p)
			return
		}
	}
}

func (e *Engine) Stats() session.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.store.Stats()
}

func (e *Engine) Has(gameID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.store.Has(gameID)
}

// Snapshot returns the sanitized state of one game.
func (e *Engine) Snapshot(gameID string) (session.Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.store.Get(gameID)
	if !ok {
		return session.Snapshot{}, false
	}
	return s.Snapshot(), true
}

// Sweep evicts stale sessions and tells their rooms.
func (e *Engine) Sweep() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.flush()

	removed := e.store.Sweep(e.now())
	for _, id := range removed {
		e.rooms.Broadcast(id, EventGameDeleted, GameDeleted{GameID: id, Reason: "Game expired."})
		e.rooms.Clear(id)
		e.touch(id)
	}

	if len(removed) > 0 {
		e.logger.Info("swept stale games", zap.Strings("game_ids", removed))
	}

	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (e *Engine) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.Sweep()
		}
	}
}

// RunMirror drains queued mirror writes in order until ctx is done.
func (e *Engine) RunMirror(ctx context.Context) error {
	if e.mirror == nil {
		<-ctx.Done()
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case op := <-e.mirrors:
			wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			var err error
			if op.remove != "" {
				err = e.mirror.Remove(wctx, op.remove)
			} else {
				err = e.mirror.Save(wctx, op.snap)
			}
			cancel()

			if err != nil {
				e.logger.Warn("mirror write failed", zap.Error(err))
			}
		}
	}
}

func (e *Engine) touch(gameID string) {
	e.dirty[gameID] = struct{}{}
}

func (e *Engine) flush() {
	if len(e.dirty) == 0 {
		return
	}
	defer clear(e.dirty)

	if e.mirror == nil {
		return
	}

	for id := range e.dirty {
		op := mirrorOp{remove: id}
		if s, ok := e.store.Get(id); ok {
			op = mirrorOp{snap: s.Snapshot()}
		}

		select {
		case e.mirrors <- op:
		default:
			e.logger.Warn("mirror queue full, dropping update", zap.String("game_id", id))
		}
	}
}

const (
	gameIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	gameIDLength   = 6

	// Largest multiple of len(gameIDAlphabet) that fits in a byte; bytes at or
	// above it are discarded so every symbol is equally likely.
	gameIDByteLimit = 256 - 256%len(gameIDAlphabet)
)

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with a live game.
func (e *Engine) newGameID() (string, error) {
	buf := make([]byte, gameIDLength)
	for attempt := 0; attempt < 64; attempt++ {
		out := make([]byte, 0, gameIDLength)
		for len(out) < gameIDLength {
			if _, err := io.ReadFull(e.random, buf); err != nil {
				return "", fmt.Errorf("generating game id: %w", err)
			}
			for _, b := range buf {
				if int(b) >= gameIDByteLimit || len(out) == gameIDLength {
					continue
				}
				out = append(out, gameIDAlphabet[int(b)%len(gameIDAlphabet)])
			}
		}

		id := string(out)
		if !e.store.Has(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("generating game id: too many collisions")
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return reject(ErrInvalidInput, "Malformed request.")
	}
	return nil
}
