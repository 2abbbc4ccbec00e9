/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/Seednode/quizbox/internal/session"
	"github.com/Seednode/quizbox/internal/validate"
)

type createGameRequest struct {
	HostName      string          `json:"hostName"`
	Settings      json.RawMessage `json:"settings"`
	SongsMetadata json.RawMessage `json:"songsMetadata"`
	KahootOptions json.RawMessage `json:"kahootOptions"`
}

type joinGameRequest struct {
	GameID     string `json:"gameId"`
	PlayerName string `json:"playerName"`
}

type kickPlayerRequest struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
}

type startGameRequest struct {
	GameID          string          `json:"gameId"`
	Songs           json.RawMessage `json:"songs"`
	ClipDuration    json.RawMessage `json:"clipDuration"`
	AutoplayEnabled json.RawMessage `json:"autoplayEnabled"`
	SongsCount      json.RawMessage `json:"songsCount"`
}

type gameRequest struct {
	GameID string `json:"gameId"`
}

// lookup resolves a client-supplied game ID to a live session.
func (e *Engine) lookup(raw string) (*session.Session, error) {
	id, ok := validate.GameID(raw)
	if !ok {
		return nil, reject(ErrInvalidInput, "Invalid game code.")
	}

	s, ok := e.store.Get(id)
	if !ok {
		return nil, reject(ErrNotFound, "Game not found.")
	}
	return s, nil
}

// hosted is lookup plus the host check every host-only action needs.
func (e *Engine) hosted(connID, raw string) (*session.Session, error) {
	s, err := e.lookup(raw)
	if err != nil {
		return nil, err
	}
	if !s.IsHost(connID) {
		return nil, reject(ErrNotAuthorized, "Only the host can do that.")
	}
	return s, nil
}

func (e *Engine) createGame(connID string, data json.RawMessage) error {
	var req createGameRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	name, ok := validate.PlayerName(req.HostName)
	if !ok {
		return reject(ErrInvalidInput, "Invalid host name.")
	}

	id, err := e.newGameID()
	if err != nil {
		return err
	}

	s := session.New(id, session.Host{ID: connID, Name: name}, validate.GameSettings(req.Settings), e.now())
	s.SetSongs(validate.SongsMetadata(req.SongsMetadata))
	s.KahootOptions = validate.KahootOptions(req.KahootOptions)

	e.store.Set(s)
	e.touch(id)
	e.rooms.Join(id, connID)
	e.rooms.Emit(connID, EventGameCreated, GameCreated{GameID: id, Game: s.Snapshot()})

	e.logger.Info("game created",
		zap.String("game_id", id),
		zap.String("conn_id", connID),
		zap.String("host", name),
	)

	return nil
}

func (e *Engine) joinGame(connID string, data json.RawMessage) error {
	var req joinGameRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	id, ok := validate.GameID(req.GameID)
	if !ok {
		return reject(ErrInvalidInput, "Invalid game code.")
	}

	name, ok := validate.PlayerName(req.PlayerName)
	if !ok {
		return reject(ErrInvalidInput, "Invalid player name.")
	}

	s, ok := e.store.Get(id)
	if !ok {
		return reject(ErrNotFound, "Game not found.")
	}

	if s.State != session.StateLobby {
		return reject(ErrWrongState, "Game already in progress.")
	}
	if s.IsFull() {
		return reject(ErrGameFull, "Game is full.")
	}
	if s.NameTaken(name) {
		return reject(ErrNameTaken, "That name is already taken. Please choose a different name.")
	}

	p := s.AddPlayer(connID, name, e.now())

	e.touch(id)
	e.rooms.Join(id, connID)

	snap := s.Snapshot()
	e.rooms.Emit(connID, EventGameJoined, GameJoined{
		GameID:   id,
		PlayerID: p.ID,
		Player:   p.View(),
		Game:     snap,
	})
	e.rooms.Broadcast(id, EventPlayerJoined, PlayerJoined{Player: p.View(), Game: snap})

	e.logger.Info("player joined",
		zap.String("game_id", id),
		zap.String("conn_id", connID),
		zap.String("player", name),
	)

	return nil
}

func (e *Engine) kickPlayer(connID string, data json.RawMessage) error {
	var req kickPlayerRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	s, err := e.hosted(connID, req.GameID)
	if err != nil {
		return err
	}
	if s.State != session.StateLobby {
		return reject(ErrWrongState, "Players can only be kicked from the lobby.")
	}

	p := s.RemovePlayer(req.PlayerID)
	if p == nil {
		return reject(ErrNotFound, "Player not found.")
	}

	e.touch(s.ID)
	e.rooms.Leave(s.ID, p.ID)
	e.rooms.Emit(p.ID, EventPlayerKicked, PlayerKicked{
		GameID:  s.ID,
		Message: "You have been removed by the host.",
	})
	e.rooms.Broadcast(s.ID, EventPlayerLeft, PlayerLeft{
		PlayerID:   p.ID,
		PlayerName: p.Name + " (kicked)",
		Game:       s.Snapshot(),
	})

	e.logger.Info("player kicked", zap.String("game_id", s.ID), zap.String("player", p.Name))

	return nil
}

func (e *Engine) startGame(connID string, data json.RawMessage) error {
	var req startGameRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	s, err := e.hosted(connID, req.GameID)
	if err != nil {
		return err
	}
	if len(s.Players) < 1 {
		return reject(ErrWrongState, "At least one player must join before starting.")
	}
	if s.State != session.StateLobby {
		return reject(ErrWrongState, "Game already started.")
	}

	// The host shuffles and picks songs client-side and pushes the final list.
	if songs := validate.SongsMetadata(req.Songs); len(songs) > 0 {
		s.SetSongs(songs)
	}
	s.Settings.SongsCount = validate.SongsCount(req.SongsCount, s.Settings.SongsCount)
	s.Settings.ClipDuration = validate.ClipDuration(req.ClipDuration, s.Settings.ClipDuration)
	s.Settings.AutoplayEnabled = validate.Autoplay(req.AutoplayEnabled, s.Settings.AutoplayEnabled)

	s.Start()

	e.touch(s.ID)
	e.rooms.Broadcast(s.ID, EventGameStarted, GameState{Game: s.Snapshot()})

	e.logger.Info("game started",
		zap.String("game_id", s.ID),
		zap.Int("players", len(s.Players)),
		zap.Int("songs", s.SongCount()),
	)

	return nil
}

func (e *Engine) resetGame(connID string, data json.RawMessage) error {
	var req gameRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	s, err := e.hosted(connID, req.GameID)
	if err != nil {
		return err
	}

	s.Reset()

	e.touch(s.ID)
	e.rooms.Broadcast(s.ID, EventGameReset, GameReset{GameID: s.ID})

	e.logger.Info("game reset", zap.String("game_id", s.ID))

	return nil
}

func (e *Engine) leaveGame(connID string, data json.RawMessage) error {
	var req gameRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	s, err := e.lookup(req.GameID)
	if err != nil {
		return err
	}

	part, ok := s.Participant(connID)
	if !ok {
		return reject(ErrNotAuthorized, "You are not part of this game.")
	}

	// No host migration on an explicit leave, whatever the policy.
	if part.Role == session.RoleHost {
		e.deleteSession(s, "The host ended the game.")
		return nil
	}

	s.RemovePlayer(part.ID)

	e.touch(s.ID)
	e.rooms.Leave(s.ID, part.ID)
	e.rooms.Broadcast(s.ID, EventPlayerLeft, PlayerLeft{
		PlayerID:   part.ID,
		PlayerName: part.Name,
		Game:       s.Snapshot(),
	})
	e.checkAllAnswered(s)

	e.logger.Info("player left", zap.String("game_id", s.ID), zap.String("player", part.Name))

	return nil
}

// deleteSession drops s, cancels its timers and tells the room.
func (e *Engine) deleteSession(s *session.Session, reason string) {
	e.store.Delete(s.ID)
	e.touch(s.ID)
	e.rooms.Broadcast(s.ID, EventGameDeleted, GameDeleted{GameID: s.ID, Reason: reason})
	e.rooms.Clear(s.ID)

	e.logger.Info("game deleted", zap.String("game_id", s.ID), zap.String("reason", reason))
}

func (e *Engine) hostLost(s *session.Session) {
	old := s.Host.ID

	promoted, keep := e.policy.HostLost(s)
	if !keep {
		e.deleteSession(s, "The host disconnected.")
		return
	}

	e.touch(s.ID)
	e.rooms.Leave(s.ID, old)
	e.rooms.Broadcast(s.ID, EventHostChanged, HostChanged{
		Host:   s.Host.Name,
		HostID: s.Host.ID,
		Game:   s.Snapshot(),
	})
	e.checkAllAnswered(s)

	e.logger.Info("host migrated",
		zap.String("game_id", s.ID),
		zap.String("host", promoted.Name),
		zap.String("policy", e.policy.Name()),
	)
}

func (e *Engine) playerLost(s *session.Session, p *session.Player) {
	if e.grace <= 0 {
		e.dropPlayer(s, p)
		return
	}

	p.Disconnected = true
	p.ScheduleRemoval(e.after, e.grace, func(gen uint64) {
		e.graceExpired(s, p, gen)
	})

	e.touch(s.ID)
	e.logger.Info("player disconnected, holding seat",
		zap.String("game_id", s.ID),
		zap.String("player", p.Name),
		zap.Duration("grace", e.grace),
	)
}

func (e *Engine) graceExpired(s *session.Session, p *session.Player, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.flush()
	defer e.recoverPanic("", "grace")

	if live, ok := e.store.Get(s.ID); !ok || live != s {
		return
	}
	if !p.RemovalDue(gen) || !p.Disconnected {
		return
	}

	e.dropPlayer(s, p)
}

func (e *Engine) dropPlayer(s *session.Session, p *session.Player) {
	s.RemovePlayer(p.ID)

	e.touch(s.ID)
	e.rooms.Leave(s.ID, p.ID)
	e.rooms.Broadcast(s.ID, EventPlayerLeft, PlayerLeft{
		PlayerID:   p.ID,
		PlayerName: p.Name + " (disconnected)",
		Game:       s.Snapshot(),
	})
	e.checkAllAnswered(s)

	e.logger.Info("player disconnected", zap.String("game_id", s.ID), zap.String("player", p.Name))
}
