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

type rejoinGameRequest struct {
	GameID     string `json:"gameId"`
	PlayerName string `json:"playerName"`
	PreviousID string `json:"previousId"`
}

// rejoinGame recovers a dropped participant by previous connection ID for
// the host and by name for players. Failures are answered with rejoinFailed
// rather than a generic error so clients can fall back to the join screen.
func (e *Engine) rejoinGame(connID string, data json.RawMessage) error {
	var req rejoinGameRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	id, ok := validate.GameID(req.GameID)
	if !ok {
		e.rejoinFailed(connID, "", "Invalid game code.")
		return nil
	}

	s, ok := e.store.Get(id)
	if !ok {
		e.rejoinFailed(connID, id, "Game no longer exists.")
		return nil
	}

	if prev, ok := validate.ConnectionID(req.PreviousID); ok && s.IsHost(prev) {
		e.rebindHost(s, connID)
		return nil
	}

	name, ok := validate.PlayerName(req.PlayerName)
	if !ok {
		e.rejoinFailed(connID, id, "Invalid player name.")
		return nil
	}

	if p := s.PlayerByName(name); p != nil {
		e.rebindPlayer(s, p, connID)
		return nil
	}

	switch {
	case s.State != session.StateLobby:
		e.rejoinFailed(connID, id, "This game is already in progress.")
		return nil
	case s.IsFull():
		e.rejoinFailed(connID, id, "Game is full.")
		return nil
	case s.NameTaken(name):
		e.rejoinFailed(connID, id, "That name is already taken.")
		return nil
	}

	p := s.AddPlayer(connID, name, e.now())

	e.touch(s.ID)
	e.rooms.Join(s.ID, connID)

	view := p.View()
	snap := s.Snapshot()
	e.rooms.Emit(connID, EventRejoinSuccess, RejoinSuccess{GameID: s.ID, Player: &view, Game: snap})
	e.rooms.Broadcast(s.ID, EventPlayerJoined, PlayerJoined{Player: view, Game: snap})

	e.logger.Info("player joined via rejoin", zap.String("game_id", s.ID), zap.String("player", name))
	return nil
}

func (e *Engine) rebindHost(s *session.Session, connID string) {
	old := s.Host.ID
	if old != connID {
		e.rooms.Leave(s.ID, old)
		s.Host.ID = connID
	}

	e.touch(s.ID)
	e.rooms.Join(s.ID, connID)
	e.rooms.Emit(connID, EventRejoinSuccess, RejoinSuccess{GameID: s.ID, IsHost: true, Game: s.Snapshot()})

	e.logger.Info("host rejoined", zap.String("game_id", s.ID), zap.String("conn_id", connID))
}

func (e *Engine) rebindPlayer(s *session.Session, p *session.Player, connID string) {
	old := p.ID
	if old != connID {
		e.rooms.Leave(s.ID, old)
		p.ID = connID
	}
	p.Disconnected = false
	p.CancelRemoval()

	e.touch(s.ID)
	e.rooms.Join(s.ID, connID)

	view := p.View()
	snap := s.Snapshot()
	e.rooms.Emit(connID, EventRejoinSuccess, RejoinSuccess{GameID: s.ID, Player: &view, Game: snap})
	e.rooms.BroadcastExcept(s.ID, connID, EventPlayerRejoined, PlayerJoined{Player: view, Game: snap})

	e.logger.Info("player rejoined",
		zap.String("game_id", s.ID),
		zap.String("player", p.Name),
		zap.String("previous_conn_id", old),
		zap.String("conn_id", connID),
	)
}

func (e *Engine) rejoinFailed(connID, gameID, reason string) {
	e.rooms.Emit(connID, EventRejoinFailed, RejoinFailed{GameID: gameID, Reason: reason})
}
