/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package transport carries envelopes between websocket connections and the
// game engine.
package transport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Seednode/quizbox/internal/game"
	"github.com/Seednode/quizbox/internal/hub"
)

const (
	readLimit    = 64 << 10
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
	sendBuffer   = 64
)

// Dispatcher is the engine as seen by a connection.
type Dispatcher interface {
	Dispatch(connID, event string, data json.RawMessage)
	Disconnect(connID string)
}

type Handler struct {
	hub      *hub.Hub
	engine   Dispatcher
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func New(h *hub.Hub, engine Dispatcher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Handler{
		hub:    h,
		engine: engine,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	id := uuid.NewString()
	client := h.hub.Register(id, sendBuffer)

	h.logger.Debug("client connected", zap.String("conn_id", id), zap.String("remote", r.RemoteAddr))

	h.hub.Emit(id, game.EventConnected, game.Connected{ID: id})

	go h.writePump(conn, client)
	h.readPump(conn, id)
}

func (h *Handler) readPump(conn *websocket.Conn, id string) {
	defer func() {
		h.engine.Disconnect(id)
		h.hub.Unregister(id)
		_ = conn.Close()

		h.logger.Debug("client disconnected", zap.String("conn_id", id))
	}()

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("read failed", zap.String("conn_id", id), zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		// Frames that don't decode are dropped; the connection stays usable.
		var msg hub.Envelope
		if err := json.Unmarshal(frame, &msg); err != nil {
			h.logger.Debug("dropping malformed frame", zap.String("conn_id", id), zap.Error(err))
			continue
		}
		if msg.Event == "" {
			continue
		}

		h.engine.Dispatch(id, msg.Event, msg.Data)
	}
}

func (h *Handler) writePump(conn *websocket.Conn, client *hub.Client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
