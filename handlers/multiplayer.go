// handlers/multiplayer.go - Realtime websocket endpoint
package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog/log"

	"trainvoc/game"
	"trainvoc/middleware"
	"trainvoc/models"
)

const (
	writeWait      = 10 * time.Second // Time allowed to write a message
	pingPeriod     = 15 * time.Second // Send pings at this interval
	pongWait       = 40 * time.Second // Peer must answer a ping within this
	maxMessageSize = 4096
)

// socket is the part of a websocket connection the pumps use.
type socket interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

// MultiplayerHandler serves /ws. Each socket gets a game.Conn; the read pump
// feeds the router and the write pump drains the connection's queue.
type MultiplayerHandler struct {
	reg        *game.Registry
	router     *Router
	tokens     *middleware.SessionTokens
	limits     *middleware.RateLimiter
	sendBuffer int
	pingPeriod time.Duration
}

func NewMultiplayerHandler(reg *game.Registry, tokens *middleware.SessionTokens, limits *middleware.RateLimiter, sendBuffer int) *MultiplayerHandler {
	return &MultiplayerHandler{
		reg:        reg,
		router:     NewRouter(reg),
		tokens:     tokens,
		limits:     limits,
		sendBuffer: sendBuffer,
		pingPeriod: pingPeriod,
	}
}

// Upgrade rejects plain HTTP requests to the websocket route.
func (h *MultiplayerHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler returns the fiber websocket handler. A ?token= query parameter
// resumes an existing seat.
func (h *MultiplayerHandler) Handler() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		h.Serve(c, c.Query("token"))
	})
}

// Serve runs one client until its socket closes.
func (h *MultiplayerHandler) Serve(ws socket, token string) {
	conn := game.NewConn(h.sendBuffer)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info().Str("conn", conn.ID).Bool("resume", token != "").Msg("🎮 client connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(ws, conn)
	}()

	if token != "" {
		h.resume(ctx, conn, token)
	}
	h.readPump(ctx, ws, conn)

	// Detach before closing so broadcasts racing the flush see an away
	// player rather than a failed send.
	h.reg.Disconnect(context.Background(), conn)
	conn.Close()
	<-done
	log.Info().Str("conn", conn.ID).Msg("🔌 client disconnected")
}

func (h *MultiplayerHandler) resume(ctx context.Context, conn *game.Conn, token string) {
	claims, err := h.tokens.Parse(token)
	if err != nil {
		conn.Send(models.Error{Type: models.EventError, Message: "invalid or expired token", Code: "InvalidToken"})
		return
	}
	if _, err := h.reg.Resume(ctx, conn, claims.RoomCode, claims.PlayerID); err != nil {
		conn.Send(ErrorEvent("resume", err))
	}
}

// readPump handles incoming messages until the socket fails or the
// connection is closed by its room.
func (h *MultiplayerHandler) readPump(ctx context.Context, ws socket, conn *game.Conn) {
	defer ws.Close()

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	limiter := h.limits.NewLimiter()
	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("conn", conn.ID).Msg("WebSocket error")
			}
			return
		}
		if conn.Closed() {
			return
		}
		if !limiter.Allow() {
			conn.Send(models.Error{Type: models.EventError, Message: "rate limit exceeded", Code: "RateLimited"})
			continue
		}
		h.router.Handle(ctx, conn, msg)
	}
}

// writePump delivers queued events and keeps the socket alive with pings.
// When the connection is closed it flushes what is queued and closes the
// socket, which ends the read pump.
func (h *MultiplayerHandler) writePump(ws socket, conn *game.Conn) {
	ticker := time.NewTicker(h.pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case ev := <-conn.Outbound():
			if err := write(ws, ev); err != nil {
				log.Warn().Err(err).Str("conn", conn.ID).Msg("Write error")
				conn.Close()
				return
			}

		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				conn.Close()
				return
			}

		case <-conn.Done():
			for {
				select {
				case ev := <-conn.Outbound():
					if write(ws, ev) != nil {
						return
					}
				default:
					_ = ws.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						time.Now().Add(writeWait))
					return
				}
			}
		}
	}
}

func write(ws socket, ev models.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteMessage(websocket.TextMessage, data)
}
