// handlers/router.go - Decodes realtime commands and dispatches them to rooms
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"trainvoc/game"
	"trainvoc/models"
)

const commandTimeout = 10 * time.Second

// joinFailedMessage hides whether a code exists or the password was wrong.
const joinFailedMessage = "room not found or password incorrect"

// Router turns raw client messages into registry calls. Every rejected
// command produces exactly one error event for the sender.
type Router struct {
	reg *game.Registry
	log zerolog.Logger
}

func NewRouter(reg *game.Registry) *Router {
	return &Router{reg: reg, log: log.Logger}
}

// Handle processes one inbound message from conn.
func (rt *Router) Handle(ctx context.Context, conn *game.Conn, raw []byte) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Type == "" {
		rt.reject(conn, "", fmt.Errorf("%w: expected a JSON object with a type", game.ErrMalformedMessage))
		return
	}

	if err := rt.dispatch(ctx, conn, env.Type, raw); err != nil {
		rt.reject(conn, env.Type, err)
	}
}

func (rt *Router) dispatch(ctx context.Context, conn *game.Conn, kind string, raw []byte) error {
	switch kind {
	case models.CmdPing:
		conn.Send(models.Pong{Type: models.EventPong})
		return nil

	case models.CmdCreate:
		var cmd models.CreateCommand
		if err := decode(raw, &cmd); err != nil {
			return err
		}
		_, err := rt.reg.Create(ctx, conn, cmd)
		return err

	case models.CmdJoin:
		var cmd models.JoinCommand
		if err := decode(raw, &cmd); err != nil {
			return err
		}
		if strings.TrimSpace(cmd.RoomCode) == "" {
			return fmt.Errorf("%w: roomCode is required", game.ErrMalformedMessage)
		}
		_, err := rt.reg.Join(ctx, conn, cmd)
		return err

	case models.CmdLeave:
		var cmd models.LeaveCommand
		if err := decode(raw, &cmd); err != nil {
			return err
		}
		code, playerID, err := actor(conn, cmd.RoomCode, cmd.PlayerID)
		if err != nil {
			return err
		}
		return rt.reg.Leave(ctx, code, playerID)

	case models.CmdStart, models.CmdNextQuestion, models.CmdDisband:
		var cmd models.RoomCommand
		if err := decode(raw, &cmd); err != nil {
			return err
		}
		code, playerID, err := actor(conn, cmd.RoomCode, "")
		if err != nil {
			return err
		}
		switch kind {
		case models.CmdStart:
			return rt.reg.Start(ctx, code, playerID)
		case models.CmdNextQuestion:
			return rt.reg.NextQuestion(ctx, code, playerID)
		default:
			return rt.reg.Disband(ctx, code, playerID)
		}

	case models.CmdAnswer, models.CmdSubmitAnswer:
		var cmd models.AnswerCommand
		if err := decode(raw, &cmd); err != nil {
			return err
		}
		if cmd.AnswerIndex == nil {
			return fmt.Errorf("%w: answerIndex is required", game.ErrMalformedMessage)
		}
		code, playerID, err := actor(conn, cmd.RoomCode, cmd.PlayerID)
		if err != nil {
			return err
		}
		return rt.reg.SubmitAnswer(ctx, code, playerID, cmd.AnswerIndex, cmd.AnswerTime)

	default:
		return fmt.Errorf("%w: unknown message type %q", game.ErrMalformedMessage, kind)
	}
}

func decode(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", game.ErrMalformedMessage, err)
	}
	return nil
}

// actor resolves who a room command speaks for. A connection only acts for
// the seat it is bound to; roomCode and playerId in the message must agree
// with that binding when present.
func actor(conn *game.Conn, roomCode, playerID string) (string, string, error) {
	code, id := conn.Binding()
	if code == "" || id == "" {
		return "", "", fmt.Errorf("%w: connection has not joined a room", game.ErrPlayerNotFound)
	}
	if roomCode != "" && !strings.EqualFold(strings.TrimSpace(roomCode), code) {
		return "", "", fmt.Errorf("%w: connection belongs to another room", game.ErrPlayerNotFound)
	}
	if playerID != "" && playerID != id {
		return "", "", fmt.Errorf("%w: playerId does not match this connection", game.ErrPlayerNotFound)
	}
	return code, id, nil
}

// ErrorEvent renders an engine error the way clients see it.
func ErrorEvent(kind string, err error) models.Error {
	code := game.Code(err)
	msg := err.Error()
	switch {
	case kind == models.CmdJoin && (errors.Is(err, game.ErrRoomNotFound) || errors.Is(err, game.ErrWrongPassword)):
		code, msg = "RoomNotFound", joinFailedMessage
	case code == "Internal":
		msg = "internal error"
	}
	return models.Error{Type: models.EventError, Message: msg, Code: code}
}

func (rt *Router) reject(conn *game.Conn, kind string, err error) {
	ev := ErrorEvent(kind, err)
	lvl := zerolog.DebugLevel
	switch ev.Code {
	case "MalformedMessage":
		lvl = zerolog.WarnLevel
	case "Internal":
		lvl = zerolog.ErrorLevel
	}
	rt.log.WithLevel(lvl).Err(err).Str("conn", conn.ID).Str("command", kind).Msg("⚠️  command rejected")
	conn.Send(ev)
}
