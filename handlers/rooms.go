// handlers/rooms.go - REST surface over the room registry
package handlers

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"

	"trainvoc/game"
	"trainvoc/middleware"
	"trainvoc/models"
	"trainvoc/services"
	"trainvoc/utils"
)

// LevelLister reports how many words each level has.
type LevelLister interface {
	Levels(ctx context.Context) (map[string]int, error)
}

// HistoryReader loads finished games.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]models.MultiplayerGame, error)
	ByRoom(ctx context.Context, roomCode string) ([]models.MultiplayerGame, error)
	Leaderboard(ctx context.Context, limit int) ([]services.LeaderboardEntry, error)
}

type RoomHandler struct {
	reg       *game.Registry
	tokens    *middleware.SessionTokens
	words     LevelLister
	history   HistoryReader
	publicURL string
}

func NewRoomHandler(reg *game.Registry, tokens *middleware.SessionTokens, words LevelLister, history HistoryReader, publicURL string) *RoomHandler {
	return &RoomHandler{
		reg:       reg,
		tokens:    tokens,
		words:     words,
		history:   history,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// Register mounts the room routes on an /api group.
func (h *RoomHandler) Register(api fiber.Router) {
	api.Get("/levels", h.Levels)
	api.Get("/history", h.History)
	api.Get("/leaderboard", h.Leaderboard)

	rooms := api.Group("/rooms")
	rooms.Get("/", h.List)
	rooms.Post("/", h.Create)
	rooms.Get("/:code", h.Get)
	rooms.Post("/:code/join", h.Join)
	rooms.Get("/:code/players", h.Players)
	rooms.Get("/:code/state", h.State)
	rooms.Get("/:code/qr", h.QRCode)
	rooms.Get("/:code/history", h.RoomHistory)

	auth := middleware.SessionMiddleware(h.tokens)
	rooms.Post("/:code/start", auth, h.Start)
	rooms.Post("/:code/next", auth, h.NextQuestion)
	rooms.Post("/:code/answer", auth, h.SubmitAnswer)
	rooms.Post("/:code/leave", auth, h.Leave)
	rooms.Delete("/:code", auth, h.Disband)
}

// Health reports liveness and the number of open rooms.
func (h *RoomHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"rooms":     h.reg.Count(),
		"timestamp": time.Now().UTC(),
	})
}

func (h *RoomHandler) List(c *fiber.Ctx) error {
	rooms := h.reg.List()
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{
		"total_rooms": len(rooms),
		"rooms":       rooms,
	})
}

func (h *RoomHandler) Create(c *fiber.Ctx) error {
	var cmd models.CreateCommand
	if err := c.BodyParser(&cmd); err != nil {
		return fail(c, "", fmt.Errorf("%w: %v", game.ErrMalformedMessage, err))
	}
	m, err := h.reg.Create(c.UserContext(), nil, cmd)
	if err != nil {
		return fail(c, models.CmdCreate, err)
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, m)
}

func (h *RoomHandler) Get(c *fiber.Ctx) error {
	summary, err := h.reg.Get(c.Params("code"))
	if err != nil {
		return fail(c, "", err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, summary)
}

func (h *RoomHandler) Join(c *fiber.Ctx) error {
	var cmd models.JoinCommand
	if err := c.BodyParser(&cmd); err != nil {
		return fail(c, "", fmt.Errorf("%w: %v", game.ErrMalformedMessage, err))
	}
	cmd.RoomCode = c.Params("code")
	m, err := h.reg.Join(c.UserContext(), nil, cmd)
	if err != nil {
		return fail(c, models.CmdJoin, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, m)
}

func (h *RoomHandler) Players(c *fiber.Ctx) error {
	players, err := h.reg.Players(c.UserContext(), c.Params("code"))
	if err != nil {
		return fail(c, "", err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"players": players})
}

func (h *RoomHandler) State(c *fiber.Ctx) error {
	state, err := h.reg.State(c.UserContext(), c.Params("code"))
	if err != nil {
		return fail(c, "", err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, state)
}

func (h *RoomHandler) Start(c *fiber.Ctx) error {
	return h.act(c, func(ctx context.Context, code, playerID string) error {
		return h.reg.Start(ctx, code, playerID)
	})
}

func (h *RoomHandler) NextQuestion(c *fiber.Ctx) error {
	return h.act(c, func(ctx context.Context, code, playerID string) error {
		return h.reg.NextQuestion(ctx, code, playerID)
	})
}

func (h *RoomHandler) Leave(c *fiber.Ctx) error {
	return h.act(c, func(ctx context.Context, code, playerID string) error {
		return h.reg.Leave(ctx, code, playerID)
	})
}

func (h *RoomHandler) Disband(c *fiber.Ctx) error {
	return h.act(c, func(ctx context.Context, code, playerID string) error {
		return h.reg.Disband(ctx, code, playerID)
	})
}

func (h *RoomHandler) SubmitAnswer(c *fiber.Ctx) error {
	var cmd models.AnswerCommand
	if err := c.BodyParser(&cmd); err != nil {
		return fail(c, "", fmt.Errorf("%w: %v", game.ErrMalformedMessage, err))
	}
	if cmd.AnswerIndex == nil {
		return fail(c, "", fmt.Errorf("%w: answerIndex is required", game.ErrMalformedMessage))
	}
	return h.act(c, func(ctx context.Context, code, playerID string) error {
		return h.reg.SubmitAnswer(ctx, code, playerID, cmd.AnswerIndex, cmd.AnswerTime)
	})
}

// act runs a command as the player named by the session token.
func (h *RoomHandler) act(c *fiber.Ctx, fn func(ctx context.Context, code, playerID string) error) error {
	playerID, err := middleware.GetPlayerID(c)
	if err != nil {
		return err
	}
	if err := fn(c.UserContext(), c.Params("code"), playerID); err != nil {
		return fail(c, "", err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, nil)
}

// QRCode renders the room's join link as a PNG.
func (h *RoomHandler) QRCode(c *fiber.Ctx) error {
	summary, err := h.reg.Get(c.Params("code"))
	if err != nil {
		return fail(c, "", err)
	}

	png, err := JoinQRCode(h.JoinURL(summary.Code))
	if err != nil {
		log.Error().Err(err).Str("room", summary.Code).Msg("❌ failed to render QR code")
		return utils.JSONError(c, fiber.StatusInternalServerError, "failed to render QR code", "Internal")
	}
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(png)
}

func (h *RoomHandler) JoinURL(code string) string {
	return h.publicURL + "/join/" + code
}

type bufferCloser struct{ *bytes.Buffer }

func (bufferCloser) Close() error { return nil }

// JoinQRCode encodes url as a PNG QR code.
func JoinQRCode(url string) ([]byte, error) {
	qrc, err := qrcode.NewWith(url,
		qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionMedium),
		qrcode.WithEncodingMode(qrcode.EncModeByte),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	var buf bytes.Buffer
	w := standard.NewWithWriter(bufferCloser{&buf},
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
		standard.WithQRWidth(8),
	)
	if err := qrc.Save(w); err != nil {
		return nil, fmt.Errorf("failed to save QR code: %w", err)
	}
	return buf.Bytes(), nil
}

func (h *RoomHandler) Levels(c *fiber.Ctx) error {
	if h.words == nil {
		return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"levels": map[string]int{}})
	}
	levels, err := h.words.Levels(c.UserContext())
	if err != nil {
		return fail(c, "", err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"levels": levels})
}

func (h *RoomHandler) History(c *fiber.Ctx) error {
	if h.history == nil {
		return utils.JSONError(c, fiber.StatusNotFound, "game history is not enabled")
	}
	games, err := h.history.Recent(c.UserContext(), clampInt(utils.QueryInt(c, "limit", 20), 1, 100))
	if err != nil {
		return fail(c, "", err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"games": gameViews(games)})
}

func (h *RoomHandler) RoomHistory(c *fiber.Ctx) error {
	if h.history == nil {
		return utils.JSONError(c, fiber.StatusNotFound, "game history is not enabled")
	}
	games, err := h.history.ByRoom(c.UserContext(), strings.ToUpper(c.Params("code")))
	if err != nil {
		return fail(c, "", err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"games": gameViews(games)})
}

// gameView is a finished game with the results history lists display.
type gameView struct {
	models.MultiplayerGame
	Winner          string       `json:"winner,omitempty"`
	DurationSeconds float64      `json:"duration_seconds"`
	Players         []playerView `json:"players,omitempty"`
}

type playerView struct {
	models.MultiplayerGamePlayer
	Accuracy float64 `json:"accuracy"`
}

func gameViews(games []models.MultiplayerGame) []gameView {
	views := make([]gameView, len(games))
	for i := range games {
		g := &games[i]
		v := gameView{MultiplayerGame: *g, DurationSeconds: g.Duration().Seconds()}
		if w := g.Winner(); w != nil {
			v.Winner = w.Username
		}
		for j := range g.Players {
			v.Players = append(v.Players, playerView{
				MultiplayerGamePlayer: g.Players[j],
				Accuracy:              g.Players[j].AccuracyRate(g.QuestionCount),
			})
		}
		views[i] = v
	}
	return views
}

// Status maps an error code to an HTTP status.
func Status(code string) int {
	switch code {
	case "InvalidSettings", "MalformedMessage":
		return fiber.StatusBadRequest
	case "RoomNotFound", "PlayerNotFound":
		return fiber.StatusNotFound
	case "NotHost":
		return fiber.StatusForbidden
	case "RoomFull", "GameAlreadyStarted", "AlreadyAnswered", "WrongPhase",
		"NotEnoughPlayers", "NotEnoughWords", "AlreadyInRoom":
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, kind string, err error) error {
	ev := ErrorEvent(kind, err)
	if ev.Code == "Internal" {
		log.Error().Err(err).Str("path", c.Path()).Msg("❌ request failed")
	}
	return utils.JSONError(c, Status(ev.Code), ev.Message, ev.Code)
}
