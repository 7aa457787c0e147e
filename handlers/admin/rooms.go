// Package admin exposes operator endpoints for live rooms.
package admin

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"trainvoc/game"
	"trainvoc/middleware"
	"trainvoc/utils"
)

// Cleaner runs one reaper pass on demand.
type Cleaner interface {
	RunOnce() game.ReapStats
}

type Handler struct {
	reg     *game.Registry
	cleanup Cleaner
}

func New(reg *game.Registry, cleanup Cleaner) *Handler {
	return &Handler{reg: reg, cleanup: cleanup}
}

// Register mounts the admin routes behind the operator key. Nothing is
// mounted when key is empty.
func (h *Handler) Register(router fiber.Router, key string) {
	if key == "" {
		return
	}
	admin := router.Group("/admin", middleware.AdminKeyMiddleware(key))
	admin.Get("/rooms", h.ListRooms)
	admin.Get("/rooms/:code", h.GetRoom)
	admin.Delete("/rooms/:code", h.RemoveRoom)
	admin.Post("/cleanup", h.ManualCleanup)
}

func (h *Handler) ListRooms(c *fiber.Ctx) error {
	rooms := h.reg.List()
	byPhase := make(map[game.Phase]int)
	players := 0
	for _, r := range rooms {
		byPhase[r.Phase]++
		players += r.PlayerCount
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{
		"rooms":    rooms,
		"total":    len(rooms),
		"players":  players,
		"by_phase": byPhase,
	})
}

// GetRoom returns the full state of one room, including every member.
func (h *Handler) GetRoom(c *fiber.Ctx) error {
	state, err := h.reg.State(c.UserContext(), c.Params("code"))
	if err != nil {
		return roomError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, state)
}

// RemoveRoom disbands a room; members are told the reason given in the
// ?reason= query parameter.
func (h *Handler) RemoveRoom(c *fiber.Ctx) error {
	code := strings.ToUpper(c.Params("code"))
	reason := c.Query("reason", "removed by admin")
	if err := h.reg.Remove(c.UserContext(), code, reason); err != nil {
		return roomError(c, err)
	}
	log.Warn().Str("room", code).Str("reason", reason).Msg("🛠️  room removed by admin")
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"message": "Room removed"})
}

func (h *Handler) ManualCleanup(c *fiber.Ctx) error {
	if h.cleanup == nil {
		return utils.JSONError(c, fiber.StatusServiceUnavailable, "Service unavailable")
	}
	stats := h.cleanup.RunOnce()
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{
		"message": "Cleanup triggered",
		"stats":   stats,
	})
}

func roomError(c *fiber.Ctx, err error) error {
	code := game.Code(err)
	if code == "RoomNotFound" {
		return utils.JSONError(c, fiber.StatusNotFound, err.Error(), code)
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("❌ admin request failed")
	return utils.JSONError(c, fiber.StatusInternalServerError, "internal error", "Internal")
}
