// handlers/leaderboard.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"trainvoc/utils"
)

// Leaderboard returns the all-time ranking from recorded games
// GET /api/leaderboard?limit=20
func (h *RoomHandler) Leaderboard(c *fiber.Ctx) error {
	if h.history == nil {
		return utils.JSONError(c, fiber.StatusNotFound, "game history is not enabled")
	}
	limit := clampInt(utils.QueryInt(c, "limit", 20), 1, 100)

	entries, err := h.history.Leaderboard(c.UserContext(), limit)
	if err != nil {
		return fail(c, "", err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{
		"players": entries,
		"limit":   limit,
	})
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
