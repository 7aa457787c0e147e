// utils/http.go - JSON response helpers for fiber handlers
package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// JSON sends data with the given status.
func JSON(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(data)
}

// JSONError sends a JSON error response
func JSONError(c *fiber.Ctx, status int, message string, code ...string) error {
	body := fiber.Map{
		"success": false,
		"error":   message,
	}
	if len(code) > 0 && code[0] != "" {
		body["code"] = code[0]
	}
	return JSON(c, status, body)
}

// JSONSuccess sends a JSON success response. Maps are merged into the body,
// anything else is placed under "data".
func JSONSuccess(c *fiber.Ctx, status int, data interface{}) error {
	response := fiber.Map{
		"success": true,
	}

	if dataMap, ok := data.(fiber.Map); ok {
		for k, v := range dataMap {
			response[k] = v
		}
	} else if data != nil {
		response["data"] = data
	}

	return JSON(c, status, response)
}

// QueryInt reads an integer query parameter, falling back to def when it is
// missing or not a number.
func QueryInt(c *fiber.Ctx, key string, def int) int {
	val := c.Query(key)
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}
