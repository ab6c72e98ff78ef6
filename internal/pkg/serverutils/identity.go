package serverutils

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// UserIDFromRequest resolves the caller identity. There is no auth
// layer; clients self-identify via the X-User-Id header (or user_id
// query parameter for tooling).
func UserIDFromRequest(c *fiber.Ctx) (uuid.UUID, error) {
	raw := c.Get("X-User-Id")
	if raw == "" {
		raw = c.Query("user_id")
	}
	if raw == "" {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "missing X-User-Id header")
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}
	return userID, nil
}
