package service

import "github.com/gofiber/fiber/v2"

// ErrThreadNotFound covers both a missing thread and a thread owned by
// someone else; the two cases are deliberately indistinguishable to the
// caller. The error middleware maps it to a 404, and the websocket
// layer forwards its message verbatim.
var ErrThreadNotFound = fiber.NewError(fiber.StatusNotFound, "thread not found or access denied")
