package server

import (
	"errors"

	"supplydesk/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// sessionUser holds the claims extracted by AuthRequired.
type sessionUser struct {
	Username    string
	DisplayName string
	IsAdmin     bool
}

// currentUser reads the authenticated session claims from Fiber locals.
func currentUser(c *fiber.Ctx) sessionUser {
	username, _ := c.Locals("username").(string)
	displayName, _ := c.Locals("displayName").(string)
	isAdmin, _ := c.Locals("isAdmin").(bool)
	return sessionUser{Username: username, DisplayName: displayName, IsAdmin: isAdmin}
}

// parseID extracts the "id" route parameter as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid application ID"))
		return 0, errResponseWritten
	}
	return uint(id), nil
}
