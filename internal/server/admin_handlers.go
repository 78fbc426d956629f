package server

import (
	"strings"

	"supplydesk/internal/adminreg"
	"supplydesk/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetAdminApplications handles GET /api/admin/applications with optional
// status and priority filters across every owner.
func (s *Server) GetAdminApplications(c *fiber.Ctx) error {
	status := c.Query("status", "all")
	priority := c.Query("priority", "all")

	apps, err := s.appService.ListAll(c.Context(), status, priority)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"applications": apps,
		"count":        len(apps),
	})
}

// AdminUpdateApplicationStatus handles PATCH /api/applications/:id/admin-status.
// Any status is reachable and ownership is not checked.
func (s *Server) AdminUpdateApplicationStatus(c *fiber.Ctx) error {
	id, err := s.parseID(c)
	if err != nil {
		return nil
	}

	var req struct {
		Status models.ApplicationStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.appService.UpdateStatusAsAdmin(c.Context(), id, req.Status); err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Application status updated",
	})
}

// GetAdminUsers handles GET /api/admin/users and returns the current
// administrator roster.
func (s *Server) GetAdminUsers(c *fiber.Ctx) error {
	admins := s.adminReg.List()
	return c.JSON(fiber.Map{
		"success": true,
		"admins":  admins,
		"count":   len(admins),
	})
}

// AddAdminUser handles POST /api/admin/users/:username.
func (s *Server) AddAdminUser(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.Params("username"))
	if username == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username is required"))
	}

	result, admins, err := s.adminReg.Add(username)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	if result == adminreg.ResultAlreadyMember {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "User is already an administrator",
			"admins":  admins,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Administrator added",
		"admins":  admins,
	})
}

// RemoveAdminUser handles DELETE /api/admin/users/:username.
func (s *Server) RemoveAdminUser(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.Params("username"))
	if username == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username is required"))
	}

	result, admins, err := s.adminReg.Remove(username)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	if result == adminreg.ResultNotFound {
		return models.RespondWithError(c, fiber.StatusNotFound, &models.AppError{
			Code:    "NOT_FOUND",
			Message: "User is not an administrator",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Administrator removed",
		"admins":  admins,
	})
}
