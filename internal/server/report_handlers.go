package server

import (
	"supplydesk/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetFullReport handles GET /api/reports/full. The composed document is
// served from cache when a fresh copy exists.
func (s *Server) GetFullReport(c *fiber.Ctx) error {
	report, err := s.reportService.Full(c.Context())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"report":  report,
	})
}

// GetStatusReport handles GET /api/reports/status.
func (s *Server) GetStatusReport(c *fiber.Ctx) error {
	rows, err := s.reportService.StatusBreakdown(c.Context())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"report":  rows,
	})
}

// GetPriorityReport handles GET /api/reports/priority.
func (s *Server) GetPriorityReport(c *fiber.Ctx) error {
	rows, err := s.reportService.PriorityBreakdown(c.Context())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"report":  rows,
	})
}

// GetUsersReport handles GET /api/reports/users.
func (s *Server) GetUsersReport(c *fiber.Ctx) error {
	rows, err := s.reportService.Users(c.Context())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"users":   rows,
	})
}

// GetPendingItemsReport handles GET /api/reports/pending-items.
func (s *Server) GetPendingItemsReport(c *fiber.Ctx) error {
	rows, err := s.reportService.PendingItems(c.Context())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"items":   rows,
	})
}

// GetWeeklyReport handles GET /api/reports/weekly.
func (s *Server) GetWeeklyReport(c *fiber.Ctx) error {
	rows, err := s.reportService.Weekly(c.Context())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"report":  fiber.Map{"weeklyStats": rows},
	})
}
