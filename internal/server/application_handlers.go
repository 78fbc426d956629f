package server

import (
	"supplydesk/internal/models"
	"supplydesk/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateApplication handles POST /api/applications. The owner is always the
// authenticated session user.
func (s *Server) CreateApplication(c *fiber.Ctx) error {
	var req struct {
		Subject    string                     `json:"subject"`
		Quantity   int                        `json:"quantity"`
		NeedByDate string                     `json:"need_by_date"`
		Link       string                     `json:"link"`
		Priority   models.ApplicationPriority `json:"priority"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user := currentUser(c)
	app, err := s.appService.Create(c.Context(), service.CreateApplicationInput{
		OwnerUsername:    user.Username,
		OwnerDisplayName: user.DisplayName,
		Subject:          req.Subject,
		Quantity:         req.Quantity,
		NeedByDate:       req.NeedByDate,
		Link:             req.Link,
		Priority:         req.Priority,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"id":      app.ID,
		"message": "Application created",
	})
}

// GetMyApplications handles GET /api/my-applications with optional status
// and priority filters.
func (s *Server) GetMyApplications(c *fiber.Ctx) error {
	user := currentUser(c)
	status := c.Query("status", "all")
	priority := c.Query("priority", "all")

	apps, err := s.appService.ListForOwner(c.Context(), user.Username, status, priority)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"applications": apps,
		"count":        len(apps),
	})
}

// UpdateApplicationStatus handles PATCH /api/applications/:id/status for
// owners. Only active and cancelled are reachable on this path.
func (s *Server) UpdateApplicationStatus(c *fiber.Ctx) error {
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

	user := currentUser(c)
	if err := s.appService.UpdateStatusAsOwner(c.Context(), id, req.Status, user.Username); err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Application status updated",
	})
}

// UpdateApplicationPriority handles PATCH /api/applications/:id/priority
// for owners.
func (s *Server) UpdateApplicationPriority(c *fiber.Ctx) error {
	id, err := s.parseID(c)
	if err != nil {
		return nil
	}

	var req struct {
		Priority models.ApplicationPriority `json:"priority"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user := currentUser(c)
	if err := s.appService.UpdatePriority(c.Context(), id, req.Priority, user.Username); err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Application priority updated",
	})
}

// GetApplications handles GET /api/applications (static API token). It
// returns every request ordered by priority tier then recency.
func (s *Server) GetApplications(c *fiber.Ctx) error {
	apps, err := s.appService.ListAll(c.Context(), "all", "all")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"applications": apps,
		"count":        len(apps),
	})
}

// GetApplication handles GET /api/applications/:id (static API token).
func (s *Server) GetApplication(c *fiber.Ctx) error {
	id, err := s.parseID(c)
	if err != nil {
		return nil
	}

	app, getErr := s.appService.GetByID(c.Context(), id)
	if getErr != nil {
		return models.RespondWithAppError(c, getErr)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"application": app,
	})
}
