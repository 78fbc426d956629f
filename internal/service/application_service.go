// Package service implements the request lifecycle rules and report
// composition on top of the repositories.
package service

import (
	"context"
	"strings"

	"supplydesk/internal/cache"
	"supplydesk/internal/models"
	"supplydesk/internal/observability"
	"supplydesk/internal/repository"
)

// ApplicationService enforces validation and role-based transition rules
// before delegating to the request store.
type ApplicationService struct {
	repo repository.ApplicationRepository
}

// CreateApplicationInput carries a new request. Owner fields come from the
// authenticated session, never from the request body.
type CreateApplicationInput struct {
	OwnerUsername    string
	OwnerDisplayName string
	Subject          string
	Quantity         int
	NeedByDate       string
	Link             string
	Priority         models.ApplicationPriority
}

// NewApplicationService returns an ApplicationService over the given repository.
func NewApplicationService(repo repository.ApplicationRepository) *ApplicationService {
	return &ApplicationService{repo: repo}
}

// Create validates and stores a new supply request. The priority defaults
// to normal when unset.
func (s *ApplicationService) Create(ctx context.Context, in CreateApplicationInput) (*models.Application, error) {
	if strings.TrimSpace(in.Subject) == "" || strings.TrimSpace(in.NeedByDate) == "" {
		return nil, models.NewValidationError("Subject, quantity and need-by date are required")
	}
	if in.Quantity < 1 {
		return nil, models.NewValidationError("Quantity must be at least 1")
	}

	priority := in.Priority
	if priority == "" {
		priority = models.ApplicationPriorityNormal
	}
	if !models.ValidPriority(priority) {
		return nil, models.NewValidationError("Invalid priority")
	}

	app := &models.Application{
		OwnerUsername:    in.OwnerUsername,
		OwnerDisplayName: in.OwnerDisplayName,
		Subject:          in.Subject,
		Quantity:         in.Quantity,
		NeedByDate:       in.NeedByDate,
		Link:             in.Link,
		Status:           models.ApplicationStatusActive,
		Priority:         priority,
	}

	if err := s.repo.Create(ctx, app); err != nil {
		return nil, err
	}

	observability.ApplicationsCreated.WithLabelValues(string(priority)).Inc()
	cache.InvalidateReports(ctx)
	return app, nil
}

// ListForOwner returns the owner's requests with optional status/priority
// filters ("all" or empty disables a filter).
func (s *ApplicationService) ListForOwner(ctx context.Context, owner, status, priority string) ([]models.Application, error) {
	return s.repo.ListForOwner(ctx, owner, status, priority)
}

// ListAll returns every request; callers must gate this behind admin access.
func (s *ApplicationService) ListAll(ctx context.Context, status, priority string) ([]models.Application, error) {
	return s.repo.ListAll(ctx, status, priority)
}

// GetByID returns one request by its identifier.
func (s *ApplicationService) GetByID(ctx context.Context, id uint) (*models.Application, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateStatusAsOwner applies an owner-scoped status change. Owners may
// only toggle between active and cancelled.
func (s *ApplicationService) UpdateStatusAsOwner(ctx context.Context, id uint, status models.ApplicationStatus, owner string) error {
	if status != models.ApplicationStatusActive && status != models.ApplicationStatusCancelled {
		return models.NewValidationError("Invalid status")
	}
	if err := s.repo.UpdateStatus(ctx, id, status, owner); err != nil {
		return err
	}
	observability.StatusTransitions.WithLabelValues(string(status), "owner").Inc()
	cache.InvalidateReports(ctx)
	return nil
}

// UpdateStatusAsAdmin applies a status change without an ownership check.
func (s *ApplicationService) UpdateStatusAsAdmin(ctx context.Context, id uint, status models.ApplicationStatus) error {
	if !models.ValidStatus(status) {
		return models.NewValidationError("Invalid status")
	}
	if err := s.repo.UpdateStatus(ctx, id, status, ""); err != nil {
		return err
	}
	observability.StatusTransitions.WithLabelValues(string(status), "admin").Inc()
	cache.InvalidateReports(ctx)
	return nil
}

// UpdatePriority applies an owner-scoped priority change. There is no
// admin path for priorities.
func (s *ApplicationService) UpdatePriority(ctx context.Context, id uint, priority models.ApplicationPriority, owner string) error {
	if !models.ValidPriority(priority) {
		return models.NewValidationError("Invalid priority")
	}
	if err := s.repo.UpdatePriority(ctx, id, priority, owner); err != nil {
		return err
	}
	cache.InvalidateReports(ctx)
	return nil
}
