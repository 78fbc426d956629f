// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"

	"supplydesk/internal/models"

	"gorm.io/gorm"
)

// priorityRank orders listings by urgency tier before recency.
const priorityRank = `CASE priority
	WHEN 'urgent' THEN 1
	WHEN 'high' THEN 2
	WHEN 'normal' THEN 3
	ELSE 4
END`

// FilterAll disables a status or priority filter.
const FilterAll = "all"

// ApplicationRepository defines persistence operations for supply requests.
type ApplicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	ListForOwner(ctx context.Context, owner, status, priority string) ([]models.Application, error)
	ListAll(ctx context.Context, status, priority string) ([]models.Application, error)
	GetByID(ctx context.Context, id uint) (*models.Application, error)
	// UpdateStatus sets the status of one request. An empty owner means the
	// administrator path: no ownership predicate is applied.
	UpdateStatus(ctx context.Context, id uint, status models.ApplicationStatus, owner string) error
	UpdatePriority(ctx context.Context, id uint, priority models.ApplicationPriority, owner string) error
}

type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository returns a new ApplicationRepository implementation.
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(ctx context.Context, app *models.Application) error {
	if err := r.db.WithContext(ctx).Create(app).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *applicationRepository) ListForOwner(ctx context.Context, owner, status, priority string) ([]models.Application, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("owner_username = ?", owner)
	return r.list(applyFilters(query, status, priority))
}

func (r *applicationRepository) ListAll(ctx context.Context, status, priority string) ([]models.Application, error) {
	query := r.db.WithContext(ctx).Model(&models.Application{})
	return r.list(applyFilters(query, status, priority))
}

func applyFilters(query *gorm.DB, status, priority string) *gorm.DB {
	if status != "" && status != FilterAll {
		query = query.Where("status = ?", status)
	}
	if priority != "" && priority != FilterAll {
		query = query.Where("priority = ?", priority)
	}
	return query
}

func (r *applicationRepository) list(query *gorm.DB) ([]models.Application, error) {
	var apps []models.Application
	if err := query.
		Order(priorityRank).
		Order("created_at DESC").
		Find(&apps).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return apps, nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id uint) (*models.Application, error) {
	var app models.Application
	if err := r.db.WithContext(ctx).First(&app, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Application", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &app, nil
}

func (r *applicationRepository) UpdateStatus(ctx context.Context, id uint, status models.ApplicationStatus, owner string) error {
	query := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("id = ?", id)
	if owner != "" {
		query = query.Where("owner_username = ?", owner)
	}

	result := query.Update("status", status)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		// Ownership mismatch reads the same as a missing row on purpose.
		return models.NewNotFoundError("Application", id)
	}
	return nil
}

func (r *applicationRepository) UpdatePriority(ctx context.Context, id uint, priority models.ApplicationPriority, owner string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("id = ? AND owner_username = ?", id, owner).
		Update("priority", priority)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Application", id)
	}
	return nil
}
