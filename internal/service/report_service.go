package service

import (
	"context"
	"time"

	"supplydesk/internal/cache"
	"supplydesk/internal/models"
	"supplydesk/internal/observability"
	"supplydesk/internal/repository"
)

// ReportService composes the aggregate queries into report payloads.
// All reads are sequential; a report reflects a reasonably consistent
// snapshot, not a transactional one.
type ReportService struct {
	repo repository.ReportRepository
}

// NewReportService returns a ReportService over the given repository.
func NewReportService(repo repository.ReportRepository) *ReportService {
	return &ReportService{repo: repo}
}

// Summary returns the top-level counts.
func (s *ReportService) Summary(ctx context.Context) (*models.ReportSummary, error) {
	return s.repo.Summary(ctx)
}

// Users returns the per-user rollup ordered by total requests.
func (s *ReportService) Users(ctx context.Context) ([]models.UserReportRow, error) {
	defer s.observe("users", time.Now())
	return s.repo.PerUser(ctx)
}

// PendingItems returns the per-subject rollup of active requests with the
// urgent-count tie-break applied.
func (s *ReportService) PendingItems(ctx context.Context) ([]models.PendingItemRow, error) {
	defer s.observe("pending-items", time.Now())
	return s.repo.PendingBySubject(ctx, true)
}

// Weekly returns the detailed trailing 7-day series.
func (s *ReportService) Weekly(ctx context.Context) ([]models.WeeklyStatRow, error) {
	defer s.observe("weekly", time.Now())
	return s.repo.Weekly(ctx, true)
}

// StatusBreakdown returns counts and percentages per status.
func (s *ReportService) StatusBreakdown(ctx context.Context) ([]models.StatusBreakdownRow, error) {
	defer s.observe("status", time.Now())
	return s.repo.StatusBreakdown(ctx)
}

// PriorityBreakdown returns counts and percentages per priority, ordered
// urgent, high, normal, other.
func (s *ReportService) PriorityBreakdown(ctx context.Context) ([]models.PriorityBreakdownRow, error) {
	defer s.observe("priority", time.Now())
	return s.repo.PriorityBreakdown(ctx)
}

// Full composes summary, users, pending items (no tie-break) and the
// plain weekly series, timestamped at generation. The result is served
// from Redis for a short TTL when a cache is available; mutations
// invalidate it.
func (s *ReportService) Full(ctx context.Context) (*models.FullReport, error) {
	defer s.observe("full", time.Now())

	var report models.FullReport
	err := cache.CacheAside(ctx, cache.FullReportKey(), &report, cache.FullReportTTL, func() error {
		summary, err := s.repo.Summary(ctx)
		if err != nil {
			return err
		}
		users, err := s.repo.PerUser(ctx)
		if err != nil {
			return err
		}
		pending, err := s.repo.PendingBySubject(ctx, false)
		if err != nil {
			return err
		}
		weekly, err := s.repo.Weekly(ctx, false)
		if err != nil {
			return err
		}

		report = models.FullReport{
			Timestamp:    time.Now(),
			Summary:      *summary,
			Users:        users,
			PendingItems: pending,
			WeeklyStats:  weekly,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *ReportService) observe(name string, start time.Time) {
	observability.ReportDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}
