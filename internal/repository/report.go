package repository

import (
	"context"
	"time"

	"supplydesk/internal/models"

	"gorm.io/gorm"
)

// ReportRepository runs the read-only aggregate queries behind the reports.
// Each method issues a single query; composition happens in the service.
type ReportRepository interface {
	Summary(ctx context.Context) (*models.ReportSummary, error)
	PerUser(ctx context.Context) ([]models.UserReportRow, error)
	// PendingBySubject aggregates active requests by subject. The dedicated
	// pending-items report breaks total-quantity ties by urgent count; the
	// full report variant does not.
	PendingBySubject(ctx context.Context, urgentTieBreak bool) ([]models.PendingItemRow, error)
	// Weekly returns the trailing 7-day creation series ordered oldest to
	// newest. The detailed variant adds urgent/high counts.
	Weekly(ctx context.Context, detailed bool) ([]models.WeeklyStatRow, error)
	StatusBreakdown(ctx context.Context) ([]models.StatusBreakdownRow, error)
	PriorityBreakdown(ctx context.Context) ([]models.PriorityBreakdownRow, error)
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository returns a ReportRepository over the given database.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

// nameAgg returns the dialect's expression for joining distinct requester
// display names with commas.
func (r *reportRepository) nameAgg() string {
	if r.db.Dialector.Name() == "postgres" {
		return "string_agg(DISTINCT owner_display_name, ',')"
	}
	return "group_concat(DISTINCT owner_display_name)"
}

// dateExpr returns the dialect's expression for the creation date as text.
func (r *reportRepository) dateExpr() string {
	if r.db.Dialector.Name() == "postgres" {
		return "to_char(created_at, 'YYYY-MM-DD')"
	}
	return "date(created_at)"
}

func (r *reportRepository) Summary(ctx context.Context) (*models.ReportSummary, error) {
	var summary models.ReportSummary
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0) AS active,
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0) AS completed,
			COALESCE(SUM(CASE WHEN status = 'cancelled' THEN 1 ELSE 0 END), 0) AS cancelled,
			COALESCE(SUM(CASE WHEN priority = 'urgent' THEN 1 ELSE 0 END), 0) AS urgent,
			COALESCE(SUM(CASE WHEN priority = 'high' THEN 1 ELSE 0 END), 0) AS high,
			COALESCE(SUM(CASE WHEN priority = 'normal' THEN 1 ELSE 0 END), 0) AS normal
		FROM applications
	`).Scan(&summary).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &summary, nil
}

const perUserSQL = `
		SELECT
			owner_username AS username,
			owner_display_name AS full_name,
			COUNT(*) AS total_applications,
			SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END) AS active,
			SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END) AS completed,
			SUM(CASE WHEN status = 'cancelled' THEN 1 ELSE 0 END) AS cancelled,
			MAX(created_at) AS last_activity
		FROM applications
		GROUP BY owner_username, owner_display_name
		ORDER BY total_applications DESC
	`

func (r *reportRepository) PerUser(ctx context.Context) ([]models.UserReportRow, error) {
	if r.db.Dialector.Name() == "postgres" {
		var rows []models.UserReportRow
		if err := r.db.WithContext(ctx).Raw(perUserSQL).Scan(&rows).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
		return rows, nil
	}

	// SQLite hands aggregated timestamps back as TEXT, so MAX(created_at)
	// cannot scan straight into time.Time.
	var raw []struct {
		Username          string
		FullName          string
		TotalApplications int
		Active            int
		Completed         int
		Cancelled         int
		LastActivity      string
	}
	if err := r.db.WithContext(ctx).Raw(perUserSQL).Scan(&raw).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	rows := make([]models.UserReportRow, 0, len(raw))
	for _, row := range raw {
		rows = append(rows, models.UserReportRow{
			Username:          row.Username,
			FullName:          row.FullName,
			TotalApplications: row.TotalApplications,
			Active:            row.Active,
			Completed:         row.Completed,
			Cancelled:         row.Cancelled,
			LastActivity:      parseStoredTime(row.LastActivity),
		})
	}
	return rows, nil
}

// storedTimeLayouts covers the formats the sqlite driver writes timestamps in.
var storedTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02",
}

func parseStoredTime(s string) time.Time {
	for _, layout := range storedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (r *reportRepository) PendingBySubject(ctx context.Context, urgentTieBreak bool) ([]models.PendingItemRow, error) {
	order := "total_quantity DESC"
	if urgentTieBreak {
		order = "total_quantity DESC, urgent_requests DESC"
	}

	var rows []models.PendingItemRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			subject,
			SUM(quantity) AS total_quantity,
			COUNT(*) AS total_requests,
			SUM(CASE WHEN priority = 'urgent' THEN 1 ELSE 0 END) AS urgent_requests,
			SUM(CASE WHEN priority = 'high' THEN 1 ELSE 0 END) AS high_requests,
			MIN(need_by_date) AS earliest_need_date,
			MAX(need_by_date) AS latest_need_date,
			`+r.nameAgg()+` AS requester_names
		FROM applications
		WHERE status = 'active'
		GROUP BY subject
		ORDER BY `+order).Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

func (r *reportRepository) Weekly(ctx context.Context, detailed bool) ([]models.WeeklyStatRow, error) {
	cutoff := time.Now().AddDate(0, 0, -7)
	date := r.dateExpr()

	columns := `
			` + date + ` AS date,
			COUNT(*) AS applications_count,
			SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END) AS completed`
	if detailed {
		columns += `,
			SUM(CASE WHEN priority = 'urgent' THEN 1 ELSE 0 END) AS urgent_count,
			SUM(CASE WHEN priority = 'high' THEN 1 ELSE 0 END) AS high_count`
	}

	var rows []models.WeeklyStatRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT`+columns+`
		FROM applications
		WHERE created_at >= ?
		GROUP BY `+date+`
		ORDER BY date ASC`, cutoff).Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

func (r *reportRepository) StatusBreakdown(ctx context.Context) ([]models.StatusBreakdownRow, error) {
	var rows []models.StatusBreakdownRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT status, COUNT(*) AS count
		FROM applications
		GROUP BY status
		ORDER BY count DESC
	`).Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	total := 0
	for _, row := range rows {
		total += row.Count
	}
	for i := range rows {
		rows[i].Percentage = percentage(rows[i].Count, total)
	}
	return rows, nil
}

func (r *reportRepository) PriorityBreakdown(ctx context.Context) ([]models.PriorityBreakdownRow, error) {
	var rows []models.PriorityBreakdownRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT priority, COUNT(*) AS count
		FROM applications
		GROUP BY priority
		ORDER BY CASE priority
			WHEN 'urgent' THEN 1
			WHEN 'high' THEN 2
			WHEN 'normal' THEN 3
			ELSE 4
		END
	`).Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	total := 0
	for _, row := range rows {
		total += row.Count
	}
	for i := range rows {
		rows[i].Percentage = percentage(rows[i].Count, total)
	}
	return rows, nil
}

// percentage returns count as a share of total rounded to two decimals.
func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(int(float64(count)/float64(total)*10000+0.5)) / 100
}
