package service

import (
	"context"
	"testing"
	"time"

	"supplydesk/internal/cache"
	"supplydesk/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockReportRepository is a testify mock of repository.ReportRepository.
type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) Summary(ctx context.Context) (*models.ReportSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReportSummary), args.Error(1)
}

func (m *MockReportRepository) PerUser(ctx context.Context) ([]models.UserReportRow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserReportRow), args.Error(1)
}

func (m *MockReportRepository) PendingBySubject(ctx context.Context, urgentTieBreak bool) ([]models.PendingItemRow, error) {
	args := m.Called(ctx, urgentTieBreak)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PendingItemRow), args.Error(1)
}

func (m *MockReportRepository) Weekly(ctx context.Context, detailed bool) ([]models.WeeklyStatRow, error) {
	args := m.Called(ctx, detailed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WeeklyStatRow), args.Error(1)
}

func (m *MockReportRepository) StatusBreakdown(ctx context.Context) ([]models.StatusBreakdownRow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.StatusBreakdownRow), args.Error(1)
}

func (m *MockReportRepository) PriorityBreakdown(ctx context.Context) ([]models.PriorityBreakdownRow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PriorityBreakdownRow), args.Error(1)
}

func stubFullReportRepo() *MockReportRepository {
	repo := new(MockReportRepository)
	repo.On("Summary", mock.Anything).Return(&models.ReportSummary{Total: 3, Active: 2, Completed: 1}, nil)
	repo.On("PerUser", mock.Anything).Return([]models.UserReportRow{{Username: "alice", TotalApplications: 3}}, nil)
	repo.On("PendingBySubject", mock.Anything, false).Return([]models.PendingItemRow{{Subject: "paper", TotalQuantity: 5}}, nil)
	repo.On("Weekly", mock.Anything, false).Return([]models.WeeklyStatRow{{Date: "2026-08-28", ApplicationsCount: 2}}, nil)
	return repo
}

func TestFullReportComposition(t *testing.T) {
	repo := stubFullReportRepo()
	svc := NewReportService(repo)

	report, err := svc.Full(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Timestamp.IsZero())
	assert.Equal(t, 3, report.Summary.Total)
	require.Len(t, report.Users, 1)
	assert.Equal(t, "alice", report.Users[0].Username)
	require.Len(t, report.PendingItems, 1)
	assert.Equal(t, "paper", report.PendingItems[0].Subject)
	require.Len(t, report.WeeklyStats, 1)

	// The full report uses the compact variants of the sub-reports.
	repo.AssertCalled(t, "PendingBySubject", mock.Anything, false)
	repo.AssertCalled(t, "Weekly", mock.Anything, false)
}

func TestFullReportServedFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	prev := cache.GetClient()
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(prev) })

	repo := stubFullReportRepo()
	svc := NewReportService(repo)
	ctx := context.Background()

	first, err := svc.Full(ctx)
	require.NoError(t, err)

	second, err := svc.Full(ctx)
	require.NoError(t, err)

	// One database round per sub-report despite two calls.
	repo.AssertNumberOfCalls(t, "Summary", 1)
	repo.AssertNumberOfCalls(t, "PerUser", 1)
	assert.Equal(t, first.Summary, second.Summary)
	assert.True(t, first.Timestamp.Equal(second.Timestamp))
}

func TestFullReportCacheExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	prev := cache.GetClient()
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(prev) })

	repo := stubFullReportRepo()
	svc := NewReportService(repo)
	ctx := context.Background()

	_, err := svc.Full(ctx)
	require.NoError(t, err)

	mr.FastForward(cache.FullReportTTL + time.Second)

	_, err = svc.Full(ctx)
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "Summary", 2)
}

func TestFullReportInvalidatedAfterMutation(t *testing.T) {
	mr := miniredis.RunT(t)
	prev := cache.GetClient()
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(prev) })

	repo := stubFullReportRepo()
	svc := NewReportService(repo)
	ctx := context.Background()

	_, err := svc.Full(ctx)
	require.NoError(t, err)
	require.True(t, mr.Exists(cache.FullReportKey()))

	cache.InvalidateReports(ctx)
	assert.False(t, mr.Exists(cache.FullReportKey()))

	_, err = svc.Full(ctx)
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "Summary", 2)
}

func TestReportErrorsPropagate(t *testing.T) {
	repo := new(MockReportRepository)
	repo.On("Summary", mock.Anything).Return(nil, models.NewInternalError(assert.AnError))

	svc := NewReportService(repo)
	_, err := svc.Full(context.Background())
	require.Error(t, err)
	assert.True(t, models.IsCode(err, "INTERNAL_ERROR"))
}
