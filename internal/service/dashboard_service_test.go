package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openacademia/research-track-api/internal/models"
	appErrors "github.com/openacademia/research-track-api/pkg/errors"
)

type fakeDashboardRepo struct {
	distribution []models.StatusCount
	schools      []models.SchoolSummary
	orphans      []models.OrphanedOwner
	queries      int
}

func (f *fakeDashboardRepo) StatusDistribution(context.Context, string) ([]models.StatusCount, error) {
	f.queries++
	return f.distribution, nil
}

func (f *fakeDashboardRepo) SchoolSummaries(context.Context) ([]models.SchoolSummary, error) {
	return f.schools, nil
}

func (f *fakeDashboardRepo) OwnersWithoutCurrent(context.Context) ([]models.OrphanedOwner, error) {
	return f.orphans, nil
}

type fakeSummaryCache struct {
	store   map[string]*models.DashboardSummary
	deleted []string
}

func newFakeSummaryCache() *fakeSummaryCache {
	return &fakeSummaryCache{store: map[string]*models.DashboardSummary{}}
}

func (f *fakeSummaryCache) Get(_ context.Context, key string, dest interface{}) error {
	cached, ok := f.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if out, ok := dest.(*models.DashboardSummary); ok {
		*out = *cached
	}
	return nil
}

func (f *fakeSummaryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if summary, ok := value.(*models.DashboardSummary); ok {
		copied := *summary
		f.store[key] = &copied
	}
	return nil
}

func (f *fakeSummaryCache) DeleteByPattern(_ context.Context, pattern string) error {
	f.deleted = append(f.deleted, pattern)
	for key := range f.store {
		delete(f.store, key)
	}
	return nil
}

func TestDashboardSummaryCachesSecondRead(t *testing.T) {
	repo := &fakeDashboardRepo{
		distribution: []models.StatusCount{{StatusName: models.StatusFieldwork, Count: 12}},
		schools:      []models.SchoolSummary{{SchoolID: "school-1", SchoolName: "Graduate School", StudentCount: 12, DelayedCount: 3}},
	}
	cache := newFakeSummaryCache()
	svc := NewDashboardService(repo, cache, nil, time.Minute, nil)

	first, hit, err := svc.Summary(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, repo.queries)

	second, hit, err := svc.Summary(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, repo.queries)
	assert.Equal(t, first.StatusDistribution, second.StatusDistribution)
}

func TestDashboardSummaryScopedBySchoolUsesOwnKey(t *testing.T) {
	repo := &fakeDashboardRepo{}
	cache := newFakeSummaryCache()
	svc := NewDashboardService(repo, cache, nil, time.Minute, nil)

	_, _, err := svc.Summary(context.Background(), "")
	require.NoError(t, err)
	_, _, err = svc.Summary(context.Background(), "school-1")
	require.NoError(t, err)

	assert.Equal(t, 2, repo.queries)
	assert.Contains(t, cache.store, "dashboard:summary")
	assert.Contains(t, cache.store, "dashboard:summary:school-1")
}

func TestDashboardInvalidateDropsCachedSummaries(t *testing.T) {
	repo := &fakeDashboardRepo{}
	cache := newFakeSummaryCache()
	svc := NewDashboardService(repo, cache, nil, time.Minute, nil)

	_, _, err := svc.Summary(context.Background(), "")
	require.NoError(t, err)

	svc.Invalidate(context.Background())
	assert.Empty(t, cache.store)

	_, hit, err := svc.Summary(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, repo.queries)
}

func TestDashboardSummaryWorksWithoutCache(t *testing.T) {
	repo := &fakeDashboardRepo{}
	svc := NewDashboardService(repo, nil, nil, 0, nil)

	_, hit, err := svc.Summary(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestReconciliationSurfacesOrphanedOwners(t *testing.T) {
	repo := &fakeDashboardRepo{orphans: []models.OrphanedOwner{
		{OwnerKind: models.OwnerProposal, OwnerID: "proposal-7"},
	}}
	svc := NewDashboardService(repo, nil, nil, 0, nil)

	owners, err := svc.Reconciliation(context.Background())
	require.NoError(t, err)
	require.Len(t, owners, 1)
	assert.Equal(t, models.OwnerProposal, owners[0].OwnerKind)
}
