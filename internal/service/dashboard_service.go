package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/openacademia/research-track-api/internal/models"
	appErrors "github.com/openacademia/research-track-api/pkg/errors"
)

type dashboardRepository interface {
	StatusDistribution(ctx context.Context, schoolID string) ([]models.StatusCount, error)
	SchoolSummaries(ctx context.Context) ([]models.SchoolSummary, error)
	OwnersWithoutCurrent(ctx context.Context) ([]models.OrphanedOwner, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cacheObserver interface {
	RecordCacheOperation(hit bool, duration time.Duration)
}

// DashboardService composes the cached dashboard summary and the timeline
// reconciliation view.
type DashboardService struct {
	repo     dashboardRepository
	cache    summaryCache
	metrics  cacheObserver
	logger   *zap.Logger
	cacheTTL time.Duration
	now      func() time.Time
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(repo dashboardRepository, cache summaryCache, metrics cacheObserver, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardService{
		repo:     repo,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// Summary returns the dashboard payload, served from cache when fresh. The
// second return value reports whether the cache was hit.
func (s *DashboardService) Summary(ctx context.Context, schoolID string) (*models.DashboardSummary, bool, error) {
	cacheKey := "dashboard:summary"
	if schoolID != "" {
		cacheKey = fmt.Sprintf("dashboard:summary:%s", schoolID)
	}

	if s.cache != nil {
		start := s.now()
		var cached models.DashboardSummary
		err := s.cache.Get(ctx, cacheKey, &cached)
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(err == nil, time.Since(start))
		}
		if err == nil {
			return &cached, true, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	summary, err := s.compose(ctx, schoolID)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, summary, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return summary, false, nil
}

// Invalidate drops all cached dashboard payloads. Called after workflow
// transitions so the next read recomputes.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:summary*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

// Reconciliation lists timeline owners whose history has no current record.
// Such owners indicate a transition that stopped partway and need manual
// repair.
func (s *DashboardService) Reconciliation(ctx context.Context) ([]models.OrphanedOwner, error) {
	owners, err := s.repo.OwnersWithoutCurrent(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reconciliation view")
	}
	return owners, nil
}

func (s *DashboardService) compose(ctx context.Context, schoolID string) (*models.DashboardSummary, error) {
	distribution, err := s.repo.StatusDistribution(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status distribution")
	}
	schools, err := s.repo.SchoolSummaries(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school summaries")
	}
	return &models.DashboardSummary{
		StatusDistribution: distribution,
		Schools:            schools,
		GeneratedAt:        s.now().UTC(),
	}, nil
}
