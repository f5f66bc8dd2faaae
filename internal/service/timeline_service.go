package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/openacademia/research-track-api/internal/models"
	appErrors "github.com/openacademia/research-track-api/pkg/errors"
)

type statusTimelineRepository interface {
	Transition(ctx context.Context, steps []models.TransitionStep) error
	CurrentByOwner(ctx context.Context, owner models.StatusOwner) (*models.StatusHistoryEntry, error)
	History(ctx context.Context, owner models.StatusOwner) ([]models.StatusHistoryEntry, error)
	HasDefinitionInHistory(ctx context.Context, owner models.StatusOwner, definitionName string) (bool, error)
	CurrentDefinitionName(ctx context.Context, owner models.StatusOwner) (string, error)
}

// TimelineService exposes read access to owner status timelines.
type TimelineService struct {
	records statusTimelineRepository
	logger  *zap.Logger
}

// NewTimelineService constructs TimelineService.
func NewTimelineService(records statusTimelineRepository, logger *zap.Logger) *TimelineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimelineService{records: records, logger: logger}
}

// History returns the owner's full timeline newest-first.
func (s *TimelineService) History(ctx context.Context, owner models.StatusOwner) ([]models.StatusHistoryEntry, error) {
	entries, err := s.records.History(ctx, owner)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status history")
	}
	return entries, nil
}

// Current returns the owner's open record.
func (s *TimelineService) Current(ctx context.Context, owner models.StatusOwner) (*models.StatusHistoryEntry, error) {
	entry, err := s.records.CurrentByOwner(ctx, owner)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "owner has no current status")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current status")
	}
	return entry, nil
}
