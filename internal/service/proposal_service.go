package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/openacademia/research-track-api/internal/models"
	appErrors "github.com/openacademia/research-track-api/pkg/errors"
)

type proposalReadRepository interface {
	FindByID(ctx context.Context, id string) (*models.Proposal, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Proposal, error)
	Reviewers(ctx context.Context, proposalID string) ([]models.Reviewer, error)
	Panelists(ctx context.Context, proposalID string) ([]models.Panelist, error)
}

// ProposalService serves the proposal read endpoints.
type ProposalService struct {
	proposals proposalReadRepository
	grades    progressGradeReader
	defenses  progressDefenseReader
	timeline  statusTimelineRepository
	logger    *zap.Logger
}

// NewProposalService constructs ProposalService.
func NewProposalService(proposals proposalReadRepository, grades progressGradeReader, defenses progressDefenseReader, timeline statusTimelineRepository, logger *zap.Logger) *ProposalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProposalService{proposals: proposals, grades: grades, defenses: defenses, timeline: timeline, logger: logger}
}

// ListByStudent returns all proposals of a student newest-first.
func (s *ProposalService) ListByStudent(ctx context.Context, studentID string) ([]models.Proposal, error) {
	proposals, err := s.proposals.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list proposals")
	}
	return proposals, nil
}

// Detail aggregates one proposal with its people, grades and defenses.
func (s *ProposalService) Detail(ctx context.Context, id string) (*models.ProposalDetail, error) {
	proposal, err := s.proposals.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load proposal")
	}
	detail := models.ProposalDetail{Proposal: *proposal}
	if detail.Reviewers, err = s.proposals.Reviewers(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reviewers")
	}
	if detail.Panelists, err = s.proposals.Panelists(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load panelists")
	}
	if detail.ReviewGrades, err = s.grades.ReviewGradesByProposal(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review grades")
	}
	if detail.DefenseGrades, err = s.grades.DefenseGradesByProposal(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load defense grades")
	}
	if detail.Defenses, err = s.defenses.ListByProposal(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load defenses")
	}
	return &detail, nil
}

// History returns the proposal's status timeline.
func (s *ProposalService) History(ctx context.Context, id string) ([]models.StatusHistoryEntry, error) {
	if _, err := s.proposals.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load proposal")
	}
	entries, err := s.timeline.History(ctx, models.StatusOwner{Kind: models.OwnerProposal, ID: id})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status history")
	}
	return entries, nil
}
