package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openacademia/research-track-api/internal/models"
	appErrors "github.com/openacademia/research-track-api/pkg/errors"
)

type reviewerRepository interface {
	List(ctx context.Context, campusID string) ([]models.Reviewer, error)
	FindByID(ctx context.Context, id string) (*models.Reviewer, error)
	Create(ctx context.Context, reviewer *models.Reviewer) error
	Update(ctx context.Context, reviewer *models.Reviewer) error
	InUse(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

type panelistRepository interface {
	List(ctx context.Context, campusID string) ([]models.Panelist, error)
	FindByID(ctx context.Context, id string) (*models.Panelist, error)
	Create(ctx context.Context, panelist *models.Panelist) error
	Update(ctx context.Context, panelist *models.Panelist) error
	InUse(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

type examinerRosterRepository interface {
	List(ctx context.Context, campusID string) ([]models.Examiner, error)
	FindByID(ctx context.Context, id string) (*models.Examiner, error)
	Create(ctx context.Context, examiner *models.Examiner) error
	Update(ctx context.Context, examiner *models.Examiner) error
	InUse(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// PersonRequest is the shared payload for reviewers and panelists.
type PersonRequest struct {
	CampusID string `json:"campus_id" validate:"required"`
	FullName string `json:"full_name" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"required,email"`
}

// ExaminerRequest adds the internal/external distinction.
type ExaminerRequest struct {
	CampusID string              `json:"campus_id" validate:"required"`
	FullName string              `json:"full_name" validate:"required,min=3,max=150"`
	Email    string              `json:"email" validate:"required,email"`
	Type     models.ExaminerType `json:"type" validate:"required,oneof=INTERNAL EXTERNAL"`
}

// RosterService manages the reviewer, panelist and examiner rosters.
// People already bound to grades or assignments cannot be deleted.
type RosterService struct {
	reviewers reviewerRepository
	panelists panelistRepository
	examiners examinerRosterRepository
	schools   schoolReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRosterService constructs RosterService.
func NewRosterService(reviewers reviewerRepository, panelists panelistRepository, examiners examinerRosterRepository, schools schoolReader, validate *validator.Validate, logger *zap.Logger) *RosterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{reviewers: reviewers, panelists: panelists, examiners: examiners, schools: schools, validator: validate, logger: logger}
}

func (s *RosterService) checkCampus(ctx context.Context, campusID string) error {
	if _, err := s.schools.FindCampusByID(ctx, campusID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "campus not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load campus")
	}
	return nil
}

// ListReviewers returns reviewers, optionally filtered by campus.
func (s *RosterService) ListReviewers(ctx context.Context, campusID string) ([]models.Reviewer, error) {
	reviewers, err := s.reviewers.List(ctx, campusID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviewers")
	}
	return reviewers, nil
}

// CreateReviewer adds a reviewer to the roster.
func (s *RosterService) CreateReviewer(ctx context.Context, req PersonRequest) (*models.Reviewer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reviewer payload")
	}
	if err := s.checkCampus(ctx, req.CampusID); err != nil {
		return nil, err
	}
	reviewer := models.Reviewer{CampusID: req.CampusID, FullName: req.FullName, Email: req.Email}
	if err := s.reviewers.Create(ctx, &reviewer); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reviewer")
	}
	return &reviewer, nil
}

// UpdateReviewer edits a reviewer.
func (s *RosterService) UpdateReviewer(ctx context.Context, id string, req PersonRequest) (*models.Reviewer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reviewer payload")
	}
	reviewer, err := s.reviewers.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reviewer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reviewer")
	}
	if err := s.checkCampus(ctx, req.CampusID); err != nil {
		return nil, err
	}
	reviewer.CampusID = req.CampusID
	reviewer.FullName = req.FullName
	reviewer.Email = req.Email
	if err := s.reviewers.Update(ctx, reviewer); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update reviewer")
	}
	return reviewer, nil
}

// DeleteReviewer removes a reviewer with zero proposal assignments.
func (s *RosterService) DeleteReviewer(ctx context.Context, id string) error {
	if _, err := s.reviewers.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "reviewer not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reviewer")
	}
	used, err := s.reviewers.InUse(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check reviewer usage")
	}
	if used {
		return appErrors.Clone(appErrors.ErrState, "reviewer has proposal assignments or recorded grades and cannot be deleted")
	}
	if err := s.reviewers.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete reviewer")
	}
	return nil
}

// ListPanelists returns panelists, optionally filtered by campus.
func (s *RosterService) ListPanelists(ctx context.Context, campusID string) ([]models.Panelist, error) {
	panelists, err := s.panelists.List(ctx, campusID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list panelists")
	}
	return panelists, nil
}

// CreatePanelist adds a panelist to the roster.
func (s *RosterService) CreatePanelist(ctx context.Context, req PersonRequest) (*models.Panelist, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid panelist payload")
	}
	if err := s.checkCampus(ctx, req.CampusID); err != nil {
		return nil, err
	}
	panelist := models.Panelist{CampusID: req.CampusID, FullName: req.FullName, Email: req.Email}
	if err := s.panelists.Create(ctx, &panelist); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create panelist")
	}
	return &panelist, nil
}

// UpdatePanelist edits a panelist.
func (s *RosterService) UpdatePanelist(ctx context.Context, id string, req PersonRequest) (*models.Panelist, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid panelist payload")
	}
	panelist, err := s.panelists.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "panelist not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load panelist")
	}
	if err := s.checkCampus(ctx, req.CampusID); err != nil {
		return nil, err
	}
	panelist.CampusID = req.CampusID
	panelist.FullName = req.FullName
	panelist.Email = req.Email
	if err := s.panelists.Update(ctx, panelist); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update panelist")
	}
	return panelist, nil
}

// DeletePanelist removes a panelist with zero panel memberships.
func (s *RosterService) DeletePanelist(ctx context.Context, id string) error {
	if _, err := s.panelists.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "panelist not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load panelist")
	}
	used, err := s.panelists.InUse(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check panelist usage")
	}
	if used {
		return appErrors.Clone(appErrors.ErrState, "panelist sits on defense panels or has recorded marks and cannot be deleted")
	}
	if err := s.panelists.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete panelist")
	}
	return nil
}

// ListExaminers returns examiners, optionally filtered by campus.
func (s *RosterService) ListExaminers(ctx context.Context, campusID string) ([]models.Examiner, error) {
	examiners, err := s.examiners.List(ctx, campusID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list examiners")
	}
	return examiners, nil
}

// CreateExaminer adds an examiner to the roster.
func (s *RosterService) CreateExaminer(ctx context.Context, req ExaminerRequest) (*models.Examiner, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid examiner payload")
	}
	if err := s.checkCampus(ctx, req.CampusID); err != nil {
		return nil, err
	}
	examiner := models.Examiner{CampusID: req.CampusID, FullName: req.FullName, Email: req.Email, Type: req.Type}
	if err := s.examiners.Create(ctx, &examiner); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create examiner")
	}
	return &examiner, nil
}

// UpdateExaminer edits an examiner.
func (s *RosterService) UpdateExaminer(ctx context.Context, id string, req ExaminerRequest) (*models.Examiner, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid examiner payload")
	}
	examiner, err := s.examiners.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "examiner not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load examiner")
	}
	if err := s.checkCampus(ctx, req.CampusID); err != nil {
		return nil, err
	}
	examiner.CampusID = req.CampusID
	examiner.FullName = req.FullName
	examiner.Email = req.Email
	examiner.Type = req.Type
	if err := s.examiners.Update(ctx, examiner); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update examiner")
	}
	return examiner, nil
}

// DeleteExaminer removes an examiner with zero book assignments.
func (s *RosterService) DeleteExaminer(ctx context.Context, id string) error {
	if _, err := s.examiners.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "examiner not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load examiner")
	}
	used, err := s.examiners.InUse(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check examiner usage")
	}
	if used {
		return appErrors.Clone(appErrors.ErrState, "examiner has book assignments and cannot be deleted")
	}
	if err := s.examiners.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete examiner")
	}
	return nil
}
