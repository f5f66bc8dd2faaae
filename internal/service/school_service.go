package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openacademia/research-track-api/internal/models"
	appErrors "github.com/openacademia/research-track-api/pkg/errors"
)

type schoolRepository interface {
	ListSchools(ctx context.Context) ([]models.School, error)
	FindSchoolByID(ctx context.Context, id string) (*models.School, error)
	CreateSchool(ctx context.Context, school *models.School) error
	ListCampuses(ctx context.Context, schoolID string) ([]models.Campus, error)
	FindCampusByID(ctx context.Context, id string) (*models.Campus, error)
	CreateCampus(ctx context.Context, campus *models.Campus) error
}

// SchoolRequest is the school create payload.
type SchoolRequest struct {
	Name string `json:"name" validate:"required,min=3,max=150"`
}

// CampusRequest is the campus create payload.
type CampusRequest struct {
	SchoolID string `json:"school_id" validate:"required"`
	Name     string `json:"name" validate:"required,min=2,max=150"`
}

// SchoolService manages schools and their campuses.
type SchoolService struct {
	repo      schoolRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSchoolService constructs SchoolService.
func NewSchoolService(repo schoolRepository, validate *validator.Validate, logger *zap.Logger) *SchoolService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchoolService{repo: repo, validator: validate, logger: logger}
}

// ListSchools returns all schools.
func (s *SchoolService) ListSchools(ctx context.Context) ([]models.School, error) {
	schools, err := s.repo.ListSchools(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schools")
	}
	return schools, nil
}

// CreateSchool adds a school.
func (s *SchoolService) CreateSchool(ctx context.Context, req SchoolRequest) (*models.School, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school payload")
	}
	school := models.School{Name: req.Name}
	if err := s.repo.CreateSchool(ctx, &school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create school")
	}
	return &school, nil
}

// ListCampuses returns campuses, optionally scoped to one school.
func (s *SchoolService) ListCampuses(ctx context.Context, schoolID string) ([]models.Campus, error) {
	campuses, err := s.repo.ListCampuses(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list campuses")
	}
	return campuses, nil
}

// CreateCampus adds a campus to an existing school.
func (s *SchoolService) CreateCampus(ctx context.Context, req CampusRequest) (*models.Campus, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid campus payload")
	}
	if _, err := s.repo.FindSchoolByID(ctx, req.SchoolID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	campus := models.Campus{SchoolID: req.SchoolID, Name: req.Name}
	if err := s.repo.CreateCampus(ctx, &campus); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create campus")
	}
	return &campus, nil
}
