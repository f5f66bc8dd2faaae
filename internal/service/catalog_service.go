package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openacademia/research-track-api/internal/models"
	appErrors "github.com/openacademia/research-track-api/pkg/errors"
)

type statusDefinitionRepository interface {
	List(ctx context.Context) ([]models.StatusDefinition, error)
	FindByName(ctx context.Context, name string) (*models.StatusDefinition, error)
	FindByID(ctx context.Context, id string) (*models.StatusDefinition, error)
	Create(ctx context.Context, def *models.StatusDefinition) error
	GetOrCreate(ctx context.Context, name string, defaults models.StatusDefinitionDefaults) (*models.StatusDefinition, error)
	Update(ctx context.Context, def *models.StatusDefinition) error
}

// DefaultCatalog returns the seed values for every workflow status. Only
// "proposal received" is created lazily at runtime; the rest are expected
// to be provisioned up front.
func DefaultCatalog() map[string]models.StatusDefinitionDefaults {
	return map[string]models.StatusDefinitionDefaults{
		models.StatusProposalReceived:       {Description: "Proposal registered by the research office", ExpectedDays: 14, Color: "#9E9E9E"},
		models.StatusProposalInReview:       {Description: "Proposal distributed to reviewers", ExpectedDays: 30, Color: "#2196F3"},
		models.StatusReviewFinishedPassed:   {Description: "All reviewers returned a passing verdict", ExpectedDays: 14, Color: "#4CAF50"},
		models.StatusReviewFinishedFailed:   {Description: "At least one reviewer failed the proposal", ExpectedDays: 14, Color: "#F44336"},
		models.StatusReviewFinished:         {Description: "Review round complete", ExpectedDays: 14, Color: "#607D8B"},
		models.StatusWaitingProposalDefense: {Description: "Defense sitting scheduled", ExpectedDays: 30, Color: "#FF9800"},
		models.StatusProposalGradedPassed:   {Description: "Defense panel passed the proposal", ExpectedDays: 14, Color: "#4CAF50"},
		models.StatusProposalGradedFailed:   {Description: "Defense panel failed the proposal", ExpectedDays: 14, Color: "#F44336"},
		models.StatusLetterToFieldIssued:    {Description: "Authorization letter issued", ExpectedDays: 7, Color: "#3F51B5"},
		models.StatusFieldwork:              {Description: "Student collecting data in the field", ExpectedDays: 180, Color: "#009688"},
		models.StatusUnderExamination:       {Description: "Book distributed to examiners", ExpectedDays: 60, Color: "#673AB7"},
		models.StatusResubmissionRequired:   {Description: "Examination failed, book must be resubmitted", ExpectedDays: 90, Color: "#F44336"},
		models.StatusAuthorizedForViva:      {Description: "Examination passed, viva may be scheduled", ExpectedDays: 30, Color: "#4CAF50"},
	}
}

// StatusDefinitionRequest is the admin create/update payload.
type StatusDefinitionRequest struct {
	Name         string `json:"name" validate:"required,min=3,max=120"`
	Description  string `json:"description" validate:"max=500"`
	ExpectedDays int    `json:"expected_days" validate:"gte=0"`
	Color        string `json:"color" validate:"omitempty,hexcolor"`
}

// CatalogService manages the status definition catalog.
type CatalogService struct {
	defs      statusDefinitionRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(defs statusDefinitionRepository, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{defs: defs, validator: validate, logger: logger}
}

// List returns all catalog entries.
func (s *CatalogService) List(ctx context.Context) ([]models.StatusDefinition, error) {
	defs, err := s.defs.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list status definitions")
	}
	return defs, nil
}

// Create adds a catalog entry. Names are unique on their canonical form.
func (s *CatalogService) Create(ctx context.Context, req StatusDefinitionRequest) (*models.StatusDefinition, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status definition payload")
	}
	if _, err := s.defs.FindByName(ctx, req.Name); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "status definition already exists")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check status definition")
	}
	def := models.StatusDefinition{
		Name:         req.Name,
		Description:  req.Description,
		ExpectedDays: req.ExpectedDays,
		Color:        req.Color,
	}
	if err := s.defs.Create(ctx, &def); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create status definition")
	}
	s.logger.Info("status definition created", zap.String("definition_id", def.ID), zap.String("name", def.Name))
	return &def, nil
}

// Update edits a catalog entry.
func (s *CatalogService) Update(ctx context.Context, id string, req StatusDefinitionRequest) (*models.StatusDefinition, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status definition payload")
	}
	def, err := s.defs.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "status definition not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status definition")
	}
	def.Name = req.Name
	def.Description = req.Description
	def.ExpectedDays = req.ExpectedDays
	def.Color = req.Color
	if err := s.defs.Update(ctx, def); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status definition")
	}
	return def, nil
}

// Resolve looks up a definition for a workflow transition. The initial
// "proposal received" entry is created on first use; every other stage must
// already exist in the catalog, and a missing one is a server-side
// provisioning fault rather than a client error.
func (s *CatalogService) Resolve(ctx context.Context, name string) (*models.StatusDefinition, error) {
	if name == models.StatusProposalReceived {
		def, err := s.defs.GetOrCreate(ctx, name, DefaultCatalog()[models.StatusProposalReceived])
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to provision initial status")
		}
		return def, nil
	}
	def, err := s.defs.FindByName(ctx, name)
	if err != nil {
		if err == sql.ErrNoRows {
			s.logger.Error("status definition missing from catalog", zap.String("name", name))
			return nil, appErrors.Clone(appErrors.ErrStatusDefinition, "status definition missing: "+name)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status definition")
	}
	return def, nil
}
