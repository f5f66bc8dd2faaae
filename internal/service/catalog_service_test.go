package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openacademia/research-track-api/internal/models"
	appErrors "github.com/openacademia/research-track-api/pkg/errors"
)

type fakeDefinitionRepo struct {
	byName  map[string]*models.StatusDefinition
	seq     int
	created []string
}

func newFakeDefinitionRepo() *fakeDefinitionRepo {
	return &fakeDefinitionRepo{byName: map[string]*models.StatusDefinition{}}
}

func (f *fakeDefinitionRepo) List(context.Context) ([]models.StatusDefinition, error) {
	out := make([]models.StatusDefinition, 0, len(f.byName))
	for _, def := range f.byName {
		out = append(out, *def)
	}
	return out, nil
}

func (f *fakeDefinitionRepo) FindByName(_ context.Context, name string) (*models.StatusDefinition, error) {
	def, ok := f.byName[CanonicalName(name)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *def
	return &copied, nil
}

func (f *fakeDefinitionRepo) FindByID(_ context.Context, id string) (*models.StatusDefinition, error) {
	for _, def := range f.byName {
		if def.ID == id {
			copied := *def
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeDefinitionRepo) Create(_ context.Context, def *models.StatusDefinition) error {
	f.seq++
	def.ID = fmt.Sprintf("def-%d", f.seq)
	canonical := CanonicalName(def.Name)
	f.byName[canonical] = def
	f.created = append(f.created, canonical)
	return nil
}

func (f *fakeDefinitionRepo) GetOrCreate(ctx context.Context, name string, defaults models.StatusDefinitionDefaults) (*models.StatusDefinition, error) {
	if def, err := f.FindByName(ctx, name); err == nil {
		return def, nil
	}
	def := &models.StatusDefinition{
		Name:         CanonicalName(name),
		Description:  defaults.Description,
		ExpectedDays: defaults.ExpectedDays,
		Color:        defaults.Color,
	}
	if err := f.Create(ctx, def); err != nil {
		return nil, err
	}
	copied := *def
	return &copied, nil
}

func (f *fakeDefinitionRepo) Update(_ context.Context, def *models.StatusDefinition) error {
	for name, existing := range f.byName {
		if existing.ID == def.ID {
			delete(f.byName, name)
			copied := *def
			f.byName[CanonicalName(def.Name)] = &copied
			return nil
		}
	}
	return sql.ErrNoRows
}

// CanonicalName mirrors the repository's name normalization.
func CanonicalName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func TestCatalogCreateRejectsDuplicateName(t *testing.T) {
	repo := newFakeDefinitionRepo()
	svc := NewCatalogService(repo, nil, nil)

	_, err := svc.Create(context.Background(), StatusDefinitionRequest{Name: "fieldwork", ExpectedDays: 180})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), StatusDefinitionRequest{Name: "fieldwork", ExpectedDays: 90})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestCatalogCreateValidatesPayload(t *testing.T) {
	svc := NewCatalogService(newFakeDefinitionRepo(), nil, nil)

	_, err := svc.Create(context.Background(), StatusDefinitionRequest{Name: "ab", ExpectedDays: -1})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCatalogResolveProvisionsInitialStatus(t *testing.T) {
	repo := newFakeDefinitionRepo()
	svc := NewCatalogService(repo, nil, nil)

	def, err := svc.Resolve(context.Background(), models.StatusProposalReceived)
	require.NoError(t, err)
	assert.NotEmpty(t, def.ID)
	assert.Contains(t, repo.created, models.StatusProposalReceived)

	again, err := svc.Resolve(context.Background(), models.StatusProposalReceived)
	require.NoError(t, err)
	assert.Equal(t, def.ID, again.ID)
	assert.Len(t, repo.created, 1)
}

func TestCatalogResolveMissingDefinitionIsServerFault(t *testing.T) {
	svc := NewCatalogService(newFakeDefinitionRepo(), nil, nil)

	_, err := svc.Resolve(context.Background(), models.StatusFieldwork)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrStatusDefinition.Code, appErr.Code)
	assert.Equal(t, 500, appErr.Status)
}

func TestCatalogUpdateUnknownDefinition(t *testing.T) {
	svc := NewCatalogService(newFakeDefinitionRepo(), nil, nil)

	_, err := svc.Update(context.Background(), "missing", StatusDefinitionRequest{Name: "fieldwork"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestDefaultCatalogCoversEveryWorkflowStatus(t *testing.T) {
	catalog := DefaultCatalog()
	for _, name := range []string{
		models.StatusProposalReceived,
		models.StatusProposalInReview,
		models.StatusReviewFinishedPassed,
		models.StatusReviewFinishedFailed,
		models.StatusWaitingProposalDefense,
		models.StatusProposalGradedPassed,
		models.StatusProposalGradedFailed,
		models.StatusLetterToFieldIssued,
		models.StatusFieldwork,
		models.StatusUnderExamination,
		models.StatusResubmissionRequired,
		models.StatusAuthorizedForViva,
	} {
		defaults, ok := catalog[name]
		assert.True(t, ok, name)
		assert.Greater(t, defaults.ExpectedDays, 0, name)
	}
}
