package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openacademia/research-track-api/internal/models"
)

// StatusDefinitionRepository manages the status catalog.
type StatusDefinitionRepository struct {
	db *sqlx.DB
}

// NewStatusDefinitionRepository constructs a StatusDefinitionRepository.
func NewStatusDefinitionRepository(db *sqlx.DB) *StatusDefinitionRepository {
	return &StatusDefinitionRepository{db: db}
}

// CanonicalStatusName normalizes a definition name to its lookup key.
func CanonicalStatusName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// List returns all definitions ordered by name.
func (r *StatusDefinitionRepository) List(ctx context.Context) ([]models.StatusDefinition, error) {
	const query = `SELECT id, name, description, expected_days, color, created_at, updated_at
        FROM status_definitions ORDER BY name ASC`
	var defs []models.StatusDefinition
	if err := r.db.SelectContext(ctx, &defs, query); err != nil {
		return nil, fmt.Errorf("list status definitions: %w", err)
	}
	return defs, nil
}

// FindByName fetches a definition by its canonical name. Returns
// sql.ErrNoRows when absent.
func (r *StatusDefinitionRepository) FindByName(ctx context.Context, name string) (*models.StatusDefinition, error) {
	const query = `SELECT id, name, description, expected_days, color, created_at, updated_at
        FROM status_definitions WHERE name = $1`
	var def models.StatusDefinition
	if err := r.db.GetContext(ctx, &def, query, CanonicalStatusName(name)); err != nil {
		return nil, err
	}
	return &def, nil
}

// FindByID fetches a definition by id.
func (r *StatusDefinitionRepository) FindByID(ctx context.Context, id string) (*models.StatusDefinition, error) {
	const query = `SELECT id, name, description, expected_days, color, created_at, updated_at
        FROM status_definitions WHERE id = $1`
	var def models.StatusDefinition
	if err := r.db.GetContext(ctx, &def, query, id); err != nil {
		return nil, err
	}
	return &def, nil
}

// Create inserts a new definition with the canonical name key.
func (r *StatusDefinitionRepository) Create(ctx context.Context, def *models.StatusDefinition) error {
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	def.Name = CanonicalStatusName(def.Name)
	now := time.Now().UTC()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}
	def.UpdatedAt = now
	const query = `INSERT INTO status_definitions (id, name, description, expected_days, color, created_at, updated_at)
        VALUES (:id, :name, :description, :expected_days, :color, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, def); err != nil {
		return fmt.Errorf("create status definition: %w", err)
	}
	return nil
}

// GetOrCreate fetches a definition by name, inserting it with the provided
// defaults when absent. Concurrent first-use races resolve on the unique
// name constraint.
func (r *StatusDefinitionRepository) GetOrCreate(ctx context.Context, name string, defaults models.StatusDefinitionDefaults) (*models.StatusDefinition, error) {
	canonical := CanonicalStatusName(name)
	def := models.StatusDefinition{
		ID:           uuid.NewString(),
		Name:         canonical,
		Description:  defaults.Description,
		ExpectedDays: defaults.ExpectedDays,
		Color:        defaults.Color,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	const insert = `INSERT INTO status_definitions (id, name, description, expected_days, color, created_at, updated_at)
        VALUES (:id, :name, :description, :expected_days, :color, :created_at, :updated_at)
        ON CONFLICT (name) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, insert, &def); err != nil {
		return nil, fmt.Errorf("get or create status definition: %w", err)
	}
	existing, err := r.FindByName(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("load status definition %s: %w", canonical, err)
	}
	return existing, nil
}

// Update applies administrative edits to a definition.
func (r *StatusDefinitionRepository) Update(ctx context.Context, def *models.StatusDefinition) error {
	def.Name = CanonicalStatusName(def.Name)
	def.UpdatedAt = time.Now().UTC()
	const query = `UPDATE status_definitions SET name = :name, description = :description,
        expected_days = :expected_days, color = :color, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, def); err != nil {
		return fmt.Errorf("update status definition: %w", err)
	}
	return nil
}
