package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openacademia/research-track-api/internal/models"
)

// PanelistRepository manages the defense panelist roster.
type PanelistRepository struct {
	db *sqlx.DB
}

// NewPanelistRepository constructs a PanelistRepository.
func NewPanelistRepository(db *sqlx.DB) *PanelistRepository {
	return &PanelistRepository{db: db}
}

// List returns panelists, optionally scoped to one campus.
func (r *PanelistRepository) List(ctx context.Context, campusID string) ([]models.Panelist, error) {
	query := `SELECT id, campus_id, full_name, email, created_at, updated_at FROM panelists`
	args := []interface{}{}
	if campusID != "" {
		query += " WHERE campus_id = $1"
		args = append(args, campusID)
	}
	query += " ORDER BY full_name ASC"
	var panelists []models.Panelist
	if err := r.db.SelectContext(ctx, &panelists, query, args...); err != nil {
		return nil, fmt.Errorf("list panelists: %w", err)
	}
	return panelists, nil
}

// FindByID fetches a panelist by id.
func (r *PanelistRepository) FindByID(ctx context.Context, id string) (*models.Panelist, error) {
	const query = `SELECT id, campus_id, full_name, email, created_at, updated_at FROM panelists WHERE id = $1`
	var panelist models.Panelist
	if err := r.db.GetContext(ctx, &panelist, query, id); err != nil {
		return nil, err
	}
	return &panelist, nil
}

// Create inserts a new panelist.
func (r *PanelistRepository) Create(ctx context.Context, panelist *models.Panelist) error {
	if panelist.ID == "" {
		panelist.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if panelist.CreatedAt.IsZero() {
		panelist.CreatedAt = now
	}
	panelist.UpdatedAt = now
	const query = `INSERT INTO panelists (id, campus_id, full_name, email, created_at, updated_at)
        VALUES (:id, :campus_id, :full_name, :email, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, panelist); err != nil {
		return fmt.Errorf("create panelist: %w", err)
	}
	return nil
}

// Update modifies an existing panelist.
func (r *PanelistRepository) Update(ctx context.Context, panelist *models.Panelist) error {
	panelist.UpdatedAt = time.Now().UTC()
	const query = `UPDATE panelists SET campus_id = :campus_id, full_name = :full_name, email = :email, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, panelist); err != nil {
		return fmt.Errorf("update panelist: %w", err)
	}
	return nil
}

// InUse reports whether the panelist sits on any defense panel or has a
// recorded defense grade. Grades outlive panel replacement, so both tables
// are checked.
func (r *PanelistRepository) InUse(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM proposal_panelists WHERE panelist_id = $1)
        OR EXISTS (SELECT 1 FROM defense_grades WHERE panelist_id = $1)`
	var used bool
	if err := r.db.GetContext(ctx, &used, query, id); err != nil {
		return false, fmt.Errorf("check panelist usage: %w", err)
	}
	return used, nil
}

// Delete removes a panelist. Callers guard against in-use panelists first.
func (r *PanelistRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM panelists WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete panelist: %w", err)
	}
	return nil
}
