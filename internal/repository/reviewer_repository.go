package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openacademia/research-track-api/internal/models"
)

// ReviewerRepository manages the reviewer roster.
type ReviewerRepository struct {
	db *sqlx.DB
}

// NewReviewerRepository constructs a ReviewerRepository.
func NewReviewerRepository(db *sqlx.DB) *ReviewerRepository {
	return &ReviewerRepository{db: db}
}

// List returns reviewers, optionally scoped to one campus.
func (r *ReviewerRepository) List(ctx context.Context, campusID string) ([]models.Reviewer, error) {
	query := `SELECT id, campus_id, full_name, email, created_at, updated_at FROM reviewers`
	args := []interface{}{}
	if campusID != "" {
		query += " WHERE campus_id = $1"
		args = append(args, campusID)
	}
	query += " ORDER BY full_name ASC"
	var reviewers []models.Reviewer
	if err := r.db.SelectContext(ctx, &reviewers, query, args...); err != nil {
		return nil, fmt.Errorf("list reviewers: %w", err)
	}
	return reviewers, nil
}

// FindByID fetches a reviewer by id.
func (r *ReviewerRepository) FindByID(ctx context.Context, id string) (*models.Reviewer, error) {
	const query = `SELECT id, campus_id, full_name, email, created_at, updated_at FROM reviewers WHERE id = $1`
	var reviewer models.Reviewer
	if err := r.db.GetContext(ctx, &reviewer, query, id); err != nil {
		return nil, err
	}
	return &reviewer, nil
}

// Create inserts a new reviewer.
func (r *ReviewerRepository) Create(ctx context.Context, reviewer *models.Reviewer) error {
	if reviewer.ID == "" {
		reviewer.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if reviewer.CreatedAt.IsZero() {
		reviewer.CreatedAt = now
	}
	reviewer.UpdatedAt = now
	const query = `INSERT INTO reviewers (id, campus_id, full_name, email, created_at, updated_at)
        VALUES (:id, :campus_id, :full_name, :email, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, reviewer); err != nil {
		return fmt.Errorf("create reviewer: %w", err)
	}
	return nil
}

// Update modifies an existing reviewer.
func (r *ReviewerRepository) Update(ctx context.Context, reviewer *models.Reviewer) error {
	reviewer.UpdatedAt = time.Now().UTC()
	const query = `UPDATE reviewers SET campus_id = :campus_id, full_name = :full_name, email = :email, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, reviewer); err != nil {
		return fmt.Errorf("update reviewer: %w", err)
	}
	return nil
}

// InUse reports whether the reviewer is assigned to any proposal or has a
// recorded review grade. Grades outlive roster replacement, so both tables
// are checked.
func (r *ReviewerRepository) InUse(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM proposal_reviewers WHERE reviewer_id = $1)
        OR EXISTS (SELECT 1 FROM review_grades WHERE reviewer_id = $1)`
	var used bool
	if err := r.db.GetContext(ctx, &used, query, id); err != nil {
		return false, fmt.Errorf("check reviewer usage: %w", err)
	}
	return used, nil
}

// Delete removes a reviewer. Callers guard against in-use reviewers first.
func (r *ReviewerRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM reviewers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete reviewer: %w", err)
	}
	return nil
}
