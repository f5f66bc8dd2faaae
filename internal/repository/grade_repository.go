package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openacademia/research-track-api/internal/models"
)

// GradeRepository manages review and defense grades.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs a GradeRepository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// UpsertReviewGrade inserts or replaces one reviewer's grade for a proposal.
func (r *GradeRepository) UpsertReviewGrade(ctx context.Context, grade *models.ReviewGrade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	grade.UpdatedAt = now
	const query = `INSERT INTO review_grades (id, proposal_id, reviewer_id, mark, verdict, feedback, created_at, updated_at)
        VALUES (:id, :proposal_id, :reviewer_id, :mark, :verdict, :feedback, :created_at, :updated_at)
        ON CONFLICT (proposal_id, reviewer_id) DO UPDATE
        SET mark = EXCLUDED.mark, verdict = EXCLUDED.verdict, feedback = EXCLUDED.feedback, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("upsert review grade: %w", err)
	}
	return nil
}

// ReviewGradesByProposal lists all reviewer grades for a proposal.
func (r *GradeRepository) ReviewGradesByProposal(ctx context.Context, proposalID string) ([]models.ReviewGrade, error) {
	const query = `SELECT id, proposal_id, reviewer_id, mark, verdict, feedback, created_at, updated_at
        FROM review_grades WHERE proposal_id = $1 ORDER BY created_at ASC`
	var grades []models.ReviewGrade
	if err := r.db.SelectContext(ctx, &grades, query, proposalID); err != nil {
		return nil, fmt.Errorf("list review grades: %w", err)
	}
	return grades, nil
}

// CountReviewGrades returns how many reviewers have graded the proposal.
func (r *GradeRepository) CountReviewGrades(ctx context.Context, proposalID string) (int, error) {
	const query = `SELECT COUNT(*) FROM review_grades WHERE proposal_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, proposalID); err != nil {
		return 0, fmt.Errorf("count review grades: %w", err)
	}
	return count, nil
}

// UpsertDefenseGrade inserts or replaces one panelist's grade for a proposal.
func (r *GradeRepository) UpsertDefenseGrade(ctx context.Context, grade *models.DefenseGrade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	grade.UpdatedAt = now
	const query = `INSERT INTO defense_grades (id, proposal_id, panelist_id, mark, created_at, updated_at)
        VALUES (:id, :proposal_id, :panelist_id, :mark, :created_at, :updated_at)
        ON CONFLICT (proposal_id, panelist_id) DO UPDATE
        SET mark = EXCLUDED.mark, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("upsert defense grade: %w", err)
	}
	return nil
}

// DefenseGradesByProposal lists all panelist grades for a proposal.
func (r *GradeRepository) DefenseGradesByProposal(ctx context.Context, proposalID string) ([]models.DefenseGrade, error) {
	const query = `SELECT id, proposal_id, panelist_id, mark, created_at, updated_at
        FROM defense_grades WHERE proposal_id = $1 ORDER BY created_at ASC`
	var grades []models.DefenseGrade
	if err := r.db.SelectContext(ctx, &grades, query, proposalID); err != nil {
		return nil, fmt.Errorf("list defense grades: %w", err)
	}
	return grades, nil
}
