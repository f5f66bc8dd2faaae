package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openacademia/research-track-api/internal/models"
)

// ProposalRepository manages proposals and their reviewer and panelist
// assignments.
type ProposalRepository struct {
	db *sqlx.DB
}

// NewProposalRepository constructs a ProposalRepository.
func NewProposalRepository(db *sqlx.DB) *ProposalRepository {
	return &ProposalRepository{db: db}
}

// Create inserts a new proposal, demoting the student's previous current
// proposal in the same transaction.
func (r *ProposalRepository) Create(ctx context.Context, proposal *models.Proposal) error {
	if proposal.ID == "" {
		proposal.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if proposal.CreatedAt.IsZero() {
		proposal.CreatedAt = now
	}
	if proposal.SubmittedAt.IsZero() {
		proposal.SubmittedAt = now
	}
	proposal.UpdatedAt = now
	proposal.IsCurrent = true

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create proposal: %w", err)
	}
	defer tx.Rollback()

	const demote = `UPDATE proposals SET is_current = FALSE, updated_at = $2 WHERE student_id = $1 AND is_current = TRUE`
	if _, err := tx.ExecContext(ctx, demote, proposal.StudentID, now); err != nil {
		return fmt.Errorf("demote current proposal: %w", err)
	}
	const insert = `INSERT INTO proposals (id, student_id, title, is_current, review_finished, average_defense_mark, submitted_at, created_at, updated_at)
        VALUES (:id, :student_id, :title, :is_current, :review_finished, :average_defense_mark, :submitted_at, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, proposal); err != nil {
		return fmt.Errorf("create proposal: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create proposal: %w", err)
	}
	return nil
}

// FindByID fetches a proposal by id.
func (r *ProposalRepository) FindByID(ctx context.Context, id string) (*models.Proposal, error) {
	const query = `SELECT id, student_id, title, is_current, review_finished, average_defense_mark, submitted_at, created_at, updated_at
        FROM proposals WHERE id = $1`
	var proposal models.Proposal
	if err := r.db.GetContext(ctx, &proposal, query, id); err != nil {
		return nil, err
	}
	return &proposal, nil
}

// CurrentByStudent returns the student's current proposal, or sql.ErrNoRows.
func (r *ProposalRepository) CurrentByStudent(ctx context.Context, studentID string) (*models.Proposal, error) {
	const query = `SELECT id, student_id, title, is_current, review_finished, average_defense_mark, submitted_at, created_at, updated_at
        FROM proposals WHERE student_id = $1 AND is_current = TRUE`
	var proposal models.Proposal
	if err := r.db.GetContext(ctx, &proposal, query, studentID); err != nil {
		return nil, err
	}
	return &proposal, nil
}

// ListByStudent returns all proposals of a student newest-first.
func (r *ProposalRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Proposal, error) {
	const query = `SELECT id, student_id, title, is_current, review_finished, average_defense_mark, submitted_at, created_at, updated_at
        FROM proposals WHERE student_id = $1 ORDER BY submitted_at DESC`
	var proposals []models.Proposal
	if err := r.db.SelectContext(ctx, &proposals, query, studentID); err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	return proposals, nil
}

// SetReviewFinished flips the review_finished flag.
func (r *ProposalRepository) SetReviewFinished(ctx context.Context, proposalID string, finished bool) error {
	const query = `UPDATE proposals SET review_finished = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, proposalID, finished, time.Now().UTC()); err != nil {
		return fmt.Errorf("set review finished: %w", err)
	}
	return nil
}

// SetAverageDefenseMark stores the computed defense average.
func (r *ProposalRepository) SetAverageDefenseMark(ctx context.Context, proposalID string, avg float64) error {
	const query = `UPDATE proposals SET average_defense_mark = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, proposalID, avg, time.Now().UTC()); err != nil {
		return fmt.Errorf("set average defense mark: %w", err)
	}
	return nil
}

// MarkNotCurrent demotes a proposal without creating a successor.
func (r *ProposalRepository) MarkNotCurrent(ctx context.Context, proposalID string) error {
	const query = `UPDATE proposals SET is_current = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, proposalID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark proposal not current: %w", err)
	}
	return nil
}

// ReplaceReviewers resets the proposal's reviewer set.
func (r *ProposalRepository) ReplaceReviewers(ctx context.Context, proposalID string, reviewerIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace reviewers: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM proposal_reviewers WHERE proposal_id = $1`, proposalID); err != nil {
		return fmt.Errorf("clear reviewers: %w", err)
	}
	const insert = `INSERT INTO proposal_reviewers (proposal_id, reviewer_id, created_at) VALUES ($1, $2, $3)`
	now := time.Now().UTC()
	for _, reviewerID := range reviewerIDs {
		if _, err := tx.ExecContext(ctx, insert, proposalID, reviewerID, now); err != nil {
			return fmt.Errorf("assign reviewer %s: %w", reviewerID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace reviewers: %w", err)
	}
	return nil
}

// ReplacePanelists resets the proposal's defense panel.
func (r *ProposalRepository) ReplacePanelists(ctx context.Context, proposalID string, panelistIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace panelists: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM proposal_panelists WHERE proposal_id = $1`, proposalID); err != nil {
		return fmt.Errorf("clear panelists: %w", err)
	}
	const insert = `INSERT INTO proposal_panelists (proposal_id, panelist_id, created_at) VALUES ($1, $2, $3)`
	now := time.Now().UTC()
	for _, panelistID := range panelistIDs {
		if _, err := tx.ExecContext(ctx, insert, proposalID, panelistID, now); err != nil {
			return fmt.Errorf("assign panelist %s: %w", panelistID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace panelists: %w", err)
	}
	return nil
}

// Reviewers returns the reviewers assigned to a proposal.
func (r *ProposalRepository) Reviewers(ctx context.Context, proposalID string) ([]models.Reviewer, error) {
	const query = `SELECT rv.id, rv.campus_id, rv.full_name, rv.email, rv.created_at, rv.updated_at
        FROM reviewers rv
        JOIN proposal_reviewers pr ON pr.reviewer_id = rv.id
        WHERE pr.proposal_id = $1 ORDER BY rv.full_name ASC`
	var reviewers []models.Reviewer
	if err := r.db.SelectContext(ctx, &reviewers, query, proposalID); err != nil {
		return nil, fmt.Errorf("list proposal reviewers: %w", err)
	}
	return reviewers, nil
}

// Panelists returns the panelists assigned to a proposal.
func (r *ProposalRepository) Panelists(ctx context.Context, proposalID string) ([]models.Panelist, error) {
	const query = `SELECT pl.id, pl.campus_id, pl.full_name, pl.email, pl.created_at, pl.updated_at
        FROM panelists pl
        JOIN proposal_panelists pp ON pp.panelist_id = pl.id
        WHERE pp.proposal_id = $1 ORDER BY pl.full_name ASC`
	var panelists []models.Panelist
	if err := r.db.SelectContext(ctx, &panelists, query, proposalID); err != nil {
		return nil, fmt.Errorf("list proposal panelists: %w", err)
	}
	return panelists, nil
}

// IsReviewerAssigned checks membership in the proposal's reviewer set.
func (r *ProposalRepository) IsReviewerAssigned(ctx context.Context, proposalID, reviewerID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM proposal_reviewers WHERE proposal_id = $1 AND reviewer_id = $2)`
	var assigned bool
	if err := r.db.GetContext(ctx, &assigned, query, proposalID, reviewerID); err != nil {
		return false, fmt.Errorf("check reviewer assignment: %w", err)
	}
	return assigned, nil
}

// IsPanelistAssigned checks membership in the proposal's defense panel.
func (r *ProposalRepository) IsPanelistAssigned(ctx context.Context, proposalID, panelistID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM proposal_panelists WHERE proposal_id = $1 AND panelist_id = $2)`
	var assigned bool
	if err := r.db.GetContext(ctx, &assigned, query, proposalID, panelistID); err != nil {
		return false, fmt.Errorf("check panelist assignment: %w", err)
	}
	return assigned, nil
}
