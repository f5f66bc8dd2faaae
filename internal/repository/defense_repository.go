package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openacademia/research-track-api/internal/models"
)

// DefenseRepository manages proposal defense sittings.
type DefenseRepository struct {
	db *sqlx.DB
}

// NewDefenseRepository constructs a DefenseRepository.
func NewDefenseRepository(db *sqlx.DB) *DefenseRepository {
	return &DefenseRepository{db: db}
}

// Schedule opens a new sitting for the proposal. The attempt number is
// one past the highest existing attempt and any prior current sitting is
// demoted in the same transaction.
func (r *DefenseRepository) Schedule(ctx context.Context, defense *models.ProposalDefense) error {
	if defense.ID == "" {
		defense.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if defense.CreatedAt.IsZero() {
		defense.CreatedAt = now
	}
	defense.UpdatedAt = now
	defense.Status = models.DefenseStatusScheduled
	defense.IsCurrent = true

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule defense: %w", err)
	}
	defer tx.Rollback()

	const demote = `UPDATE proposal_defenses SET is_current = FALSE, updated_at = $2 WHERE proposal_id = $1 AND is_current = TRUE`
	if _, err := tx.ExecContext(ctx, demote, defense.ProposalID, now); err != nil {
		return fmt.Errorf("demote current defense: %w", err)
	}

	const nextAttempt = `SELECT COALESCE(MAX(attempt), 0) + 1 FROM proposal_defenses WHERE proposal_id = $1`
	if err := tx.GetContext(ctx, &defense.Attempt, nextAttempt, defense.ProposalID); err != nil {
		return fmt.Errorf("next defense attempt: %w", err)
	}

	const insert = `INSERT INTO proposal_defenses (id, proposal_id, attempt, scheduled_date, verdict, status, is_current, created_at, updated_at)
        VALUES (:id, :proposal_id, :attempt, :scheduled_date, :verdict, :status, :is_current, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, defense); err != nil {
		return fmt.Errorf("schedule defense: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule defense: %w", err)
	}
	return nil
}

// CurrentByProposal returns the proposal's current sitting, or sql.ErrNoRows.
func (r *DefenseRepository) CurrentByProposal(ctx context.Context, proposalID string) (*models.ProposalDefense, error) {
	const query = `SELECT id, proposal_id, attempt, scheduled_date, verdict, status, is_current, created_at, updated_at
        FROM proposal_defenses WHERE proposal_id = $1 AND is_current = TRUE`
	var defense models.ProposalDefense
	if err := r.db.GetContext(ctx, &defense, query, proposalID); err != nil {
		return nil, err
	}
	return &defense, nil
}

// ListByProposal returns all sittings of a proposal, oldest attempt first.
func (r *DefenseRepository) ListByProposal(ctx context.Context, proposalID string) ([]models.ProposalDefense, error) {
	const query = `SELECT id, proposal_id, attempt, scheduled_date, verdict, status, is_current, created_at, updated_at
        FROM proposal_defenses WHERE proposal_id = $1 ORDER BY attempt ASC`
	var defenses []models.ProposalDefense
	if err := r.db.SelectContext(ctx, &defenses, query, proposalID); err != nil {
		return nil, fmt.Errorf("list defenses: %w", err)
	}
	return defenses, nil
}

// RecordVerdict stores the panel's outcome and derived status on a sitting.
func (r *DefenseRepository) RecordVerdict(ctx context.Context, defenseID string, verdict models.DefenseVerdict, status models.DefenseStatus) error {
	const query = `UPDATE proposal_defenses SET verdict = $2, status = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, defenseID, verdict, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("record defense verdict: %w", err)
	}
	return nil
}
