package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openacademia/research-track-api/internal/models"
)

// StatusRecordRepository manages owner timelines in the status_records table.
type StatusRecordRepository struct {
	db *sqlx.DB
}

// NewStatusRecordRepository constructs a StatusRecordRepository.
func NewStatusRecordRepository(db *sqlx.DB) *StatusRecordRepository {
	return &StatusRecordRepository{db: db}
}

const closeCurrentQuery = `UPDATE status_records
        SET end_date = $1, is_current = FALSE, updated_by = COALESCE($2, updated_by)
        WHERE owner_kind = $3 AND owner_id = $4 AND is_current = TRUE`

const insertRecordQuery = `INSERT INTO status_records
        (id, owner_kind, owner_id, definition_id, start_date, end_date, is_current, is_active, updated_by, created_at)
        VALUES (:id, :owner_kind, :owner_id, :definition_id, :start_date, :end_date, :is_current, :is_active, :updated_by, :created_at)`

// Transition applies every step of one business event in a single
// transaction. Each step closes the owner's current record, then opens a
// new one unless the step is close-only. Instant steps open the record
// already ended so the stage appears in history without becoming current.
func (r *StatusRecordRepository) Transition(ctx context.Context, steps []models.TransitionStep) error {
	if len(steps) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, closeCurrentQuery, now, step.UpdatedBy, step.Owner.Kind, step.Owner.ID); err != nil {
			return fmt.Errorf("close current status for %s %s: %w", step.Owner.Kind, step.Owner.ID, err)
		}
		if step.CloseOnly {
			continue
		}
		record := models.StatusRecord{
			ID:           uuid.NewString(),
			OwnerKind:    step.Owner.Kind,
			OwnerID:      step.Owner.ID,
			DefinitionID: step.DefinitionID,
			StartDate:    now,
			IsCurrent:    true,
			IsActive:     true,
			UpdatedBy:    step.UpdatedBy,
			CreatedAt:    now,
		}
		if step.Instant {
			end := now
			record.EndDate = &end
			record.IsCurrent = false
		}
		if _, err := tx.NamedExecContext(ctx, insertRecordQuery, &record); err != nil {
			return fmt.Errorf("open status for %s %s: %w", step.Owner.Kind, step.Owner.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}

// CloseCurrent ends the owner's current record without opening a new one.
func (r *StatusRecordRepository) CloseCurrent(ctx context.Context, owner models.StatusOwner, updatedBy *string) error {
	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, closeCurrentQuery, now, updatedBy, owner.Kind, owner.ID); err != nil {
		return fmt.Errorf("close current status: %w", err)
	}
	return nil
}

// CurrentByOwner returns the owner's current record, or sql.ErrNoRows when
// the timeline has no open record.
func (r *StatusRecordRepository) CurrentByOwner(ctx context.Context, owner models.StatusOwner) (*models.StatusHistoryEntry, error) {
	const query = `SELECT sr.id, sr.owner_kind, sr.owner_id, sr.definition_id, sr.start_date, sr.end_date,
            sr.is_current, sr.is_active, sr.updated_by, sr.created_at,
            sd.name AS definition_name, sd.expected_days, sd.color
        FROM status_records sr
        JOIN status_definitions sd ON sd.id = sr.definition_id
        WHERE sr.owner_kind = $1 AND sr.owner_id = $2 AND sr.is_current = TRUE`
	var entry models.StatusHistoryEntry
	if err := r.db.GetContext(ctx, &entry, query, owner.Kind, owner.ID); err != nil {
		return nil, err
	}
	return &entry, nil
}

// History returns the owner's timeline newest-first, definitions joined in.
func (r *StatusRecordRepository) History(ctx context.Context, owner models.StatusOwner) ([]models.StatusHistoryEntry, error) {
	const query = `SELECT sr.id, sr.owner_kind, sr.owner_id, sr.definition_id, sr.start_date, sr.end_date,
            sr.is_current, sr.is_active, sr.updated_by, sr.created_at,
            sd.name AS definition_name, sd.expected_days, sd.color
        FROM status_records sr
        JOIN status_definitions sd ON sd.id = sr.definition_id
        WHERE sr.owner_kind = $1 AND sr.owner_id = $2
        ORDER BY sr.start_date DESC, sr.created_at DESC`
	var entries []models.StatusHistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, owner.Kind, owner.ID); err != nil {
		return nil, fmt.Errorf("load status history: %w", err)
	}
	return entries, nil
}

// HasDefinitionInHistory reports whether the owner's timeline ever carried
// the named status.
func (r *StatusRecordRepository) HasDefinitionInHistory(ctx context.Context, owner models.StatusOwner, definitionName string) (bool, error) {
	const query = `SELECT EXISTS (
            SELECT 1 FROM status_records sr
            JOIN status_definitions sd ON sd.id = sr.definition_id
            WHERE sr.owner_kind = $1 AND sr.owner_id = $2 AND sd.name = $3)`
	var found bool
	if err := r.db.GetContext(ctx, &found, query, owner.Kind, owner.ID, CanonicalStatusName(definitionName)); err != nil {
		return false, fmt.Errorf("check status history: %w", err)
	}
	return found, nil
}

// CurrentDefinitionName is a convenience lookup for guard checks. Returns
// an empty string when the owner has no current record.
func (r *StatusRecordRepository) CurrentDefinitionName(ctx context.Context, owner models.StatusOwner) (string, error) {
	entry, err := r.CurrentByOwner(ctx, owner)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return entry.DefinitionName, nil
}
