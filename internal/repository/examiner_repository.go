package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openacademia/research-track-api/internal/models"
)

// ExaminerRepository manages examiners and their book assignments.
type ExaminerRepository struct {
	db *sqlx.DB
}

// NewExaminerRepository constructs an ExaminerRepository.
func NewExaminerRepository(db *sqlx.DB) *ExaminerRepository {
	return &ExaminerRepository{db: db}
}

// List returns examiners, optionally scoped to one campus.
func (r *ExaminerRepository) List(ctx context.Context, campusID string) ([]models.Examiner, error) {
	query := `SELECT id, campus_id, full_name, email, type, created_at, updated_at FROM examiners`
	args := []interface{}{}
	if campusID != "" {
		query += " WHERE campus_id = $1"
		args = append(args, campusID)
	}
	query += " ORDER BY full_name ASC"
	var examiners []models.Examiner
	if err := r.db.SelectContext(ctx, &examiners, query, args...); err != nil {
		return nil, fmt.Errorf("list examiners: %w", err)
	}
	return examiners, nil
}

// FindByID fetches an examiner by id.
func (r *ExaminerRepository) FindByID(ctx context.Context, id string) (*models.Examiner, error) {
	const query = `SELECT id, campus_id, full_name, email, type, created_at, updated_at FROM examiners WHERE id = $1`
	var examiner models.Examiner
	if err := r.db.GetContext(ctx, &examiner, query, id); err != nil {
		return nil, err
	}
	return &examiner, nil
}

// Create inserts a new examiner.
func (r *ExaminerRepository) Create(ctx context.Context, examiner *models.Examiner) error {
	if examiner.ID == "" {
		examiner.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if examiner.CreatedAt.IsZero() {
		examiner.CreatedAt = now
	}
	examiner.UpdatedAt = now
	const query = `INSERT INTO examiners (id, campus_id, full_name, email, type, created_at, updated_at)
        VALUES (:id, :campus_id, :full_name, :email, :type, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, examiner); err != nil {
		return fmt.Errorf("create examiner: %w", err)
	}
	return nil
}

// Update modifies an existing examiner.
func (r *ExaminerRepository) Update(ctx context.Context, examiner *models.Examiner) error {
	examiner.UpdatedAt = time.Now().UTC()
	const query = `UPDATE examiners SET campus_id = :campus_id, full_name = :full_name, email = :email, type = :type, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, examiner); err != nil {
		return fmt.Errorf("update examiner: %w", err)
	}
	return nil
}

// InUse reports whether the examiner has any book assignment.
func (r *ExaminerRepository) InUse(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM examiner_book_assignments WHERE examiner_id = $1)`
	var used bool
	if err := r.db.GetContext(ctx, &used, query, id); err != nil {
		return false, fmt.Errorf("check examiner usage: %w", err)
	}
	return used, nil
}

// Delete removes an examiner. Callers guard against in-use examiners first.
func (r *ExaminerRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM examiners WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete examiner: %w", err)
	}
	return nil
}

// AssignToBook creates fresh assignments for a book. Existing current
// assignments for the same book are superseded, never overwritten, so the
// grades of earlier rounds survive resubmission.
func (r *ExaminerRepository) AssignToBook(ctx context.Context, bookID string, examinerIDs []string, submission models.SubmissionType) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assign examiners: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	const supersede = `UPDATE examiner_book_assignments SET is_current = FALSE, updated_at = $2 WHERE book_id = $1 AND is_current = TRUE`
	if _, err := tx.ExecContext(ctx, supersede, bookID, now); err != nil {
		return fmt.Errorf("supersede assignments: %w", err)
	}

	const insert = `INSERT INTO examiner_book_assignments
        (id, book_id, examiner_id, grade, feedback, status, submission_type, is_current, created_at, updated_at)
        VALUES ($1, $2, $3, NULL, '', $4, $5, TRUE, $6, $6)`
	for _, examinerID := range examinerIDs {
		if _, err := tx.ExecContext(ctx, insert, uuid.NewString(), bookID, examinerID, models.AssignmentPending, submission, now); err != nil {
			return fmt.Errorf("assign examiner %s: %w", examinerID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assign examiners: %w", err)
	}
	return nil
}

// CurrentAssignments returns the book's current assignments with examiner
// identity joined in.
func (r *ExaminerRepository) CurrentAssignments(ctx context.Context, bookID string) ([]models.ExaminerAssignmentDetail, error) {
	const query = `SELECT a.id, a.book_id, a.examiner_id, a.grade, a.feedback, a.status, a.submission_type,
            a.is_current, a.created_at, a.updated_at,
            e.full_name AS examiner_name, e.type AS examiner_type
        FROM examiner_book_assignments a
        JOIN examiners e ON e.id = a.examiner_id
        WHERE a.book_id = $1 AND a.is_current = TRUE
        ORDER BY e.full_name ASC`
	var assignments []models.ExaminerAssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, bookID); err != nil {
		return nil, fmt.Errorf("list current assignments: %w", err)
	}
	return assignments, nil
}

// AllAssignments returns every assignment round for a book, oldest first.
func (r *ExaminerRepository) AllAssignments(ctx context.Context, bookID string) ([]models.ExaminerAssignmentDetail, error) {
	const query = `SELECT a.id, a.book_id, a.examiner_id, a.grade, a.feedback, a.status, a.submission_type,
            a.is_current, a.created_at, a.updated_at,
            e.full_name AS examiner_name, e.type AS examiner_type
        FROM examiner_book_assignments a
        JOIN examiners e ON e.id = a.examiner_id
        WHERE a.book_id = $1
        ORDER BY a.created_at ASC, e.full_name ASC`
	var assignments []models.ExaminerAssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, bookID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// CurrentAssignment returns the current assignment binding one examiner to
// one book, or sql.ErrNoRows.
func (r *ExaminerRepository) CurrentAssignment(ctx context.Context, bookID, examinerID string) (*models.ExaminerBookAssignment, error) {
	const query = `SELECT id, book_id, examiner_id, grade, feedback, status, submission_type, is_current, created_at, updated_at
        FROM examiner_book_assignments WHERE book_id = $1 AND examiner_id = $2 AND is_current = TRUE`
	var assignment models.ExaminerBookAssignment
	if err := r.db.GetContext(ctx, &assignment, query, bookID, examinerID); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// RecordGrade stores one examiner's mark, feedback and derived status on a
// current assignment.
func (r *ExaminerRepository) RecordGrade(ctx context.Context, assignmentID string, grade float64, feedback string, status models.AssignmentStatus) error {
	const query = `UPDATE examiner_book_assignments SET grade = $2, feedback = $3, status = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, assignmentID, grade, feedback, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("record examiner grade: %w", err)
	}
	return nil
}
