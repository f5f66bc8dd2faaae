package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openacademia/research-track-api/internal/models"
)

// ReportRepository loads delay-report source rows and tracks export jobs.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs a ReportRepository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// DelayRows returns one row per active student with a current status,
// optionally scoped to one school. Elapsed and overdue day counts are
// computed by the service layer.
func (r *ReportRepository) DelayRows(ctx context.Context, schoolID string) ([]models.DelayReportRow, error) {
	query := `SELECT s.id AS student_id, s.reg_no, s.full_name, sc.name AS school_name,
            sd.name AS status_name, sr.start_date, sd.expected_days
        FROM students s
        JOIN schools sc ON sc.id = s.school_id
        JOIN status_records sr ON sr.owner_kind = 'STUDENT' AND sr.owner_id = s.id AND sr.is_current = TRUE
        JOIN status_definitions sd ON sd.id = sr.definition_id
        WHERE s.active = TRUE`
	args := []interface{}{}
	if schoolID != "" {
		query += " AND s.school_id = $1"
		args = append(args, schoolID)
	}
	query += " ORDER BY sc.name ASC, s.full_name ASC"
	var rows []models.DelayReportRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("load delay rows: %w", err)
	}
	return rows, nil
}

// CreateJob inserts a pending export job.
func (r *ReportRepository) CreateJob(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = models.ReportJobPending
	}
	const query = `INSERT INTO report_jobs (id, type, format, status, file_path, error, requested_by, created_at, updated_at)
        VALUES (:id, :type, :format, :status, :file_path, :error, :requested_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// FindJob fetches an export job by id.
func (r *ReportRepository) FindJob(ctx context.Context, id string) (*models.ReportJob, error) {
	const query = `SELECT id, type, format, status, file_path, error, requested_by, created_at, updated_at
        FROM report_jobs WHERE id = $1`
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateJobStatus moves a job through its lifecycle, recording the output
// path on success or the failure message.
func (r *ReportRepository) UpdateJobStatus(ctx context.Context, id string, status models.ReportJobStatus, filePath, errMsg *string) error {
	const query = `UPDATE report_jobs SET status = $2, file_path = COALESCE($3, file_path), error = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, filePath, errMsg, time.Now().UTC()); err != nil {
		return fmt.Errorf("update report job: %w", err)
	}
	return nil
}
