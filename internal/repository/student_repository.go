package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openacademia/research-track-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentDetailColumns = `s.id, s.reg_no, s.full_name, s.email, s.phone, s.school_id, s.campus_id,
        s.supervisor_id, s.field_letter_date, s.active, s.created_at, s.updated_at,
        sc.name AS school_name, ca.name AS campus_name, u.full_name AS supervisor_name,
        sd.name AS current_status, sr.start_date AS current_status_date`

const studentDetailJoins = `FROM students s
        JOIN schools sc ON sc.id = s.school_id
        JOIN campuses ca ON ca.id = s.campus_id
        LEFT JOIN users u ON u.id = s.supervisor_id
        LEFT JOIN status_records sr ON sr.owner_kind = 'STUDENT' AND sr.owner_id = s.id AND sr.is_current = TRUE
        LEFT JOIN status_definitions sd ON sd.id = sr.definition_id`

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := studentDetailJoins
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("s.school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.CampusID != "" {
		conditions = append(conditions, fmt.Sprintf("s.campus_id = $%d", len(args)+1))
		args = append(args, filter.CampusID)
	}
	if filter.StatusID != "" {
		conditions = append(conditions, fmt.Sprintf("sr.definition_id = $%d", len(args)+1))
		args = append(args, filter.StatusID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.full_name) LIKE $%d OR LOWER(s.reg_no) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"full_name":  "s.full_name",
		"reg_no":     "s.reg_no",
		"created_at": "s.created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		studentDetailColumns, base, column, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(DISTINCT s.id) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student detail by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE s.id = $1`, studentDetailColumns, studentDetailJoins)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByRegNo checks if a student with the registration number exists,
// optionally excluding an ID.
func (r *StudentRepository) ExistsByRegNo(ctx context.Context, regNo string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE reg_no = $1"
	args := []interface{}{regNo}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check reg no: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, reg_no, full_name, email, phone, school_id, campus_id, supervisor_id, field_letter_date, active, created_at, updated_at)
        VALUES (:id, :reg_no, :full_name, :email, :phone, :school_id, :campus_id, :supervisor_id, :field_letter_date, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET reg_no = :reg_no, full_name = :full_name, email = :email, phone = :phone,
        school_id = :school_id, campus_id = :campus_id, supervisor_id = :supervisor_id,
        field_letter_date = :field_letter_date, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// SetSupervisor assigns or reassigns the student's supervisor.
func (r *StudentRepository) SetSupervisor(ctx context.Context, studentID string, supervisorID *string) error {
	const query = `UPDATE students SET supervisor_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, studentID, supervisorID, time.Now().UTC()); err != nil {
		return fmt.Errorf("set supervisor: %w", err)
	}
	return nil
}

// SetFieldLetterDate records the date the letter to the field was issued.
func (r *StudentRepository) SetFieldLetterDate(ctx context.Context, studentID string, issued time.Time) error {
	const query = `UPDATE students SET field_letter_date = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, studentID, issued, time.Now().UTC()); err != nil {
		return fmt.Errorf("set field letter date: %w", err)
	}
	return nil
}

// Deactivate marks a student as inactive.
func (r *StudentRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE students SET active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	return nil
}
