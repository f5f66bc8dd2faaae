package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openacademia/research-track-api/internal/models"
)

// SchoolRepository manages schools and their campuses.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs a SchoolRepository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// ListSchools returns all schools ordered by name.
func (r *SchoolRepository) ListSchools(ctx context.Context) ([]models.School, error) {
	const query = `SELECT id, name, created_at, updated_at FROM schools ORDER BY name ASC`
	var schools []models.School
	if err := r.db.SelectContext(ctx, &schools, query); err != nil {
		return nil, fmt.Errorf("list schools: %w", err)
	}
	return schools, nil
}

// FindSchoolByID fetches a school by id.
func (r *SchoolRepository) FindSchoolByID(ctx context.Context, id string) (*models.School, error) {
	const query = `SELECT id, name, created_at, updated_at FROM schools WHERE id = $1`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		return nil, err
	}
	return &school, nil
}

// CreateSchool inserts a new school.
func (r *SchoolRepository) CreateSchool(ctx context.Context, school *models.School) error {
	if school.ID == "" {
		school.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if school.CreatedAt.IsZero() {
		school.CreatedAt = now
	}
	school.UpdatedAt = now
	const query = `INSERT INTO schools (id, name, created_at, updated_at)
        VALUES (:id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, school); err != nil {
		return fmt.Errorf("create school: %w", err)
	}
	return nil
}

// ListCampuses returns campuses, optionally scoped to one school.
func (r *SchoolRepository) ListCampuses(ctx context.Context, schoolID string) ([]models.Campus, error) {
	query := `SELECT id, school_id, name, created_at, updated_at FROM campuses`
	args := []interface{}{}
	if schoolID != "" {
		query += " WHERE school_id = $1"
		args = append(args, schoolID)
	}
	query += " ORDER BY name ASC"
	var campuses []models.Campus
	if err := r.db.SelectContext(ctx, &campuses, query, args...); err != nil {
		return nil, fmt.Errorf("list campuses: %w", err)
	}
	return campuses, nil
}

// FindCampusByID fetches a campus by id.
func (r *SchoolRepository) FindCampusByID(ctx context.Context, id string) (*models.Campus, error) {
	const query = `SELECT id, school_id, name, created_at, updated_at FROM campuses WHERE id = $1`
	var campus models.Campus
	if err := r.db.GetContext(ctx, &campus, query, id); err != nil {
		return nil, err
	}
	return &campus, nil
}

// CreateCampus inserts a new campus under a school.
func (r *SchoolRepository) CreateCampus(ctx context.Context, campus *models.Campus) error {
	if campus.ID == "" {
		campus.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if campus.CreatedAt.IsZero() {
		campus.CreatedAt = now
	}
	campus.UpdatedAt = now
	const query = `INSERT INTO campuses (id, school_id, name, created_at, updated_at)
        VALUES (:id, :school_id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, campus); err != nil {
		return fmt.Errorf("create campus: %w", err)
	}
	return nil
}
