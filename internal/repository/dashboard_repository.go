package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/openacademia/research-track-api/internal/models"
)

// DashboardRepository aggregates cross-entity counts for the dashboard and
// the consistency reconciliation endpoint.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs a DashboardRepository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// StatusDistribution counts active students per current status, optionally
// scoped to one school.
func (r *DashboardRepository) StatusDistribution(ctx context.Context, schoolID string) ([]models.StatusCount, error) {
	query := `SELECT sd.name AS status_name, COUNT(*) AS count
        FROM students s
        JOIN status_records sr ON sr.owner_kind = 'STUDENT' AND sr.owner_id = s.id AND sr.is_current = TRUE
        JOIN status_definitions sd ON sd.id = sr.definition_id
        WHERE s.active = TRUE`
	args := []interface{}{}
	if schoolID != "" {
		query += " AND s.school_id = $1"
		args = append(args, schoolID)
	}
	query += " GROUP BY sd.name ORDER BY count DESC, sd.name ASC"
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("status distribution: %w", err)
	}
	return counts, nil
}

// SchoolSummaries counts active and overdue students per school. A student
// is overdue when their current status has run past its expected days.
func (r *DashboardRepository) SchoolSummaries(ctx context.Context) ([]models.SchoolSummary, error) {
	const query = `SELECT sc.id AS school_id, sc.name AS school_name,
            COUNT(s.id) AS student_count,
            COUNT(s.id) FILTER (WHERE sd.expected_days > 0
                AND sr.start_date < NOW() - make_interval(days => sd.expected_days)) AS delayed_count
        FROM schools sc
        LEFT JOIN students s ON s.school_id = sc.id AND s.active = TRUE
        LEFT JOIN status_records sr ON sr.owner_kind = 'STUDENT' AND sr.owner_id = s.id AND sr.is_current = TRUE
        LEFT JOIN status_definitions sd ON sd.id = sr.definition_id
        GROUP BY sc.id, sc.name
        ORDER BY sc.name ASC`
	var summaries []models.SchoolSummary
	if err := r.db.SelectContext(ctx, &summaries, query); err != nil {
		return nil, fmt.Errorf("school summaries: %w", err)
	}
	return summaries, nil
}

// OwnersWithoutCurrent lists timeline owners that have history but no
// current record. These indicate an interrupted transition.
func (r *DashboardRepository) OwnersWithoutCurrent(ctx context.Context) ([]models.OrphanedOwner, error) {
	const query = `SELECT owner_kind, owner_id FROM status_records
        GROUP BY owner_kind, owner_id
        HAVING COUNT(*) FILTER (WHERE is_current) = 0
        ORDER BY owner_kind ASC, owner_id ASC`
	var owners []models.OrphanedOwner
	if err := r.db.SelectContext(ctx, &owners, query); err != nil {
		return nil, fmt.Errorf("owners without current status: %w", err)
	}
	return owners, nil
}
