package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRosterMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestReviewerInUseChecksAssignmentsAndGrades(t *testing.T) {
	db, mock, cleanup := newRosterMock(t)
	defer cleanup()
	repo := NewReviewerRepository(db)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM proposal_reviewers WHERE reviewer_id = \$1\)\s*OR EXISTS \(SELECT 1 FROM review_grades WHERE reviewer_id = \$1\)`).
		WithArgs("rev-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	used, err := repo.InUse(context.Background(), "rev-1")
	require.NoError(t, err)
	assert.True(t, used)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPanelistInUseChecksPanelsAndGrades(t *testing.T) {
	db, mock, cleanup := newRosterMock(t)
	defer cleanup()
	repo := NewPanelistRepository(db)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM proposal_panelists WHERE panelist_id = \$1\)\s*OR EXISTS \(SELECT 1 FROM defense_grades WHERE panelist_id = \$1\)`).
		WithArgs("pan-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	used, err := repo.InUse(context.Background(), "pan-1")
	require.NoError(t, err)
	assert.False(t, used)
	assert.NoError(t, mock.ExpectationsWereMet())
}
