package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openacademia/research-track-api/internal/models"
)

func newStatusDefinitionMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCanonicalStatusName(t *testing.T) {
	assert.Equal(t, "proposal received", CanonicalStatusName("  Proposal Received "))
	assert.Equal(t, "fieldwork", CanonicalStatusName("FIELDWORK"))
}

func TestStatusDefinitionRepositoryFindByNameNormalizes(t *testing.T) {
	db, mock, cleanup := newStatusDefinitionMock(t)
	defer cleanup()
	repo := NewStatusDefinitionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "description", "expected_days", "color", "created_at", "updated_at"}).
		AddRow("def-1", "fieldwork", "Student collecting data", 180, "#00AA00", now, now)
	mock.ExpectQuery("SELECT id, name, description").
		WithArgs("fieldwork").
		WillReturnRows(rows)

	def, err := repo.FindByName(context.Background(), "  FieldWork ")
	require.NoError(t, err)
	assert.Equal(t, "def-1", def.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusDefinitionRepositoryFindByNameMissing(t *testing.T) {
	db, mock, cleanup := newStatusDefinitionMock(t)
	defer cleanup()
	repo := NewStatusDefinitionRepository(db)

	mock.ExpectQuery("SELECT id, name, description").
		WithArgs("no such status").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByName(context.Background(), "no such status")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusDefinitionRepositoryGetOrCreate(t *testing.T) {
	db, mock, cleanup := newStatusDefinitionMock(t)
	defer cleanup()
	repo := NewStatusDefinitionRepository(db)

	mock.ExpectExec("INSERT INTO status_definitions").
		WithArgs(sqlmock.AnyArg(), "proposal received", "Proposal registered by the research office", 14, "#888888", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "description", "expected_days", "color", "created_at", "updated_at"}).
		AddRow("def-1", "proposal received", "Proposal registered by the research office", 14, "#888888", now, now)
	mock.ExpectQuery("SELECT id, name, description").
		WithArgs("proposal received").
		WillReturnRows(rows)

	def, err := repo.GetOrCreate(context.Background(), "Proposal Received", models.StatusDefinitionDefaults{
		Description:  "Proposal registered by the research office",
		ExpectedDays: 14,
		Color:        "#888888",
	})
	require.NoError(t, err)
	assert.Equal(t, "proposal received", def.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
