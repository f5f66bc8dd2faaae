package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openacademia/research-track-api/internal/models"
)

func newStatusRecordMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStatusRecordRepositoryTransitionMultipleOwners(t *testing.T) {
	db, mock, cleanup := newStatusRecordMock(t)
	defer cleanup()
	repo := NewStatusRecordRepository(db)

	mock.ExpectBegin()
	// student step: close then open
	mock.ExpectExec("UPDATE status_records").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), models.OwnerStudent, "student-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO status_records").
		WithArgs(sqlmock.AnyArg(), models.OwnerStudent, "student-1", "def-1", sqlmock.AnyArg(), sqlmock.AnyArg(), true, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// proposal step: close only
	mock.ExpectExec("UPDATE status_records").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), models.OwnerProposal, "proposal-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	steps := []models.TransitionStep{
		{Owner: models.StatusOwner{Kind: models.OwnerStudent, ID: "student-1"}, DefinitionID: "def-1"},
		{Owner: models.StatusOwner{Kind: models.OwnerProposal, ID: "proposal-1"}, CloseOnly: true},
	}
	err := repo.Transition(context.Background(), steps)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusRecordRepositoryTransitionInstantStep(t *testing.T) {
	db, mock, cleanup := newStatusRecordMock(t)
	defer cleanup()
	repo := NewStatusRecordRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE status_records").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), models.OwnerStudent, "student-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// instant records open already closed and never become current
	mock.ExpectExec("INSERT INTO status_records").
		WithArgs(sqlmock.AnyArg(), models.OwnerStudent, "student-1", "def-2", sqlmock.AnyArg(), sqlmock.AnyArg(), false, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	steps := []models.TransitionStep{
		{Owner: models.StatusOwner{Kind: models.OwnerStudent, ID: "student-1"}, DefinitionID: "def-2", Instant: true},
	}
	err := repo.Transition(context.Background(), steps)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusRecordRepositoryTransitionRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newStatusRecordMock(t)
	defer cleanup()
	repo := NewStatusRecordRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE status_records").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), models.OwnerStudent, "student-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO status_records").
		WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	steps := []models.TransitionStep{
		{Owner: models.StatusOwner{Kind: models.OwnerStudent, ID: "student-1"}, DefinitionID: "def-1"},
	}
	err := repo.Transition(context.Background(), steps)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusRecordRepositoryTransitionEmptyNoop(t *testing.T) {
	db, mock, cleanup := newStatusRecordMock(t)
	defer cleanup()
	repo := NewStatusRecordRepository(db)

	err := repo.Transition(context.Background(), nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusRecordRepositoryHistory(t *testing.T) {
	db, mock, cleanup := newStatusRecordMock(t)
	defer cleanup()
	repo := NewStatusRecordRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "owner_kind", "owner_id", "definition_id", "start_date", "end_date", "is_current", "is_active", "updated_by", "created_at", "definition_name", "expected_days", "color"}).
		AddRow("rec-2", "STUDENT", "student-1", "def-2", now, nil, true, true, nil, now, "fieldwork", 180, "#00AA00").
		AddRow("rec-1", "STUDENT", "student-1", "def-1", now.Add(-time.Hour), now, false, true, nil, now.Add(-time.Hour), "letter to field issued", 7, "#0000AA")
	mock.ExpectQuery("SELECT sr.id, sr.owner_kind").
		WithArgs(models.OwnerStudent, "student-1").
		WillReturnRows(rows)

	entries, err := repo.History(context.Background(), models.StatusOwner{Kind: models.OwnerStudent, ID: "student-1"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].IsCurrent)
	assert.Equal(t, "fieldwork", entries[0].DefinitionName)
	assert.False(t, entries[1].IsCurrent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusRecordRepositoryHasDefinitionInHistory(t *testing.T) {
	db, mock, cleanup := newStatusRecordMock(t)
	defer cleanup()
	repo := NewStatusRecordRepository(db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(models.OwnerBook, "book-1", "under examination").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	found, err := repo.HasDefinitionInHistory(context.Background(), models.StatusOwner{Kind: models.OwnerBook, ID: "book-1"}, "Under Examination")
	require.NoError(t, err)
	assert.True(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}
