package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openacademia/research-track-api/internal/models"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentDetailRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "reg_no", "full_name", "email", "phone", "school_id", "campus_id",
		"supervisor_id", "field_letter_date", "active", "created_at", "updated_at",
		"school_name", "campus_name", "supervisor_name", "current_status", "current_status_date"}).
		AddRow("student-1", "REG-001", "Jane Scholar", "jane@example.edu", "0700000000", "school-1", "campus-1",
			nil, nil, true, now, now, "School of Computing", "Main Campus", nil, "proposal received", now)
}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT s.id, s.reg_no").
		WillReturnRows(studentDetailRows())
	mock.ExpectQuery(`SELECT COUNT\(DISTINCT s.id\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListFiltersBySchool(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT s.id, s.reg_no").
		WithArgs("school-1").
		WillReturnRows(studentDetailRows())
	mock.ExpectQuery(`SELECT COUNT\(DISTINCT s.id\)`).
		WithArgs("school-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{SchoolID: "school-1"})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{
		RegNo:    "REG-001",
		FullName: "Jane Scholar",
		Email:    "jane@example.edu",
		Phone:    "0700000000",
		SchoolID: "school-1",
		CampusID: "campus-1",
		Active:   true,
	}
	err := repo.Create(context.Background(), student)
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositorySetSupervisor(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	supervisorID := "user-7"
	mock.ExpectExec("UPDATE students SET supervisor_id").
		WithArgs("student-1", &supervisorID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetSupervisor(context.Background(), "student-1", &supervisorID)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
