package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openacademia/research-track-api/internal/models"
	appErrors "github.com/openacademia/research-track-api/pkg/errors"
	"github.com/openacademia/research-track-api/pkg/jobs"
	"github.com/openacademia/research-track-api/pkg/storage"
)

type fakeDelaySource struct {
	rows []models.DelayReportRow
}

func (f *fakeDelaySource) DelayRows(context.Context, string) ([]models.DelayReportRow, error) {
	out := make([]models.DelayReportRow, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

type fakeReportJobStore struct {
	jobs map[string]*models.ReportJob
	seq  int
}

func newFakeReportJobStore() *fakeReportJobStore {
	return &fakeReportJobStore{jobs: map[string]*models.ReportJob{}}
}

func (f *fakeReportJobStore) CreateJob(_ context.Context, job *models.ReportJob) error {
	f.seq++
	if job.ID == "" {
		job.ID = fmt.Sprintf("job-%d", f.seq)
	}
	copied := *job
	f.jobs[job.ID] = &copied
	return nil
}

func (f *fakeReportJobStore) FindJob(_ context.Context, id string) (*models.ReportJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *job
	return &copied, nil
}

func (f *fakeReportJobStore) UpdateJobStatus(_ context.Context, id string, status models.ReportJobStatus, filePath, errMsg *string) error {
	job, ok := f.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	job.Status = status
	if filePath != nil {
		job.FilePath = filePath
	}
	job.Error = errMsg
	return nil
}

type fakeExportQueue struct {
	enqueued []jobs.Job
	fail     bool
}

func (f *fakeExportQueue) Enqueue(job jobs.Job) error {
	if f.fail {
		return assert.AnError
	}
	f.enqueued = append(f.enqueued, job)
	return nil
}

func reportFixture(t *testing.T, rows []models.DelayReportRow) (*ReportService, *fakeReportJobStore, *fakeExportQueue) {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	store := newFakeReportJobStore()
	queue := &fakeExportQueue{}
	students := &fakeStudentRepo{students: map[string]*models.StudentDetail{}}
	svc := NewReportService(&fakeDelaySource{rows: rows}, store, students, queue, files, signer, nil)
	return svc, store, queue
}

func delayRow(regNo string, expectedDays int, startedDaysAgo int) models.DelayReportRow {
	return models.DelayReportRow{
		StudentID:    "student-" + regNo,
		RegNo:        regNo,
		FullName:     "Student " + regNo,
		SchoolName:   "Graduate School",
		StatusName:   models.StatusFieldwork,
		StartDate:    time.Now().UTC().AddDate(0, 0, -startedDaysAgo),
		ExpectedDays: expectedDays,
	}
}

func TestDelayReportFlagsOverdueStudents(t *testing.T) {
	svc, _, _ := reportFixture(t, []models.DelayReportRow{
		delayRow("R-001", 30, 45),
		delayRow("R-002", 30, 10),
		delayRow("R-003", 0, 400),
	})

	report, err := svc.DelayReport(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, report.Rows, 3)

	assert.True(t, report.Rows[0].Delayed)
	assert.Equal(t, 15, report.Rows[0].DaysOverdue)
	assert.Equal(t, 45, report.Rows[0].ElapsedDays)

	assert.False(t, report.Rows[1].Delayed)
	assert.Equal(t, 0, report.Rows[1].DaysOverdue)

	// Zero expected days means the status carries no deadline.
	assert.False(t, report.Rows[2].Delayed)
}

func TestRequestExportRejectsUnknownFormat(t *testing.T) {
	svc, _, _ := reportFixture(t, nil)

	_, err := svc.RequestExport(context.Background(), "xlsx", "", "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestRequestExportEnqueuesPendingJob(t *testing.T) {
	svc, store, queue := reportFixture(t, nil)

	job, err := svc.RequestExport(context.Background(), "CSV", "school-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportJobPending, job.Status)
	assert.Equal(t, "csv", job.Format)

	require.Len(t, queue.enqueued, 1)
	payload, ok := queue.enqueued[0].Payload.(ExportPayload)
	require.True(t, ok)
	assert.Equal(t, "school-1", payload.SchoolID)

	stored, err := store.FindJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", stored.RequestedBy)
}

func TestRequestExportMarksJobFailedWhenQueueRejects(t *testing.T) {
	svc, store, queue := reportFixture(t, nil)
	queue.fail = true

	_, err := svc.RequestExport(context.Background(), "pdf", "", "admin-1")
	require.Error(t, err)

	require.Len(t, store.jobs, 1)
	for _, job := range store.jobs {
		assert.Equal(t, models.ReportJobFailed, job.Status)
	}
}

func TestHandleJobRendersAndSignsDownload(t *testing.T) {
	svc, store, queue := reportFixture(t, []models.DelayReportRow{delayRow("R-001", 30, 45)})

	job, err := svc.RequestExport(context.Background(), "csv", "", "admin-1")
	require.NoError(t, err)

	require.NoError(t, svc.HandleJob(context.Background(), queue.enqueued[0]))

	stored, err := store.FindJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportJobCompleted, stored.Status)
	require.NotNil(t, stored.FilePath)

	_, token, err := svc.JobStatus(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	download, err := svc.ResolveDownload(context.Background(), token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, "csv", download.Format)
	assert.True(t, strings.HasSuffix(download.Filename, ".csv"))
}

func TestResolveDownloadRejectsTamperedToken(t *testing.T) {
	svc, _, queue := reportFixture(t, []models.DelayReportRow{delayRow("R-001", 30, 45)})

	job, err := svc.RequestExport(context.Background(), "csv", "", "admin-1")
	require.NoError(t, err)
	require.NoError(t, svc.HandleJob(context.Background(), queue.enqueued[0]))

	_, token, err := svc.JobStatus(context.Background(), job.ID)
	require.NoError(t, err)

	_, err = svc.ResolveDownload(context.Background(), token+"x")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestFieldLetterRequiresIssuedDate(t *testing.T) {
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	issued := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	students := &fakeStudentRepo{students: map[string]*models.StudentDetail{
		"student-1": {
			Student: models.Student{ID: "student-1", RegNo: "R-001", FullName: "Student One", Active: true},
		},
		"student-2": {
			Student:    models.Student{ID: "student-2", RegNo: "R-002", FullName: "Student Two", Active: true, FieldLetterDate: &issued},
			SchoolName: "Graduate School",
			CampusName: "Main",
		},
	}}
	svc := NewReportService(&fakeDelaySource{}, newFakeReportJobStore(), students, &fakeExportQueue{}, files, signer, nil)

	_, _, err = svc.FieldLetterPDF(context.Background(), "student-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrState.Code, appErr.Code)

	data, filename, err := svc.FieldLetterPDF(context.Background(), "student-2")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, "field-letter-R-002.pdf", filename)
}
