package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/openacademia/research-track-api/internal/models"
	appErrors "github.com/openacademia/research-track-api/pkg/errors"
	"github.com/openacademia/research-track-api/pkg/export"
	"github.com/openacademia/research-track-api/pkg/jobs"
	"github.com/openacademia/research-track-api/pkg/storage"
)

type delayReportSource interface {
	DelayRows(ctx context.Context, schoolID string) ([]models.DelayReportRow, error)
}

type reportJobStore interface {
	CreateJob(ctx context.Context, job *models.ReportJob) error
	FindJob(ctx context.Context, id string) (*models.ReportJob, error)
	UpdateJobStatus(ctx context.Context, id string, status models.ReportJobStatus, filePath, errMsg *string) error
}

type exportDispatcher interface {
	Enqueue(job jobs.Job) error
}

// ExportPayload carries the queued export job parameters.
type ExportPayload struct {
	SchoolID string
}

// ReportDownload is a resolved signed-URL download.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    string
	ExpiresAt time.Time
}

// ReportService computes delay reports and manages asynchronous exports.
type ReportService struct {
	source   delayReportSource
	jobStore reportJobStore
	students notificationStudentReader
	queue    exportDispatcher
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	files    *storage.LocalStorage
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	now      func() time.Time
}

// NewReportService constructs a ReportService.
func NewReportService(source delayReportSource, jobStore reportJobStore, students notificationStudentReader, queue exportDispatcher, files *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		source:   source,
		jobStore: jobStore,
		students: students,
		queue:    queue,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		files:    files,
		signer:   signer,
		logger:   logger,
		now:      time.Now,
	}
}

// DelayReport computes the synchronous delay report, optionally scoped to a
// school. Elapsed days count from the current status start date; a student is
// delayed once elapsed exceeds the status's expected days.
func (s *ReportService) DelayReport(ctx context.Context, schoolID string) (*models.DelayReport, error) {
	rows, err := s.source.DelayRows(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load delay report rows")
	}
	now := s.now().UTC()
	for i := range rows {
		rows[i].ElapsedDays = int(now.Sub(rows[i].StartDate).Hours() / 24)
		if rows[i].ElapsedDays < 0 {
			rows[i].ElapsedDays = 0
		}
		if rows[i].ExpectedDays > 0 && rows[i].ElapsedDays > rows[i].ExpectedDays {
			rows[i].Delayed = true
			rows[i].DaysOverdue = rows[i].ElapsedDays - rows[i].ExpectedDays
		}
	}
	return &models.DelayReport{SchoolID: schoolID, GeneratedAt: now, Rows: rows}, nil
}

// RequestExport persists a pending export job and enqueues it.
func (s *ReportService) RequestExport(ctx context.Context, format, schoolID, actorID string) (*models.ReportJob, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	job := &models.ReportJob{
		Type:        "delay-report",
		Format:      format,
		Status:      models.ReportJobPending,
		RequestedBy: actorID,
	}
	if err := s.jobStore.CreateJob(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: job.Type, Payload: ExportPayload{SchoolID: schoolID}}); err != nil {
		msg := "failed to enqueue export job"
		if updateErr := s.jobStore.UpdateJobStatus(ctx, job.ID, models.ReportJobFailed, nil, &msg); updateErr != nil {
			s.logger.Warn("failed to mark export job failed", zap.String("job_id", job.ID), zap.Error(updateErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, msg)
	}
	return job, nil
}

// JobStatus returns an export job. Completed jobs carry a fresh signed
// download token in FilePath's place for the response layer.
func (s *ReportService) JobStatus(ctx context.Context, id string) (*models.ReportJob, string, error) {
	job, err := s.jobStore.FindJob(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	var token string
	if job.Status == models.ReportJobCompleted && job.FilePath != nil && s.signer != nil {
		token, _, err = s.signer.Generate(job.ID, *job.FilePath)
		if err != nil {
			s.logger.Warn("failed to sign download token", zap.String("job_id", job.ID), zap.Error(err))
			token = ""
		}
	}
	return job, token, nil
}

// ResolveDownload validates a signed token and opens the export file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.jobStore.FindJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.Status != models.ReportJobCompleted || job.FilePath == nil || *job.FilePath != relPath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export is not available")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// HandleJob renders and stores one queued export. Wired as the export queue
// handler.
func (s *ReportService) HandleJob(ctx context.Context, job jobs.Job) error {
	payload, _ := job.Payload.(ExportPayload)

	if err := s.jobStore.UpdateJobStatus(ctx, job.ID, models.ReportJobRunning, nil, nil); err != nil {
		return err
	}

	record, err := s.jobStore.FindJob(ctx, job.ID)
	if err != nil {
		return err
	}

	data, renderErr := s.renderExport(ctx, record.Format, payload.SchoolID)
	if renderErr != nil {
		msg := renderErr.Error()
		if err := s.jobStore.UpdateJobStatus(ctx, job.ID, models.ReportJobFailed, nil, &msg); err != nil {
			s.logger.Warn("failed to mark export job failed", zap.String("job_id", job.ID), zap.Error(err))
		}
		return renderErr
	}

	filename := fmt.Sprintf("delay-report-%s.%s", record.ID, record.Format)
	relPath, err := s.files.Save(filename, data)
	if err != nil {
		msg := err.Error()
		if updateErr := s.jobStore.UpdateJobStatus(ctx, job.ID, models.ReportJobFailed, nil, &msg); updateErr != nil {
			s.logger.Warn("failed to mark export job failed", zap.String("job_id", job.ID), zap.Error(updateErr))
		}
		return err
	}

	if err := s.jobStore.UpdateJobStatus(ctx, job.ID, models.ReportJobCompleted, &relPath, nil); err != nil {
		return err
	}
	s.logger.Info("export job completed", zap.String("job_id", job.ID), zap.String("file", relPath))
	return nil
}

// StartCleanup purges expired export files in the background.
func (s *ReportService) StartCleanup(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 || ttl <= 0 || s.files == nil {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := s.files.CleanupOlderThan(ttl)
				if err != nil {
					s.logger.Warn("export cleanup failed", zap.Error(err))
					continue
				}
				if len(deleted) > 0 {
					s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
				}
			}
		}
	}()
}

// FieldLetterPDF renders the field research authorization letter for a
// student whose letter date has been issued.
func (s *ReportService) FieldLetterPDF(ctx context.Context, studentID string) ([]byte, string, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.FieldLetterDate == nil {
		return nil, "", appErrors.Clone(appErrors.ErrState, "field letter has not been issued for this student")
	}

	paragraphs := []string{
		fmt.Sprintf("Date of issue: %s", student.FieldLetterDate.Format("2 January 2006")),
		fmt.Sprintf("This is to certify that %s (registration number %s) of %s, %s campus, has successfully defended their research proposal and is hereby authorized to proceed to field research.",
			student.FullName, student.RegNo, student.SchoolName, student.CampusName),
		"All concerned offices and institutions are requested to accord the bearer the necessary cooperation.",
	}
	if student.SupervisorName != nil {
		paragraphs = append(paragraphs, fmt.Sprintf("Supervisor: %s", *student.SupervisorName))
	}

	data, err := s.pdf.RenderLetter("Field Research Authorization Letter", paragraphs)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render field letter")
	}
	return data, fmt.Sprintf("field-letter-%s.pdf", student.RegNo), nil
}

func (s *ReportService) renderExport(ctx context.Context, format, schoolID string) ([]byte, error) {
	report, err := s.DelayReport(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	dataset := delayDataset(report)
	if format == "pdf" {
		return s.pdf.Render(dataset, "Research Progress Delay Report")
	}
	return s.csv.Render(dataset)
}

func delayDataset(report *models.DelayReport) export.Dataset {
	headers := []string{"Reg No", "Student", "School", "Current Status", "Since", "Expected Days", "Elapsed Days", "Days Overdue", "Delayed"}
	rows := make([]map[string]string, 0, len(report.Rows))
	for _, row := range report.Rows {
		delayed := "no"
		if row.Delayed {
			delayed = "yes"
		}
		rows = append(rows, map[string]string{
			"Reg No":         row.RegNo,
			"Student":        row.FullName,
			"School":         row.SchoolName,
			"Current Status": row.StatusName,
			"Since":          row.StartDate.Format("2006-01-02"),
			"Expected Days":  fmt.Sprintf("%d", row.ExpectedDays),
			"Elapsed Days":   fmt.Sprintf("%d", row.ElapsedDays),
			"Days Overdue":   fmt.Sprintf("%d", row.DaysOverdue),
			"Delayed":        delayed,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
