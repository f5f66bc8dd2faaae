package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openacademia/research-track-api/internal/models"
	"github.com/openacademia/research-track-api/pkg/jobs"
)

type notificationStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type notificationUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type mailSender interface {
	Send(to, subject, bodyHTML string) error
}

type mailDispatcher interface {
	Enqueue(job jobs.Job) error
}

// StageMailPayload carries one queued stage notification.
type StageMailPayload struct {
	To         string
	Subject    string
	Body       string
	StudentID  string
	StatusName string
}

// NotificationService emails supervisors when a student's stage changes.
// Delivery is best-effort: failures are logged and never surfaced to the
// triggering request.
type NotificationService struct {
	students notificationStudentReader
	users    notificationUserReader
	mailer   mailSender
	queue    mailDispatcher
	logger   *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(students notificationStudentReader, users notificationUserReader, mailer mailSender, queue mailDispatcher, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{students: students, users: users, mailer: mailer, queue: queue, logger: logger}
}

// StageChanged composes a supervisor notification and enqueues it. Safe to
// call on a nil receiver when notifications are disabled.
func (s *NotificationService) StageChanged(ctx context.Context, studentID, statusName string) {
	if s == nil {
		return
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		s.logger.Warn("stage notification skipped, student lookup failed",
			zap.String("student_id", studentID), zap.Error(err))
		return
	}
	if student.SupervisorID == nil {
		return
	}
	supervisor, err := s.users.FindByID(ctx, *student.SupervisorID)
	if err != nil {
		s.logger.Warn("stage notification skipped, supervisor lookup failed",
			zap.String("student_id", studentID), zap.Error(err))
		return
	}

	payload := StageMailPayload{
		To:         supervisor.Email,
		Subject:    fmt.Sprintf("Progress update for %s (%s)", student.FullName, student.RegNo),
		Body:       s.composeBody(student, statusName),
		StudentID:  studentID,
		StatusName: statusName,
	}

	if s.queue == nil {
		s.deliver(payload)
		return
	}
	if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: "stage-mail", Payload: payload}); err != nil {
		s.logger.Warn("failed to enqueue stage notification",
			zap.String("student_id", studentID), zap.Error(err))
	}
}

// HandleJob processes one queued stage mail. Wired as the mail queue handler.
func (s *NotificationService) HandleJob(_ context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(StageMailPayload)
	if !ok {
		s.logger.Warn("discarding mail job with unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	s.deliver(payload)
	return nil
}

func (s *NotificationService) deliver(payload StageMailPayload) {
	if s.mailer == nil {
		return
	}
	if err := s.mailer.Send(payload.To, payload.Subject, payload.Body); err != nil {
		s.logger.Warn("stage notification delivery failed",
			zap.String("student_id", payload.StudentID),
			zap.String("status", payload.StatusName),
			zap.Error(err))
		return
	}
	s.logger.Info("stage notification sent",
		zap.String("student_id", payload.StudentID),
		zap.String("status", payload.StatusName))
}

func (s *NotificationService) composeBody(student *models.StudentDetail, statusName string) string {
	return fmt.Sprintf(
		`<p>Dear supervisor,</p>
<p>The research progress of <strong>%s</strong> (reg. no. %s, %s) moved to
<strong>%s</strong> on %s.</p>
<p>This is an automated message from the research tracking system.</p>`,
		student.FullName, student.RegNo, student.SchoolName,
		statusName, time.Now().UTC().Format("2 January 2006"),
	)
}
