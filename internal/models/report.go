package models

import "time"

// ReportJobStatus tracks asynchronous export lifecycle.
type ReportJobStatus string

const (
	ReportJobPending   ReportJobStatus = "PENDING"
	ReportJobRunning   ReportJobStatus = "RUNNING"
	ReportJobCompleted ReportJobStatus = "COMPLETED"
	ReportJobFailed    ReportJobStatus = "FAILED"
)

// ReportJob is one queued delay-report export.
type ReportJob struct {
	ID          string          `db:"id" json:"id"`
	Type        string          `db:"type" json:"type"`
	Format      string          `db:"format" json:"format"`
	Status      ReportJobStatus `db:"status" json:"status"`
	FilePath    *string         `db:"file_path" json:"file_path,omitempty"`
	Error       *string         `db:"error" json:"error,omitempty"`
	RequestedBy string          `db:"requested_by" json:"requested_by"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// DelayReportRow describes one student's standing against the expected
// duration of their current status.
type DelayReportRow struct {
	StudentID     string    `db:"student_id" json:"student_id"`
	RegNo         string    `db:"reg_no" json:"reg_no"`
	FullName      string    `db:"full_name" json:"full_name"`
	SchoolName    string    `db:"school_name" json:"school_name"`
	StatusName    string    `db:"status_name" json:"status_name"`
	StartDate     time.Time `db:"start_date" json:"start_date"`
	ExpectedDays  int       `db:"expected_days" json:"expected_days"`
	ElapsedDays   int       `json:"elapsed_days"`
	DaysOverdue   int       `json:"days_overdue"`
	Delayed       bool      `json:"delayed"`
}

// DelayReport wraps the rows with scope metadata.
type DelayReport struct {
	SchoolID    string           `json:"school_id,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
	Rows        []DelayReportRow `json:"rows"`
}
