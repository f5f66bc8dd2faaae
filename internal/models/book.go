package models

import "time"

// ExaminerType distinguishes internal from external examiners. The viva
// authorization flow keys off the internal examiner's mark.
type ExaminerType string

const (
	ExaminerInternal ExaminerType = "INTERNAL"
	ExaminerExternal ExaminerType = "EXTERNAL"
)

// SubmissionType marks whether an assignment covers a first submission or a
// resubmission after a failed examination.
type SubmissionType string

const (
	SubmissionNormal       SubmissionType = "NORMAL"
	SubmissionResubmission SubmissionType = "RESUBMISSION"
)

// AssignmentStatus tracks one examiner's verdict on a book.
type AssignmentStatus string

const (
	AssignmentPending AssignmentStatus = "PENDING"
	AssignmentPassed  AssignmentStatus = "PASSED"
	AssignmentFailed  AssignmentStatus = "FAILED"
)

// Book is the dissertation submitted by a student after fieldwork.
type Book struct {
	ID              string     `db:"id" json:"id"`
	StudentID       string     `db:"student_id" json:"student_id"`
	Title           string     `db:"title" json:"title"`
	IsCurrent       bool       `db:"is_current" json:"is_current"`
	AverageExamMark *float64   `db:"average_exam_mark" json:"average_exam_mark,omitempty"`
	SubmittedAt     time.Time  `db:"submitted_at" json:"submitted_at"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// BookDetail aggregates a book with its examiner assignments.
type BookDetail struct {
	Book
	Assignments []ExaminerAssignmentDetail `json:"assignments,omitempty"`
}

// Examiner grades books. Scoped to a campus.
type Examiner struct {
	ID        string       `db:"id" json:"id"`
	CampusID  string       `db:"campus_id" json:"campus_id"`
	FullName  string       `db:"full_name" json:"full_name"`
	Email     string       `db:"email" json:"email"`
	Type      ExaminerType `db:"type" json:"type"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// ExaminerBookAssignment binds one examiner to one book submission. When a
// resubmission occurs the previous assignment is superseded (is_current
// cleared) rather than overwritten, keeping the first-round grades.
type ExaminerBookAssignment struct {
	ID             string           `db:"id" json:"id"`
	BookID         string           `db:"book_id" json:"book_id"`
	ExaminerID     string           `db:"examiner_id" json:"examiner_id"`
	Grade          *float64         `db:"grade" json:"grade,omitempty"`
	Feedback       string           `db:"feedback" json:"feedback"`
	Status         AssignmentStatus `db:"status" json:"status"`
	SubmissionType SubmissionType   `db:"submission_type" json:"submission_type"`
	IsCurrent      bool             `db:"is_current" json:"is_current"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// ExaminerAssignmentDetail joins the assignment with examiner identity.
type ExaminerAssignmentDetail struct {
	ExaminerBookAssignment
	ExaminerName string       `db:"examiner_name" json:"examiner_name"`
	ExaminerType ExaminerType `db:"examiner_type" json:"examiner_type"`
}
