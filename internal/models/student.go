package models

import "time"

// Student is the aggregate root for proposals and books.
type Student struct {
	ID              string     `db:"id" json:"id"`
	RegNo           string     `db:"reg_no" json:"reg_no"`
	FullName        string     `db:"full_name" json:"full_name"`
	Email           string     `db:"email" json:"email"`
	Phone           string     `db:"phone" json:"phone"`
	SchoolID        string     `db:"school_id" json:"school_id"`
	CampusID        string     `db:"campus_id" json:"campus_id"`
	SupervisorID    *string    `db:"supervisor_id" json:"supervisor_id,omitempty"`
	FieldLetterDate *time.Time `db:"field_letter_date" json:"field_letter_date,omitempty"`
	Active          bool       `db:"active" json:"active"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentDetail joins the student with its current status and school names.
type StudentDetail struct {
	Student
	SchoolName        string     `db:"school_name" json:"school_name"`
	CampusName        string     `db:"campus_name" json:"campus_name"`
	SupervisorName    *string    `db:"supervisor_name" json:"supervisor_name,omitempty"`
	CurrentStatus     *string    `db:"current_status" json:"current_status,omitempty"`
	CurrentStatusDate *time.Time `db:"current_status_date" json:"current_status_date,omitempty"`
}

// StudentFilter captures list query criteria.
type StudentFilter struct {
	SchoolID  string
	CampusID  string
	StatusID  string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentProgress is the aggregate view returned by the progress endpoint.
type StudentProgress struct {
	Student  StudentDetail        `json:"student"`
	History  []StatusHistoryEntry `json:"history"`
	Proposal *ProposalDetail      `json:"proposal,omitempty"`
	Book     *BookDetail          `json:"book,omitempty"`
}
