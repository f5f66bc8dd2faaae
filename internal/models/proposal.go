package models

import "time"

// ReviewVerdict is the reviewer's overall recommendation for a proposal.
type ReviewVerdict string

const (
	ReviewVerdictPass ReviewVerdict = "PASS"
	ReviewVerdictFail ReviewVerdict = "FAIL"
)

// DefenseVerdict is the panel's recorded outcome of a defense sitting.
type DefenseVerdict string

const (
	DefenseVerdictPass       DefenseVerdict = "PASS"
	DefenseVerdictPassMinor  DefenseVerdict = "PASS_WITH_MINOR_CORRECTIONS"
	DefenseVerdictPassMajor  DefenseVerdict = "PASS_WITH_MAJOR_CORRECTIONS"
	DefenseVerdictFail       DefenseVerdict = "FAIL"
	DefenseVerdictReschedule DefenseVerdict = "RESCHEDULE"
)

// DefenseStatus is derived from the recorded verdict.
type DefenseStatus string

const (
	DefenseStatusScheduled   DefenseStatus = "SCHEDULED"
	DefenseStatusCompleted   DefenseStatus = "COMPLETED"
	DefenseStatusFailed      DefenseStatus = "FAILED"
	DefenseStatusRescheduled DefenseStatus = "RESCHEDULED"
)

// Proposal belongs to one student. A student may accumulate several
// proposals across resubmissions; exactly one is current.
type Proposal struct {
	ID                 string     `db:"id" json:"id"`
	StudentID          string     `db:"student_id" json:"student_id"`
	Title              string     `db:"title" json:"title"`
	IsCurrent          bool       `db:"is_current" json:"is_current"`
	ReviewFinished     bool       `db:"review_finished" json:"review_finished"`
	AverageDefenseMark *float64   `db:"average_defense_mark" json:"average_defense_mark,omitempty"`
	SubmittedAt        time.Time  `db:"submitted_at" json:"submitted_at"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// ProposalDetail aggregates the proposal with its people, grades and defenses.
type ProposalDetail struct {
	Proposal
	Reviewers     []Reviewer        `json:"reviewers,omitempty"`
	Panelists     []Panelist        `json:"panelists,omitempty"`
	ReviewGrades  []ReviewGrade     `json:"review_grades,omitempty"`
	DefenseGrades []DefenseGrade    `json:"defense_grades,omitempty"`
	Defenses      []ProposalDefense `json:"defenses,omitempty"`
}

// ProposalDefense is one scheduled defense sitting. Attempts are 1-based and
// strictly increasing per proposal; exactly one sitting is current.
type ProposalDefense struct {
	ID            string          `db:"id" json:"id"`
	ProposalID    string          `db:"proposal_id" json:"proposal_id"`
	Attempt       int             `db:"attempt" json:"attempt"`
	ScheduledDate time.Time       `db:"scheduled_date" json:"scheduled_date"`
	Verdict       *DefenseVerdict `db:"verdict" json:"verdict,omitempty"`
	Status        DefenseStatus   `db:"status" json:"status"`
	IsCurrent     bool            `db:"is_current" json:"is_current"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// Reviewer reads and grades proposals. Scoped to a campus and reusable
// across proposals.
type Reviewer struct {
	ID        string    `db:"id" json:"id"`
	CampusID  string    `db:"campus_id" json:"campus_id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Panelist sits on proposal defense panels.
type Panelist struct {
	ID        string    `db:"id" json:"id"`
	CampusID  string    `db:"campus_id" json:"campus_id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ReviewGrade is one reviewer's mark for a proposal, unique per
// (proposal, reviewer).
type ReviewGrade struct {
	ID         string        `db:"id" json:"id"`
	ProposalID string        `db:"proposal_id" json:"proposal_id"`
	ReviewerID string        `db:"reviewer_id" json:"reviewer_id"`
	Mark       float64       `db:"mark" json:"mark"`
	Verdict    ReviewVerdict `db:"verdict" json:"verdict"`
	Feedback   string        `db:"feedback" json:"feedback"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// DefenseGrade is one panelist's mark for a proposal defense, unique per
// (proposal, panelist).
type DefenseGrade struct {
	ID         string    `db:"id" json:"id"`
	ProposalID string    `db:"proposal_id" json:"proposal_id"`
	PanelistID string    `db:"panelist_id" json:"panelist_id"`
	Mark       float64   `db:"mark" json:"mark"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
