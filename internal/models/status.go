package models

import "time"

// StatusOwnerKind tags which entity a status record belongs to.
type StatusOwnerKind string

const (
	OwnerStudent  StatusOwnerKind = "STUDENT"
	OwnerProposal StatusOwnerKind = "PROPOSAL"
	OwnerBook     StatusOwnerKind = "BOOK"
)

// StatusOwner identifies one timeline owner.
type StatusOwner struct {
	Kind StatusOwnerKind
	ID   string
}

// Canonical status definition names used by the workflow engine. Names are
// stored trimmed and lower-cased; the catalog lookup key is exact on that
// canonical form.
const (
	StatusProposalReceived       = "proposal received"
	StatusProposalInReview       = "proposal in review"
	StatusReviewFinishedPassed   = "passed-proposal review finished"
	StatusReviewFinishedFailed   = "failed-proposal review finished"
	StatusReviewFinished         = "proposal review finished"
	StatusWaitingProposalDefense = "waiting for proposal defense"
	StatusProposalGradedPassed   = "passed-proposal graded"
	StatusProposalGradedFailed   = "failed-proposal graded"
	StatusLetterToFieldIssued    = "letter to field issued"
	StatusFieldwork              = "fieldwork"
	StatusUnderExamination       = "under examination"
	StatusResubmissionRequired   = "failed & resubmission required"
	StatusAuthorizedForViva      = "passed & authorized for viva"
)

// StatusDefinition is a reusable catalog entry describing a workflow stage.
type StatusDefinition struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Description  string    `db:"description" json:"description"`
	ExpectedDays int       `db:"expected_days" json:"expected_days"`
	Color        string    `db:"color" json:"color"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StatusDefinitionDefaults seeds a definition created lazily by name.
type StatusDefinitionDefaults struct {
	Description  string
	ExpectedDays int
	Color        string
}

// StatusRecord is one entry on an owner's timeline. At most one record per
// owner has IsCurrent set.
type StatusRecord struct {
	ID           string          `db:"id" json:"id"`
	OwnerKind    StatusOwnerKind `db:"owner_kind" json:"owner_kind"`
	OwnerID      string          `db:"owner_id" json:"owner_id"`
	DefinitionID string          `db:"definition_id" json:"definition_id"`
	StartDate    time.Time       `db:"start_date" json:"start_date"`
	EndDate      *time.Time      `db:"end_date" json:"end_date,omitempty"`
	IsCurrent    bool            `db:"is_current" json:"is_current"`
	IsActive     bool            `db:"is_active" json:"is_active"`
	UpdatedBy    *string         `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// StatusHistoryEntry is a timeline record joined with its definition.
type StatusHistoryEntry struct {
	StatusRecord
	DefinitionName string `db:"definition_name" json:"definition_name,omitempty"`
	ExpectedDays   int    `db:"expected_days" json:"expected_days,omitempty"`
	Color          string `db:"color" json:"color,omitempty"`
}

// TransitionStep describes one close-then-open on a single owner. Steps of
// one business event are applied in a single database transaction.
type TransitionStep struct {
	Owner        StatusOwner
	DefinitionID string
	UpdatedBy    *string
	// CloseOnly closes the owner's current record without opening a new one.
	CloseOnly bool
	// Instant opens the record already closed, logging a pass-through stage.
	Instant bool
}
