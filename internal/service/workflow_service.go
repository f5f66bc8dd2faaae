package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openacademia/research-track-api/internal/models"
	appErrors "github.com/openacademia/research-track-api/pkg/errors"
)

// passThreshold is the minimum average mark for a passing outcome.
const passThreshold = 60.0

type definitionResolver interface {
	Resolve(ctx context.Context, name string) (*models.StatusDefinition, error)
}

type workflowStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	SetFieldLetterDate(ctx context.Context, studentID string, issued time.Time) error
}

type workflowProposalRepository interface {
	Create(ctx context.Context, proposal *models.Proposal) error
	FindByID(ctx context.Context, id string) (*models.Proposal, error)
	SetReviewFinished(ctx context.Context, proposalID string, finished bool) error
	SetAverageDefenseMark(ctx context.Context, proposalID string, avg float64) error
	ReplaceReviewers(ctx context.Context, proposalID string, reviewerIDs []string) error
	ReplacePanelists(ctx context.Context, proposalID string, panelistIDs []string) error
	Reviewers(ctx context.Context, proposalID string) ([]models.Reviewer, error)
	IsReviewerAssigned(ctx context.Context, proposalID, reviewerID string) (bool, error)
	IsPanelistAssigned(ctx context.Context, proposalID, panelistID string) (bool, error)
}

type workflowDefenseRepository interface {
	Schedule(ctx context.Context, defense *models.ProposalDefense) error
	CurrentByProposal(ctx context.Context, proposalID string) (*models.ProposalDefense, error)
	RecordVerdict(ctx context.Context, defenseID string, verdict models.DefenseVerdict, status models.DefenseStatus) error
}

type workflowGradeRepository interface {
	UpsertReviewGrade(ctx context.Context, grade *models.ReviewGrade) error
	ReviewGradesByProposal(ctx context.Context, proposalID string) ([]models.ReviewGrade, error)
	CountReviewGrades(ctx context.Context, proposalID string) (int, error)
	UpsertDefenseGrade(ctx context.Context, grade *models.DefenseGrade) error
	DefenseGradesByProposal(ctx context.Context, proposalID string) ([]models.DefenseGrade, error)
}

type workflowBookRepository interface {
	Create(ctx context.Context, book *models.Book) error
	FindByID(ctx context.Context, id string) (*models.Book, error)
	SetAverageExamMark(ctx context.Context, bookID string, avg float64) error
}

type workflowExaminerRepository interface {
	FindByID(ctx context.Context, id string) (*models.Examiner, error)
	AssignToBook(ctx context.Context, bookID string, examinerIDs []string, submission models.SubmissionType) error
	CurrentAssignments(ctx context.Context, bookID string) ([]models.ExaminerAssignmentDetail, error)
	CurrentAssignment(ctx context.Context, bookID, examinerID string) (*models.ExaminerBookAssignment, error)
	RecordGrade(ctx context.Context, assignmentID string, grade float64, feedback string, status models.AssignmentStatus) error
}

type stageNotifier interface {
	StageChanged(ctx context.Context, studentID, statusName string)
}

// SubmitProposalRequest registers a new proposal for a student.
type SubmitProposalRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Title     string `json:"title" validate:"required,min=3,max=300"`
}

// AssignReviewersRequest replaces the reviewer set of a proposal.
type AssignReviewersRequest struct {
	ProposalID  string   `json:"proposal_id" validate:"required"`
	ReviewerIDs []string `json:"reviewer_ids" validate:"required,min=1,dive,required"`
}

// ReviewerMarkRequest records one reviewer's grade and verdict.
type ReviewerMarkRequest struct {
	ProposalID string               `json:"proposal_id" validate:"required"`
	ReviewerID string               `json:"reviewer_id" validate:"required"`
	Mark       float64              `json:"mark" validate:"gte=0,lte=100"`
	Verdict    models.ReviewVerdict `json:"verdict" validate:"required,oneof=PASS FAIL"`
	Feedback   string               `json:"feedback" validate:"max=2000"`
}

// ScheduleDefenseRequest opens a new defense sitting.
type ScheduleDefenseRequest struct {
	ProposalID    string    `json:"proposal_id" validate:"required"`
	ScheduledDate time.Time `json:"scheduled_date" validate:"required"`
	PanelistIDs   []string  `json:"panelist_ids" validate:"required,min=1,dive,required"`
}

// DefenseVerdictRequest records the panel's outcome on the current sitting.
type DefenseVerdictRequest struct {
	ProposalID string                `json:"proposal_id" validate:"required"`
	Verdict    models.DefenseVerdict `json:"verdict" validate:"required,oneof=PASS PASS_WITH_MINOR_CORRECTIONS PASS_WITH_MAJOR_CORRECTIONS FAIL RESCHEDULE"`
}

// PanelistMarkRequest records one panelist's defense mark.
type PanelistMarkRequest struct {
	ProposalID string  `json:"proposal_id" validate:"required"`
	PanelistID string  `json:"panelist_id" validate:"required"`
	Mark       float64 `json:"mark" validate:"gte=0,lte=100"`
}

// FieldLetterRequest records the issue date of the letter to the field.
type FieldLetterRequest struct {
	StudentID  string    `json:"student_id" validate:"required"`
	IssuedDate time.Time `json:"issued_date" validate:"required"`
}

// SubmitBookRequest registers a dissertation book for a student.
type SubmitBookRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Title     string `json:"title" validate:"required,min=3,max=300"`
}

// AssignExaminersRequest binds examiners to a book submission.
type AssignExaminersRequest struct {
	BookID      string   `json:"book_id" validate:"required"`
	ExaminerIDs []string `json:"examiner_ids" validate:"required,min=1,dive,required"`
}

// ExaminerMarkRequest records one examiner's grade on a book.
type ExaminerMarkRequest struct {
	BookID     string  `json:"book_id" validate:"required"`
	ExaminerID string  `json:"examiner_id" validate:"required"`
	Mark       float64 `json:"mark" validate:"gte=0,lte=100"`
	Feedback   string  `json:"feedback" validate:"max=2000"`
}

// WorkflowService applies business events to the status timelines of
// students, proposals and books. Every handler resolves the definitions it
// needs, performs its entity writes, then applies all status-record changes
// of the event through one timeline transaction.
type WorkflowService struct {
	catalog   definitionResolver
	records   statusTimelineRepository
	students  workflowStudentRepository
	proposals workflowProposalRepository
	defenses  workflowDefenseRepository
	grades    workflowGradeRepository
	books     workflowBookRepository
	examiners workflowExaminerRepository
	notifier  stageNotifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// SetMetrics attaches the transition counter. All MetricsService methods
// tolerate a nil receiver, so leaving this unset is fine.
func (s *WorkflowService) SetMetrics(m *MetricsService) {
	s.metrics = m
}

// NewWorkflowService constructs WorkflowService. The notifier may be nil.
func NewWorkflowService(
	catalog definitionResolver,
	records statusTimelineRepository,
	students workflowStudentRepository,
	proposals workflowProposalRepository,
	defenses workflowDefenseRepository,
	grades workflowGradeRepository,
	books workflowBookRepository,
	examiners workflowExaminerRepository,
	notifier stageNotifier,
	validate *validator.Validate,
	logger *zap.Logger,
) *WorkflowService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowService{
		catalog:   catalog,
		records:   records,
		students:  students,
		proposals: proposals,
		defenses:  defenses,
		grades:    grades,
		books:     books,
		examiners: examiners,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
	}
}

func (s *WorkflowService) notify(ctx context.Context, studentID, statusName string) {
	if s.notifier == nil {
		return
	}
	s.notifier.StageChanged(ctx, studentID, statusName)
}

// SubmitProposal registers a proposal and moves both the student and the new
// proposal onto the initial "proposal received" stage. A previous current
// proposal is demoted but keeps its history.
func (s *WorkflowService) SubmitProposal(ctx context.Context, req SubmitProposalRequest, actor *string) (*models.Proposal, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid proposal payload")
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrState, "student is inactive")
	}

	def, err := s.catalog.Resolve(ctx, models.StatusProposalReceived)
	if err != nil {
		return nil, err
	}

	proposal := models.Proposal{StudentID: req.StudentID, Title: req.Title}
	if err := s.proposals.Create(ctx, &proposal); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create proposal")
	}

	steps := []models.TransitionStep{
		{Owner: models.StatusOwner{Kind: models.OwnerStudent, ID: req.StudentID}, DefinitionID: def.ID, UpdatedBy: actor},
		{Owner: models.StatusOwner{Kind: models.OwnerProposal, ID: proposal.ID}, DefinitionID: def.ID, UpdatedBy: actor},
	}
	if err := s.records.Transition(ctx, steps); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply proposal transition")
	}
	s.metrics.ObserveTransition(def.Name)

	s.logger.Info("proposal submitted",
		zap.String("student_id", req.StudentID),
		zap.String("proposal_id", proposal.ID))
	return &proposal, nil
}

// AssignReviewers replaces the proposal's reviewer set and, on first
// assignment, moves the proposal and student into "proposal in review".
// Re-running the assignment later only updates the roster. A reviewer who has
// already graded the proposal cannot be dropped from it.
func (s *WorkflowService) AssignReviewers(ctx context.Context, req AssignReviewersRequest, actor *string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reviewer assignment payload")
	}
	proposal, err := s.proposals.FindByID(ctx, req.ProposalID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "proposal not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load proposal")
	}

	graded, err := s.grades.ReviewGradesByProposal(ctx, req.ProposalID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review grades")
	}
	kept := make(map[string]bool, len(req.ReviewerIDs))
	for _, id := range req.ReviewerIDs {
		kept[id] = true
	}
	for _, grade := range graded {
		if !kept[grade.ReviewerID] {
			return appErrors.Clone(appErrors.ErrState, "reviewer "+grade.ReviewerID+" has already graded and cannot be removed")
		}
	}

	if err := s.proposals.ReplaceReviewers(ctx, req.ProposalID, req.ReviewerIDs); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign reviewers")
	}

	owner := models.StatusOwner{Kind: models.OwnerProposal, ID: req.ProposalID}
	reviewed, err := s.records.HasDefinitionInHistory(ctx, owner, models.StatusProposalInReview)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect proposal history")
	}
	if reviewed {
		return nil
	}

	def, err := s.catalog.Resolve(ctx, models.StatusProposalInReview)
	if err != nil {
		return err
	}
	steps := []models.TransitionStep{
		{Owner: owner, DefinitionID: def.ID, UpdatedBy: actor},
		{Owner: models.StatusOwner{Kind: models.OwnerStudent, ID: proposal.StudentID}, DefinitionID: def.ID, UpdatedBy: actor},
	}
	if err := s.records.Transition(ctx, steps); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply review transition")
	}
	s.metrics.ObserveTransition(def.Name)
	return nil
}

// RecordReviewerMark upserts one reviewer's grade. When the final reviewer
// submits, the proposal and student move to the review-finished variant
// chosen by that reviewer's verdict.
func (s *WorkflowService) RecordReviewerMark(ctx context.Context, req ReviewerMarkRequest, actor *string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reviewer mark payload")
	}
	proposal, err := s.proposals.FindByID(ctx, req.ProposalID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "proposal not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load proposal")
	}
	assigned, err := s.proposals.IsReviewerAssigned(ctx, req.ProposalID, req.ReviewerID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check reviewer assignment")
	}
	if !assigned {
		return appErrors.Clone(appErrors.ErrNotFound, "reviewer is not assigned to this proposal")
	}

	grade := models.ReviewGrade{
		ProposalID: req.ProposalID,
		ReviewerID: req.ReviewerID,
		Mark:       req.Mark,
		Verdict:    req.Verdict,
		Feedback:   req.Feedback,
	}
	if err := s.grades.UpsertReviewGrade(ctx, &grade); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record reviewer mark")
	}

	reviewers, err := s.proposals.Reviewers(ctx, req.ProposalID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reviewers")
	}
	graded, err := s.grades.CountReviewGrades(ctx, req.ProposalID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count review grades")
	}
	if graded != len(reviewers) || proposal.ReviewFinished {
		return nil
	}

	name := models.StatusReviewFinishedPassed
	if req.Verdict == models.ReviewVerdictFail {
		name = models.StatusReviewFinishedFailed
	}
	def, err := s.catalog.Resolve(ctx, name)
	if err != nil {
		return err
	}
	if err := s.proposals.SetReviewFinished(ctx, req.ProposalID, true); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finish review")
	}
	steps := []models.TransitionStep{
		{Owner: models.StatusOwner{Kind: models.OwnerProposal, ID: req.ProposalID}, DefinitionID: def.ID, UpdatedBy: actor},
		{Owner: models.StatusOwner{Kind: models.OwnerStudent, ID: proposal.StudentID}, DefinitionID: def.ID, UpdatedBy: actor},
	}
	if err := s.records.Transition(ctx, steps); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply review-finished transition")
	}
	s.metrics.ObserveTransition(def.Name)
	s.notify(ctx, proposal.StudentID, name)
	return nil
}

// ScheduleDefense opens a new sitting with a fresh attempt number and moves
// the proposal and student into "waiting for proposal defense".
func (s *WorkflowService) ScheduleDefense(ctx context.Context, req ScheduleDefenseRequest, actor *string) (*models.ProposalDefense, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid defense payload")
	}
	proposal, err := s.proposals.FindByID(ctx, req.ProposalID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load proposal")
	}

	if err := s.proposals.ReplacePanelists(ctx, req.ProposalID, req.PanelistIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign panelists")
	}

	defense := models.ProposalDefense{ProposalID: req.ProposalID, ScheduledDate: req.ScheduledDate}
	if err := s.defenses.Schedule(ctx, &defense); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule defense")
	}

	def, err := s.catalog.Resolve(ctx, models.StatusWaitingProposalDefense)
	if err != nil {
		return nil, err
	}
	steps := []models.TransitionStep{
		{Owner: models.StatusOwner{Kind: models.OwnerProposal, ID: req.ProposalID}, DefinitionID: def.ID, UpdatedBy: actor},
		{Owner: models.StatusOwner{Kind: models.OwnerStudent, ID: proposal.StudentID}, DefinitionID: def.ID, UpdatedBy: actor},
	}
	if err := s.records.Transition(ctx, steps); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply defense transition")
	}
	s.metrics.ObserveTransition(def.Name)
	s.logger.Info("defense scheduled",
		zap.String("proposal_id", req.ProposalID),
		zap.Int("attempt", defense.Attempt))
	return &defense, nil
}

func defenseStatusFor(verdict models.DefenseVerdict) models.DefenseStatus {
	switch verdict {
	case models.DefenseVerdictFail:
		return models.DefenseStatusFailed
	case models.DefenseVerdictReschedule:
		return models.DefenseStatusRescheduled
	default:
		return models.DefenseStatusCompleted
	}
}

// RecordDefenseVerdict stores the panel's outcome on the current sitting.
// Completed and failed sittings also move the proposal and student to the
// matching graded stage; a reschedule leaves the timelines untouched.
func (s *WorkflowService) RecordDefenseVerdict(ctx context.Context, req DefenseVerdictRequest, actor *string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid defense verdict payload")
	}
	proposal, err := s.proposals.FindByID(ctx, req.ProposalID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "proposal not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load proposal")
	}
	defense, err := s.defenses.CurrentByProposal(ctx, req.ProposalID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "proposal has no scheduled defense")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load defense")
	}

	status := defenseStatusFor(req.Verdict)
	if err := s.defenses.RecordVerdict(ctx, defense.ID, req.Verdict, status); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record defense verdict")
	}
	if status == models.DefenseStatusRescheduled {
		return nil
	}

	name := models.StatusProposalGradedPassed
	if status == models.DefenseStatusFailed {
		name = models.StatusProposalGradedFailed
	}
	def, err := s.catalog.Resolve(ctx, name)
	if err != nil {
		return err
	}
	steps := []models.TransitionStep{
		{Owner: models.StatusOwner{Kind: models.OwnerProposal, ID: req.ProposalID}, DefinitionID: def.ID, UpdatedBy: actor},
		{Owner: models.StatusOwner{Kind: models.OwnerStudent, ID: proposal.StudentID}, DefinitionID: def.ID, UpdatedBy: actor},
	}
	if err := s.records.Transition(ctx, steps); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply verdict transition")
	}
	s.metrics.ObserveTransition(def.Name)
	s.notify(ctx, proposal.StudentID, name)
	return nil
}

// RecordPanelistMark upserts one panelist's defense mark. Once more than
// one mark exists the mean is stored on the proposal and the graded stage
// is chosen by the pass threshold.
func (s *WorkflowService) RecordPanelistMark(ctx context.Context, req PanelistMarkRequest, actor *string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid panelist mark payload")
	}
	proposal, err := s.proposals.FindByID(ctx, req.ProposalID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "proposal not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load proposal")
	}
	assigned, err := s.proposals.IsPanelistAssigned(ctx, req.ProposalID, req.PanelistID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check panelist assignment")
	}
	if !assigned {
		return appErrors.Clone(appErrors.ErrNotFound, "panelist is not assigned to this proposal")
	}

	grade := models.DefenseGrade{ProposalID: req.ProposalID, PanelistID: req.PanelistID, Mark: req.Mark}
	if err := s.grades.UpsertDefenseGrade(ctx, &grade); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record panelist mark")
	}

	grades, err := s.grades.DefenseGradesByProposal(ctx, req.ProposalID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load defense grades")
	}
	// a single mark is never averaged, matching the long-standing grading rule
	if len(grades) <= 1 {
		return nil
	}
	var sum float64
	for _, g := range grades {
		sum += g.Mark
	}
	avg := sum / float64(len(grades))
	if err := s.proposals.SetAverageDefenseMark(ctx, req.ProposalID, avg); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store defense average")
	}

	name := models.StatusProposalGradedPassed
	if avg < passThreshold {
		name = models.StatusProposalGradedFailed
	}
	def, err := s.catalog.Resolve(ctx, name)
	if err != nil {
		return err
	}
	steps := []models.TransitionStep{
		{Owner: models.StatusOwner{Kind: models.OwnerProposal, ID: req.ProposalID}, DefinitionID: def.ID, UpdatedBy: actor},
		{Owner: models.StatusOwner{Kind: models.OwnerStudent, ID: proposal.StudentID}, DefinitionID: def.ID, UpdatedBy: actor},
	}
	if err := s.records.Transition(ctx, steps); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply graded transition")
	}
	s.metrics.ObserveTransition(def.Name)
	return nil
}

// SetFieldLetterDate records the letter issue date and logs an
// instantaneous pass through "letter to field issued" before leaving the
// student in "fieldwork".
func (s *WorkflowService) SetFieldLetterDate(ctx context.Context, req FieldLetterRequest, actor *string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid field letter payload")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	letterDef, err := s.catalog.Resolve(ctx, models.StatusLetterToFieldIssued)
	if err != nil {
		return err
	}
	fieldDef, err := s.catalog.Resolve(ctx, models.StatusFieldwork)
	if err != nil {
		return err
	}

	if err := s.students.SetFieldLetterDate(ctx, req.StudentID, req.IssuedDate); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store field letter date")
	}

	owner := models.StatusOwner{Kind: models.OwnerStudent, ID: req.StudentID}
	steps := []models.TransitionStep{
		{Owner: owner, DefinitionID: letterDef.ID, UpdatedBy: actor, Instant: true},
		{Owner: owner, DefinitionID: fieldDef.ID, UpdatedBy: actor},
	}
	if err := s.records.Transition(ctx, steps); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply fieldwork transition")
	}
	s.metrics.ObserveTransition(fieldDef.Name)
	return nil
}

// SubmitBook registers the dissertation book produced after fieldwork. The
// book's timeline starts when examiners are assigned.
func (s *WorkflowService) SubmitBook(ctx context.Context, req SubmitBookRequest, actor *string) (*models.Book, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid book payload")
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrState, "student is inactive")
	}

	book := models.Book{StudentID: req.StudentID, Title: req.Title}
	if err := s.books.Create(ctx, &book); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create book")
	}
	s.logger.Info("book submitted",
		zap.String("student_id", req.StudentID),
		zap.String("book_id", book.ID))
	return &book, nil
}

// AssignExaminers binds examiners to the book and opens "under examination"
// on the book and student timelines. Re-assigning while the book is already
// under examination only creates the new assignment round; assigning after a
// failed examination moves the book back under examination. A round is a
// resubmission when a current internal assignment already exists.
func (s *WorkflowService) AssignExaminers(ctx context.Context, req AssignExaminersRequest, actor *string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid examiner assignment payload")
	}
	book, err := s.books.FindByID(ctx, req.BookID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "book not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load book")
	}
	for _, examinerID := range req.ExaminerIDs {
		if _, err := s.examiners.FindByID(ctx, examinerID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "examiner not found: "+examinerID)
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load examiner")
		}
	}

	submission := models.SubmissionNormal
	current, err := s.examiners.CurrentAssignments(ctx, req.BookID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current assignments")
	}
	for _, a := range current {
		if a.ExaminerType == models.ExaminerInternal {
			submission = models.SubmissionResubmission
			break
		}
	}

	if err := s.examiners.AssignToBook(ctx, req.BookID, req.ExaminerIDs, submission); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign examiners")
	}

	owner := models.StatusOwner{Kind: models.OwnerBook, ID: req.BookID}
	currentName, err := s.records.CurrentDefinitionName(ctx, owner)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load book status")
	}
	if currentName == models.StatusUnderExamination {
		return nil
	}

	def, err := s.catalog.Resolve(ctx, models.StatusUnderExamination)
	if err != nil {
		return err
	}
	steps := []models.TransitionStep{
		{Owner: owner, DefinitionID: def.ID, UpdatedBy: actor},
		{Owner: models.StatusOwner{Kind: models.OwnerStudent, ID: book.StudentID}, DefinitionID: def.ID, UpdatedBy: actor},
	}
	if err := s.records.Transition(ctx, steps); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply examination transition")
	}
	s.metrics.ObserveTransition(def.Name)
	return nil
}

// RecordExaminerMark stores one examiner's grade. When the internal
// examiner grades and an external grade already exists, the two are
// averaged and the book either passes toward the viva or is sent back for
// resubmission. A book already awaiting resubmission is left untouched.
func (s *WorkflowService) RecordExaminerMark(ctx context.Context, req ExaminerMarkRequest, actor *string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid examiner mark payload")
	}
	book, err := s.books.FindByID(ctx, req.BookID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "book not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load book")
	}
	examiner, err := s.examiners.FindByID(ctx, req.ExaminerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "examiner not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load examiner")
	}
	assignment, err := s.examiners.CurrentAssignment(ctx, req.BookID, req.ExaminerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "examiner is not assigned to this book")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	status := models.AssignmentPassed
	if req.Mark < passThreshold {
		status = models.AssignmentFailed
	}
	if err := s.examiners.RecordGrade(ctx, assignment.ID, req.Mark, req.Feedback, status); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record examiner mark")
	}
	if examiner.Type != models.ExaminerInternal {
		return nil
	}

	assignments, err := s.examiners.CurrentAssignments(ctx, req.BookID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current assignments")
	}
	var externalMark *float64
	for _, a := range assignments {
		if a.ExaminerType == models.ExaminerExternal && a.Grade != nil {
			externalMark = a.Grade
			break
		}
	}
	if externalMark == nil {
		return nil
	}

	currentName, err := s.records.CurrentDefinitionName(ctx, models.StatusOwner{Kind: models.OwnerBook, ID: req.BookID})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load book status")
	}
	if currentName == models.StatusResubmissionRequired {
		return nil
	}

	avg := (req.Mark + *externalMark) / 2
	if err := s.books.SetAverageExamMark(ctx, req.BookID, avg); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store exam average")
	}

	name := models.StatusAuthorizedForViva
	if avg < passThreshold {
		name = models.StatusResubmissionRequired
	}
	def, err := s.catalog.Resolve(ctx, name)
	if err != nil {
		return err
	}
	steps := []models.TransitionStep{
		{Owner: models.StatusOwner{Kind: models.OwnerBook, ID: req.BookID}, DefinitionID: def.ID, UpdatedBy: actor},
		{Owner: models.StatusOwner{Kind: models.OwnerStudent, ID: book.StudentID}, DefinitionID: def.ID, UpdatedBy: actor},
	}
	if err := s.records.Transition(ctx, steps); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply examination outcome")
	}
	s.metrics.ObserveTransition(def.Name)
	s.notify(ctx, book.StudentID, name)
	return nil
}
