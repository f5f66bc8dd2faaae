package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openacademia/research-track-api/internal/models"
	appErrors "github.com/openacademia/research-track-api/pkg/errors"
)

// fakeCatalog resolves definitions by name, using the name itself as the id
// so timeline assertions can compare against status name constants.
type fakeCatalog struct {
	missing map[string]bool
}

func (f *fakeCatalog) Resolve(ctx context.Context, name string) (*models.StatusDefinition, error) {
	if f.missing[name] {
		return nil, appErrors.Clone(appErrors.ErrStatusDefinition, "status definition missing: "+name)
	}
	return &models.StatusDefinition{ID: name, Name: name}, nil
}

// fakeTimeline applies transition steps in memory, preserving the close
// before open ordering so current-record invariants can be asserted.
type fakeTimeline struct {
	records        []*models.StatusRecord
	failTransition bool
}

func (f *fakeTimeline) Transition(ctx context.Context, steps []models.TransitionStep) error {
	if f.failTransition {
		return fmt.Errorf("transition failed")
	}
	now := time.Now().UTC()
	for _, step := range steps {
		for _, rec := range f.records {
			if rec.OwnerKind == step.Owner.Kind && rec.OwnerID == step.Owner.ID && rec.IsCurrent {
				end := now
				rec.EndDate = &end
				rec.IsCurrent = false
			}
		}
		if step.CloseOnly {
			continue
		}
		rec := &models.StatusRecord{
			ID:           fmt.Sprintf("rec-%d", len(f.records)+1),
			OwnerKind:    step.Owner.Kind,
			OwnerID:      step.Owner.ID,
			DefinitionID: step.DefinitionID,
			StartDate:    now,
			IsCurrent:    true,
			IsActive:     true,
			UpdatedBy:    step.UpdatedBy,
			CreatedAt:    now,
		}
		if step.Instant {
			end := now
			rec.EndDate = &end
			rec.IsCurrent = false
		}
		f.records = append(f.records, rec)
	}
	return nil
}

func (f *fakeTimeline) CurrentByOwner(ctx context.Context, owner models.StatusOwner) (*models.StatusHistoryEntry, error) {
	for _, rec := range f.records {
		if rec.OwnerKind == owner.Kind && rec.OwnerID == owner.ID && rec.IsCurrent {
			return &models.StatusHistoryEntry{StatusRecord: *rec, DefinitionName: rec.DefinitionID}, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTimeline) History(ctx context.Context, owner models.StatusOwner) ([]models.StatusHistoryEntry, error) {
	var entries []models.StatusHistoryEntry
	for i := len(f.records) - 1; i >= 0; i-- {
		rec := f.records[i]
		if rec.OwnerKind == owner.Kind && rec.OwnerID == owner.ID {
			entries = append(entries, models.StatusHistoryEntry{StatusRecord: *rec, DefinitionName: rec.DefinitionID})
		}
	}
	return entries, nil
}

func (f *fakeTimeline) HasDefinitionInHistory(ctx context.Context, owner models.StatusOwner, definitionName string) (bool, error) {
	for _, rec := range f.records {
		if rec.OwnerKind == owner.Kind && rec.OwnerID == owner.ID && rec.DefinitionID == definitionName {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTimeline) CurrentDefinitionName(ctx context.Context, owner models.StatusOwner) (string, error) {
	entry, err := f.CurrentByOwner(ctx, owner)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return entry.DefinitionName, nil
}

func (f *fakeTimeline) currentCount(owner models.StatusOwner) int {
	count := 0
	for _, rec := range f.records {
		if rec.OwnerKind == owner.Kind && rec.OwnerID == owner.ID && rec.IsCurrent {
			count++
		}
	}
	return count
}

func (f *fakeTimeline) currentName(owner models.StatusOwner) string {
	name, _ := f.CurrentDefinitionName(context.Background(), owner)
	return name
}

type fakeStudentRepo struct {
	students    map[string]*models.StudentDetail
	letterDates map[string]time.Time
}

func (f *fakeStudentRepo) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := f.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) SetFieldLetterDate(ctx context.Context, studentID string, issued time.Time) error {
	if f.letterDates == nil {
		f.letterDates = make(map[string]time.Time)
	}
	f.letterDates[studentID] = issued
	return nil
}

type fakeProposalRepo struct {
	proposals map[string]*models.Proposal
	reviewers map[string][]string
	panelists map[string][]string
	averages  map[string]float64
	seq       int
}

func (f *fakeProposalRepo) Create(ctx context.Context, proposal *models.Proposal) error {
	if f.proposals == nil {
		f.proposals = make(map[string]*models.Proposal)
	}
	for _, p := range f.proposals {
		if p.StudentID == proposal.StudentID && p.IsCurrent {
			p.IsCurrent = false
		}
	}
	f.seq++
	proposal.ID = fmt.Sprintf("proposal-%d", f.seq)
	proposal.IsCurrent = true
	f.proposals[proposal.ID] = proposal
	return nil
}

func (f *fakeProposalRepo) FindByID(ctx context.Context, id string) (*models.Proposal, error) {
	if p, ok := f.proposals[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeProposalRepo) SetReviewFinished(ctx context.Context, proposalID string, finished bool) error {
	f.proposals[proposalID].ReviewFinished = finished
	return nil
}

func (f *fakeProposalRepo) SetAverageDefenseMark(ctx context.Context, proposalID string, avg float64) error {
	if f.averages == nil {
		f.averages = make(map[string]float64)
	}
	f.averages[proposalID] = avg
	return nil
}

func (f *fakeProposalRepo) ReplaceReviewers(ctx context.Context, proposalID string, reviewerIDs []string) error {
	if f.reviewers == nil {
		f.reviewers = make(map[string][]string)
	}
	f.reviewers[proposalID] = reviewerIDs
	return nil
}

func (f *fakeProposalRepo) ReplacePanelists(ctx context.Context, proposalID string, panelistIDs []string) error {
	if f.panelists == nil {
		f.panelists = make(map[string][]string)
	}
	f.panelists[proposalID] = panelistIDs
	return nil
}

func (f *fakeProposalRepo) Reviewers(ctx context.Context, proposalID string) ([]models.Reviewer, error) {
	var out []models.Reviewer
	for _, id := range f.reviewers[proposalID] {
		out = append(out, models.Reviewer{ID: id})
	}
	return out, nil
}

func (f *fakeProposalRepo) IsReviewerAssigned(ctx context.Context, proposalID, reviewerID string) (bool, error) {
	for _, id := range f.reviewers[proposalID] {
		if id == reviewerID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProposalRepo) IsPanelistAssigned(ctx context.Context, proposalID, panelistID string) (bool, error) {
	for _, id := range f.panelists[proposalID] {
		if id == panelistID {
			return true, nil
		}
	}
	return false, nil
}

type fakeDefenseRepo struct {
	defenses map[string][]*models.ProposalDefense
}

func (f *fakeDefenseRepo) Schedule(ctx context.Context, defense *models.ProposalDefense) error {
	if f.defenses == nil {
		f.defenses = make(map[string][]*models.ProposalDefense)
	}
	for _, d := range f.defenses[defense.ProposalID] {
		d.IsCurrent = false
	}
	defense.Attempt = len(f.defenses[defense.ProposalID]) + 1
	defense.ID = fmt.Sprintf("defense-%s-%d", defense.ProposalID, defense.Attempt)
	defense.Status = models.DefenseStatusScheduled
	defense.IsCurrent = true
	f.defenses[defense.ProposalID] = append(f.defenses[defense.ProposalID], defense)
	return nil
}

func (f *fakeDefenseRepo) CurrentByProposal(ctx context.Context, proposalID string) (*models.ProposalDefense, error) {
	for _, d := range f.defenses[proposalID] {
		if d.IsCurrent {
			return d, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeDefenseRepo) RecordVerdict(ctx context.Context, defenseID string, verdict models.DefenseVerdict, status models.DefenseStatus) error {
	for _, list := range f.defenses {
		for _, d := range list {
			if d.ID == defenseID {
				d.Verdict = &verdict
				d.Status = status
				return nil
			}
		}
	}
	return sql.ErrNoRows
}

type fakeGradeRepo struct {
	review  map[string]map[string]models.ReviewGrade
	defense map[string]map[string]models.DefenseGrade
}

func (f *fakeGradeRepo) UpsertReviewGrade(ctx context.Context, grade *models.ReviewGrade) error {
	if f.review == nil {
		f.review = make(map[string]map[string]models.ReviewGrade)
	}
	if f.review[grade.ProposalID] == nil {
		f.review[grade.ProposalID] = make(map[string]models.ReviewGrade)
	}
	f.review[grade.ProposalID][grade.ReviewerID] = *grade
	return nil
}

func (f *fakeGradeRepo) ReviewGradesByProposal(ctx context.Context, proposalID string) ([]models.ReviewGrade, error) {
	var out []models.ReviewGrade
	for _, g := range f.review[proposalID] {
		out = append(out, g)
	}
	return out, nil
}

func (f *fakeGradeRepo) CountReviewGrades(ctx context.Context, proposalID string) (int, error) {
	return len(f.review[proposalID]), nil
}

func (f *fakeGradeRepo) UpsertDefenseGrade(ctx context.Context, grade *models.DefenseGrade) error {
	if f.defense == nil {
		f.defense = make(map[string]map[string]models.DefenseGrade)
	}
	if f.defense[grade.ProposalID] == nil {
		f.defense[grade.ProposalID] = make(map[string]models.DefenseGrade)
	}
	f.defense[grade.ProposalID][grade.PanelistID] = *grade
	return nil
}

func (f *fakeGradeRepo) DefenseGradesByProposal(ctx context.Context, proposalID string) ([]models.DefenseGrade, error) {
	var out []models.DefenseGrade
	for _, g := range f.defense[proposalID] {
		out = append(out, g)
	}
	return out, nil
}

type fakeBookRepo struct {
	books    map[string]*models.Book
	averages map[string]float64
	seq      int
}

func (f *fakeBookRepo) Create(ctx context.Context, book *models.Book) error {
	if f.books == nil {
		f.books = make(map[string]*models.Book)
	}
	for _, b := range f.books {
		if b.StudentID == book.StudentID && b.IsCurrent {
			b.IsCurrent = false
		}
	}
	f.seq++
	book.ID = fmt.Sprintf("book-%d", f.seq)
	book.IsCurrent = true
	f.books[book.ID] = book
	return nil
}

func (f *fakeBookRepo) FindByID(ctx context.Context, id string) (*models.Book, error) {
	if b, ok := f.books[id]; ok {
		return b, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeBookRepo) SetAverageExamMark(ctx context.Context, bookID string, avg float64) error {
	if f.averages == nil {
		f.averages = make(map[string]float64)
	}
	f.averages[bookID] = avg
	return nil
}

type fakeExaminerRepo struct {
	examiners   map[string]*models.Examiner
	assignments []*models.ExaminerBookAssignment
	seq         int
}

func (f *fakeExaminerRepo) FindByID(ctx context.Context, id string) (*models.Examiner, error) {
	if e, ok := f.examiners[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeExaminerRepo) AssignToBook(ctx context.Context, bookID string, examinerIDs []string, submission models.SubmissionType) error {
	for _, a := range f.assignments {
		if a.BookID == bookID && a.IsCurrent {
			a.IsCurrent = false
		}
	}
	for _, examinerID := range examinerIDs {
		f.seq++
		f.assignments = append(f.assignments, &models.ExaminerBookAssignment{
			ID:             fmt.Sprintf("assignment-%d", f.seq),
			BookID:         bookID,
			ExaminerID:     examinerID,
			Status:         models.AssignmentPending,
			SubmissionType: submission,
			IsCurrent:      true,
		})
	}
	return nil
}

func (f *fakeExaminerRepo) CurrentAssignments(ctx context.Context, bookID string) ([]models.ExaminerAssignmentDetail, error) {
	var out []models.ExaminerAssignmentDetail
	for _, a := range f.assignments {
		if a.BookID == bookID && a.IsCurrent {
			out = append(out, models.ExaminerAssignmentDetail{
				ExaminerBookAssignment: *a,
				ExaminerType:           f.examiners[a.ExaminerID].Type,
			})
		}
	}
	return out, nil
}

func (f *fakeExaminerRepo) CurrentAssignment(ctx context.Context, bookID, examinerID string) (*models.ExaminerBookAssignment, error) {
	for _, a := range f.assignments {
		if a.BookID == bookID && a.ExaminerID == examinerID && a.IsCurrent {
			return a, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeExaminerRepo) RecordGrade(ctx context.Context, assignmentID string, grade float64, feedback string, status models.AssignmentStatus) error {
	for _, a := range f.assignments {
		if a.ID == assignmentID {
			g := grade
			a.Grade = &g
			a.Feedback = feedback
			a.Status = status
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeNotifier struct {
	calls []string
}

func (f *fakeNotifier) StageChanged(ctx context.Context, studentID, statusName string) {
	f.calls = append(f.calls, studentID+":"+statusName)
}

type workflowFixture struct {
	svc       *WorkflowService
	timeline  *fakeTimeline
	students  *fakeStudentRepo
	proposals *fakeProposalRepo
	defenses  *fakeDefenseRepo
	grades    *fakeGradeRepo
	books     *fakeBookRepo
	examiners *fakeExaminerRepo
	notifier  *fakeNotifier
}

func newWorkflowFixture() *workflowFixture {
	f := &workflowFixture{
		timeline: &fakeTimeline{},
		students: &fakeStudentRepo{students: map[string]*models.StudentDetail{
			"student-1": {Student: models.Student{ID: "student-1", Active: true}},
		}},
		proposals: &fakeProposalRepo{},
		defenses:  &fakeDefenseRepo{},
		grades:    &fakeGradeRepo{},
		books:     &fakeBookRepo{},
		examiners: &fakeExaminerRepo{examiners: map[string]*models.Examiner{
			"internal-1": {ID: "internal-1", Type: models.ExaminerInternal},
			"external-1": {ID: "external-1", Type: models.ExaminerExternal},
		}},
		notifier: &fakeNotifier{},
	}
	f.svc = NewWorkflowService(&fakeCatalog{}, f.timeline, f.students, f.proposals, f.defenses, f.grades, f.books, f.examiners, f.notifier, nil, nil)
	return f
}

func studentOwner(id string) models.StatusOwner {
	return models.StatusOwner{Kind: models.OwnerStudent, ID: id}
}

func proposalOwner(id string) models.StatusOwner {
	return models.StatusOwner{Kind: models.OwnerProposal, ID: id}
}

func bookOwner(id string) models.StatusOwner {
	return models.StatusOwner{Kind: models.OwnerBook, ID: id}
}

func TestSubmitProposalOpensInitialStatus(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	proposal, err := f.svc.SubmitProposal(ctx, SubmitProposalRequest{StudentID: "student-1", Title: "Edge caching for rural networks"}, nil)
	require.NoError(t, err)

	assert.Equal(t, models.StatusProposalReceived, f.timeline.currentName(studentOwner("student-1")))
	assert.Equal(t, models.StatusProposalReceived, f.timeline.currentName(proposalOwner(proposal.ID)))
	assert.Equal(t, 1, f.timeline.currentCount(studentOwner("student-1")))
}

func TestSubmitProposalDemotesPriorProposal(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	first, err := f.svc.SubmitProposal(ctx, SubmitProposalRequest{StudentID: "student-1", Title: "First title"}, nil)
	require.NoError(t, err)
	second, err := f.svc.SubmitProposal(ctx, SubmitProposalRequest{StudentID: "student-1", Title: "Second title"}, nil)
	require.NoError(t, err)

	assert.False(t, f.proposals.proposals[first.ID].IsCurrent)
	assert.True(t, f.proposals.proposals[second.ID].IsCurrent)
	assert.Equal(t, 1, f.timeline.currentCount(studentOwner("student-1")))
}

func TestSubmitProposalUnknownStudent(t *testing.T) {
	f := newWorkflowFixture()

	_, err := f.svc.SubmitProposal(context.Background(), SubmitProposalRequest{StudentID: "ghost", Title: "Some title"}, nil)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAssignReviewersTransitionsOnce(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()
	proposal, err := f.svc.SubmitProposal(ctx, SubmitProposalRequest{StudentID: "student-1", Title: "Some title"}, nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.AssignReviewers(ctx, AssignReviewersRequest{ProposalID: proposal.ID, ReviewerIDs: []string{"rev-1", "rev-2"}}, nil))
	assert.Equal(t, models.StatusProposalInReview, f.timeline.currentName(proposalOwner(proposal.ID)))
	assert.Equal(t, models.StatusProposalInReview, f.timeline.currentName(studentOwner("student-1")))
	recordsBefore := len(f.timeline.records)

	// roster change after the fact must not reopen the review stage
	require.NoError(t, f.svc.AssignReviewers(ctx, AssignReviewersRequest{ProposalID: proposal.ID, ReviewerIDs: []string{"rev-1", "rev-3"}}, nil))
	assert.Equal(t, recordsBefore, len(f.timeline.records))
	assert.Equal(t, []string{"rev-1", "rev-3"}, f.proposals.reviewers[proposal.ID])
}

func TestAssignReviewersKeepsGradedReviewers(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()
	proposal, err := f.svc.SubmitProposal(ctx, SubmitProposalRequest{StudentID: "student-1", Title: "Some title"}, nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.AssignReviewers(ctx, AssignReviewersRequest{ProposalID: proposal.ID, ReviewerIDs: []string{"rev-1", "rev-2"}}, nil))
	require.NoError(t, f.svc.RecordReviewerMark(ctx, ReviewerMarkRequest{ProposalID: proposal.ID, ReviewerID: "rev-1", Mark: 70, Verdict: models.ReviewVerdictPass}, nil))

	// dropping the graded reviewer is rejected and the roster is untouched
	err = f.svc.AssignReviewers(ctx, AssignReviewersRequest{ProposalID: proposal.ID, ReviewerIDs: []string{"rev-2", "rev-3"}}, nil)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrState.Code, appErr.Code)
	assert.Equal(t, []string{"rev-1", "rev-2"}, f.proposals.reviewers[proposal.ID])

	// replacing only the ungraded reviewer is fine
	require.NoError(t, f.svc.AssignReviewers(ctx, AssignReviewersRequest{ProposalID: proposal.ID, ReviewerIDs: []string{"rev-1", "rev-3"}}, nil))
	assert.Equal(t, []string{"rev-1", "rev-3"}, f.proposals.reviewers[proposal.ID])
}

func TestRecordReviewerMarkFinishesOnLastGrade(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()
	proposal, err := f.svc.SubmitProposal(ctx, SubmitProposalRequest{StudentID: "student-1", Title: "Some title"}, nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.AssignReviewers(ctx, AssignReviewersRequest{ProposalID: proposal.ID, ReviewerIDs: []string{"rev-1", "rev-2"}}, nil))

	require.NoError(t, f.svc.RecordReviewerMark(ctx, ReviewerMarkRequest{ProposalID: proposal.ID, ReviewerID: "rev-1", Mark: 70, Verdict: models.ReviewVerdictPass}, nil))
	assert.Equal(t, models.StatusProposalInReview, f.timeline.currentName(proposalOwner(proposal.ID)))
	assert.False(t, f.proposals.proposals[proposal.ID].ReviewFinished)

	require.NoError(t, f.svc.RecordReviewerMark(ctx, ReviewerMarkRequest{ProposalID: proposal.ID, ReviewerID: "rev-2", Mark: 80, Verdict: models.ReviewVerdictPass}, nil))
	assert.Equal(t, models.StatusReviewFinishedPassed, f.timeline.currentName(proposalOwner(proposal.ID)))
	assert.Equal(t, models.StatusReviewFinishedPassed, f.timeline.currentName(studentOwner("student-1")))
	assert.True(t, f.proposals.proposals[proposal.ID].ReviewFinished)
	assert.Equal(t, 1, f.timeline.currentCount(proposalOwner(proposal.ID)))
	assert.Contains(t, f.notifier.calls, "student-1:"+models.StatusReviewFinishedPassed)
}

func TestRecordReviewerMarkFailVerdict(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()
	proposal, err := f.svc.SubmitProposal(ctx, SubmitProposalRequest{StudentID: "student-1", Title: "Some title"}, nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.AssignReviewers(ctx, AssignReviewersRequest{ProposalID: proposal.ID, ReviewerIDs: []string{"rev-1"}}, nil))

	require.NoError(t, f.svc.RecordReviewerMark(ctx, ReviewerMarkRequest{ProposalID: proposal.ID, ReviewerID: "rev-1", Mark: 40, Verdict: models.ReviewVerdictFail}, nil))
	assert.Equal(t, models.StatusReviewFinishedFailed, f.timeline.currentName(proposalOwner(proposal.ID)))
}

func TestRecordReviewerMarkUnassignedReviewer(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()
	proposal, err := f.svc.SubmitProposal(ctx, SubmitProposalRequest{StudentID: "student-1", Title: "Some title"}, nil)
	require.NoError(t, err)

	err = f.svc.RecordReviewerMark(ctx, ReviewerMarkRequest{ProposalID: proposal.ID, ReviewerID: "stranger", Mark: 70, Verdict: models.ReviewVerdictPass}, nil)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestScheduleDefenseIncrementsAttempts(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()
	proposal, err := f.svc.SubmitProposal(ctx, SubmitProposalRequest{StudentID: "student-1", Title: "Some title"}, nil)
	require.NoError(t, err)

	date := time.Now().Add(72 * time.Hour)
	first, err := f.svc.ScheduleDefense(ctx, ScheduleDefenseRequest{ProposalID: proposal.ID, ScheduledDate: date, PanelistIDs: []string{"pan-1"}}, nil)
	require.NoError(t, err)
	second, err := f.svc.ScheduleDefense(ctx, ScheduleDefenseRequest{ProposalID: proposal.ID, ScheduledDate: date.Add(24 * time.Hour), PanelistIDs: []string{"pan-1", "pan-2"}}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Attempt)
	assert.Equal(t, 2, second.Attempt)
	assert.False(t, f.defenses.defenses[proposal.ID][0].IsCurrent)
	assert.True(t, f.defenses.defenses[proposal.ID][1].IsCurrent)
	assert.Equal(t, models.StatusWaitingProposalDefense, f.timeline.currentName(proposalOwner(proposal.ID)))
}

func TestRecordDefenseVerdictPassVariant(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()
	proposal, err := f.svc.SubmitProposal(ctx, SubmitProposalRequest{StudentID: "student-1", Title: "Some title"}, nil)
	require.NoError(t, err)
	_, err = f.svc.ScheduleDefense(ctx, ScheduleDefenseRequest{ProposalID: proposal.ID, ScheduledDate: time.Now(), PanelistIDs: []string{"pan-1"}}, nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.RecordDefenseVerdict(ctx, DefenseVerdictRequest{ProposalID: proposal.ID, Verdict: models.DefenseVerdictPassMinor}, nil))
	defense, err := f.defenses.CurrentByProposal(ctx, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DefenseStatusCompleted, defense.Status)
	assert.Equal(t, models.StatusProposalGradedPassed, f.timeline.currentName(proposalOwner(proposal.ID)))
	assert.Equal(t, models.StatusProposalGradedPassed, f.timeline.currentName(studentOwner("student-1")))
}

func TestRecordDefenseVerdictRescheduleLeavesStatus(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()
	proposal, err := f.svc.SubmitProposal(ctx, SubmitProposalRequest{StudentID: "student-1", Title: "Some title"}, nil)
	require.NoError(t, err)
	_, err = f.svc.ScheduleDefense(ctx, ScheduleDefenseRequest{ProposalID: proposal.ID, ScheduledDate: time.Now(), PanelistIDs: []string{"pan-1"}}, nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.RecordDefenseVerdict(ctx, DefenseVerdictRequest{ProposalID: proposal.ID, Verdict: models.DefenseVerdictReschedule}, nil))
	defense, err := f.defenses.CurrentByProposal(ctx, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DefenseStatusRescheduled, defense.Status)
	assert.Equal(t, models.StatusWaitingProposalDefense, f.timeline.currentName(proposalOwner(proposal.ID)))
}

func TestRecordPanelistMarkAveragesOnlyBeyondOneGrade(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()
	proposal, err := f.svc.SubmitProposal(ctx, SubmitProposalRequest{StudentID: "student-1", Title: "Some title"}, nil)
	require.NoError(t, err)
	_, err = f.svc.ScheduleDefense(ctx, ScheduleDefenseRequest{ProposalID: proposal.ID, ScheduledDate: time.Now(), PanelistIDs: []string{"pan-1", "pan-2"}}, nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.RecordPanelistMark(ctx, PanelistMarkRequest{ProposalID: proposal.ID, PanelistID: "pan-1", Mark: 70}, nil))
	_, stored := f.proposals.averages[proposal.ID]
	assert.False(t, stored)
	assert.Equal(t, models.StatusWaitingProposalDefense, f.timeline.currentName(proposalOwner(proposal.ID)))

	require.NoError(t, f.svc.RecordPanelistMark(ctx, PanelistMarkRequest{ProposalID: proposal.ID, PanelistID: "pan-2", Mark: 50}, nil))
	assert.InDelta(t, 60.0, f.proposals.averages[proposal.ID], 0.001)
	// threshold is inclusive
	assert.Equal(t, models.StatusProposalGradedPassed, f.timeline.currentName(proposalOwner(proposal.ID)))
}

func TestSetFieldLetterDateLogsInstantTransition(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()
	_, err := f.svc.SubmitProposal(ctx, SubmitProposalRequest{StudentID: "student-1", Title: "Some title"}, nil)
	require.NoError(t, err)

	issued := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.svc.SetFieldLetterDate(ctx, FieldLetterRequest{StudentID: "student-1", IssuedDate: issued}, nil))

	assert.Equal(t, issued, f.students.letterDates["student-1"])
	assert.Equal(t, models.StatusFieldwork, f.timeline.currentName(studentOwner("student-1")))
	assert.Equal(t, 1, f.timeline.currentCount(studentOwner("student-1")))

	history, err := f.timeline.History(ctx, studentOwner("student-1"))
	require.NoError(t, err)
	var letterSeen bool
	for _, entry := range history {
		if entry.DefinitionName == models.StatusLetterToFieldIssued {
			letterSeen = true
			assert.False(t, entry.IsCurrent)
			assert.NotNil(t, entry.EndDate)
		}
	}
	assert.True(t, letterSeen)
}

func TestAssignExaminersIdempotentStatus(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()
	book, err := f.svc.SubmitBook(ctx, SubmitBookRequest{StudentID: "student-1", Title: "Dissertation"}, nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.AssignExaminers(ctx, AssignExaminersRequest{BookID: book.ID, ExaminerIDs: []string{"internal-1", "external-1"}}, nil))
	assert.Equal(t, models.StatusUnderExamination, f.timeline.currentName(bookOwner(book.ID)))
	assert.Equal(t, models.StatusUnderExamination, f.timeline.currentName(studentOwner("student-1")))
	recordsBefore := len(f.timeline.records)

	require.NoError(t, f.svc.AssignExaminers(ctx, AssignExaminersRequest{BookID: book.ID, ExaminerIDs: []string{"internal-1"}}, nil))
	assert.Equal(t, recordsBefore, len(f.timeline.records))

	// second round supersedes the first and counts as a resubmission
	var currentCount int
	for _, a := range f.examiners.assignments {
		if a.IsCurrent {
			currentCount++
			assert.Equal(t, models.SubmissionResubmission, a.SubmissionType)
		}
	}
	assert.Equal(t, 1, currentCount)
}

func TestRecordExaminerMarkAuthorizesViva(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()
	book, err := f.svc.SubmitBook(ctx, SubmitBookRequest{StudentID: "student-1", Title: "Dissertation"}, nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.AssignExaminers(ctx, AssignExaminersRequest{BookID: book.ID, ExaminerIDs: []string{"internal-1", "external-1"}}, nil))

	require.NoError(t, f.svc.RecordExaminerMark(ctx, ExaminerMarkRequest{BookID: book.ID, ExaminerID: "external-1", Mark: 70}, nil))
	assert.Equal(t, models.StatusUnderExamination, f.timeline.currentName(bookOwner(book.ID)))

	require.NoError(t, f.svc.RecordExaminerMark(ctx, ExaminerMarkRequest{BookID: book.ID, ExaminerID: "internal-1", Mark: 55}, nil))
	assert.InDelta(t, 62.5, f.books.averages[book.ID], 0.001)
	assert.Equal(t, models.StatusAuthorizedForViva, f.timeline.currentName(bookOwner(book.ID)))
	assert.Equal(t, models.StatusAuthorizedForViva, f.timeline.currentName(studentOwner("student-1")))
	assert.Contains(t, f.notifier.calls, "student-1:"+models.StatusAuthorizedForViva)
}

func TestRecordExaminerMarkFailsBelowThreshold(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()
	book, err := f.svc.SubmitBook(ctx, SubmitBookRequest{StudentID: "student-1", Title: "Dissertation"}, nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.AssignExaminers(ctx, AssignExaminersRequest{BookID: book.ID, ExaminerIDs: []string{"internal-1", "external-1"}}, nil))

	require.NoError(t, f.svc.RecordExaminerMark(ctx, ExaminerMarkRequest{BookID: book.ID, ExaminerID: "external-1", Mark: 50}, nil))
	require.NoError(t, f.svc.RecordExaminerMark(ctx, ExaminerMarkRequest{BookID: book.ID, ExaminerID: "internal-1", Mark: 40}, nil))

	assert.InDelta(t, 45.0, f.books.averages[book.ID], 0.001)
	assert.Equal(t, models.StatusResubmissionRequired, f.timeline.currentName(bookOwner(book.ID)))
}

func TestRecordExaminerMarkSkipsWhenAwaitingResubmission(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()
	book, err := f.svc.SubmitBook(ctx, SubmitBookRequest{StudentID: "student-1", Title: "Dissertation"}, nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.AssignExaminers(ctx, AssignExaminersRequest{BookID: book.ID, ExaminerIDs: []string{"internal-1", "external-1"}}, nil))
	require.NoError(t, f.svc.RecordExaminerMark(ctx, ExaminerMarkRequest{BookID: book.ID, ExaminerID: "external-1", Mark: 50}, nil))
	require.NoError(t, f.svc.RecordExaminerMark(ctx, ExaminerMarkRequest{BookID: book.ID, ExaminerID: "internal-1", Mark: 40}, nil))
	require.Equal(t, models.StatusResubmissionRequired, f.timeline.currentName(bookOwner(book.ID)))
	recordsBefore := len(f.timeline.records)

	// re-grading while the book awaits resubmission stores the mark only
	require.NoError(t, f.svc.RecordExaminerMark(ctx, ExaminerMarkRequest{BookID: book.ID, ExaminerID: "internal-1", Mark: 90}, nil))
	assert.Equal(t, recordsBefore, len(f.timeline.records))
	assert.Equal(t, models.StatusResubmissionRequired, f.timeline.currentName(bookOwner(book.ID)))
}

func TestAssignExaminersReopensExaminationAfterFailure(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()
	book, err := f.svc.SubmitBook(ctx, SubmitBookRequest{StudentID: "student-1", Title: "Dissertation"}, nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.AssignExaminers(ctx, AssignExaminersRequest{BookID: book.ID, ExaminerIDs: []string{"internal-1", "external-1"}}, nil))
	require.NoError(t, f.svc.RecordExaminerMark(ctx, ExaminerMarkRequest{BookID: book.ID, ExaminerID: "external-1", Mark: 50}, nil))
	require.NoError(t, f.svc.RecordExaminerMark(ctx, ExaminerMarkRequest{BookID: book.ID, ExaminerID: "internal-1", Mark: 40}, nil))
	require.Equal(t, models.StatusResubmissionRequired, f.timeline.currentName(bookOwner(book.ID)))

	// assigning the resubmission round moves the book back under examination
	require.NoError(t, f.svc.AssignExaminers(ctx, AssignExaminersRequest{BookID: book.ID, ExaminerIDs: []string{"internal-1", "external-1"}}, nil))
	require.Equal(t, models.StatusUnderExamination, f.timeline.currentName(bookOwner(book.ID)))
	require.Equal(t, models.StatusUnderExamination, f.timeline.currentName(studentOwner("student-1")))

	require.NoError(t, f.svc.RecordExaminerMark(ctx, ExaminerMarkRequest{BookID: book.ID, ExaminerID: "external-1", Mark: 80}, nil))
	require.NoError(t, f.svc.RecordExaminerMark(ctx, ExaminerMarkRequest{BookID: book.ID, ExaminerID: "internal-1", Mark: 80}, nil))

	assert.InDelta(t, 80.0, f.books.averages[book.ID], 0.001)
	assert.Equal(t, models.StatusAuthorizedForViva, f.timeline.currentName(bookOwner(book.ID)))
	assert.Equal(t, models.StatusAuthorizedForViva, f.timeline.currentName(studentOwner("student-1")))
	assert.Contains(t, f.notifier.calls, "student-1:"+models.StatusAuthorizedForViva)
}

func TestMissingDefinitionAbortsTransition(t *testing.T) {
	f := newWorkflowFixture()
	f.svc = NewWorkflowService(&fakeCatalog{missing: map[string]bool{models.StatusProposalInReview: true}},
		f.timeline, f.students, f.proposals, f.defenses, f.grades, f.books, f.examiners, f.notifier, nil, nil)
	ctx := context.Background()
	proposal, err := f.svc.SubmitProposal(ctx, SubmitProposalRequest{StudentID: "student-1", Title: "Some title"}, nil)
	require.NoError(t, err)

	err = f.svc.AssignReviewers(ctx, AssignReviewersRequest{ProposalID: proposal.ID, ReviewerIDs: []string{"rev-1"}}, nil)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrStatusDefinition.Code, appErr.Code)
	// the roster write persisted even though the transition aborted
	assert.Equal(t, []string{"rev-1"}, f.proposals.reviewers[proposal.ID])
	assert.Equal(t, models.StatusProposalReceived, f.timeline.currentName(proposalOwner(proposal.ID)))
}
