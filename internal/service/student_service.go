package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openacademia/research-track-api/internal/models"
	appErrors "github.com/openacademia/research-track-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	ExistsByRegNo(ctx context.Context, regNo string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	SetSupervisor(ctx context.Context, studentID string, supervisorID *string) error
	Deactivate(ctx context.Context, id string) error
}

type schoolReader interface {
	FindSchoolByID(ctx context.Context, id string) (*models.School, error)
	FindCampusByID(ctx context.Context, id string) (*models.Campus, error)
}

type supervisorReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type progressProposalReader interface {
	CurrentByStudent(ctx context.Context, studentID string) (*models.Proposal, error)
	Reviewers(ctx context.Context, proposalID string) ([]models.Reviewer, error)
	Panelists(ctx context.Context, proposalID string) ([]models.Panelist, error)
}

type progressGradeReader interface {
	ReviewGradesByProposal(ctx context.Context, proposalID string) ([]models.ReviewGrade, error)
	DefenseGradesByProposal(ctx context.Context, proposalID string) ([]models.DefenseGrade, error)
}

type progressDefenseReader interface {
	ListByProposal(ctx context.Context, proposalID string) ([]models.ProposalDefense, error)
}

type progressBookReader interface {
	CurrentByStudent(ctx context.Context, studentID string) (*models.Book, error)
}

type progressAssignmentReader interface {
	CurrentAssignments(ctx context.Context, bookID string) ([]models.ExaminerAssignmentDetail, error)
}

// CreateStudentRequest is the student registration payload.
type CreateStudentRequest struct {
	RegNo    string `json:"reg_no" validate:"required,min=3,max=40"`
	FullName string `json:"full_name" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"max=30"`
	SchoolID string `json:"school_id" validate:"required"`
	CampusID string `json:"campus_id" validate:"required"`
}

// UpdateStudentRequest is the student edit payload.
type UpdateStudentRequest struct {
	RegNo    string `json:"reg_no" validate:"required,min=3,max=40"`
	FullName string `json:"full_name" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"max=30"`
	SchoolID string `json:"school_id" validate:"required"`
	CampusID string `json:"campus_id" validate:"required"`
	Active   bool   `json:"active"`
}

// AssignSupervisorRequest binds a supervisor to a student.
type AssignSupervisorRequest struct {
	SupervisorID string `json:"supervisor_id" validate:"required"`
}

// StudentService manages the student roster and the aggregate progress view.
type StudentService struct {
	repo        studentRepository
	schools     schoolReader
	supervisors supervisorReader
	proposals   progressProposalReader
	grades      progressGradeReader
	defenses    progressDefenseReader
	books       progressBookReader
	assignments progressAssignmentReader
	timeline    statusTimelineRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(
	repo studentRepository,
	schools schoolReader,
	supervisors supervisorReader,
	proposals progressProposalReader,
	grades progressGradeReader,
	defenses progressDefenseReader,
	books progressBookReader,
	assignments progressAssignmentReader,
	timeline statusTimelineRepository,
	validate *validator.Validate,
	logger *zap.Logger,
) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		repo:        repo,
		schools:     schools,
		supervisors: supervisors,
		proposals:   proposals,
		grades:      grades,
		defenses:    defenses,
		books:       books,
		assignments: assignments,
		timeline:    timeline,
		validator:   validate,
		logger:      logger,
	}
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one student detail.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *StudentService) checkSchoolAndCampus(ctx context.Context, schoolID, campusID string) error {
	if _, err := s.schools.FindSchoolByID(ctx, schoolID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	campus, err := s.schools.FindCampusByID(ctx, campusID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "campus not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load campus")
	}
	if campus.SchoolID != schoolID {
		return appErrors.Clone(appErrors.ErrValidation, "campus does not belong to the school")
	}
	return nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := s.checkSchoolAndCampus(ctx, req.SchoolID, req.CampusID); err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByRegNo(ctx, req.RegNo, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "registration number already in use")
	}

	student := models.Student{
		RegNo:    req.RegNo,
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		SchoolID: req.SchoolID,
		CampusID: req.CampusID,
		Active:   true,
	}
	if err := s.repo.Create(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.logger.Info("student created", zap.String("student_id", student.ID), zap.String("reg_no", student.RegNo))
	return s.Get(ctx, student.ID)
}

// Update edits an existing student.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.checkSchoolAndCampus(ctx, req.SchoolID, req.CampusID); err != nil {
		return nil, err
	}
	taken, err := s.repo.ExistsByRegNo(ctx, req.RegNo, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration number")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "registration number already in use")
	}

	student := existing.Student
	student.RegNo = req.RegNo
	student.FullName = req.FullName
	student.Email = req.Email
	student.Phone = req.Phone
	student.SchoolID = req.SchoolID
	student.CampusID = req.CampusID
	student.Active = req.Active
	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return s.Get(ctx, id)
}

// Deactivate soft-deletes a student.
func (s *StudentService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}
	return nil
}

// AssignSupervisor binds a supervisor to the student. Only superadmins and
// research admins may reassign supervision.
func (s *StudentService) AssignSupervisor(ctx context.Context, studentID string, req AssignSupervisorRequest, actorRole models.UserRole) (*models.StudentDetail, error) {
	if actorRole != models.RoleSuperAdmin && actorRole != models.RoleResearchAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only superadmins and research admins may assign supervisors")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid supervisor payload")
	}
	if _, err := s.repo.FindByID(ctx, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	supervisor, err := s.supervisors.FindByID(ctx, req.SupervisorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "supervisor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervisor")
	}
	if supervisor.Role != models.RoleSupervisor {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user is not a supervisor")
	}
	if !supervisor.Active {
		return nil, appErrors.Clone(appErrors.ErrState, "supervisor account is inactive")
	}
	if err := s.repo.SetSupervisor(ctx, studentID, &req.SupervisorID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign supervisor")
	}
	s.logger.Info("supervisor assigned",
		zap.String("student_id", studentID),
		zap.String("supervisor_id", req.SupervisorID))
	return s.Get(ctx, studentID)
}

// Progress aggregates the student's timeline with their current proposal
// and book, grades and defense attempts included.
func (s *StudentService) Progress(ctx context.Context, studentID string) (*models.StudentProgress, error) {
	student, err := s.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}
	history, err := s.timeline.History(ctx, models.StatusOwner{Kind: models.OwnerStudent, ID: studentID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status history")
	}
	progress := models.StudentProgress{Student: *student, History: history}

	proposal, err := s.proposals.CurrentByStudent(ctx, studentID)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load proposal")
	}
	if proposal != nil {
		detail := models.ProposalDetail{Proposal: *proposal}
		if detail.Reviewers, err = s.proposals.Reviewers(ctx, proposal.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reviewers")
		}
		if detail.Panelists, err = s.proposals.Panelists(ctx, proposal.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load panelists")
		}
		if detail.ReviewGrades, err = s.grades.ReviewGradesByProposal(ctx, proposal.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review grades")
		}
		if detail.DefenseGrades, err = s.grades.DefenseGradesByProposal(ctx, proposal.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load defense grades")
		}
		if detail.Defenses, err = s.defenses.ListByProposal(ctx, proposal.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load defenses")
		}
		progress.Proposal = &detail
	}

	book, err := s.books.CurrentByStudent(ctx, studentID)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load book")
	}
	if book != nil {
		detail := models.BookDetail{Book: *book}
		if detail.Assignments, err = s.assignments.CurrentAssignments(ctx, book.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load examiner assignments")
		}
		progress.Book = &detail
	}
	return &progress, nil
}
