package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openacademia/research-track-api/internal/service"
	appErrors "github.com/openacademia/research-track-api/pkg/errors"
	"github.com/openacademia/research-track-api/pkg/response"
)

// WorkflowHandler exposes the progress transition endpoints. Path IDs take
// precedence over IDs in the body.
type WorkflowHandler struct {
	workflow *service.WorkflowService
}

// NewWorkflowHandler constructs WorkflowHandler.
func NewWorkflowHandler(workflow *service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflow: workflow}
}

// SubmitProposal godoc
// @Summary Submit a proposal for a student
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.SubmitProposalRequest true "Proposal payload"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/proposals [post]
func (h *WorkflowHandler) SubmitProposal(c *gin.Context) {
	var req service.SubmitProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.StudentID = c.Param("id")
	proposal, err := h.workflow.SubmitProposal(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, proposal)
}

// AssignReviewers godoc
// @Summary Replace the reviewer set of a proposal
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path string true "Proposal ID"
// @Param payload body service.AssignReviewersRequest true "Reviewer payload"
// @Success 204
// @Router /proposals/{id}/reviewers [put]
func (h *WorkflowHandler) AssignReviewers(c *gin.Context) {
	var req service.AssignReviewersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ProposalID = c.Param("id")
	if err := h.workflow.AssignReviewers(c.Request.Context(), req, actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RecordReviewerMark godoc
// @Summary Record a reviewer's mark and verdict
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path string true "Proposal ID"
// @Param payload body service.ReviewerMarkRequest true "Mark payload"
// @Success 204
// @Router /proposals/{id}/review-marks [post]
func (h *WorkflowHandler) RecordReviewerMark(c *gin.Context) {
	var req service.ReviewerMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ProposalID = c.Param("id")
	if err := h.workflow.RecordReviewerMark(c.Request.Context(), req, actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ScheduleDefense godoc
// @Summary Schedule a defense sitting
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path string true "Proposal ID"
// @Param payload body service.ScheduleDefenseRequest true "Defense payload"
// @Success 201 {object} response.Envelope
// @Router /proposals/{id}/defenses [post]
func (h *WorkflowHandler) ScheduleDefense(c *gin.Context) {
	var req service.ScheduleDefenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ProposalID = c.Param("id")
	defense, err := h.workflow.ScheduleDefense(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, defense)
}

// RecordDefenseVerdict godoc
// @Summary Record the panel verdict on the current sitting
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path string true "Proposal ID"
// @Param payload body service.DefenseVerdictRequest true "Verdict payload"
// @Success 204
// @Router /proposals/{id}/defense-verdict [post]
func (h *WorkflowHandler) RecordDefenseVerdict(c *gin.Context) {
	var req service.DefenseVerdictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ProposalID = c.Param("id")
	if err := h.workflow.RecordDefenseVerdict(c.Request.Context(), req, actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RecordPanelistMark godoc
// @Summary Record a panelist's defense mark
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path string true "Proposal ID"
// @Param payload body service.PanelistMarkRequest true "Mark payload"
// @Success 204
// @Router /proposals/{id}/defense-marks [post]
func (h *WorkflowHandler) RecordPanelistMark(c *gin.Context) {
	var req service.PanelistMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ProposalID = c.Param("id")
	if err := h.workflow.RecordPanelistMark(c.Request.Context(), req, actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetFieldLetterDate godoc
// @Summary Record the field letter issue date
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.FieldLetterRequest true "Letter payload"
// @Success 204
// @Router /students/{id}/field-letter [post]
func (h *WorkflowHandler) SetFieldLetterDate(c *gin.Context) {
	var req service.FieldLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.StudentID = c.Param("id")
	if err := h.workflow.SetFieldLetterDate(c.Request.Context(), req, actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SubmitBook godoc
// @Summary Submit a dissertation book for a student
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.SubmitBookRequest true "Book payload"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/books [post]
func (h *WorkflowHandler) SubmitBook(c *gin.Context) {
	var req service.SubmitBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.StudentID = c.Param("id")
	book, err := h.workflow.SubmitBook(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, book)
}

// AssignExaminers godoc
// @Summary Assign examiners to a book
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path string true "Book ID"
// @Param payload body service.AssignExaminersRequest true "Examiner payload"
// @Success 204
// @Router /books/{id}/examiners [put]
func (h *WorkflowHandler) AssignExaminers(c *gin.Context) {
	var req service.AssignExaminersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.BookID = c.Param("id")
	if err := h.workflow.AssignExaminers(c.Request.Context(), req, actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RecordExaminerMark godoc
// @Summary Record an examiner's mark on a book
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path string true "Book ID"
// @Param payload body service.ExaminerMarkRequest true "Mark payload"
// @Success 204
// @Router /books/{id}/examiner-marks [post]
func (h *WorkflowHandler) RecordExaminerMark(c *gin.Context) {
	var req service.ExaminerMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.BookID = c.Param("id")
	if err := h.workflow.RecordExaminerMark(c.Request.Context(), req, actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
