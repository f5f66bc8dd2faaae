package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openacademia/research-track-api/internal/service"
	appErrors "github.com/openacademia/research-track-api/pkg/errors"
	"github.com/openacademia/research-track-api/pkg/response"
)

// RosterHandler exposes the reviewer, panelist and examiner rosters.
type RosterHandler struct {
	roster *service.RosterService
}

// NewRosterHandler constructs RosterHandler.
func NewRosterHandler(roster *service.RosterService) *RosterHandler {
	return &RosterHandler{roster: roster}
}

// ListReviewers godoc
// @Summary List reviewers
// @Tags Roster
// @Produce json
// @Param campusId query string false "Filter by campus"
// @Success 200 {object} response.Envelope
// @Router /reviewers [get]
func (h *RosterHandler) ListReviewers(c *gin.Context) {
	reviewers, err := h.roster.ListReviewers(c.Request.Context(), c.Query("campusId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reviewers, nil)
}

// CreateReviewer godoc
// @Summary Create reviewer
// @Tags Roster
// @Accept json
// @Produce json
// @Param payload body service.PersonRequest true "Reviewer payload"
// @Success 201 {object} response.Envelope
// @Router /reviewers [post]
func (h *RosterHandler) CreateReviewer(c *gin.Context) {
	var req service.PersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	reviewer, err := h.roster.CreateReviewer(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reviewer)
}

// UpdateReviewer godoc
// @Summary Update reviewer
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path string true "Reviewer ID"
// @Param payload body service.PersonRequest true "Reviewer payload"
// @Success 200 {object} response.Envelope
// @Router /reviewers/{id} [put]
func (h *RosterHandler) UpdateReviewer(c *gin.Context) {
	var req service.PersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	reviewer, err := h.roster.UpdateReviewer(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reviewer, nil)
}

// DeleteReviewer godoc
// @Summary Delete reviewer without assignments
// @Tags Roster
// @Produce json
// @Param id path string true "Reviewer ID"
// @Success 204
// @Router /reviewers/{id} [delete]
func (h *RosterHandler) DeleteReviewer(c *gin.Context) {
	if err := h.roster.DeleteReviewer(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListPanelists godoc
// @Summary List panelists
// @Tags Roster
// @Produce json
// @Param campusId query string false "Filter by campus"
// @Success 200 {object} response.Envelope
// @Router /panelists [get]
func (h *RosterHandler) ListPanelists(c *gin.Context) {
	panelists, err := h.roster.ListPanelists(c.Request.Context(), c.Query("campusId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, panelists, nil)
}

// CreatePanelist godoc
// @Summary Create panelist
// @Tags Roster
// @Accept json
// @Produce json
// @Param payload body service.PersonRequest true "Panelist payload"
// @Success 201 {object} response.Envelope
// @Router /panelists [post]
func (h *RosterHandler) CreatePanelist(c *gin.Context) {
	var req service.PersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	panelist, err := h.roster.CreatePanelist(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, panelist)
}

// UpdatePanelist godoc
// @Summary Update panelist
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path string true "Panelist ID"
// @Param payload body service.PersonRequest true "Panelist payload"
// @Success 200 {object} response.Envelope
// @Router /panelists/{id} [put]
func (h *RosterHandler) UpdatePanelist(c *gin.Context) {
	var req service.PersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	panelist, err := h.roster.UpdatePanelist(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, panelist, nil)
}

// DeletePanelist godoc
// @Summary Delete panelist without panel memberships
// @Tags Roster
// @Produce json
// @Param id path string true "Panelist ID"
// @Success 204
// @Router /panelists/{id} [delete]
func (h *RosterHandler) DeletePanelist(c *gin.Context) {
	if err := h.roster.DeletePanelist(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListExaminers godoc
// @Summary List examiners
// @Tags Roster
// @Produce json
// @Param campusId query string false "Filter by campus"
// @Success 200 {object} response.Envelope
// @Router /examiners [get]
func (h *RosterHandler) ListExaminers(c *gin.Context) {
	examiners, err := h.roster.ListExaminers(c.Request.Context(), c.Query("campusId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, examiners, nil)
}

// CreateExaminer godoc
// @Summary Create examiner
// @Tags Roster
// @Accept json
// @Produce json
// @Param payload body service.ExaminerRequest true "Examiner payload"
// @Success 201 {object} response.Envelope
// @Router /examiners [post]
func (h *RosterHandler) CreateExaminer(c *gin.Context) {
	var req service.ExaminerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	examiner, err := h.roster.CreateExaminer(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, examiner)
}

// UpdateExaminer godoc
// @Summary Update examiner
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path string true "Examiner ID"
// @Param payload body service.ExaminerRequest true "Examiner payload"
// @Success 200 {object} response.Envelope
// @Router /examiners/{id} [put]
func (h *RosterHandler) UpdateExaminer(c *gin.Context) {
	var req service.ExaminerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	examiner, err := h.roster.UpdateExaminer(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, examiner, nil)
}

// DeleteExaminer godoc
// @Summary Delete examiner without book assignments
// @Tags Roster
// @Produce json
// @Param id path string true "Examiner ID"
// @Success 204
// @Router /examiners/{id} [delete]
func (h *RosterHandler) DeleteExaminer(c *gin.Context) {
	if err := h.roster.DeleteExaminer(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
