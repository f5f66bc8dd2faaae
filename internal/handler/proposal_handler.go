package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openacademia/research-track-api/internal/service"
	"github.com/openacademia/research-track-api/pkg/response"
)

// ProposalHandler exposes proposal read endpoints.
type ProposalHandler struct {
	proposals *service.ProposalService
}

// NewProposalHandler constructs ProposalHandler.
func NewProposalHandler(proposals *service.ProposalService) *ProposalHandler {
	return &ProposalHandler{proposals: proposals}
}

// ListByStudent godoc
// @Summary List a student's proposals
// @Tags Proposals
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/proposals [get]
func (h *ProposalHandler) ListByStudent(c *gin.Context) {
	proposals, err := h.proposals.ListByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proposals, nil)
}

// Get godoc
// @Summary Proposal detail with people, grades and defenses
// @Tags Proposals
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} response.Envelope
// @Router /proposals/{id} [get]
func (h *ProposalHandler) Get(c *gin.Context) {
	detail, err := h.proposals.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// History godoc
// @Summary Proposal status history
// @Tags Proposals
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} response.Envelope
// @Router /proposals/{id}/history [get]
func (h *ProposalHandler) History(c *gin.Context) {
	entries, err := h.proposals.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
