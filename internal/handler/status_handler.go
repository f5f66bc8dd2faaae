package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openacademia/research-track-api/internal/models"
	"github.com/openacademia/research-track-api/internal/service"
	appErrors "github.com/openacademia/research-track-api/pkg/errors"
	"github.com/openacademia/research-track-api/pkg/response"
)

// StatusHandler exposes the status definition catalog and raw timelines.
type StatusHandler struct {
	catalog  *service.CatalogService
	timeline *service.TimelineService
}

// NewStatusHandler constructs StatusHandler.
func NewStatusHandler(catalog *service.CatalogService, timeline *service.TimelineService) *StatusHandler {
	return &StatusHandler{catalog: catalog, timeline: timeline}
}

// ListDefinitions godoc
// @Summary List status definitions
// @Tags Statuses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /statuses [get]
func (h *StatusHandler) ListDefinitions(c *gin.Context) {
	defs, err := h.catalog.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, defs, nil)
}

// CreateDefinition godoc
// @Summary Create status definition
// @Tags Statuses
// @Accept json
// @Produce json
// @Param payload body service.StatusDefinitionRequest true "Definition payload"
// @Success 201 {object} response.Envelope
// @Router /statuses [post]
func (h *StatusHandler) CreateDefinition(c *gin.Context) {
	var req service.StatusDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	def, err := h.catalog.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, def)
}

// UpdateDefinition godoc
// @Summary Update status definition
// @Tags Statuses
// @Accept json
// @Produce json
// @Param id path string true "Definition ID"
// @Param payload body service.StatusDefinitionRequest true "Definition payload"
// @Success 200 {object} response.Envelope
// @Router /statuses/{id} [put]
func (h *StatusHandler) UpdateDefinition(c *gin.Context) {
	var req service.StatusDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	def, err := h.catalog.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, def, nil)
}

func ownerFromParams(c *gin.Context) (models.StatusOwner, bool) {
	kind := models.StatusOwnerKind(strings.ToUpper(c.Param("kind")))
	switch kind {
	case models.OwnerStudent, models.OwnerProposal, models.OwnerBook:
		return models.StatusOwner{Kind: kind, ID: c.Param("id")}, true
	default:
		return models.StatusOwner{}, false
	}
}

// History godoc
// @Summary Status history for an owner
// @Tags Statuses
// @Produce json
// @Param kind path string true "Owner kind (student, proposal, book)"
// @Param id path string true "Owner ID"
// @Success 200 {object} response.Envelope
// @Router /timelines/{kind}/{id}/history [get]
func (h *StatusHandler) History(c *gin.Context) {
	owner, ok := ownerFromParams(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown owner kind"))
		return
	}
	entries, err := h.timeline.History(c.Request.Context(), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Current godoc
// @Summary Current status for an owner
// @Tags Statuses
// @Produce json
// @Param kind path string true "Owner kind (student, proposal, book)"
// @Param id path string true "Owner ID"
// @Success 200 {object} response.Envelope
// @Router /timelines/{kind}/{id}/current [get]
func (h *StatusHandler) Current(c *gin.Context) {
	owner, ok := ownerFromParams(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown owner kind"))
		return
	}
	entry, err := h.timeline.Current(c.Request.Context(), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}
