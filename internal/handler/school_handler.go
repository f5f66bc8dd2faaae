package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openacademia/research-track-api/internal/service"
	appErrors "github.com/openacademia/research-track-api/pkg/errors"
	"github.com/openacademia/research-track-api/pkg/response"
)

// SchoolHandler exposes school and campus endpoints.
type SchoolHandler struct {
	schools *service.SchoolService
}

// NewSchoolHandler constructs SchoolHandler.
func NewSchoolHandler(schools *service.SchoolService) *SchoolHandler {
	return &SchoolHandler{schools: schools}
}

// ListSchools godoc
// @Summary List schools
// @Tags Schools
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schools [get]
func (h *SchoolHandler) ListSchools(c *gin.Context) {
	schools, err := h.schools.ListSchools(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schools, nil)
}

// CreateSchool godoc
// @Summary Create school
// @Tags Schools
// @Accept json
// @Produce json
// @Param payload body service.SchoolRequest true "School payload"
// @Success 201 {object} response.Envelope
// @Router /schools [post]
func (h *SchoolHandler) CreateSchool(c *gin.Context) {
	var req service.SchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	school, err := h.schools.CreateSchool(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, school)
}

// ListCampuses godoc
// @Summary List campuses
// @Tags Schools
// @Produce json
// @Param schoolId query string false "Filter by school"
// @Success 200 {object} response.Envelope
// @Router /campuses [get]
func (h *SchoolHandler) ListCampuses(c *gin.Context) {
	campuses, err := h.schools.ListCampuses(c.Request.Context(), c.Query("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, campuses, nil)
}

// CreateCampus godoc
// @Summary Create campus
// @Tags Schools
// @Accept json
// @Produce json
// @Param payload body service.CampusRequest true "Campus payload"
// @Success 201 {object} response.Envelope
// @Router /campuses [post]
func (h *SchoolHandler) CreateCampus(c *gin.Context) {
	var req service.CampusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	campus, err := h.schools.CreateCampus(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, campus)
}
