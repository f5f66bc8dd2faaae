package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openacademia/research-track-api/internal/models"
	"github.com/openacademia/research-track-api/internal/service"
	appErrors "github.com/openacademia/research-track-api/pkg/errors"
	"github.com/openacademia/research-track-api/pkg/response"
)

type reportService interface {
	DelayReport(ctx context.Context, schoolID string) (*models.DelayReport, error)
	RequestExport(ctx context.Context, format, schoolID, actorID string) (*models.ReportJob, error)
	JobStatus(ctx context.Context, id string) (*models.ReportJob, string, error)
	ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error)
	FieldLetterPDF(ctx context.Context, studentID string) ([]byte, string, error)
}

// ReportHandler exposes the delay report and export job endpoints.
type ReportHandler struct {
	reports reportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports reportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Delays godoc
// @Summary Synchronous delay report
// @Tags Reports
// @Produce json
// @Param schoolId query string false "Scope to one school"
// @Success 200 {object} response.Envelope
// @Router /reports/delays [get]
func (h *ReportHandler) Delays(c *gin.Context) {
	report, err := h.reports.DelayReport(c.Request.Context(), c.Query("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// RequestExport godoc
// @Summary Queue a delay report export
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body object true "Export request (format, school_id)"
// @Success 202 {object} response.Envelope
// @Router /reports/exports [post]
func (h *ReportHandler) RequestExport(c *gin.Context) {
	var payload struct {
		Format   string `json:"format" binding:"required"`
		SchoolID string `json:"school_id"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "format is required"))
		return
	}
	actorID := ""
	if claims := claimsFromContext(c); claims != nil {
		actorID = claims.UserID
	}
	job, err := h.reports.RequestExport(c.Request.Context(), payload.Format, payload.SchoolID, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// ExportStatus godoc
// @Summary Export job status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /reports/exports/{id} [get]
func (h *ReportHandler) ExportStatus(c *gin.Context) {
	job, token, err := h.reports.JobStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	var meta map[string]interface{}
	if token != "" {
		meta = map[string]interface{}{"download_url": "/api/v1/reports/downloads/" + token}
	}
	response.JSON(c, http.StatusOK, job, nil, meta)
}

// Download godoc
// @Summary Download a finished export
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200
// @Router /reports/downloads/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	download, err := h.reports.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	contentType := "text/csv"
	if download.Format == "pdf" {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", `attachment; filename="`+download.Filename+`"`)
	c.Header("Content-Type", contentType)
	c.File(download.File.Name())
}

// FieldLetter godoc
// @Summary Download the field authorization letter
// @Tags Reports
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Success 200
// @Router /students/{id}/field-letter.pdf [get]
func (h *ReportHandler) FieldLetter(c *gin.Context) {
	data, filename, err := h.reports.FieldLetterPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}
