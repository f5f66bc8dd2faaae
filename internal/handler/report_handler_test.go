package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/openacademia/research-track-api/internal/middleware"
	"github.com/openacademia/research-track-api/internal/models"
	"github.com/openacademia/research-track-api/internal/service"
	appErrors "github.com/openacademia/research-track-api/pkg/errors"
)

type reportServiceMock struct {
	report      *models.DelayReport
	job         *models.ReportJob
	jobToken    string
	download    *service.ReportDownload
	downloadErr error
	letter      []byte
	letterName  string
	letterErr   error
	lastFormat  string
	lastActor   string
}

func (m *reportServiceMock) DelayReport(context.Context, string) (*models.DelayReport, error) {
	return m.report, nil
}

func (m *reportServiceMock) RequestExport(_ context.Context, format, _ string, actorID string) (*models.ReportJob, error) {
	m.lastFormat = format
	m.lastActor = actorID
	return m.job, nil
}

func (m *reportServiceMock) JobStatus(context.Context, string) (*models.ReportJob, string, error) {
	return m.job, m.jobToken, nil
}

func (m *reportServiceMock) ResolveDownload(context.Context, string) (*service.ReportDownload, error) {
	return m.download, m.downloadErr
}

func (m *reportServiceMock) FieldLetterPDF(context.Context, string) ([]byte, string, error) {
	return m.letter, m.letterName, m.letterErr
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestReportHandlerRequestExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{
		job: &models.ReportJob{ID: "job-1", Format: "csv", Status: models.ReportJobPending},
	}
	handler := NewReportHandler(mockSvc)

	payload, _ := json.Marshal(map[string]string{"format": "csv", "school_id": "school-1"})
	c, w := newGinContext(http.MethodPost, "/reports/exports", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleResearchAdmin})

	handler.RequestExport(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, "csv", mockSvc.lastFormat)
	require.Equal(t, "admin-1", mockSvc.lastActor)
}

func TestReportHandlerRequestExportMissingFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{})

	c, w := newGinContext(http.MethodPost, "/reports/exports", []byte(`{}`))

	handler.RequestExport(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerExportStatusIncludesDownloadURL(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{
		job:      &models.ReportJob{ID: "job-1", Format: "csv", Status: models.ReportJobCompleted},
		jobToken: "signed-token",
	}
	handler := NewReportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/reports/exports/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}

	handler.ExportStatus(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, "/api/v1/reports/downloads/signed-token", envelope.Meta["download_url"])
}

func TestReportHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	file, err := os.CreateTemp(t.TempDir(), "delay*.csv")
	require.NoError(t, err)
	_, _ = file.WriteString("reg_no,full_name\n")
	_, _ = file.Seek(0, 0)

	mockSvc := &reportServiceMock{
		download: &service.ReportDownload{
			File:      file,
			Filename:  "delay-report.csv",
			Format:    "csv",
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
	handler := NewReportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/reports/downloads/signed-token", nil)
	c.Params = gin.Params{{Key: "token", Value: "signed-token"}}

	handler.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Disposition"), "delay-report.csv")
}

func TestReportHandlerDownloadInvalidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{downloadErr: appErrors.ErrForbidden}
	handler := NewReportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/reports/downloads/bogus", nil)
	c.Params = gin.Params{{Key: "token", Value: "bogus"}}

	handler.Download(c)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestReportHandlerFieldLetter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{
		letter:     []byte("%PDF-1.4"),
		letterName: "field-letter-R-001.pdf",
	}
	handler := NewReportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/students/stu-1/field-letter.pdf", nil)
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}

	handler.FieldLetter(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "field-letter-R-001.pdf")
}
