package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/openacademia/research-track-api/internal/models"
)

type fakeDashboardSrv struct {
	summary    *models.DashboardSummary
	summaryErr error
	cached     bool
	orphans    []models.OrphanedOwner
	lastSchool string
}

func (f *fakeDashboardSrv) Summary(_ context.Context, schoolID string) (*models.DashboardSummary, bool, error) {
	f.lastSchool = schoolID
	return f.summary, f.cached, f.summaryErr
}

func (f *fakeDashboardSrv) Reconciliation(context.Context) ([]models.OrphanedOwner, error) {
	return f.orphans, nil
}

func TestDashboardHandlerSummary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeDashboardSrv{
		summary: &models.DashboardSummary{
			StatusDistribution: []models.StatusCount{{StatusName: "proposal received", Count: 4}},
			GeneratedAt:        time.Now(),
		},
		cached: true,
	}
	handler := NewDashboardHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/summary?schoolId=school-1", nil)

	handler.Summary(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "school-1", srv.lastSchool)
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, true, envelope.Meta["cached"])
}

func TestDashboardHandlerSummaryUnscoped(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeDashboardSrv{summary: &models.DashboardSummary{}}
	handler := NewDashboardHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/summary", nil)

	handler.Summary(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", srv.lastSchool)
}

func TestDashboardHandlerReconciliation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeDashboardSrv{orphans: []models.OrphanedOwner{
		{OwnerKind: models.OwnerProposal, OwnerID: "prop-9"},
	}}
	handler := NewDashboardHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/reconciliation", nil)

	handler.Reconciliation(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "prop-9")
}

type responseEnvelope struct {
	Data json.RawMessage        `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}
