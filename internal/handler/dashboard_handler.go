package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openacademia/research-track-api/internal/models"
	"github.com/openacademia/research-track-api/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context, schoolID string) (*models.DashboardSummary, bool, error)
	Reconciliation(ctx context.Context) ([]models.OrphanedOwner, error)
}

// DashboardHandler exposes the aggregate dashboard endpoints.
type DashboardHandler struct {
	dashboard dashboardService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboard dashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Summary godoc
// @Summary Status distribution and school summaries
// @Tags Dashboard
// @Produce json
// @Param schoolId query string false "Scope distribution to one school"
// @Success 200 {object} response.Envelope
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, cached, err := h.dashboard.Summary(c.Request.Context(), c.Query("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, map[string]interface{}{"cached": cached})
}

// Reconciliation godoc
// @Summary Owners whose timeline lost its current record
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/reconciliation [get]
func (h *DashboardHandler) Reconciliation(c *gin.Context) {
	owners, err := h.dashboard.Reconciliation(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, owners, nil)
}
