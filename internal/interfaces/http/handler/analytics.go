package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/phc/analytics-backend/internal/application/serving"
)

// TableReader dumps published gold tables as generic rows.
type TableReader interface {
	TableRows(ctx context.Context, table string) ([]map[string]any, error)
}

// AnalyticsHandler serves the published warehouse: raw table dumps, KPI
// top-cards and the monthly revenue timeseries.
type AnalyticsHandler struct {
	BaseHandler
	tables  TableReader
	serving *serving.Service
}

// NewAnalyticsHandler creates the handler.
func NewAnalyticsHandler(tables TableReader, servingService *serving.Service) *AnalyticsHandler {
	return &AnalyticsHandler{tables: tables, serving: servingService}
}

// GetTable handles GET /api/v1/tables/:name
func (h *AnalyticsHandler) GetTable(c *gin.Context) {
	name := c.Param("name")

	rows, err := h.tables.TableRows(c.Request.Context(), name)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, gin.H{"table": name, "row_count": len(rows), "rows": rows})
}

// GetKPIs handles GET /api/v1/kpis
func (h *AnalyticsHandler) GetKPIs(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	kpis, err := h.serving.KPIs(c.Request.Context(), filter)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, kpis)
}

// GetMonthlyRevenue handles GET /api/v1/revenue/monthly
func (h *AnalyticsHandler) GetMonthlyRevenue(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	series, err := h.serving.MonthlyRevenue(c.Request.Context(), filter)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, series)
}

// parseFilter reads the optional year/month/client query parameters. A
// malformed value answers 400 and reports false.
func (h *AnalyticsHandler) parseFilter(c *gin.Context) (serving.Filter, bool) {
	var filter serving.Filter

	year, ok := h.intQuery(c, "year", 1900, 2200)
	if !ok {
		return filter, false
	}
	month, ok := h.intQuery(c, "month", 1, 12)
	if !ok {
		return filter, false
	}
	clientID, ok := h.intQuery(c, "client", 1, 1<<31-1)
	if !ok {
		return filter, false
	}

	filter.Year = year
	filter.Month = month
	filter.ClientID = clientID
	return filter, true
}

func (h *AnalyticsHandler) intQuery(c *gin.Context, name string, min, max int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < min || value > max {
		h.BadRequest(c, "invalid "+name+" parameter")
		return 0, false
	}
	return value, true
}
