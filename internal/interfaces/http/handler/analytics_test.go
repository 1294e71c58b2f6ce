package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phc/analytics-backend/internal/application/serving"
	"github.com/phc/analytics-backend/internal/domain/shared"
	"github.com/phc/analytics-backend/internal/domain/warehouse"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeTableReader struct {
	rows map[string][]map[string]any
}

func (f *fakeTableReader) TableRows(ctx context.Context, table string) ([]map[string]any, error) {
	rows, ok := f.rows[table]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return rows, nil
}

type fakeDocumentReader struct {
	docs []warehouse.FactDocument
	err  error
}

func (f *fakeDocumentReader) ListFactDocuments(ctx context.Context) ([]warehouse.FactDocument, error) {
	return f.docs, f.err
}

func newTestRouter(tables TableReader, docs serving.DocumentReader) *gin.Engine {
	h := NewAnalyticsHandler(tables, serving.NewService(docs, nil))

	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.GET("/tables/:name", h.GetTable)
	v1.GET("/kpis", h.GetKPIs)
	v1.GET("/revenue/monthly", h.GetMonthlyRevenue)
	return router
}

func doRequest(t *testing.T, router *gin.Engine, path string) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestAnalyticsHandler_GetTable(t *testing.T) {
	router := newTestRouter(&fakeTableReader{rows: map[string][]map[string]any{
		"dim_clients": {{"client_id": 7, "client_name": "Cliente A"}},
	}}, &fakeDocumentReader{})

	t.Run("returns published table rows", func(t *testing.T) {
		w, body := doRequest(t, router, "/api/v1/tables/dim_clients")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, body["success"])
		data := body["data"].(map[string]any)
		assert.Equal(t, "dim_clients", data["table"])
		assert.EqualValues(t, 1, data["row_count"])
	})

	t.Run("unknown table answers 404", func(t *testing.T) {
		w, body := doRequest(t, router, "/api/v1/tables/secret_table")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, false, body["success"])
		errInfo := body["error"].(map[string]any)
		assert.Equal(t, "NOT_FOUND", errInfo["code"])
	})
}

func TestAnalyticsHandler_GetKPIs(t *testing.T) {
	docs := &fakeDocumentReader{docs: []warehouse.FactDocument{
		{DocID: 1, DocDate: "2024-01-15", YearMonth: "2024-01", ClientID: 7, Total: 100},
		{DocID: 2, DocDate: "2024-02-10", YearMonth: "2024-02", ClientID: 8, Total: 300},
	}}
	router := newTestRouter(&fakeTableReader{}, docs)

	t.Run("top cards over all documents", func(t *testing.T) {
		w, body := doRequest(t, router, "/api/v1/kpis")

		assert.Equal(t, http.StatusOK, w.Code)
		data := body["data"].(map[string]any)
		assert.EqualValues(t, 400, data["vendas_total"])
		assert.EqualValues(t, 2, data["n_documentos"])
		assert.EqualValues(t, 2, data["n_clientes"])
		assert.EqualValues(t, 200, data["ticket_medio"])
	})

	t.Run("filters by year and month", func(t *testing.T) {
		w, body := doRequest(t, router, "/api/v1/kpis?year=2024&month=1")

		assert.Equal(t, http.StatusOK, w.Code)
		data := body["data"].(map[string]any)
		assert.EqualValues(t, 100, data["vendas_total"])
		assert.EqualValues(t, 1, data["n_documentos"])
	})

	t.Run("rejects a malformed month", func(t *testing.T) {
		w, body := doRequest(t, router, "/api/v1/kpis?month=13")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		errInfo := body["error"].(map[string]any)
		assert.Equal(t, "BAD_REQUEST", errInfo["code"])
	})

	t.Run("rejects a non-numeric client", func(t *testing.T) {
		w, _ := doRequest(t, router, "/api/v1/kpis?client=abc")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAnalyticsHandler_GetMonthlyRevenue(t *testing.T) {
	docs := &fakeDocumentReader{docs: []warehouse.FactDocument{
		{DocID: 1, DocDate: "2024-01-15", YearMonth: "2024-01", ClientID: 7, Total: 150},
		{DocID: 2, DocDate: "2024-02-10", YearMonth: "2024-02", ClientID: 7, Total: 300},
	}}
	router := newTestRouter(&fakeTableReader{}, docs)

	w, body := doRequest(t, router, "/api/v1/revenue/monthly")

	assert.Equal(t, http.StatusOK, w.Code)
	series := body["data"].([]any)
	require.Len(t, series, 2)

	january := series[0].(map[string]any)
	assert.Equal(t, "2024-01", january["month"])
	assert.EqualValues(t, 150, january["vendas"])
	_, hasGrowth := january["crescimento_pct"]
	assert.False(t, hasGrowth)

	february := series[1].(map[string]any)
	assert.EqualValues(t, 100, february["crescimento_pct"])
}

func TestAnalyticsHandler_ReaderFailure(t *testing.T) {
	router := newTestRouter(&fakeTableReader{}, &fakeDocumentReader{err: errors.New("connection reset")})

	w, body := doRequest(t, router, "/api/v1/kpis")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	errInfo := body["error"].(map[string]any)
	assert.Equal(t, "INTERNAL_ERROR", errInfo["code"])
	// internals are not leaked
	assert.Equal(t, "Internal server error", errInfo["message"])
}

func TestHealthHandler(t *testing.T) {
	router := gin.New()
	router.GET("/health", NewHealthHandler(nil).Health)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
