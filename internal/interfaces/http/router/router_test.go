package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/phc/analytics-backend/internal/application/serving"
	"github.com/phc/analytics-backend/internal/domain/shared"
	"github.com/phc/analytics-backend/internal/domain/warehouse"
	"github.com/phc/analytics-backend/internal/infrastructure/config"
	"github.com/phc/analytics-backend/internal/interfaces/http/handler"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubTables struct{}

func (stubTables) TableRows(ctx context.Context, table string) ([]map[string]any, error) {
	if table != "dim_clients" {
		return nil, shared.ErrNotFound
	}
	return []map[string]any{{"client_id": 7}}, nil
}

type stubDocuments struct{}

func (stubDocuments) ListFactDocuments(ctx context.Context) ([]warehouse.FactDocument, error) {
	return nil, nil
}

func newEngine(t *testing.T) *gin.Engine {
	cfg := &config.Config{}
	engine, err := New(cfg, zap.NewNop(), Handlers{
		Analytics: handler.NewAnalyticsHandler(stubTables{}, serving.NewService(stubDocuments{}, nil)),
		Health:    handler.NewHealthHandler(nil),
	})
	require.NoError(t, err)
	return engine
}

func TestRouter_Routes(t *testing.T) {
	engine := newEngine(t)

	tests := []struct {
		path   string
		status int
	}{
		{"/health", http.StatusOK},
		{"/api/v1/tables/dim_clients", http.StatusOK},
		{"/api/v1/tables/unknown", http.StatusNotFound},
		{"/api/v1/kpis", http.StatusOK},
		{"/api/v1/revenue/monthly", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRouter_RequestIDPropagation(t *testing.T) {
	engine := newEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tables/unknown", nil)
	req.Header.Set("X-Request-ID", "trace-me")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, "trace-me", w.Header().Get("X-Request-ID"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	errInfo := body["error"].(map[string]any)
	assert.Equal(t, "trace-me", errInfo["request_id"])
}
