package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/storefront-backend/internal/admin"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	up := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	rec := httptest.NewRecorder()
	HealthReady(cfg, map[string]Pinger{"db": up, "redis": up}, testLogger()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Storefront-Env"))

	rec = httptest.NewRecorder()
	HealthReady(cfg, map[string]Pinger{"db": up, "redis": down}, testLogger()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var envelope struct {
		Error struct {
			Details map[string]map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "down", envelope.Error.Details["checks"]["redis"])
	assert.Equal(t, "up", envelope.Error.Details["checks"]["db"])
}

type stubAdminService struct {
	year *int
}

func (s *stubAdminService) Summary(ctx context.Context) (*admin.Summary, error) {
	return &admin.Summary{Users: 3}, nil
}

func (s *stubAdminService) MonthlySales(ctx context.Context, year *int) ([]admin.MonthlySales, error) {
	s.year = year
	return []admin.MonthlySales{}, nil
}

func (s *stubAdminService) CategoryDistribution(ctx context.Context) ([]admin.CategoryBucket, error) {
	return []admin.CategoryBucket{}, nil
}

func (s *stubAdminService) StatusDistribution(ctx context.Context) ([]admin.StatusCount, error) {
	return []admin.StatusCount{}, nil
}

func TestAdminMonthlySalesYear(t *testing.T) {
	svc := &stubAdminService{}

	rec := httptest.NewRecorder()
	AdminMonthlySales(svc, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/sales/monthly?year=1800", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	AdminMonthlySales(svc, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/sales/monthly", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.year)

	rec = httptest.NewRecorder()
	AdminMonthlySales(svc, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/sales/monthly?year=2025", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.year)
	assert.Equal(t, 2025, *svc.year)
}
