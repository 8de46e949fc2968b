package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmreyes/memesnipe/internal/domain"
	"github.com/jmreyes/memesnipe/internal/strategy"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func okPing() Pinger   { return pingFunc(func(context.Context) error { return nil }) }
func downPing() Pinger { return pingFunc(func(context.Context) error { return errors.New("down") }) }

func TestHealthAllOK(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{"redis": okPing(), "postgres": okPing()})

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["redis"])
	assert.Equal(t, "ok", checks["postgres"])
}

func TestHealthDegradedOn503(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{"redis": okPing(), "postgres": downPing()})

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["redis"], "healthy checks still reported individually")
	assert.Equal(t, "down", checks["postgres"])
}

func TestHealthSkipsNilChecks(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{"redis": okPing(), "postgres": nil})

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	checks := body["checks"].(map[string]any)
	assert.NotContains(t, checks, "postgres")
}

type stubRiskStore struct {
	halt domain.HaltState
}

func (s stubRiskStore) Snapshot(context.Context) (domain.RiskSnapshot, error) {
	return domain.RiskSnapshot{}, nil
}
func (s stubRiskStore) TradingEnabled(context.Context) (bool, error) { return !s.halt.Halted, nil }
func (s stubRiskStore) HaltState(context.Context) (domain.HaltState, error) {
	return s.halt, nil
}
func (s stubRiskStore) SetHalt(context.Context, domain.HaltState) error { return nil }

func (s stubRiskStore) Ping(context.Context) error { return nil }

func TestStatusReportsHaltAndStrategies(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := strategy.NewRegistry(logger)
	factory := strategy.NewFactory(logger)
	s, err := factory.New("", strategy.FamilyMomentum, nil)
	require.NoError(t, err)
	registry.Register(s.ID(), s)

	store := stubRiskStore{halt: domain.HaltState{
		Halted:    true,
		Reason:    "drawdown breach",
		TrippedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}}
	h := NewStatusHandler(store, registry, nil, "paper", logger)

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "paper", body["mode"])
	assert.Equal(t, float64(1), body["strategy_count"])
	halt := body["halt"].(map[string]any)
	assert.Equal(t, true, halt["halted"])
	assert.Equal(t, "drawdown breach", halt["reason"])
	assert.NotContains(t, body, "recent_executions", "no store wired, no section")
}
