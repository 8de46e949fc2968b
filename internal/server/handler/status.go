package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jmreyes/memesnipe/internal/domain"
	"github.com/jmreyes/memesnipe/internal/strategy"
)

// StatusHandler serves the runtime status endpoint: halt state, strategy
// counts, and recent execution outcomes.
type StatusHandler struct {
	risk       domain.RiskStore
	registry   *strategy.Registry
	executions domain.ExecutionStore
	mode       string
	logger     *slog.Logger
}

// NewStatusHandler creates a StatusHandler. executions may be nil when
// persistence is disabled.
func NewStatusHandler(risk domain.RiskStore, registry *strategy.Registry, executions domain.ExecutionStore, mode string, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		risk:       risk,
		registry:   registry,
		executions: executions,
		mode:       mode,
		logger:     logger.With(slog.String("handler", "status")),
	}
}

// Status reports the current trading state.
// GET /api/status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"mode":              h.mode,
		"strategy_count":    h.registry.Count(),
		"active_strategies": h.registry.ActiveCount(),
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
	}

	halt, err := h.risk.HaltState(r.Context())
	if err != nil {
		h.logger.Warn("halt state read failed", slog.String("error", err.Error()))
		resp["halt"] = map[string]any{"error": err.Error()}
	} else {
		haltInfo := map[string]any{"halted": halt.Halted}
		if halt.Halted {
			haltInfo["reason"] = halt.Reason
			haltInfo["tripped_at"] = halt.TrippedAt.Format(time.RFC3339)
		}
		resp["halt"] = haltInfo
	}

	if h.executions != nil {
		recent, err := h.executions.Recent(r.Context(), 20)
		if err != nil {
			h.logger.Warn("recent executions read failed", slog.String("error", err.Error()))
		} else {
			resp["recent_executions"] = recent
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
