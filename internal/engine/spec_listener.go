package engine

import (
	"context"
	"log/slog"

	"github.com/jmreyes/memesnipe/internal/domain"
	"github.com/jmreyes/memesnipe/internal/strategy"
)

// SpecListener hot-loads strategies from the spec queue: each incoming spec
// is instantiated through the factory and registered live, replacing any
// previous generation under the same id.
type SpecListener struct {
	queue    domain.SpecQueue
	factory  *strategy.Factory
	registry *strategy.Registry
	logger   *slog.Logger
}

// NewSpecListener creates a SpecListener.
func NewSpecListener(queue domain.SpecQueue, factory *strategy.Factory, registry *strategy.Registry, logger *slog.Logger) *SpecListener {
	return &SpecListener{
		queue:    queue,
		factory:  factory,
		registry: registry,
		logger:   logger.With(slog.String("component", "spec_listener")),
	}
}

// Run consumes specs until the context is cancelled. A spec that fails to
// instantiate is logged and skipped; it never disturbs running strategies.
func (sl *SpecListener) Run(ctx context.Context) error {
	return sl.queue.Consume(ctx, sl.handleSpec)
}

func (sl *SpecListener) handleSpec(ctx context.Context, spec domain.StrategySpec) {
	if !strategy.KnownFamily(spec.Family) {
		sl.logger.Warn("spec names unknown family",
			slog.String("spec", spec.ID),
			slog.String("family", spec.Family))
		return
	}

	s, err := sl.factory.FromSpec(spec)
	if err != nil {
		sl.logger.Warn("spec instantiation failed",
			slog.String("spec", spec.ID),
			slog.String("family", spec.Family),
			slog.String("error", err.Error()))
		return
	}

	if err := s.Init(ctx); err != nil {
		sl.logger.Warn("strategy init failed",
			slog.String("spec", spec.ID),
			slog.String("error", err.Error()))
		return
	}

	sl.registry.Register(spec.ID, s)
	sl.logger.Info("strategy hot-loaded",
		slog.String("id", spec.ID),
		slog.String("family", spec.Family),
		slog.Float64("fitness", spec.Fitness))
}
