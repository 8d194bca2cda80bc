package mailmerge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/mailmerge/pkg/logger"
)

// RerenderOptions configures Rerender.
type RerenderOptions struct {
	Registry Registry
	Logger   *slog.Logger
}

// RerenderReport summarises a rerender run.
type RerenderReport struct {
	Processed int
	Skipped   int
}

// Rerender rebuilds the previews of every stored result with the engine it
// was generated with and writes the batch back in one call. Results whose
// engine is unknown or fails are skipped and left as they were.
func Rerender[T any](ctx context.Context, backend StorageBackend[T], opts RerenderOptions) (*RerenderReport, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNope()
	}

	var (
		updated []*MergeResultWithMetadata[T]
		report  RerenderReport
	)
	for result, err := range backend.LoadAll(ctx) {
		if err != nil {
			return nil, fmt.Errorf("load stored results: %w", err)
		}

		previews, err := rerenderOne(ctx, opts.Registry, result.MergeResult)
		if err != nil {
			log.WarnContext(ctx, "skipping record that failed to rerender",
				slog.String("engine", result.Engine.Name),
				logger.Err(err),
			)
			report.Skipped++
			continue
		}

		result.Previews = previews
		updated = append(updated, result)
	}
	report.Processed = len(updated)

	if err := backend.StoreUpdated(ctx, updated); err != nil {
		return nil, fmt.Errorf("store updated results: %w", err)
	}

	log.InfoContext(ctx, "rerender finished",
		slog.Int("processed", report.Processed),
		slog.Int("skipped", report.Skipped),
	)
	return &report, nil
}

func rerenderOne(ctx context.Context, registry Registry, r MergeResult) (TemplatePreviews, error) {
	engine, err := registry.loadEngine(ctx, r.Engine)
	if err != nil {
		return nil, err
	}
	return engine.RerenderPreviews(ctx, r.Previews, r.Record)
}
