package mailmerge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/mailmerge/pkg/logger"
)

// GenerateOptions configures Generate.
type GenerateOptions struct {
	Engine     TemplateEngine
	EngineInfo EngineInfo
	Source     DataSource
	Storage    FreshStore

	// Mapping takes precedence over MappingResolver. With neither set,
	// headers named like template fields are mapped to them.
	Mapping         Mapping
	MappingResolver MappingResolver

	// Attachments applies to every record and overrides AttachmentKeys.
	Attachments            []string
	AttachmentKeys         []string
	AttachmentKeysResolver AttachmentKeysResolver

	Features Features

	// Concurrency bounds parallel renders. Defaults to GOMAXPROCS.
	Concurrency int
	Logger      *slog.Logger
}

// GenerateReport summarises a generate run.
type GenerateReport struct {
	Results   []MergeResult
	Processed int
	Skipped   int
}

// Generate loads records, renders every valid one and stores the batch.
// Load, template and mapping errors abort the run; invalid records and
// records that fail to render are skipped.
func Generate(ctx context.Context, opts GenerateOptions) (*GenerateReport, error) {
	if opts.Engine == nil || opts.Source == nil || opts.Storage == nil {
		return nil, fmt.Errorf("%w: engine, source and storage are required", ErrInvalidOptions)
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNope()
	}

	input, err := opts.Source.LoadRecords(ctx)
	if err != nil {
		return nil, err
	}

	if err := opts.Engine.LoadTemplate(ctx); err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	fields, err := opts.Engine.ExtractFields()
	if err != nil {
		return nil, fmt.Errorf("extract template fields: %w", err)
	}
	fields = fields.Union(opts.Features.ReservedFields())

	mapping, err := ResolveMapping(ctx, opts.Mapping, opts.MappingResolver, fields, input.Headers, log)
	if err != nil {
		return nil, err
	}

	attachments, err := ResolveAttachments(ctx,
		opts.Attachments, opts.AttachmentKeys, opts.AttachmentKeysResolver, input.Headers, log)
	if err != nil {
		return nil, err
	}

	slots := make([]*MergeResult, len(input.Records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cmpPositive(opts.Concurrency, runtime.GOMAXPROCS(0)))
	for i, raw := range input.Records {
		g.Go(func() error {
			record := mapping.Project(raw)

			if v := ValidateRecord(record); !v.Valid {
				log.WarnContext(gctx, "skipping invalid record",
					slog.Int("index", i),
					slog.String("reason", v.Reason),
				)
				return nil
			}

			previews, err := opts.Engine.RenderPreview(gctx, record)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				log.WarnContext(gctx, "skipping record that failed to render",
					slog.Int("index", i),
					logger.Err(err),
				)
				return nil
			}

			slots[i] = &MergeResult{
				Record:          record,
				Previews:        previews,
				Engine:          opts.EngineInfo,
				AttachmentPaths: attachments(raw),
				Email:           NewEmailData(record),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &GenerateReport{Results: make([]MergeResult, 0, len(slots))}
	for _, r := range slots {
		if r == nil {
			report.Skipped++
			continue
		}
		report.Results = append(report.Results, *r)
	}
	report.Processed = len(report.Results)

	if err := opts.Storage.StoreFresh(ctx, report.Results, input); err != nil {
		return nil, fmt.Errorf("store results: %w", err)
	}

	log.InfoContext(ctx, "generate finished",
		slog.Int("processed", report.Processed),
		slog.Int("skipped", report.Skipped),
	)
	return report, nil
}

func cmpPositive(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
