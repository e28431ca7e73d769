// Package pipeline drives the moderation run: it iterates the registered
// sources in order, scores each content unit, and accumulates flag records.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/neighborly/moderation/internal/domain"
	"github.com/neighborly/moderation/internal/metrics"
	"github.com/neighborly/moderation/internal/policy"
	"github.com/neighborly/moderation/internal/retry"
	"github.com/neighborly/moderation/internal/source"
)

// Logger defines the logging interface
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Scorer submits one text to the scoring service. Implementations never
// fail: a degraded call yields an all-zero map.
type Scorer interface {
	Score(ctx context.Context, text string) domain.ScoreMap
}

// Config holds driver configuration.
type Config struct {
	PageSize  int
	PageRetry retry.Config
}

// Driver runs the scoring and decision pipeline over every registered
// source. It is the only component with cross-source state: the flag
// accumulator built during Run.
type Driver struct {
	registry *source.Registry
	readers  map[string]source.Reader
	scorer   Scorer
	engine   *policy.Engine
	cfg      Config
	logger   Logger
	now      func() time.Time
}

// New creates a pipeline driver. readers must contain one reader per
// registered descriptor, keyed by descriptor name.
func New(
	registry *source.Registry,
	readers map[string]source.Reader,
	scorer Scorer,
	engine *policy.Engine,
	cfg Config,
	logger Logger,
) *Driver {
	return &Driver{
		registry: registry,
		readers:  readers,
		scorer:   scorer,
		engine:   engine,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Run processes every source in registry order, exhausting each source's
// paginated sequence before moving to the next, and returns the accumulated
// flag records. A source whose reads keep failing after retries is logged
// and skipped; it does not abort the run. Only context cancellation does.
func (d *Driver) Run(ctx context.Context) ([]domain.FlagRecord, error) {
	flags := make([]domain.FlagRecord, 0)

	for _, desc := range d.registry.List() {
		reader, ok := d.readers[desc.Name]
		if !ok {
			d.logger.Error("No reader wired for source", "source", desc.Name)
			continue
		}

		d.logger.Info("Processing source", "source", desc.Name, "category", string(desc.Category))
		before := len(flags)

		err := source.Each(ctx, reader, d.cfg.PageSize, d.cfg.PageRetry, d.logger, func(unit domain.ContentUnit) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.processUnit(ctx, desc, unit, &flags)
			return nil
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return flags, err
			}
			d.logger.Error("Source abandoned after repeated read failures",
				"source", desc.Name,
				"error", err,
			)
			continue
		}

		d.logger.Info("Source complete",
			"source", desc.Name,
			"flags", len(flags)-before,
		)
	}

	return flags, nil
}

// processUnit scores one content unit. The primary text is scored first; a
// trigger there records a flag and suppresses the secondary-text check, so
// an already-flagged item is neither double-flagged nor charged a second
// scoring call. Otherwise the secondary text (when present) gets the same
// treatment under its own field label.
func (d *Driver) processUnit(ctx context.Context, desc source.Descriptor, unit domain.ContentUnit, flags *[]domain.FlagRecord) {
	scores := d.scorer.Score(ctx, unit.Text)
	severity, trigger := d.engine.Decide(scores)
	if trigger != nil {
		d.record(unit, desc.ContentField, trigger, severity, flags)
		return
	}

	if unit.SecondaryText == "" {
		return
	}

	scores = d.scorer.Score(ctx, unit.SecondaryText)
	severity, trigger = d.engine.Decide(scores)
	if trigger != nil {
		d.record(unit, unit.SecondaryLabel, trigger, severity, flags)
	}
}

// record builds a flag record and appends it to the accumulator.
func (d *Driver) record(unit domain.ContentUnit, fieldLabel string, trigger *policy.Trigger, severity int, flags *[]domain.FlagRecord) {
	flag := domain.BuildFlag(unit, fieldLabel, trigger.Attribute, severity, d.now())
	*flags = append(*flags, flag)

	metrics.FlagsRecorded.WithLabelValues(string(unit.Category)).Inc()
	d.logger.Debug("Flag recorded",
		"source", unit.Source,
		"reason", flag.ReportReason,
		"severity", severity,
	)
}
