package source

import (
	"context"
	"fmt"

	"github.com/neighborly/moderation/internal/domain"
	"github.com/neighborly/moderation/internal/metrics"
	"github.com/neighborly/moderation/internal/retry"
)

// Logger defines the logging interface
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Reader produces one page of content units at a time from a single source.
// Implementations must return pages in a stable order keyed on the
// descriptor's id field, so a retried fetch sees the same rows.
type Reader interface {
	// Descriptor returns the source descriptor this reader serves.
	Descriptor() Descriptor
	// ReadPage fetches up to limit rows starting at offset, mapped to
	// content units. An empty result means the source is exhausted.
	ReadPage(ctx context.Context, offset, limit int) ([]domain.ContentUnit, error)
}

// Each drives one source's full paginated sequence, invoking fn for every
// content unit with non-empty text. A failed page fetch is retried at the
// same offset with the given retry config; the offset only advances past
// pages that were successfully consumed. The sequence terminates at the
// first empty page.
func Each(
	ctx context.Context,
	r Reader,
	pageSize int,
	retryCfg retry.Config,
	logger Logger,
	fn func(domain.ContentUnit) error,
) error {
	desc := r.Descriptor()
	if pageSize <= 0 {
		return fmt.Errorf("source %s: page size must be positive, got %d", desc.Name, pageSize)
	}

	for offset := 0; ; offset += pageSize {
		var page []domain.ContentUnit

		attempt := 0
		err := retry.Do(ctx, retryCfg, func() error {
			attempt++
			if attempt > 1 {
				metrics.PageRetries.Inc()
				logger.Warn("Retrying page fetch",
					"source", desc.Name,
					"offset", offset,
					"attempt", attempt,
				)
			}
			var readErr error
			page, readErr = r.ReadPage(ctx, offset, pageSize)
			return readErr
		})
		if err != nil {
			return fmt.Errorf("read page from %s at offset %d: %w", desc.Name, offset, err)
		}

		if len(page) == 0 {
			logger.Debug("Source exhausted", "source", desc.Name, "offset", offset)
			return nil
		}

		metrics.RowsRead.WithLabelValues(desc.Name).Add(float64(len(page)))

		for _, unit := range page {
			// Empty content is a filtering rule, not an error.
			if unit.Text == "" {
				continue
			}
			if err := fn(unit); err != nil {
				return err
			}
		}
	}
}
