package scraper

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"suggestguard/models"
	"suggestguard/utils"
)

// Options configures a Collector. It is copied on construction.
type Options struct {
	// Workers is the maximum number of concurrent fetches (W >= 1).
	Workers int
	// Delay is the minimum gap between two requests of the same worker.
	Delay time.Duration
	// RequestTimeout bounds a single fetch attempt. Zero disables it.
	RequestTimeout time.Duration
	// MaxAttempts is the total number of tries per variant.
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// GracePeriod bounds the wait for in-flight fetches after cancellation.
	GracePeriod time.Duration
}

// DefaultOptions mirrors the defaults of config.Load.
func DefaultOptions() Options {
	return Options{
		Workers:        3,
		Delay:          1500 * time.Millisecond,
		RequestTimeout: 10 * time.Second,
		MaxAttempts:    3,
		BaseBackoff:    500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
		GracePeriod:    utils.DefaultGracePeriod,
	}
}

// ProgressFunc is told about every finished variant. It may be called from
// several goroutines at once.
type ProgressFunc func(done, total int, query string)

// Collector issues query variants against a Source and merges the results
// into one unclassified snapshot.
type Collector struct {
	source   Source
	opts     Options
	logger   *utils.Logger
	progress ProgressFunc
	now      func() time.Time
}

// NewCollector creates a Collector for source.
func NewCollector(source Source, opts Options, logger *utils.Logger) *Collector {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &Collector{
		source: source,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// OnProgress registers a progress callback.
func (c *Collector) OnProgress(fn ProgressFunc) *Collector {
	c.progress = fn
	return c
}

type variantResult struct {
	suggestions []string
	err         error
}

// Collect fetches every variant and returns the merged snapshot. Variant
// failures are counted in Snapshot.Report and never abort the scan. If ctx is
// cancelled before all variants finish, Collect returns ErrScanCancelled and
// discards everything collected so far.
func (c *Collector) Collect(ctx context.Context, brandID string, variants []string) (*models.Snapshot, error) {
	started := c.now()
	total := len(variants)
	c.logger.Info("[collector] Scanning brand %s: %d variants, %d workers, %v delay",
		brandID, total, c.opts.Workers, c.opts.Delay)

	// One slot per variant, written only by the worker that owns the index.
	results := make([]variantResult, total)
	var done int64

	pool := utils.NewWorkerPool(c.opts.Workers, c.opts.Delay).WithGracePeriod(c.opts.GracePeriod)
	err := pool.Run(ctx, total, func(ctx context.Context, i int) {
		query := variants[i]
		suggestions, err := c.fetchVariant(ctx, query)
		results[i] = variantResult{suggestions: suggestions, err: err}

		if err != nil && ctx.Err() == nil {
			c.logger.Warn("[collector] Variant %q failed: %v", query, err)
		}
		n := atomic.AddInt64(&done, 1)
		if c.progress != nil {
			c.progress(int(n), total, query)
		}
	})
	if err != nil {
		c.logger.Warn("[collector] Scan of brand %s aborted after %d/%d variants",
			brandID, atomic.LoadInt64(&done), total)
		return nil, fmt.Errorf("%w: %w", ErrScanCancelled, err)
	}

	suggestions, report := merge(variants, results)
	report.Duration = c.now().Sub(started)

	c.logger.Info("[collector] Brand %s: %d unique suggestions from %d raw results (%d/%d variants failed)",
		brandID, report.UniqueSuggestions, report.TotalRawResults, report.VariantsFailed, report.VariantsAttempted)

	return &models.Snapshot{
		ID:          uuid.NewString(),
		BrandID:     brandID,
		TakenAt:     started,
		Suggestions: suggestions,
		Report:      report,
	}, nil
}

func (c *Collector) fetchVariant(ctx context.Context, query string) ([]string, error) {
	retry := &utils.RetryConfig{
		MaxAttempts: c.opts.MaxAttempts,
		BaseDelay:   c.opts.BaseBackoff,
		MaxDelay:    c.opts.MaxBackoff,
		// A retry is another request from the same worker.
		MinDelay:  c.opts.Delay,
		Retryable: IsRetryable,
		Logger:    c.logger,
	}

	var out []string
	err := retry.Do(ctx, fmt.Sprintf("fetch %q", query), func(ctx context.Context) error {
		reqCtx := ctx
		if c.opts.RequestTimeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(ctx, c.opts.RequestTimeout)
			defer cancel()
		}
		res, err := c.source.Fetch(reqCtx, query)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	return out, err
}

// merge walks the variant buffers in issue order. Within a variant the source
// order is kept; the first occurrence of a normalized text fixes its rank.
func merge(variants []string, results []variantResult) ([]models.Suggestion, models.ScanReport) {
	report := models.ScanReport{VariantsAttempted: len(variants)}
	seen := make(map[string]struct{})
	out := make([]models.Suggestion, 0)

	for i, query := range variants {
		r := results[i]
		if r.err != nil {
			report.VariantsFailed++
			report.FailedQueries = append(report.FailedQueries, query)
			continue
		}
		report.TotalRawResults += len(r.suggestions)

		for j, raw := range r.suggestions {
			text := utils.NormalizeText(raw)
			if text == "" {
				continue
			}
			if _, dup := seen[text]; dup {
				continue
			}
			seen[text] = struct{}{}
			out = append(out, models.Suggestion{
				Text:      text,
				Rank:      len(out),
				QueryRank: j,
				Query:     query,
			})
		}
	}

	report.UniqueSuggestions = len(out)
	return out, report
}
