package services

import (
	"context"
	"errors"
	"fmt"

	"suggestguard/models"
	"suggestguard/notify"
	"suggestguard/scraper"
	"suggestguard/storage"
	"suggestguard/utils"
)

// AlertDispatcher receives the new negatives of a finished scan.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, ev notify.Event) int
}

// ScanStore is the storage a Scanner needs.
type ScanStore interface {
	storage.BrandStore
	storage.SnapshotStore
}

// ScanResult is everything one brand scan produced.
type ScanResult struct {
	Brand    *models.Brand
	Snapshot *models.Snapshot
	// Previous is nil on the first scan of a brand.
	Previous *models.Snapshot
	Trend    *models.TrendReport
	Summary  models.SnapshotSummary
}

// Scanner runs the expand, collect, classify, save, diff and notify pipeline.
type Scanner struct {
	source     scraper.Source
	store      ScanStore
	expander   *QueryExpander
	classifier *SentimentClassifier
	opts       scraper.Options
	alerts     AlertDispatcher
	progress   scraper.ProgressFunc
	logger     *utils.Logger
}

func NewScanner(source scraper.Source, store ScanStore, classifier *SentimentClassifier, opts scraper.Options, logger *utils.Logger) *Scanner {
	return &Scanner{
		source:     source,
		store:      store,
		expander:   NewTurkishQueryExpander(),
		classifier: classifier,
		opts:       opts,
		logger:     logger,
	}
}

// WithExpander replaces the default Turkish expander.
func (s *Scanner) WithExpander(e *QueryExpander) *Scanner {
	s.expander = e
	return s
}

// WithAlerts enables notifications for new negatives.
func (s *Scanner) WithAlerts(d AlertDispatcher) *Scanner {
	s.alerts = d
	return s
}

func (s *Scanner) OnProgress(fn scraper.ProgressFunc) *Scanner {
	s.progress = fn
	return s
}

// ScanBrandID loads a brand and scans it.
func (s *Scanner) ScanBrandID(ctx context.Context, id string) (*ScanResult, error) {
	brand, err := s.store.LoadBrand(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("scan: load brand %s: %w", id, err)
	}
	return s.ScanBrand(ctx, brand)
}

// ScanBrand collects, classifies and stores a new snapshot of brand and
// compares it with the previous one. A cancelled scan stores nothing.
func (s *Scanner) ScanBrand(ctx context.Context, brand *models.Brand) (*ScanResult, error) {
	variants := s.expander.Expand(brand)
	s.logger.Info("[scanner] Brand %q: %d query variants, estimated %v",
		brand.Name, len(variants), EstimateScan(len(variants), s.opts.Workers, s.opts.Delay))

	previous, err := s.store.LatestSnapshot(ctx, brand.ID)
	if errors.Is(err, storage.ErrNotFound) {
		previous, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: load previous snapshot: %w", brand.ID, err)
	}

	collector := scraper.NewCollector(s.source, s.opts, s.logger)
	if s.progress != nil {
		collector.OnProgress(s.progress)
	}
	snap, err := collector.Collect(ctx, brand.ID, variants)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", brand.ID, err)
	}

	s.classifier.ClassifySnapshot(snap, brand.Name)

	if previous != nil && snap.TakenAt.Before(previous.TakenAt) {
		s.logger.Warn("[scanner] Clock went backwards for %s, clamping snapshot time to %v",
			brand.ID, previous.TakenAt)
		snap.TakenAt = previous.TakenAt
	}

	if _, err := s.store.SaveSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("scan %s: save snapshot: %w", brand.ID, err)
	}

	result := &ScanResult{
		Brand:    brand,
		Snapshot: snap,
		Previous: previous,
		Trend:    Diff(previous, snap),
		Summary:  Summarize(snap),
	}
	s.logger.Info("[scanner] Brand %q: %d suggestions, %d negative, health %d",
		brand.Name, result.Summary.Total, result.Summary.Negative, result.Summary.HealthScore)

	s.notify(ctx, result)
	return result, nil
}

// notify alerts the NEW records. The first scan of a brand is a baseline
// and alerts nothing.
func (s *Scanner) notify(ctx context.Context, r *ScanResult) {
	if s.alerts == nil || r.Previous == nil {
		return
	}
	fresh := NewNegatives(r.Trend)
	if len(fresh) == 0 {
		return
	}
	s.alerts.Dispatch(ctx, notify.NewEvent(r.Brand, r.Snapshot.ID, fresh, r.Snapshot.TakenAt))
}

// ScanAll scans every active brand in turn. A failing brand is logged and
// does not stop the others; cancellation does.
func (s *Scanner) ScanAll(ctx context.Context) ([]*ScanResult, error) {
	brands, err := s.store.ListBrands(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("scan: list brands: %w", err)
	}
	if len(brands) == 0 {
		s.logger.Warn("[scanner] No active brands to scan")
		return nil, nil
	}

	var results []*ScanResult
	var errs []error
	for i, brand := range brands {
		s.logger.Info("[scanner] (%d/%d) Scanning %q", i+1, len(brands), brand.Name)
		r, err := s.ScanBrand(ctx, brand)
		if err != nil {
			if errors.Is(err, scraper.ErrScanCancelled) || ctx.Err() != nil {
				return results, err
			}
			s.logger.Error("[scanner] Brand %q failed: %v", brand.Name, err)
			errs = append(errs, err)
			continue
		}
		results = append(results, r)
	}
	return results, errors.Join(errs...)
}
