package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"suggestguard/models"
	"suggestguard/storage"
	"suggestguard/utils"
)

// ErrInsufficientData is returned when a campaign report lacks a start or an
// end snapshot.
var ErrInsufficientData = errors.New("insufficient data for campaign report")

// ErrCampaignClosed is returned when closing a campaign twice.
var ErrCampaignClosed = errors.New("campaign already closed")

// AnalyzeCampaign compares start with end. When end is nil and the campaign
// is ongoing, latest is used instead, provided it is a different snapshot not
// older than start; the report is then provisional. A closed campaign needs
// an end snapshot distinct from start.
func AnalyzeCampaign(c models.Campaign, start, end, latest *models.Snapshot) (*models.CampaignReport, error) {
	if start == nil {
		return nil, fmt.Errorf("%w: campaign %s has no start snapshot", ErrInsufficientData, c.ID)
	}

	provisional := false
	if end == nil {
		if !c.Ongoing() {
			return nil, fmt.Errorf("%w: closed campaign %s has no end snapshot", ErrInsufficientData, c.ID)
		}
		if latest == nil || latest.ID == start.ID || latest.TakenAt.Before(start.TakenAt) {
			return nil, fmt.Errorf("%w: campaign %s has no snapshot after its start", ErrInsufficientData, c.ID)
		}
		end = latest
		provisional = true
	}
	if end.ID == start.ID {
		return nil, fmt.Errorf("%w: campaign %s starts and ends on snapshot %s", ErrInsufficientData, c.ID, start.ID)
	}
	if end.TakenAt.Before(start.TakenAt) {
		return nil, fmt.Errorf("%w: end snapshot %s predates start snapshot %s", ErrInsufficientData, end.ID, start.ID)
	}

	trend := Diff(start, end)
	return &models.CampaignReport{
		Campaign:    c,
		Before:      Summarize(start),
		After:       Summarize(end),
		Resolved:    trend.Filter(models.TrendResolved),
		Appeared:    trend.Filter(models.TrendNew),
		Provisional: provisional,
	}, nil
}

// CampaignService manages the campaign lifecycle on top of storage.
type CampaignService struct {
	snapshots storage.SnapshotStore
	campaigns storage.CampaignStore
	logger    *utils.Logger
	now       func() time.Time
}

func NewCampaignService(snapshots storage.SnapshotStore, campaigns storage.CampaignStore, logger *utils.Logger) *CampaignService {
	return &CampaignService{
		snapshots: snapshots,
		campaigns: campaigns,
		logger:    logger,
		now:       time.Now,
	}
}

// Create opens a campaign starting at startedAt (now when zero) and binds the
// snapshot closest in time to it.
func (s *CampaignService) Create(ctx context.Context, brandID, label, notes string, startedAt time.Time) (*models.Campaign, error) {
	if strings.TrimSpace(brandID) == "" {
		return nil, errors.New("campaign: brand id is required")
	}
	if startedAt.IsZero() {
		startedAt = s.now()
	}

	c := &models.Campaign{
		ID:        uuid.NewString(),
		BrandID:   brandID,
		Label:     strings.TrimSpace(label),
		Notes:     notes,
		StartedAt: startedAt.UTC(),
	}

	start, err := s.nearestSnapshot(ctx, brandID, startedAt, time.Time{})
	if err != nil {
		return nil, err
	}
	if start != nil {
		c.StartSnapshotID = start.ID
	} else {
		s.logger.Warn("[campaign] No snapshot to bind as start of %q yet", c.Label)
	}

	if err := s.campaigns.SaveCampaign(ctx, c); err != nil {
		return nil, fmt.Errorf("campaign: save: %w", err)
	}
	s.logger.Info("[campaign] Created %q for brand %s (start snapshot %q)", c.Label, brandID, c.StartSnapshotID)
	return c, nil
}

// Close ends a campaign at endedAt (now when zero) and binds the snapshot
// closest to it that is not older than the start snapshot.
func (s *CampaignService) Close(ctx context.Context, id string, endedAt time.Time) (*models.Campaign, error) {
	c, err := s.campaigns.LoadCampaign(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("campaign: load %s: %w", id, err)
	}
	if !c.Ongoing() {
		return nil, fmt.Errorf("campaign %s: %w", id, ErrCampaignClosed)
	}
	if endedAt.IsZero() {
		endedAt = s.now()
	}
	if endedAt.Before(c.StartedAt) {
		return nil, fmt.Errorf("campaign %s: end %s precedes start %s", id,
			endedAt.Format(time.RFC3339), c.StartedAt.Format(time.RFC3339))
	}

	start, err := s.startSnapshot(ctx, c)
	if err != nil {
		return nil, err
	}
	if start != nil {
		c.StartSnapshotID = start.ID
		end, err := s.endSnapshot(ctx, c.BrandID, start, endedAt)
		if err != nil {
			return nil, err
		}
		if end != nil {
			c.EndSnapshotID = end.ID
		}
	}

	ended := endedAt.UTC()
	c.EndedAt = &ended
	if err := s.campaigns.SaveCampaign(ctx, c); err != nil {
		return nil, fmt.Errorf("campaign: save: %w", err)
	}
	s.logger.Info("[campaign] Closed %q (end snapshot %q)", c.Label, c.EndSnapshotID)
	return c, nil
}

// Archive hides a campaign from default listings.
func (s *CampaignService) Archive(ctx context.Context, id string) error {
	c, err := s.campaigns.LoadCampaign(ctx, id)
	if err != nil {
		return fmt.Errorf("campaign: load %s: %w", id, err)
	}
	if c.Archived {
		return nil
	}
	c.Archived = true
	if err := s.campaigns.SaveCampaign(ctx, c); err != nil {
		return fmt.Errorf("campaign: save: %w", err)
	}
	return nil
}

func (s *CampaignService) List(ctx context.Context, brandID string, includeArchived bool) ([]*models.Campaign, error) {
	return s.campaigns.ListCampaigns(ctx, brandID, includeArchived)
}

// Report builds the impact report of campaign id.
func (s *CampaignService) Report(ctx context.Context, id string) (*models.CampaignReport, error) {
	c, err := s.campaigns.LoadCampaign(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("campaign: load %s: %w", id, err)
	}

	start, err := s.startSnapshot(ctx, c)
	if err != nil {
		return nil, err
	}

	var end, latest *models.Snapshot
	if c.EndSnapshotID != "" {
		if end, err = s.optionalSnapshot(ctx, c.EndSnapshotID); err != nil {
			return nil, err
		}
	}
	switch {
	case end != nil || start == nil:
	case !c.Ongoing():
		// Closed before a later scan existed: bind lazily, never to latest.
		if end, err = s.endSnapshot(ctx, c.BrandID, start, *c.EndedAt); err != nil {
			return nil, err
		}
	default:
		latest, err = s.snapshots.LatestSnapshot(ctx, c.BrandID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("campaign: latest snapshot: %w", err)
		}
	}

	return AnalyzeCampaign(*c, start, end, latest)
}

// startSnapshot returns the bound start snapshot, or binds lazily when the
// campaign was created before the first scan. Returns nil when none exists.
func (s *CampaignService) startSnapshot(ctx context.Context, c *models.Campaign) (*models.Snapshot, error) {
	if c.StartSnapshotID != "" {
		return s.optionalSnapshot(ctx, c.StartSnapshotID)
	}
	return s.nearestSnapshot(ctx, c.BrandID, c.StartedAt, time.Time{})
}

// endSnapshot picks the snapshot closest to endedAt that is not older than
// start. When that is start itself, the first snapshot taken after start is
// used. Returns nil when start is the newest snapshot of the brand.
func (s *CampaignService) endSnapshot(ctx context.Context, brandID string, start *models.Snapshot, endedAt time.Time) (*models.Snapshot, error) {
	end, err := s.nearestSnapshot(ctx, brandID, endedAt, start.TakenAt)
	if err != nil {
		return nil, err
	}
	if end != nil && end.ID != start.ID {
		return end, nil
	}

	later, err := s.snapshots.ListSnapshots(ctx, brandID, start.TakenAt, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("campaign: snapshots after %s: %w", start.ID, err)
	}
	seenStart := false
	for _, snap := range later {
		if snap.ID == start.ID {
			seenStart = true
			continue
		}
		if seenStart {
			return snap, nil
		}
	}
	return nil, nil
}

func (s *CampaignService) optionalSnapshot(ctx context.Context, id string) (*models.Snapshot, error) {
	snap, err := s.snapshots.LoadSnapshot(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("campaign: load snapshot %s: %w", id, err)
	}
	return snap, nil
}

// nearestSnapshot picks the snapshot of brandID closest to t, ignoring those
// taken before notBefore. Ties go to the earlier snapshot. Returns nil when
// there is no candidate.
func (s *CampaignService) nearestSnapshot(ctx context.Context, brandID string, t, notBefore time.Time) (*models.Snapshot, error) {
	before, err := s.snapshots.SnapshotAt(ctx, brandID, t)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("campaign: snapshot at %s: %w", t.Format(time.RFC3339), err)
	}
	if before != nil && before.TakenAt.Before(notBefore) {
		before = nil
	}

	after, err := s.snapshots.SnapshotAfter(ctx, brandID, t)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("campaign: snapshot after %s: %w", t.Format(time.RFC3339), err)
	}

	switch {
	case before == nil:
		return after, nil
	case after == nil:
		return before, nil
	case t.Sub(before.TakenAt) <= after.TakenAt.Sub(t):
		return before, nil
	default:
		return after, nil
	}
}
