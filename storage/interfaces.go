package storage

import (
	"context"
	"errors"
	"time"

	"suggestguard/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("storage: not found")

// BrandStore persists monitored brands.
type BrandStore interface {
	SaveBrand(ctx context.Context, b *models.Brand) error
	LoadBrand(ctx context.Context, id string) (*models.Brand, error)
	ListBrands(ctx context.Context, activeOnly bool) ([]*models.Brand, error)
}

// SnapshotStore persists classified snapshots. Snapshots are immutable once
// saved.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *models.Snapshot) (string, error)
	LoadSnapshot(ctx context.Context, id string) (*models.Snapshot, error)
	// SnapshotAt returns the latest snapshot of brandID taken at or before t.
	SnapshotAt(ctx context.Context, brandID string, t time.Time) (*models.Snapshot, error)
	// SnapshotAfter returns the earliest snapshot of brandID taken at or after t.
	SnapshotAfter(ctx context.Context, brandID string, t time.Time) (*models.Snapshot, error)
	LatestSnapshot(ctx context.Context, brandID string) (*models.Snapshot, error)
	// ListSnapshots returns snapshots with from <= TakenAt <= to, oldest
	// first. A zero bound is open.
	ListSnapshots(ctx context.Context, brandID string, from, to time.Time) ([]*models.Snapshot, error)
	// SuggestionHistory returns every appearance of text in the snapshots of
	// brandID, oldest first. text must already be normalized.
	SuggestionHistory(ctx context.Context, brandID, text string) ([]models.SuggestionPoint, error)
}

// CampaignStore persists campaigns. Campaigns are never deleted.
type CampaignStore interface {
	SaveCampaign(ctx context.Context, c *models.Campaign) error
	LoadCampaign(ctx context.Context, id string) (*models.Campaign, error)
	ListCampaigns(ctx context.Context, brandID string, includeArchived bool) ([]*models.Campaign, error)
}

// Store is the full storage backend.
type Store interface {
	BrandStore
	SnapshotStore
	CampaignStore
	Close() error
}
