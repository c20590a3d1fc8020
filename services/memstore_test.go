package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"suggestguard/models"
	"suggestguard/storage"
)

// memStore is an in-memory storage.Store for service tests.
type memStore struct {
	mu        sync.Mutex
	brands    map[string]*models.Brand
	snapshots []*models.Snapshot
	campaigns map[string]*models.Campaign
	saveErr   error
}

func newMemStore() *memStore {
	return &memStore{
		brands:    make(map[string]*models.Brand),
		campaigns: make(map[string]*models.Campaign),
	}
}

func (m *memStore) SaveBrand(_ context.Context, b *models.Brand) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.brands[b.ID] = &cp
	return nil
}

func (m *memStore) LoadBrand(_ context.Context, id string) (*models.Brand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.brands[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) ListBrands(_ context.Context, activeOnly bool) ([]*models.Brand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Brand
	for _, b := range m.brands {
		if activeOnly && !b.Active {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) SaveSnapshot(_ context.Context, snap *models.Snapshot) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return "", m.saveErr
	}
	cp := *snap
	m.snapshots = append(m.snapshots, &cp)
	sort.SliceStable(m.snapshots, func(i, j int) bool {
		return m.snapshots[i].TakenAt.Before(m.snapshots[j].TakenAt)
	})
	return snap.ID, nil
}

func (m *memStore) LoadSnapshot(_ context.Context, id string) (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.snapshots {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memStore) SnapshotAt(_ context.Context, brandID string, t time.Time) (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *models.Snapshot
	for _, s := range m.snapshots {
		if s.BrandID == brandID && !s.TakenAt.After(t) {
			found = s
		}
	}
	if found == nil {
		return nil, storage.ErrNotFound
	}
	return found, nil
}

func (m *memStore) SnapshotAfter(_ context.Context, brandID string, t time.Time) (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.snapshots {
		if s.BrandID == brandID && !s.TakenAt.Before(t) {
			return s, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memStore) LatestSnapshot(ctx context.Context, brandID string) (*models.Snapshot, error) {
	return m.SnapshotAt(ctx, brandID, time.Unix(1<<40, 0))
}

func (m *memStore) ListSnapshots(_ context.Context, brandID string, from, to time.Time) ([]*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Snapshot
	for _, s := range m.snapshots {
		if s.BrandID != brandID {
			continue
		}
		if !from.IsZero() && s.TakenAt.Before(from) {
			continue
		}
		if !to.IsZero() && s.TakenAt.After(to) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *memStore) SuggestionHistory(_ context.Context, brandID, text string) ([]models.SuggestionPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.SuggestionPoint, 0)
	for _, s := range m.snapshots {
		if s.BrandID != brandID {
			continue
		}
		for _, sg := range s.Suggestions {
			if sg.Text == text {
				out = append(out, models.SuggestionPoint{
					SnapshotID: s.ID, TakenAt: s.TakenAt, Rank: sg.Rank, QueryRank: sg.QueryRank,
					Query: sg.Query, Sentiment: sg.Sentiment, Category: sg.Category,
				})
			}
		}
	}
	return out, nil
}

func (m *memStore) SaveCampaign(_ context.Context, c *models.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.campaigns[c.ID] = &cp
	return nil
}

func (m *memStore) LoadCampaign(_ context.Context, id string) (*models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) ListCampaigns(_ context.Context, brandID string, includeArchived bool) ([]*models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Campaign
	for _, c := range m.campaigns {
		if c.BrandID != brandID || (c.Archived && !includeArchived) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (m *memStore) Close() error { return nil }

var _ storage.Store = (*memStore)(nil)
