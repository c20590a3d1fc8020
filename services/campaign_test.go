package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"suggestguard/models"
	"suggestguard/utils"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func storedSnapshot(t *testing.T, store *memStore, id string, at time.Time, texts ...string) *models.Snapshot {
	t.Helper()
	snap := snapshotOf(id, texts...)
	snap.BrandID = "acme"
	snap.TakenAt = at
	if _, err := store.SaveSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	return snap
}

func TestAnalyzeCampaign(t *testing.T) {
	start := snapshotOf("s", "acme dolandırıcı", "acme iyi", "acme şikayet")
	start.TakenAt = t0
	end := snapshotOf("e", "acme iyi", "acme şikayet", "acme iade")
	end.TakenAt = t0.Add(48 * time.Hour)

	r, err := AnalyzeCampaign(models.Campaign{ID: "c"}, start, end, nil)
	if err != nil {
		t.Fatalf("AnalyzeCampaign: %v", err)
	}
	if r.Provisional {
		t.Errorf("closed campaign report should not be provisional")
	}
	if len(r.Resolved) != 1 || r.Resolved[0].Text != "acme dolandırıcı" {
		t.Errorf("Resolved: got %+v", r.Resolved)
	}
	if len(r.Appeared) != 1 || r.Appeared[0].Text != "acme iade" {
		t.Errorf("Appeared: got %+v", r.Appeared)
	}
	if r.Before.Categories[models.CategoryFraud] != 1 || r.After.Categories[models.CategoryRefund] != 1 {
		t.Errorf("category counts: before %v after %v", r.Before.Categories, r.After.Categories)
	}
	if r.HealthDelta() <= 0 {
		t.Errorf("swapping fraud for refund should improve health, delta %d", r.HealthDelta())
	}
	if r.NegativeRatioDelta() != 0 {
		t.Errorf("NegativeRatioDelta: got %.3f, want 0", r.NegativeRatioDelta())
	}
}

func TestAnalyzeCampaignInsufficientData(t *testing.T) {
	start := snapshotOf("s", "acme sahte")
	start.TakenAt = t0
	older := snapshotOf("o", "acme iyi")
	older.TakenAt = t0.Add(-time.Hour)

	later := snapshotOf("l", "acme iyi")
	later.TakenAt = t0.Add(time.Hour)
	ended := t0.Add(2 * time.Hour)

	tests := []struct {
		name               string
		ended              *time.Time
		start, end, latest *models.Snapshot
	}{
		{"no start", nil, nil, start, start},
		{"ongoing without later snapshot", nil, start, nil, nil},
		{"ongoing, latest is start", nil, start, nil, start},
		{"ongoing, latest predates start", nil, start, nil, older},
		{"end is start", &ended, start, start, nil},
		{"closed without end ignores latest", &ended, start, nil, later},
	}
	for _, tt := range tests {
		c := models.Campaign{ID: "c", EndedAt: tt.ended}
		r, err := AnalyzeCampaign(c, tt.start, tt.end, tt.latest)
		if !errors.Is(err, ErrInsufficientData) {
			t.Errorf("%s: got err %v, want ErrInsufficientData", tt.name, err)
		}
		if r != nil {
			t.Errorf("%s: got a report, want nil", tt.name)
		}
	}
}

func TestAnalyzeCampaignProvisional(t *testing.T) {
	start := snapshotOf("s", "acme sahte")
	start.TakenAt = t0
	latest := snapshotOf("l", "acme iyi")
	latest.TakenAt = t0.Add(time.Hour)

	r, err := AnalyzeCampaign(models.Campaign{ID: "c"}, start, nil, latest)
	if err != nil {
		t.Fatalf("AnalyzeCampaign: %v", err)
	}
	if !r.Provisional {
		t.Errorf("expected provisional report")
	}
	if r.After.SnapshotID != "l" {
		t.Errorf("After: got %q, want latest", r.After.SnapshotID)
	}
}

func TestCampaignLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewCampaignService(store, store, utils.NewLogger())

	storedSnapshot(t, store, "s1", t0, "acme sahte", "acme iyi")
	storedSnapshot(t, store, "s2", t0.Add(10*time.Hour), "acme sahte", "acme iyi")
	storedSnapshot(t, store, "s3", t0.Add(30*time.Hour), "acme iyi", "acme iade")

	c, err := svc.Create(ctx, "acme", " Q1 cleanup ", "notes", t0.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.StartSnapshotID != "s1" {
		t.Errorf("start binding: got %q, want s1", c.StartSnapshotID)
	}
	if c.Label != "Q1 cleanup" {
		t.Errorf("label: got %q", c.Label)
	}

	// Ongoing: report against the latest snapshot.
	r, err := svc.Report(ctx, c.ID)
	if err != nil {
		t.Fatalf("Report (ongoing): %v", err)
	}
	if !r.Provisional || r.After.SnapshotID != "s3" {
		t.Errorf("ongoing report: provisional=%v after=%q", r.Provisional, r.After.SnapshotID)
	}

	closed, err := svc.Close(ctx, c.ID, t0.Add(12*time.Hour))
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.EndSnapshotID != "s2" || closed.Ongoing() {
		t.Errorf("end binding: got %q ongoing=%v, want s2 closed", closed.EndSnapshotID, closed.Ongoing())
	}
	if _, err := svc.Close(ctx, c.ID, time.Time{}); !errors.Is(err, ErrCampaignClosed) {
		t.Errorf("second Close: got %v, want ErrCampaignClosed", err)
	}

	r, err = svc.Report(ctx, c.ID)
	if err != nil {
		t.Fatalf("Report (closed): %v", err)
	}
	if r.Provisional || len(r.Resolved) != 0 || len(r.Appeared) != 0 {
		t.Errorf("closed report: %+v", r)
	}

	if err := svc.Archive(ctx, c.ID); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	visible, _ := svc.List(ctx, "acme", false)
	all, _ := svc.List(ctx, "acme", true)
	if len(visible) != 0 || len(all) != 1 {
		t.Errorf("List: visible=%d all=%d, want 0 and 1", len(visible), len(all))
	}
}

func TestCampaignReportOngoingWithoutLaterSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewCampaignService(store, store, utils.NewLogger())
	storedSnapshot(t, store, "only", t0, "acme sahte")

	c, err := svc.Create(ctx, "acme", "cleanup", "", t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Report(ctx, c.ID); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Report: got %v, want ErrInsufficientData", err)
	}
}

func TestCampaignCloseSkipsSnapshotsBeforeStart(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewCampaignService(store, store, utils.NewLogger())
	storedSnapshot(t, store, "s1", t0, "acme sahte")

	c, err := svc.Create(ctx, "acme", "cleanup", "", t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	closed, err := svc.Close(ctx, c.ID, t0.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.EndSnapshotID != "" {
		t.Errorf("end bound to start snapshot %q", closed.EndSnapshotID)
	}

	if _, err := svc.Close(ctx, "missing", time.Time{}); err == nil {
		t.Errorf("closing a missing campaign should fail")
	}
}

func TestCampaignCreateBindsNearestSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewCampaignService(store, store, utils.NewLogger())
	storedSnapshot(t, store, "a", t0, "acme sahte")
	storedSnapshot(t, store, "b", t0.Add(2*time.Hour), "acme iyi")

	c, err := svc.Create(ctx, "acme", "tie", "", t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.StartSnapshotID != "a" {
		t.Errorf("tie should bind the earlier snapshot, got %q", c.StartSnapshotID)
	}

	c2, _ := svc.Create(ctx, "acme", "late", "", t0.Add(90*time.Minute))
	if c2.StartSnapshotID != "b" {
		t.Errorf("closer later snapshot: got %q, want b", c2.StartSnapshotID)
	}
}

func TestCampaignCloseOnStartBindsNextSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewCampaignService(store, store, utils.NewLogger())
	storedSnapshot(t, store, "s1", t0, "acme sahte")
	storedSnapshot(t, store, "s2", t0.Add(24*time.Hour), "acme iyi")

	c, err := svc.Create(ctx, "acme", "cleanup", "", t0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	closed, err := svc.Close(ctx, c.ID, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.StartSnapshotID != "s1" || closed.EndSnapshotID != "s2" {
		t.Errorf("binding: got (%q, %q), want (s1, s2)", closed.StartSnapshotID, closed.EndSnapshotID)
	}

	storedSnapshot(t, store, "s99", t0.Add(90*24*time.Hour), "acme dolandırıcı")
	r, err := svc.Report(ctx, c.ID)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if r.Provisional || r.After.SnapshotID != "s2" {
		t.Errorf("closed report: provisional=%v after=%q, want false and s2", r.Provisional, r.After.SnapshotID)
	}
}

func TestCampaignClosedReportNeverUsesLatest(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewCampaignService(store, store, utils.NewLogger())
	storedSnapshot(t, store, "s1", t0, "acme sahte")

	c, err := svc.Create(ctx, "acme", "cleanup", "", t0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Close(ctx, c.ID, t0.Add(time.Hour)); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// The first scan after the campaign is bound lazily as its end.
	storedSnapshot(t, store, "s2", t0.Add(48*time.Hour), "acme iyi")
	storedSnapshot(t, store, "s3", t0.Add(90*24*time.Hour), "acme dolandırıcı")
	r, err := svc.Report(ctx, c.ID)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if r.Provisional || r.After.SnapshotID != "s2" {
		t.Errorf("closed report: provisional=%v after=%q, want false and s2", r.Provisional, r.After.SnapshotID)
	}
}

func TestCampaignCreatedBeforeFirstScan(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewCampaignService(store, store, utils.NewLogger())

	c, err := svc.Create(ctx, "acme", "early", "", t0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.StartSnapshotID != "" {
		t.Fatalf("start bound without snapshots: %q", c.StartSnapshotID)
	}

	storedSnapshot(t, store, "only", t0.Add(time.Hour), "acme sahte")
	closed, err := svc.Close(ctx, c.ID, t0.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.StartSnapshotID != "only" || closed.EndSnapshotID != "" {
		t.Errorf("binding: got (%q, %q), want (only, empty)", closed.StartSnapshotID, closed.EndSnapshotID)
	}
	if _, err := svc.Report(ctx, c.ID); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Report: got %v, want ErrInsufficientData", err)
	}
}
