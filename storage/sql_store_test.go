package storage

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"suggestguard/models"
)

var memDBCounter int64

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	dsn := fmt.Sprintf("file:memdb%d?mode=memory&cache=shared", atomic.AddInt64(&memDBCounter, 1))
	s, err := NewSQLiteStore(dsn)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var base = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func testSnapshot(id, brand string, at time.Time, texts ...string) *models.Snapshot {
	snap := &models.Snapshot{
		ID:      id,
		BrandID: brand,
		TakenAt: at,
		Report: models.ScanReport{
			VariantsAttempted: 33,
			VariantsFailed:    1,
			FailedQueries:     []string{"acme q"},
			Duration:          3 * time.Second,
		},
	}
	for i, text := range texts {
		sg := models.Suggestion{Text: text, Rank: i, QueryRank: i, Query: "acme", Sentiment: models.SentimentNeutral}
		if i == 0 {
			sg.Sentiment = models.SentimentNegative
			sg.Category = models.CategoryFraud
			sg.MatchedKeyword = "sahte"
		}
		snap.Suggestions = append(snap.Suggestions, sg)
	}
	return snap
}

func TestIsPostgresDSN(t *testing.T) {
	tests := []struct {
		dsn  string
		want bool
	}{
		{"postgres://u:p@localhost/db", true},
		{"postgresql://localhost/db", true},
		{"host=localhost port=5432 dbname=x", true},
		{"file:suggestguard.db", false},
		{"file:memdb1?mode=memory&cache=shared", false},
	}
	for _, tt := range tests {
		if got := IsPostgresDSN(tt.dsn); got != tt.want {
			t.Errorf("IsPostgresDSN(%q): got %v, want %v", tt.dsn, got, tt.want)
		}
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{dialect: dialectPostgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("postgres rebind: got %q", got)
	}
	lite := &SQLStore{dialect: dialectSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind: got %q", got)
	}
}

func TestBrandRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	b := &models.Brand{Name: "Acme", Keywords: []string{"acme", "acme bank"}, Expand: true, Active: true, Language: "tr", Country: "TR"}
	if err := s.SaveBrand(ctx, b); err != nil {
		t.Fatalf("SaveBrand: %v", err)
	}
	if b.ID == "" {
		t.Fatal("SaveBrand should assign an ID")
	}

	got, err := s.LoadBrand(ctx, b.ID)
	if err != nil {
		t.Fatalf("LoadBrand: %v", err)
	}
	if got.Name != "Acme" || len(got.Keywords) != 2 || got.Keywords[1] != "acme bank" || !got.Expand || got.Country != "TR" {
		t.Errorf("LoadBrand: got %+v", got)
	}

	b.Active = false
	if err := s.SaveBrand(ctx, b); err != nil {
		t.Fatalf("SaveBrand update: %v", err)
	}
	_ = s.SaveBrand(ctx, &models.Brand{ID: "other", Name: "Beta", Active: true})

	active, _ := s.ListBrands(ctx, true)
	all, _ := s.ListBrands(ctx, false)
	if len(active) != 1 || active[0].ID != "other" {
		t.Errorf("active brands: got %d", len(active))
	}
	if len(all) != 2 {
		t.Errorf("all brands: got %d, want 2", len(all))
	}

	if _, err := s.LoadBrand(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing brand: got %v, want ErrNotFound", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	texts := make([]string, 0, 120)
	for i := 0; i < 120; i++ {
		texts = append(texts, fmt.Sprintf("acme %03d", i))
	}
	texts[0] = "acme sahte"
	snap := testSnapshot("s1", "acme", base, texts...)

	id, err := s.SaveSnapshot(ctx, snap)
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	got, err := s.LoadSnapshot(ctx, id)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	if !got.TakenAt.Equal(base) {
		t.Errorf("TakenAt: got %v, want %v", got.TakenAt, base)
	}
	if len(got.Suggestions) != 120 {
		t.Fatalf("suggestions: got %d, want 120", len(got.Suggestions))
	}
	for i, sg := range got.Suggestions {
		if sg != snap.Suggestions[i] {
			t.Errorf("suggestion %d: got %+v, want %+v", i, sg, snap.Suggestions[i])
			break
		}
	}
	if got.Report.VariantsFailed != 1 || got.Report.FailedQueries[0] != "acme q" || got.Report.Duration != 3*time.Second {
		t.Errorf("report: got %+v", got.Report)
	}

	if _, err := s.SaveSnapshot(ctx, snap); err == nil {
		t.Errorf("saving the same snapshot twice should fail")
	}
	if _, err := s.LoadSnapshot(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing snapshot: got %v, want ErrNotFound", err)
	}
}

func TestSnapshotQueries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i, id := range []string{"a", "b", "c"} {
		if _, err := s.SaveSnapshot(ctx, testSnapshot(id, "acme", base.Add(time.Duration(i)*24*time.Hour), "x")); err != nil {
			t.Fatalf("SaveSnapshot %s: %v", id, err)
		}
	}
	_, _ = s.SaveSnapshot(ctx, testSnapshot("other", "beta", base.Add(100*time.Hour), "y"))
	// Same timestamp as c, saved later: wins as latest.
	_, _ = s.SaveSnapshot(ctx, testSnapshot("c2", "acme", base.Add(48*time.Hour), "z"))

	tests := []struct {
		name string
		get  func() (*models.Snapshot, error)
		want string
	}{
		{"latest", func() (*models.Snapshot, error) { return s.LatestSnapshot(ctx, "acme") }, "c2"},
		{"at exact", func() (*models.Snapshot, error) { return s.SnapshotAt(ctx, "acme", base.Add(24*time.Hour)) }, "b"},
		{"at between", func() (*models.Snapshot, error) { return s.SnapshotAt(ctx, "acme", base.Add(30*time.Hour)) }, "b"},
		{"after between", func() (*models.Snapshot, error) { return s.SnapshotAfter(ctx, "acme", base.Add(30*time.Hour)) }, "c"},
		{"after start", func() (*models.Snapshot, error) { return s.SnapshotAfter(ctx, "acme", base.Add(-time.Hour)) }, "a"},
	}
	for _, tt := range tests {
		got, err := tt.get()
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if got.ID != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got.ID, tt.want)
		}
	}

	if _, err := s.SnapshotAt(ctx, "acme", base.Add(-time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Errorf("before first: got %v, want ErrNotFound", err)
	}
	if _, err := s.LatestSnapshot(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown brand: got %v, want ErrNotFound", err)
	}

	all, err := s.ListSnapshots(ctx, "acme", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	var ids []string
	for _, snap := range all {
		ids = append(ids, snap.ID)
	}
	if fmt.Sprint(ids) != "[a b c c2]" {
		t.Errorf("ListSnapshots order: got %v", ids)
	}

	window, _ := s.ListSnapshots(ctx, "acme", base.Add(time.Hour), base.Add(47*time.Hour))
	if len(window) != 1 || window[0].ID != "b" {
		t.Errorf("window: got %d snapshots", len(window))
	}
}

func TestCampaignRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c := &models.Campaign{BrandID: "acme", Label: "cleanup", Notes: "press release", StartedAt: base, StartSnapshotID: "a"}
	if err := s.SaveCampaign(ctx, c); err != nil {
		t.Fatalf("SaveCampaign: %v", err)
	}
	got, err := s.LoadCampaign(ctx, c.ID)
	if err != nil {
		t.Fatalf("LoadCampaign: %v", err)
	}
	if !got.Ongoing() || got.Label != "cleanup" || !got.StartedAt.Equal(base) {
		t.Errorf("LoadCampaign: got %+v", got)
	}

	end := base.Add(72 * time.Hour)
	got.EndedAt = &end
	got.EndSnapshotID = "c"
	got.Archived = true
	if err := s.SaveCampaign(ctx, got); err != nil {
		t.Fatalf("SaveCampaign update: %v", err)
	}
	reloaded, _ := s.LoadCampaign(ctx, c.ID)
	if reloaded.Ongoing() || !reloaded.EndedAt.Equal(end) || reloaded.EndSnapshotID != "c" || !reloaded.Archived {
		t.Errorf("after close: got %+v", reloaded)
	}

	_ = s.SaveCampaign(ctx, &models.Campaign{BrandID: "acme", Label: "second", StartedAt: base.Add(time.Hour)})
	_ = s.SaveCampaign(ctx, &models.Campaign{BrandID: "beta", Label: "other", StartedAt: base})

	visible, _ := s.ListCampaigns(ctx, "acme", false)
	if len(visible) != 1 || visible[0].Label != "second" {
		t.Errorf("visible campaigns: got %d", len(visible))
	}
	withArchived, _ := s.ListCampaigns(ctx, "acme", true)
	if len(withArchived) != 2 || withArchived[0].Label != "cleanup" {
		t.Errorf("all acme campaigns: got %d", len(withArchived))
	}
	everything, _ := s.ListCampaigns(ctx, "", true)
	if len(everything) != 3 {
		t.Errorf("all campaigns: got %d, want 3", len(everything))
	}

	if _, err := s.LoadCampaign(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing campaign: got %v, want ErrNotFound", err)
	}
}

func TestSuggestionHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	snaps := []*models.Snapshot{
		testSnapshot("h1", "acme", base, "acme sahte", "acme iyi"),
		testSnapshot("h2", "acme", base.Add(24*time.Hour), "acme iyi"),
		testSnapshot("h3", "acme", base.Add(48*time.Hour), "acme yeni", "acme ankara", "acme sahte"),
		testSnapshot("other", "beta", base.Add(time.Hour), "acme sahte"),
	}
	for _, snap := range snaps {
		if _, err := s.SaveSnapshot(ctx, snap); err != nil {
			t.Fatalf("SaveSnapshot %s: %v", snap.ID, err)
		}
	}

	history, err := s.SuggestionHistory(ctx, "acme", "acme sahte")
	if err != nil {
		t.Fatalf("SuggestionHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("points: got %d, want 2", len(history))
	}
	if history[0].SnapshotID != "h1" || history[0].Rank != 0 || history[0].Sentiment != models.SentimentNegative {
		t.Errorf("first point: got %+v", history[0])
	}
	if history[1].SnapshotID != "h3" || history[1].Rank != 2 || !history[1].TakenAt.Equal(base.Add(48*time.Hour)) {
		t.Errorf("second point: got %+v", history[1])
	}

	none, err := s.SuggestionHistory(ctx, "acme", "never seen")
	if err != nil || len(none) != 0 {
		t.Errorf("unknown text: got %v, %v", none, err)
	}
}
