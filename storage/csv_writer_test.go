package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"suggestguard/models"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return rows
}

func TestCSVWriteSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "snapshot.csv")
	w, err := NewSnapshotCSVWriter(path)
	if err != nil {
		t.Fatalf("NewSnapshotCSVWriter: %v", err)
	}
	snap := testSnapshot("s1", "acme", base, "acme sahte", "acme, ankara")
	if err := w.WriteSnapshot(snap); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if err := w.WriteTrends(&models.TrendReport{}); err == nil {
		t.Errorf("writing trends into a snapshot file should fail")
	}
	_ = w.Close()

	rows := readCSV(t, path)
	if len(rows) != 3 {
		t.Fatalf("rows: got %d, want 3", len(rows))
	}
	if rows[0][0] != "brand_id" || rows[1][4] != "acme sahte" || rows[1][8] != "fraud" {
		t.Errorf("unexpected rows: %v", rows[:2])
	}
	if rows[2][4] != "acme, ankara" || rows[2][3] != "1" {
		t.Errorf("quoted row: got %v", rows[2])
	}
}

func TestCSVWriteTrends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trends.csv")
	w, err := NewTrendCSVWriter(path)
	if err != nil {
		t.Fatalf("NewTrendCSVWriter: %v", err)
	}
	prev, cur := 3, 0
	report := &models.TrendReport{
		BrandID: "acme", PreviousSnapshotID: "p", CurrentSnapshotID: "c",
		Records: []models.TrendRecord{
			{Text: "acme sahte", Category: models.CategoryFraud, Status: models.TrendRising, PreviousRank: &prev, CurrentRank: &cur, RankDelta: 3},
			{Text: "acme dava", Category: models.CategoryLegal, Status: models.TrendResolved, PreviousRank: &prev},
		},
	}
	if err := w.WriteTrends(report); err != nil {
		t.Fatalf("WriteTrends: %v", err)
	}
	_ = w.Close()

	rows := readCSV(t, path)
	if len(rows) != 3 {
		t.Fatalf("rows: got %d, want 3", len(rows))
	}
	if rows[1][5] != "RISING" || rows[1][8] != "3" {
		t.Errorf("rising row: got %v", rows[1])
	}
	if rows[2][7] != "" || rows[2][6] != "3" {
		t.Errorf("resolved row ranks: got %v", rows[2])
	}
}
