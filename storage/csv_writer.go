package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"suggestguard/models"
)

var (
	snapshotHeader = []string{
		"brand_id", "snapshot_id", "taken_at", "rank", "text", "query", "query_rank",
		"sentiment", "category", "matched_keyword",
	}
	trendHeader = []string{
		"brand_id", "previous_snapshot_id", "current_snapshot_id", "text", "category",
		"status", "previous_rank", "current_rank", "rank_delta",
	}
)

// CSVWriter writes snapshot or trend rows to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	header []string
}

// NewSnapshotCSVWriter creates (or truncates) a CSV file for suggestion rows.
// Intermediate directories are created automatically.
func NewSnapshotCSVWriter(path string) (*CSVWriter, error) {
	return newCSVWriter(path, snapshotHeader)
}

// NewTrendCSVWriter creates (or truncates) a CSV file for trend rows.
func NewTrendCSVWriter(path string) (*CSVWriter, error) {
	return newCSVWriter(path, trendHeader)
}

func newCSVWriter(path string, header []string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w, header: header}, nil
}

// WriteSnapshot appends one row per suggestion of snap.
func (c *CSVWriter) WriteSnapshot(snap *models.Snapshot) error {
	if c.header[1] != "snapshot_id" {
		return fmt.Errorf("csv: %s is not a snapshot file", c.file.Name())
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	takenAt := snap.TakenAt.UTC().Format(time.RFC3339)
	for _, s := range snap.Suggestions {
		row := []string{
			snap.BrandID,
			snap.ID,
			takenAt,
			strconv.Itoa(s.Rank),
			s.Text,
			s.Query,
			strconv.Itoa(s.QueryRank),
			string(s.Sentiment),
			string(s.Category),
			s.MatchedKeyword,
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// WriteTrends appends one row per trend record of report.
func (c *CSVWriter) WriteTrends(report *models.TrendReport) error {
	if c.header[1] != "previous_snapshot_id" {
		return fmt.Errorf("csv: %s is not a trend file", c.file.Name())
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range report.Records {
		row := []string{
			report.BrandID,
			report.PreviousSnapshotID,
			report.CurrentSnapshotID,
			r.Text,
			string(r.Category),
			string(r.Status),
			optionalRank(r.PreviousRank),
			optionalRank(r.CurrentRank),
			strconv.Itoa(r.RankDelta),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

func optionalRank(r *int) string {
	if r == nil {
		return ""
	}
	return strconv.Itoa(*r)
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
