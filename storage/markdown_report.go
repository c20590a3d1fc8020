package storage

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/russross/blackfriday/v2"

	"suggestguard/models"
)

// MarkdownReport writes scan and campaign reports as markdown plus a
// rendered HTML copy.
type MarkdownReport struct {
	dir string
}

func NewMarkdownReport(dir string) *MarkdownReport {
	return &MarkdownReport{dir: dir}
}

// WriteScan writes <brand>-<time>.md and .html and returns the markdown path.
func (m *MarkdownReport) WriteScan(brand *models.Brand, summary models.SnapshotSummary, trend *models.TrendReport) (string, error) {
	name := fmt.Sprintf("%s-%s", slug(brand.Name), summary.TakenAt.UTC().Format("20060102-150405"))
	return m.write(name, brand.Name+" suggestion scan", RenderScanMarkdown(brand, summary, trend))
}

// WriteCampaign writes the campaign report files and returns the markdown path.
func (m *MarkdownReport) WriteCampaign(r *models.CampaignReport) (string, error) {
	name := "campaign-" + slug(r.Campaign.Label) + "-" + shortID(r.Campaign.ID)
	return m.write(name, "Campaign: "+r.Campaign.Label, RenderCampaignMarkdown(r))
}

func (m *MarkdownReport) write(name, title string, md []byte) (string, error) {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return "", fmt.Errorf("report: create output dir: %w", err)
	}
	mdPath := filepath.Join(m.dir, name+".md")
	if err := os.WriteFile(mdPath, md, 0644); err != nil {
		return "", fmt.Errorf("report: write %s: %w", mdPath, err)
	}
	htmlPath := filepath.Join(m.dir, name+".html")
	if err := os.WriteFile(htmlPath, ToHTML(title, md), 0644); err != nil {
		return "", fmt.Errorf("report: write %s: %w", htmlPath, err)
	}
	return mdPath, nil
}

// ToHTML renders markdown into a standalone HTML page.
func ToHTML(title string, md []byte) []byte {
	body := blackfriday.Run(md, blackfriday.WithExtensions(blackfriday.CommonExtensions))

	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\">")
	fmt.Fprintf(&b, "<title>%s</title>", html.EscapeString(title))
	b.WriteString("</head><body>\n")
	b.Write(body)
	b.WriteString("</body></html>\n")
	return b.Bytes()
}

// RenderScanMarkdown renders a snapshot summary and its trend records.
func RenderScanMarkdown(brand *models.Brand, summary models.SnapshotSummary, trend *models.TrendReport) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", brand.Name)
	fmt.Fprintf(&b, "Snapshot `%s` taken %s.\n\n", summary.SnapshotID, summary.TakenAt.UTC().Format(time.RFC1123))
	writeSummaryTable(&b, []string{"Snapshot"}, summary)

	if trend != nil && len(trend.Records) > 0 {
		b.WriteString("\n## Negative suggestion trends\n\n")
		writeTrendTable(&b, trend.Records)
	}
	return b.Bytes()
}

// RenderCampaignMarkdown renders a before/after campaign report.
func RenderCampaignMarkdown(r *models.CampaignReport) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Campaign: %s\n\n", r.Campaign.Label)
	if r.Campaign.Notes != "" {
		fmt.Fprintf(&b, "%s\n\n", r.Campaign.Notes)
	}
	if r.Provisional {
		b.WriteString("> **Provisional:** the campaign is ongoing; *after* is the latest snapshot.\n\n")
	}

	b.WriteString("| | Before | After | Change |\n|---|---|---|---|\n")
	fmt.Fprintf(&b, "| Taken | %s | %s | |\n",
		r.Before.TakenAt.UTC().Format("2006-01-02 15:04"), r.After.TakenAt.UTC().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "| Suggestions | %d | %d | %+d |\n", r.Before.Total, r.After.Total, r.After.Total-r.Before.Total)
	fmt.Fprintf(&b, "| Negative ratio | %.1f%% | %.1f%% | %+.1f pts |\n",
		r.Before.NegativeRatio*100, r.After.NegativeRatio*100, r.NegativeRatioDelta()*100)
	fmt.Fprintf(&b, "| Health score | %d | %d | %+d |\n", r.Before.HealthScore, r.After.HealthScore, r.HealthDelta())
	for _, cat := range models.Categories {
		before, after := r.Before.Categories[cat], r.After.Categories[cat]
		if before == 0 && after == 0 {
			continue
		}
		fmt.Fprintf(&b, "| %s | %d | %d | %+d |\n", cat, before, after, after-before)
	}

	fmt.Fprintf(&b, "\n## Resolved (%d)\n\n", len(r.Resolved))
	writeTrendTable(&b, r.Resolved)
	fmt.Fprintf(&b, "\n## Appeared (%d)\n\n", len(r.Appeared))
	writeTrendTable(&b, r.Appeared)
	return b.Bytes()
}

func writeSummaryTable(b *bytes.Buffer, cols []string, s models.SnapshotSummary) {
	fmt.Fprintf(b, "| Metric | %s |\n|---|---|\n", strings.Join(cols, " | "))
	fmt.Fprintf(b, "| Suggestions | %d |\n", s.Total)
	fmt.Fprintf(b, "| Positive | %d |\n", s.Positive)
	fmt.Fprintf(b, "| Neutral | %d |\n", s.Neutral)
	fmt.Fprintf(b, "| Negative | %d |\n", s.Negative)
	fmt.Fprintf(b, "| Negative ratio | %.1f%% |\n", s.NegativeRatio*100)
	fmt.Fprintf(b, "| Health score | %d |\n", s.HealthScore)

	cats := make([]models.Category, 0, len(s.Categories))
	for c := range s.Categories {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	for _, c := range cats {
		fmt.Fprintf(b, "| %s | %d |\n", c, s.Categories[c])
	}
}

func writeTrendTable(b *bytes.Buffer, records []models.TrendRecord) {
	if len(records) == 0 {
		b.WriteString("_None._\n")
		return
	}
	b.WriteString("| Suggestion | Category | Status | Previous | Current | Delta |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, r := range records {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %+d |\n",
			escapeCell(r.Text), r.Category, r.Status,
			rankCell(r.PreviousRank), rankCell(r.CurrentRank), r.RankDelta)
	}
}

func rankCell(r *int) string {
	if r == nil {
		return "-"
	}
	return fmt.Sprintf("#%d", *r+1)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "-"):
			b.WriteByte('-')
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "report"
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
