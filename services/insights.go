package services

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"suggestguard/models"
	"suggestguard/utils"
)

type InsightService struct {
	logger *utils.Logger
	out    io.Writer
	top    int
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger, out: os.Stdout, top: 5}
}

// WithOutput redirects Print.
func (s *InsightService) WithOutput(w io.Writer) *InsightService {
	s.out = w
	return s
}

func (s *InsightService) Generate(r *ScanResult) *models.ScanInsight {
	insight := &models.ScanInsight{
		TrendCounts: make(map[models.TrendStatus]int),
	}
	if r == nil || r.Snapshot == nil {
		return insight
	}
	if r.Brand != nil {
		insight.BrandName = r.Brand.Name
	}
	insight.Summary = r.Summary
	insight.Attempted = r.Snapshot.Report.VariantsAttempted
	insight.FailedQueries = r.Snapshot.Report.VariantsFailed

	for _, sg := range r.Snapshot.Suggestions {
		if sg.IsNegative() {
			insight.TopNegative = append(insight.TopNegative, sg)
		}
	}
	sort.SliceStable(insight.TopNegative, func(i, j int) bool {
		return insight.TopNegative[i].Rank < insight.TopNegative[j].Rank
	})
	if len(insight.TopNegative) > s.top {
		insight.TopNegative = insight.TopNegative[:s.top]
	}

	if r.Trend != nil {
		insight.TrendCounts = r.Trend.CountByStatus()
		insight.NewNegative = NewNegatives(r.Trend)
	}
	if r.Previous != nil {
		delta := r.Summary.HealthScore - HealthScore(r.Previous)
		insight.HealthDelta = &delta
	}
	return insight
}

func (s *InsightService) Print(r *models.ScanInsight) {
	w := s.out
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  🔎 SUGGESTION SCAN: %s\033[0m\n", strings.ToUpper(r.BrandName))
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Unique suggestions : \033[1m%d\033[0m\n", r.Summary.Total)
	fmt.Fprintf(w, "  Query variants     : \033[1m%d\033[0m (%d failed)\n", r.Attempted, r.FailedQueries)
	fmt.Fprintf(w, "  Positive / neutral / negative : %d / %d / %d\n",
		r.Summary.Positive, r.Summary.Neutral, r.Summary.Negative)
	fmt.Fprintf(w, "  Negative ratio     : \033[1;31m%.2f%%\033[0m\n", round2(r.Summary.NegativeRatio*100))
	fmt.Fprintf(w, "  Health score       : %s", healthColour(r.Summary.HealthScore))
	if r.HealthDelta != nil {
		fmt.Fprintf(w, " (%+d)", *r.HealthDelta)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Top Negative Suggestions\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopNegative) == 0 {
		fmt.Fprintf(w, "  No negative suggestions found\n")
	} else {
		for _, sg := range r.TopNegative {
			fmt.Fprintf(w, "  \033[1m#%-3d\033[0m %-38s \033[1;31m%s\033[0m\n",
				sg.Rank+1, truncate(sg.Text, 36), sg.Category)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Negative Categories\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.Summary.Categories) == 0 {
		fmt.Fprintf(w, "  No negative categories\n")
	} else {
		type catCount struct {
			cat   models.Category
			count int
		}
		var cats []catCount
		for cat, cnt := range r.Summary.Categories {
			cats = append(cats, catCount{cat, cnt})
		}
		sort.Slice(cats, func(i, j int) bool {
			if cats[i].count != cats[j].count {
				return cats[i].count > cats[j].count
			}
			return cats[i].cat < cats[j].cat
		})
		for _, cc := range cats {
			bar := strings.Repeat("█", cc.count)
			fmt.Fprintf(w, "  %-12s %s (%d)\n", cc.cat, bar, cc.count)
		}
	}
	fmt.Fprintln(w)

	if r.HealthDelta != nil {
		fmt.Fprintf(w, "\033[1;33m  Since Last Scan\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		for _, st := range []models.TrendStatus{
			models.TrendNew, models.TrendRising, models.TrendFalling, models.TrendPersistent, models.TrendResolved,
		} {
			fmt.Fprintf(w, "  %-11s : %d\n", st, r.TrendCounts[st])
		}
		for _, rec := range r.NewNegative {
			fmt.Fprintf(w, "  \033[1;31m+ %s\033[0m (%s)\n", truncate(rec.Text, 40), rec.Category)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func healthColour(score int) string {
	colour := "32"
	switch {
	case score < 40:
		colour = "31"
	case score < 60:
		colour = "33"
	}
	return fmt.Sprintf("\033[1;%sm%d/100\033[0m", colour, score)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
