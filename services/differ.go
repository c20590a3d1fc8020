package services

import "suggestguard/models"

// NegativeRatio is the share of negative suggestions in snap, 0 when empty.
func NegativeRatio(snap *models.Snapshot) float64 {
	if snap == nil || len(snap.Suggestions) == 0 {
		return 0
	}
	var n int
	for _, s := range snap.Suggestions {
		if s.IsNegative() {
			n++
		}
	}
	return float64(n) / float64(len(snap.Suggestions))
}

// Diff classifies the trajectory of every suggestion that is negative in
// previous or current.
//
// RankDelta is previous rank minus current rank: a positive delta means the
// suggestion climbed toward the top of the list and became more visible.
// Records follow current's order, then RESOLVED ones in previous' order.
// A nil snapshot is treated as empty.
func Diff(previous, current *models.Snapshot) *models.TrendReport {
	if previous == nil {
		previous = &models.Snapshot{}
	}
	if current == nil {
		current = &models.Snapshot{}
	}

	report := &models.TrendReport{
		BrandID:               current.BrandID,
		PreviousSnapshotID:    previous.ID,
		CurrentSnapshotID:     current.ID,
		Records:               make([]models.TrendRecord, 0),
		PreviousNegativeRatio: NegativeRatio(previous),
		CurrentNegativeRatio:  NegativeRatio(current),
	}
	if report.BrandID == "" {
		report.BrandID = previous.BrandID
	}

	prevIndex := make(map[string]models.Suggestion, len(previous.Suggestions))
	for _, s := range previous.Suggestions {
		prevIndex[s.Text] = s
	}
	inCurrent := make(map[string]struct{}, len(current.Suggestions))

	for _, cur := range current.Suggestions {
		inCurrent[cur.Text] = struct{}{}
		prev, found := prevIndex[cur.Text]
		if !cur.IsNegative() && !(found && prev.IsNegative()) {
			continue
		}

		rec := models.TrendRecord{
			Text:        cur.Text,
			Category:    cur.Category,
			CurrentRank: intPtr(cur.Rank),
		}
		if !cur.IsNegative() {
			rec.Category = prev.Category
		}

		if !found {
			rec.Status = models.TrendNew
		} else {
			rec.PreviousRank = intPtr(prev.Rank)
			rec.RankDelta = prev.Rank - cur.Rank
			switch {
			case cur.Rank < prev.Rank:
				rec.Status = models.TrendRising
			case cur.Rank > prev.Rank:
				rec.Status = models.TrendFalling
			default:
				rec.Status = models.TrendPersistent
			}
		}
		report.Records = append(report.Records, rec)
	}

	for _, prev := range previous.Suggestions {
		if !prev.IsNegative() {
			continue
		}
		if _, still := inCurrent[prev.Text]; still {
			continue
		}
		report.Records = append(report.Records, models.TrendRecord{
			Text:         prev.Text,
			Category:     prev.Category,
			Status:       models.TrendResolved,
			PreviousRank: intPtr(prev.Rank),
		})
	}

	return report
}

// NewNegatives returns the NEW records of report, the suggestions that turned
// negative since the previous snapshot.
func NewNegatives(report *models.TrendReport) []models.TrendRecord {
	if report == nil {
		return nil
	}
	return report.Filter(models.TrendNew)
}

func intPtr(v int) *int {
	return &v
}
