package models

// TrendStatus is the trajectory of a negative suggestion between two snapshots.
type TrendStatus string

const (
	TrendNew        TrendStatus = "NEW"
	TrendRising     TrendStatus = "RISING"
	TrendFalling    TrendStatus = "FALLING"
	TrendPersistent TrendStatus = "PERSISTENT"
	TrendResolved   TrendStatus = "RESOLVED"
)

// TrendRecord classifies one negative suggestion across two snapshots.
type TrendRecord struct {
	Text     string      `json:"text"`
	Category Category    `json:"category"`
	Status   TrendStatus `json:"status"`
	// PreviousRank and CurrentRank are nil when the text is absent.
	PreviousRank *int `json:"previous_rank"`
	CurrentRank  *int `json:"current_rank"`
	// RankDelta is PreviousRank - CurrentRank. Positive means the suggestion
	// moved toward the top of the list. Zero when either rank is absent.
	RankDelta int `json:"rank_delta"`
}

// TrendReport is the comparison of two snapshots of one brand.
type TrendReport struct {
	BrandID               string        `json:"brand_id"`
	PreviousSnapshotID    string        `json:"previous_snapshot_id"`
	CurrentSnapshotID     string        `json:"current_snapshot_id"`
	Records               []TrendRecord `json:"records"`
	PreviousNegativeRatio float64       `json:"previous_negative_ratio"`
	CurrentNegativeRatio  float64       `json:"current_negative_ratio"`
}

// Filter returns the records with one of the given statuses, in order.
func (r *TrendReport) Filter(statuses ...TrendStatus) []TrendRecord {
	out := make([]TrendRecord, 0)
	for _, rec := range r.Records {
		for _, st := range statuses {
			if rec.Status == st {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// CountByStatus tallies records per status.
func (r *TrendReport) CountByStatus() map[TrendStatus]int {
	counts := make(map[TrendStatus]int)
	for _, rec := range r.Records {
		counts[rec.Status]++
	}
	return counts
}
