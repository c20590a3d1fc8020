package models

import "time"

// Campaign is an operator-declared remediation window for a brand.
type Campaign struct {
	ID              string     `json:"id"`
	BrandID         string     `json:"brand_id"`
	Label           string     `json:"label"`
	Notes           string     `json:"notes,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at"`
	StartSnapshotID string     `json:"start_snapshot_id"`
	EndSnapshotID   string     `json:"end_snapshot_id"`
	Archived        bool       `json:"archived"`
}

// Ongoing reports whether the campaign has not been closed yet.
func (c *Campaign) Ongoing() bool {
	return c.EndedAt == nil
}

// SnapshotSummary is the label distribution of one snapshot.
type SnapshotSummary struct {
	SnapshotID    string           `json:"snapshot_id"`
	TakenAt       time.Time        `json:"taken_at"`
	Total         int              `json:"total"`
	Positive      int              `json:"positive"`
	Neutral       int              `json:"neutral"`
	Negative      int              `json:"negative"`
	NegativeRatio float64          `json:"negative_ratio"`
	PositiveRatio float64          `json:"positive_ratio"`
	Categories    map[Category]int `json:"categories"`
	HealthScore   int              `json:"health_score"`
}

// CampaignReport is the before/after impact of a campaign.
type CampaignReport struct {
	Campaign Campaign        `json:"campaign"`
	Before   SnapshotSummary `json:"before"`
	After    SnapshotSummary `json:"after"`
	// Resolved are negative suggestions that disappeared during the window.
	Resolved []TrendRecord `json:"resolved"`
	// Appeared are negative suggestions that showed up during the window.
	Appeared []TrendRecord `json:"appeared"`
	// Provisional is set when the campaign is ongoing and After was taken
	// from the latest available snapshot.
	Provisional bool `json:"provisional"`
}

// NegativeRatioDelta is After minus Before negative ratio.
func (r *CampaignReport) NegativeRatioDelta() float64 {
	return r.After.NegativeRatio - r.Before.NegativeRatio
}

// HealthDelta is After minus Before health score.
func (r *CampaignReport) HealthDelta() int {
	return r.After.HealthScore - r.Before.HealthScore
}
