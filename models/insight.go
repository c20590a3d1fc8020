package models

// ScanInsight is the console digest of one brand scan.
type ScanInsight struct {
	BrandName     string
	Summary       SnapshotSummary
	FailedQueries int
	Attempted     int
	// TopNegative are the highest ranked negative suggestions.
	TopNegative []Suggestion
	TrendCounts map[TrendStatus]int
	NewNegative []TrendRecord
	// HealthDelta is nil on a brand's first scan.
	HealthDelta *int
}
