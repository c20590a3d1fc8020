package services

import (
	"math"

	"suggestguard/models"
)

// Health score policy constants. The score starts at HealthMidpoint, gains up
// to PositiveWeight for positive suggestions and loses up to NegativeWeight
// scaled by the category severity for negative ones.
const (
	HealthMidpoint = 50
	PositiveWeight = 50.0
	NegativeWeight = 100.0
)

// CategorySeverity scales the negative weight per category.
var CategorySeverity = map[models.Category]float64{
	models.CategoryFraud:     1.00,
	models.CategoryLegal:     1.00,
	models.CategoryTrust:     0.80,
	models.CategoryComplaint: 0.70,
	models.CategoryRefund:    0.60,
	models.CategoryQuality:   0.50,
}

// HealthScore reduces snap to an integer in [0, 100]. An empty snapshot
// scores HealthMidpoint.
func HealthScore(snap *models.Snapshot) int {
	if snap == nil || len(snap.Suggestions) == 0 {
		return HealthMidpoint
	}
	total := float64(len(snap.Suggestions))

	var positive int
	negative := make(map[models.Category]int)
	for _, s := range snap.Suggestions {
		switch s.Sentiment {
		case models.SentimentPositive:
			positive++
		case models.SentimentNegative:
			negative[s.Category]++
		}
	}
	return scoreFromCounts(total, positive, negative)
}

func scoreFromCounts(total float64, positive int, negative map[models.Category]int) int {
	score := float64(HealthMidpoint) + PositiveWeight*float64(positive)/total
	for cat, n := range negative {
		sev, ok := CategorySeverity[cat]
		if !ok {
			sev = 1.0
		}
		score -= NegativeWeight * sev * float64(n) / total
	}

	score = math.Round(score)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(score)
}

// Summarize counts the labels of snap and computes its health score.
func Summarize(snap *models.Snapshot) models.SnapshotSummary {
	sum := models.SnapshotSummary{
		Categories:  make(map[models.Category]int),
		HealthScore: HealthMidpoint,
	}
	if snap == nil {
		return sum
	}
	sum.SnapshotID = snap.ID
	sum.TakenAt = snap.TakenAt
	sum.Total = len(snap.Suggestions)

	for _, s := range snap.Suggestions {
		switch s.Sentiment {
		case models.SentimentPositive:
			sum.Positive++
		case models.SentimentNegative:
			sum.Negative++
			sum.Categories[s.Category]++
		default:
			sum.Neutral++
		}
	}

	if sum.Total > 0 {
		total := float64(sum.Total)
		sum.NegativeRatio = float64(sum.Negative) / total
		sum.PositiveRatio = float64(sum.Positive) / total
		sum.HealthScore = scoreFromCounts(total, sum.Positive, sum.Categories)
	}
	return sum
}
