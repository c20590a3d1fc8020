package models

import "time"

// Sentiment is the label assigned to a suggestion.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Category is the negative category of a NEGATIVE suggestion.
type Category string

const (
	CategoryNone      Category = ""
	CategoryFraud     Category = "fraud"
	CategoryComplaint Category = "complaint"
	CategoryLegal     Category = "legal"
	CategoryQuality   Category = "quality"
	CategoryRefund    Category = "refund"
	CategoryTrust     Category = "trust"
)

// Categories lists every negative category in tie-break priority order.
var Categories = []Category{
	CategoryFraud,
	CategoryLegal,
	CategoryComplaint,
	CategoryRefund,
	CategoryQuality,
	CategoryTrust,
}

// Label is the classifier output for one text.
type Label struct {
	Sentiment Sentiment `json:"sentiment"`
	Category  Category  `json:"category,omitempty"`
	// MatchedKeyword is the dictionary entry that decided the label, if any.
	MatchedKeyword string `json:"matched_keyword,omitempty"`
}

// Suggestion is one autocomplete completion inside a snapshot.
type Suggestion struct {
	Text string `json:"text"`
	// Rank is the 0-based position in the merged snapshot.
	Rank int `json:"rank"`
	// QueryRank is the 0-based position inside the originating query result.
	QueryRank      int       `json:"query_rank"`
	Query          string    `json:"query"`
	Sentiment      Sentiment `json:"sentiment"`
	Category       Category  `json:"category,omitempty"`
	MatchedKeyword string    `json:"matched_keyword,omitempty"`
}

// IsNegative reports whether the suggestion was labelled NEGATIVE.
func (s Suggestion) IsNegative() bool {
	return s.Sentiment == SentimentNegative
}

// ScanReport summarises one collection run.
type ScanReport struct {
	VariantsAttempted int           `json:"variants_attempted"`
	VariantsFailed    int           `json:"variants_failed"`
	FailedQueries     []string      `json:"failed_queries,omitempty"`
	TotalRawResults   int           `json:"total_raw_results"`
	UniqueSuggestions int           `json:"unique_suggestions"`
	Duration          time.Duration `json:"duration_ns"`
}

// Snapshot is the merged, deduplicated suggestion set of one brand at one time.
type Snapshot struct {
	ID          string       `json:"id"`
	BrandID     string       `json:"brand_id"`
	TakenAt     time.Time    `json:"taken_at"`
	Suggestions []Suggestion `json:"suggestions"`
	Report      ScanReport   `json:"report"`
}

// SuggestionPoint is one appearance of a suggestion text in a snapshot.
type SuggestionPoint struct {
	SnapshotID string    `json:"snapshot_id"`
	TakenAt    time.Time `json:"taken_at"`
	Rank       int       `json:"rank"`
	QueryRank  int       `json:"query_rank"`
	Query      string    `json:"query"`
	Sentiment  Sentiment `json:"sentiment"`
	Category   Category  `json:"category,omitempty"`
}
