package services

import (
	"time"

	"suggestguard/models"
	"suggestguard/utils"
)

// BaseAlphabet is the 26-letter expansion alphabet.
const BaseAlphabet = "abcdefghijklmnopqrstuvwxyz"

// TurkishExtension holds the extra Turkish letters in alphabetical order.
const TurkishExtension = "çğıöşü"

// QueryExpander turns brand keywords into the query variants of a scan.
type QueryExpander struct {
	suffixes []string
}

// NewQueryExpander builds an expander that appends base then extended letters.
func NewQueryExpander(base, extended string) *QueryExpander {
	suffixes := make([]string, 0, len(base)+len(extended))
	for _, r := range base {
		suffixes = append(suffixes, string(r))
	}
	for _, r := range extended {
		suffixes = append(suffixes, string(r))
	}
	return &QueryExpander{suffixes: suffixes}
}

// NewTurkishQueryExpander uses a-z followed by ç ğ ı ö ş ü.
func NewTurkishQueryExpander() *QueryExpander {
	return NewQueryExpander(BaseAlphabet, TurkishExtension)
}

// Expand returns the variants for brand.
func (e *QueryExpander) Expand(brand *models.Brand) []string {
	return e.ExpandKeywords(brand.Keywords, brand.Expand)
}

// ExpandKeywords returns, for each non-blank keyword in order, the bare keyword
// followed by keyword+" "+suffix when expand is set. Output is deduplicated
// by exact text keeping the first occurrence.
func (e *QueryExpander) ExpandKeywords(keywords []string, expand bool) []string {
	out := make([]string, 0)
	seen := make(map[string]struct{})
	add := func(v string) {
		if _, dup := seen[v]; dup {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	for _, kw := range keywords {
		base := utils.NormalizeText(kw)
		if base == "" {
			continue
		}
		add(base)
		if !expand {
			continue
		}
		for _, s := range e.suffixes {
			add(base + " " + s)
		}
	}
	return out
}

// EstimateScan predicts the wall time of a scan: variants are spread over
// workers, each paying delay between its own requests.
func EstimateScan(variants, workers int, delay time.Duration) time.Duration {
	if variants <= 0 {
		return 0
	}
	if workers < 1 {
		workers = 1
	}
	rounds := (variants + workers - 1) / workers
	return time.Duration(rounds) * delay
}
