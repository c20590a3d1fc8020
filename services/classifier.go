package services

import (
	"slices"
	"strings"
	"unicode/utf8"

	"suggestguard/models"
	"suggestguard/utils"
)

type matcher struct {
	keyword  string
	length   int
	category models.Category
	priority int
}

// SentimentClassifier labels suggestion text from keyword tables.
//
// Matching is substring based on folded text. When several negative
// categories match, the longest keyword wins; on equal length the category
// order fraud > legal > complaint > refund > quality > trust decides.
// Any negative match beats any positive match.
type SentimentClassifier struct {
	negative []matcher
	positive []matcher
}

// NewSentimentClassifier compiles dict. The dictionary is copied.
func NewSentimentClassifier(dict Dictionary) *SentimentClassifier {
	return &SentimentClassifier{
		negative: compile(dict.Negative),
		positive: compile(dict.Positive),
	}
}

func compile(entries []DictionaryEntry) []matcher {
	priority := make(map[models.Category]int, len(models.Categories))
	for i, c := range models.Categories {
		priority[c] = i
	}

	type key struct {
		kw  string
		cat models.Category
	}
	seen := make(map[key]struct{})
	out := make([]matcher, 0, len(entries))
	for _, e := range entries {
		kw := utils.FoldForMatch(e.Keyword)
		if kw == "" {
			continue
		}
		k := key{kw, e.Category}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		p, ok := priority[e.Category]
		if !ok {
			p = len(models.Categories)
		}
		out = append(out, matcher{
			keyword:  kw,
			length:   utf8.RuneCountInString(kw),
			category: e.Category,
			priority: p,
		})
	}
	return out
}

// better reports whether m beats cur under the tie-break order.
func (m matcher) better(cur *matcher) bool {
	if cur == nil {
		return true
	}
	if m.length != cur.length {
		return m.length > cur.length
	}
	if m.priority != cur.priority {
		return m.priority < cur.priority
	}
	return m.keyword < cur.keyword
}

// Classify labels text. It never fails; unmatched or garbled text is NEUTRAL.
func (c *SentimentClassifier) Classify(text string) models.Label {
	return c.classifyFolded(utils.FoldForMatch(text))
}

// ClassifyForBrand removes the brand name from text before classifying, so a
// brand whose own name contains a keyword is not labelled by it. Only whole
// words are removed: "güven" is stripped from "güven güvenilir mi" but the
// keyword "güvenilir mi" survives.
func (c *SentimentClassifier) ClassifyForBrand(brandName, text string) models.Label {
	words := strings.Fields(utils.FoldForMatch(text))
	brand := strings.Fields(utils.FoldForMatch(brandName))
	return c.classifyFolded(strings.Join(stripWords(words, brand), " "))
}

// stripWords removes every occurrence of the word sequence seq from words.
func stripWords(words, seq []string) []string {
	if len(seq) == 0 {
		return words
	}
	out := make([]string, 0, len(words))
	for i := 0; i < len(words); {
		if i+len(seq) <= len(words) && slices.Equal(words[i:i+len(seq)], seq) {
			i += len(seq)
			continue
		}
		out = append(out, words[i])
		i++
	}
	return out
}

func (c *SentimentClassifier) classifyFolded(folded string) models.Label {
	if folded == "" {
		return models.Label{Sentiment: models.SentimentNeutral}
	}

	var best *matcher
	for i := range c.negative {
		m := c.negative[i]
		if strings.Contains(folded, m.keyword) && m.better(best) {
			best = &c.negative[i]
		}
	}
	if best != nil {
		return models.Label{
			Sentiment:      models.SentimentNegative,
			Category:       best.category,
			MatchedKeyword: best.keyword,
		}
	}

	best = nil
	for i := range c.positive {
		m := c.positive[i]
		if strings.Contains(folded, m.keyword) && m.better(best) {
			best = &c.positive[i]
		}
	}
	if best != nil {
		return models.Label{Sentiment: models.SentimentPositive, MatchedKeyword: best.keyword}
	}

	return models.Label{Sentiment: models.SentimentNeutral}
}

// ClassifySnapshot labels every suggestion of snap in place.
func (c *SentimentClassifier) ClassifySnapshot(snap *models.Snapshot, brandName string) {
	for i := range snap.Suggestions {
		s := &snap.Suggestions[i]
		label := c.ClassifyForBrand(brandName, s.Text)
		s.Sentiment = label.Sentiment
		s.Category = label.Category
		s.MatchedKeyword = label.MatchedKeyword
	}
}
