package utils

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// LowerTurkish lower-cases s with Turkish rules (İ→i, I→ı).
// A Caser keeps state, so one is built per call.
func LowerTurkish(s string) string {
	return cases.Lower(language.Turkish).String(s)
}

// CollapseSpace strips leading/trailing whitespace and collapses internal runs.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeText is the canonical form used for queries and stored
// suggestion text: valid UTF-8, Turkish lower case, single spaces.
func NormalizeText(s string) string {
	return CollapseSpace(LowerTurkish(strings.ToValidUTF8(s, "")))
}

// dotlessFolder maps the dotless/dotted i variants onto plain i. U+0307 is the
// combining dot left behind by non-Turkish lower-casing of İ.
var dotlessFolder = strings.NewReplacer("ı", "i", "̇", "")

// FoldForMatch normalizes s and then folds dotted and dotless i together so
// keyword matching treats them identically. Other diacritics are kept.
func FoldForMatch(s string) string {
	return dotlessFolder.Replace(NormalizeText(s))
}
