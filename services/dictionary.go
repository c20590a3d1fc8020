package services

import "suggestguard/models"

const (
	LangTurkish = "tr"
	LangEnglish = "en"
)

// DictionaryEntry is one keyword of a language table. Positive entries carry
// no category.
type DictionaryEntry struct {
	Keyword  string
	Language string
	Category models.Category
}

// Dictionary holds the negative and positive keyword tables.
type Dictionary struct {
	Negative []DictionaryEntry
	Positive []DictionaryEntry
}

// DefaultDictionary returns the built-in Turkish (source) and English
// (secondary) tables. Diacritic and plain spellings are listed separately;
// dotted/dotless i variants are folded at match time and need one entry.
func DefaultDictionary() Dictionary {
	neg := func(lang string, cat models.Category, words ...string) []DictionaryEntry {
		out := make([]DictionaryEntry, 0, len(words))
		for _, w := range words {
			out = append(out, DictionaryEntry{Keyword: w, Language: lang, Category: cat})
		}
		return out
	}
	pos := func(lang string, words ...string) []DictionaryEntry {
		return neg(lang, models.CategoryNone, words...)
	}

	var d Dictionary
	for _, group := range [][]DictionaryEntry{
		neg(LangTurkish, models.CategoryFraud, "dolandırıcı", "sahte", "sahtekar", "hırsız", "kandırıyor"),
		neg(LangTurkish, models.CategoryComplaint, "şikayet", "sikayet", "sorun", "problem", "mağdur", "magdur", "pişman", "pisman", "kaçın", "kacin"),
		neg(LangTurkish, models.CategoryLegal, "dava", "yasal", "yasadışı", "yasadisi", "suç", "mahkeme", "savcılık", "icra takibi"),
		neg(LangTurkish, models.CategoryQuality, "kötü", "kotu", "berbat", "rezalet", "zararlı", "tehlikeli", "bozuk"),
		neg(LangTurkish, models.CategoryRefund, "iade", "iptal", "geri ödeme", "geri odeme"),
		neg(LangTurkish, models.CategoryTrust, "güvenilir mi", "guvenilir mi", "kapandı mı", "battı mı", "batık", "iflas"),

		neg(LangEnglish, models.CategoryFraud, "scam", "fraud", "fake", "ripoff", "rip off"),
		neg(LangEnglish, models.CategoryComplaint, "complaint", "problem", "avoid", "issues"),
		neg(LangEnglish, models.CategoryLegal, "lawsuit", "class action", "illegal", "criminal"),
		neg(LangEnglish, models.CategoryQuality, "worst", "terrible", "awful", "horrible", "dangerous", "broken", "poor quality"),
		neg(LangEnglish, models.CategoryRefund, "refund", "cancel", "chargeback"),
		neg(LangEnglish, models.CategoryTrust, "shut down", "bankrupt", "out of business", "is it legit"),
	} {
		d.Negative = append(d.Negative, group...)
	}

	d.Positive = append(d.Positive, pos(LangTurkish,
		"en iyi", "iyi", "tavsiye", "güvenilir", "guvenilir", "kaliteli", "başarılı", "basarili",
		"ödüllü", "odullu", "popüler", "populer", "mükemmel", "mukemmel", "harika", "indirim", "kampanya")...)
	d.Positive = append(d.Positive, pos(LangEnglish,
		"best", "recommended", "award", "trusted", "top rated", "excellent", "popular", "amazing", "good")...)

	return d
}
