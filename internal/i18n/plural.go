package i18n

import (
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
)

// Plural categories as used in catalog key suffixes.
const (
	CategoryZero  = "zero"
	CategoryOne   = "one"
	CategoryTwo   = "two"
	CategoryFew   = "few"
	CategoryMany  = "many"
	CategoryOther = "other"
)

// PluralCategory returns the CLDR cardinal category of an integer count in
// the given language.
func PluralCategory(tag language.Tag, count int) string {
	if count < 0 {
		count = -count
	}
	// Integers have no visible fraction digits: v=w=f=t=0.
	switch plural.Cardinal.MatchPlural(tag, count, 0, 0, 0, 0) {
	case plural.Zero:
		return CategoryZero
	case plural.One:
		return CategoryOne
	case plural.Two:
		return CategoryTwo
	case plural.Few:
		return CategoryFew
	case plural.Many:
		return CategoryMany
	default:
		return CategoryOther
	}
}
