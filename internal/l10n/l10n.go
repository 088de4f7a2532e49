// Package l10n provides the handful of user-visible strings the converter
// needs, keyed by locale with an English fallback.
package l10n

import "strings"

// busyTitles is the placeholder event title shown when calendar access is
// restricted.
var busyTitles = map[string]string{
	"en": "Busy",
	"de": "Beschäftigt",
	"fr": "Occupé(e)",
	"es": "Ocupado",
	"it": "Occupato",
	"ja": "予定あり",
	"ko": "바쁨",
}

// Catalog resolves strings for one locale.
type Catalog struct {
	locale string
}

// New builds a catalog for the given locale tag ("en", "de", "en-US", ...).
func New(locale string) Catalog {
	return Catalog{locale: strings.ToLower(locale)}
}

// BusyTitle returns the localized busy placeholder, falling back through
// the language tag to English.
func (c Catalog) BusyTitle() string {
	if s, ok := busyTitles[c.locale]; ok {
		return s
	}
	if lang, _, ok := strings.Cut(c.locale, "-"); ok {
		if s, found := busyTitles[lang]; found {
			return s
		}
	}
	return busyTitles["en"]
}
