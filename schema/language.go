package schema

import "fmt"

// Language is the code of a language whose normalized text is stored as a
// "<code>_clean" field inside JSON columns.
type Language string

const (
	LanguageCN Language = "cn"
	LanguageEN Language = "en"
	LanguageJA Language = "ja"
	LanguageKO Language = "ko"
	LanguageDE Language = "de"
	LanguageFR Language = "fr"
	LanguageRU Language = "ru"
	LanguageES Language = "es"
	LanguageIT Language = "it"
	LanguagePT Language = "pt"
)

var languages = []Language{
	LanguageCN, LanguageEN, LanguageJA, LanguageKO, LanguageDE,
	LanguageFR, LanguageRU, LanguageES, LanguageIT, LanguagePT,
}

// Languages returns every supported language in a fixed order.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	for _, known := range languages {
		if l == known {
			return true
		}
	}
	return false
}

// CleanField is the JSON key holding the normalized text, e.g. "ko_clean".
func (l Language) CleanField() string {
	return string(l) + "_clean"
}

// ParseLanguage converts a code such as "ko" into a Language.
func ParseLanguage(code string) (Language, error) {
	l := Language(code)
	if !l.Valid() {
		return "", fmt.Errorf("unknown clean index language %q", code)
	}
	return l, nil
}
