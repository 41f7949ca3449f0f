package models

import "strings"

// Language is an output language the assistant answers in.
type Language string

const (
	LanguageEnglish  Language = "English"
	LanguageSpanish  Language = "Spanish"
	LanguageFrench   Language = "French"
	LanguageGerman   Language = "German"
	LanguageJapanese Language = "Japanese"
	LanguageHindi    Language = "Hindi"

	DefaultLanguage = LanguageEnglish
)

var speechCodes = map[Language]string{
	LanguageEnglish:  "en-US",
	LanguageSpanish:  "es-ES",
	LanguageFrench:   "fr-FR",
	LanguageGerman:   "de-DE",
	LanguageJapanese: "ja-JP",
	LanguageHindi:    "hi-IN",
}

// Languages lists the supported output languages in display order.
func Languages() []Language {
	return []Language{LanguageEnglish, LanguageSpanish, LanguageFrench, LanguageGerman, LanguageJapanese, LanguageHindi}
}

// ParseLanguage accepts a language name (any case) or its speech code.
func ParseLanguage(v string) (Language, bool) {
	v = strings.TrimSpace(v)
	for _, l := range Languages() {
		if strings.EqualFold(v, string(l)) || strings.EqualFold(v, speechCodes[l]) {
			return l, true
		}
	}
	return "", false
}

// SpeechCode returns the BCP-47 code used for speech recognition.
func (l Language) SpeechCode() string {
	if c, ok := speechCodes[l]; ok {
		return c
	}
	return "en-US"
}
