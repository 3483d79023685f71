package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Language is a storefront display language.
type Language string

const (
	LanguageEN Language = "en"
	LanguageHE Language = "he"
)

// ParseLanguage maps a request value to a supported language, defaulting to English.
func ParseLanguage(raw string) Language {
	switch Language(strings.ToLower(strings.TrimSpace(raw))) {
	case LanguageHE:
		return LanguageHE
	default:
		return LanguageEN
	}
}

// LocalizedText is either a plain string or a set of per-language translations.
type LocalizedText struct {
	plain        string
	translations map[Language]string
}

// Plain returns text that reads the same in every language.
func Plain(s string) LocalizedText {
	return LocalizedText{plain: s}
}

// Translated returns text with English and Hebrew variants.
func Translated(en, he string) LocalizedText {
	return LocalizedText{translations: map[Language]string{LanguageEN: en, LanguageHE: he}}
}

// IsTranslated reports whether the text carries per-language variants.
func (t LocalizedText) IsTranslated() bool {
	return t.translations != nil
}

// IsZero reports whether the text is empty in every language.
func (t LocalizedText) IsZero() bool {
	if t.translations == nil {
		return t.plain == ""
	}
	for _, v := range t.translations {
		if v != "" {
			return false
		}
	}
	return true
}

// Resolve returns the text for lang, falling back to English.
func (t LocalizedText) Resolve(lang Language) string {
	if t.translations == nil {
		return t.plain
	}
	if v := t.translations[lang]; v != "" {
		return v
	}
	return t.translations[LanguageEN]
}

func (t LocalizedText) String() string {
	return t.Resolve(LanguageEN)
}

func (t LocalizedText) MarshalJSON() ([]byte, error) {
	if t.translations == nil {
		return json.Marshal(t.plain)
	}
	return json.Marshal(t.translations)
}

func (t *LocalizedText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = LocalizedText{}
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Plain(s)
		return nil
	case data[0] == '{':
		var m map[Language]string
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("localized text: %w", err)
		}
		*t = LocalizedText{translations: m}
		return nil
	default:
		return fmt.Errorf("localized text: unexpected JSON %s", string(data))
	}
}
