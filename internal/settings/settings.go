// Package settings carries the per-pass configuration every inspection
// pass receives: the locale used for error text and the logger.
package settings

import (
	"log/slog"

	"golang.org/x/text/language"
)

// DefaultLocale is used when Settings.Locale is empty or unparseable.
const DefaultLocale = "en-US"

// Settings is passed by value into every pass. The zero value is usable.
type Settings struct {
	Locale string
	Logger *slog.Logger
}

var discard = slog.New(slog.DiscardHandler)

// Default returns settings with the default locale and a discarding logger.
func Default() Settings {
	return Settings{Locale: DefaultLocale}
}

// Log returns the configured logger, never nil.
func (s Settings) Log() *slog.Logger {
	if s.Logger == nil {
		return discard
	}
	return s.Logger
}

// Language returns the locale as a language tag, falling back to
// DefaultLocale.
func (s Settings) Language() language.Tag {
	if s.Locale != "" {
		if tag, err := language.Parse(s.Locale); err == nil {
			return tag
		}
	}
	return language.AmericanEnglish
}
