package naming

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jinzhu/inflection"
)

// Pluralize converts a singular word to its plural form.
// Checks custom overrides first, then falls back to the inflection library.
// The plural always differs from the word: uncountable words take "es"
// after a trailing s and "s" otherwise ("news" -> "newses", "fish" ->
// "fishs"), so list and single-record root fields never share a name.
func (n *Namer) Pluralize(word string) string {
	if override, ok := lookupOverride(n.config.PluralOverrides, word); ok {
		return override
	}
	if word == "" {
		return word
	}
	plural := inflection.Plural(word)
	if strings.EqualFold(plural, word) {
		if strings.HasSuffix(strings.ToLower(word), "s") {
			return word + "es"
		}
		return word + "s"
	}
	// An all-caps word gets an all-caps suffix from the library ("P" ->
	// "PS"); keep the word and lower-case only what was appended.
	if strings.HasPrefix(plural, word) && plural == strings.ToUpper(plural) {
		return word + strings.ToLower(plural[len(word):])
	}
	return plural
}

// Singularize converts a plural word to its singular form.
// Checks custom overrides first, then falls back to the inflection library.
func (n *Namer) Singularize(word string) string {
	if override, ok := lookupOverride(n.config.SingularOverrides, word); ok {
		return override
	}
	return inflection.Singular(word)
}

// lookupOverride matches word exactly, then case-insensitively. Config files
// arrive with lower-cased keys, so a case-insensitive hit takes the case of
// word's first letter.
func lookupOverride(overrides map[string]string, word string) (string, bool) {
	if override, ok := overrides[word]; ok {
		return override, true
	}
	override, ok := overrides[strings.ToLower(word)]
	if !ok {
		for k, v := range overrides {
			if strings.EqualFold(k, word) {
				override, ok = v, true
				break
			}
		}
	}
	if !ok {
		return "", false
	}
	if r, _ := utf8.DecodeRuneInString(word); unicode.IsUpper(r) {
		return Capitalize(override), true
	}
	return override, true
}
