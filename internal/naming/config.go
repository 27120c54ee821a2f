// Package naming holds the name-construction rules of the generated API:
// capitalization, pluralization, root field names, purpose-suffixed type
// names and the table-to-type names used by datamodel inference.
package naming

// Config overrides the inflection rules for individual words. Keys match
// case-insensitively.
type Config struct {
	// PluralOverrides maps a singular word to its plural, e.g. cactus: Cacti.
	PluralOverrides map[string]string `mapstructure:"plural_overrides"`
	// SingularOverrides maps a plural word to its singular, e.g. data: datum.
	SingularOverrides map[string]string `mapstructure:"singular_overrides"`
}

// DefaultConfig returns a Config with no overrides.
func DefaultConfig() Config {
	return Config{
		PluralOverrides:   map[string]string{},
		SingularOverrides: map[string]string{},
	}
}
