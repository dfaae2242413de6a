package shared

import (
	"github.com/spf13/pflag"
)

// BoolFlagOr returns value when the flag name was set on the command line,
// otherwise fallback. A nil set always yields fallback.
func BoolFlagOr(flags *pflag.FlagSet, name string, value, fallback bool) bool {
	if flags != nil && flags.Changed(name) {
		return value
	}
	return fallback
}

// StringOr returns value when set, otherwise fallback.
func StringOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

// SliceOr returns values when non-empty, otherwise fallback.
func SliceOr(values, fallback []string) []string {
	if len(values) > 0 {
		return values
	}
	return fallback
}
