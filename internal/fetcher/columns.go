package fetcher

import (
	"regexp"
	"strings"
)

// Rule reports whether a header name identifies the wanted column.
type Rule func(name string) bool

// HasPrefixFold matches headers that start with prefix, ignoring case.
func HasPrefixFold(prefix string) Rule {
	p := strings.ToLower(prefix)
	return func(name string) bool {
		return strings.HasPrefix(strings.ToLower(name), p)
	}
}

// EqualsFold matches headers equal to want, ignoring case.
func EqualsFold(want string) Rule {
	return func(name string) bool {
		return strings.EqualFold(name, want)
	}
}

var ordinalPrefix = regexp.MustCompile(`^\d+\.\s*`)

// StripOrdinal applies r to the header with a leading "12. " style ordinal removed,
// as used by TRI basic data files.
func StripOrdinal(r Rule) Rule {
	return func(name string) bool {
		return r(ordinalPrefix.ReplaceAllString(name, ""))
	}
}

// MatchColumn returns the index of the first header column (left to right) that
// satisfies any of the rules. Column order decides ties, not rule order.
func MatchColumn(header []string, rules ...Rule) (int, bool) {
	for i, h := range header {
		for _, r := range rules {
			if r(h) {
				return i, true
			}
		}
	}
	return -1, false
}
