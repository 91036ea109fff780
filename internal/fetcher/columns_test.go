package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchColumn(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		rules  []Rule
		want   int
		ok     bool
	}{
		{"prefix", []string{"city", "date", "Emissions_t"}, []Rule{HasPrefixFold("emission")}, 2, true},
		{"equals", []string{"city", "VALUE"}, []Rule{EqualsFold("value")}, 1, true},
		{"column order wins", []string{"co2", "emission"}, []Rule{HasPrefixFold("emission"), EqualsFold("co2")}, 0, true},
		{"no match", []string{"city", "date"}, []Rule{EqualsFold("value")}, -1, false},
		{"empty header", nil, []Rule{EqualsFold("value")}, -1, false},
		{"ordinal", []string{"1. YEAR", "12. LATITUDE"}, []Rule{StripOrdinal(HasPrefixFold("LAT"))}, 1, true},
		{"equals is not prefix", []string{"values"}, []Rule{EqualsFold("value")}, -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchColumn(tt.header, tt.rules...)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
