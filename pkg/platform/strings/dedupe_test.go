package strings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	id "aurum/pkg/domain"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "unset", input: "", expected: []string{}},
		{name: "single broker", input: "kafka:9092", expected: []string{"kafka:9092"}},
		{name: "trims and drops empties", input: " a:9092 , ,b:9092,", expected: []string{"a:9092", "b:9092"}},
		{name: "keeps first of duplicates", input: "b:9092,a:9092,b:9092", expected: []string{"b:9092", "a:9092"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitList(tt.input))
		})
	}
}

func TestDedupe(t *testing.T) {
	t.Run("normalizes typed values", func(t *testing.T) {
		in := []id.Jurisdiction{"ch", " CH", "de", ""}
		assert.Equal(t, []id.Jurisdiction{"CH", "DE"}, Dedupe(in, func(s string) string {
			return strings.ToUpper(strings.TrimSpace(s))
		}))
	})

	t.Run("nil norm is exact match", func(t *testing.T) {
		in := []id.Address{"0xab", "0xAB", "0xab"}
		assert.Equal(t, []id.Address{"0xab", "0xAB"}, Dedupe(in, nil))
	})
}
