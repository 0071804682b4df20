package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{name: "trims and drops blanks", input: []string{"  kafka:9092 ", "", "  "}, expected: []string{"kafka:9092"}},
		{name: "keeps first occurrence", input: []string{"b", "a", " b", "a"}, expected: []string{"b", "a"}},
		{name: "is case sensitive", input: []string{"Acme", "acme"}, expected: []string{"Acme", "acme"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList("", ","))
	assert.Nil(t, SplitList("   ", ","))
	assert.Equal(t, []string{"a", "b"}, SplitList("a, b,,a", ","))
	assert.Equal(t, []string{"settlement=https://s", "fx=https://f"}, SplitList("settlement=https://s;fx=https://f", ";"))
}
