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
		{"nil slice", nil, nil},
		{"empty slice", []string{}, []string{}},
		{"trims whitespace", []string{"  kafka-1:9092 ", "kafka-2:9092"}, []string{"kafka-1:9092", "kafka-2:9092"}},
		{"removes duplicates preserving order", []string{"b", "a", "b", "c"}, []string{"b", "a", "c"}},
		{"drops blanks", []string{"", "  ", "x"}, []string{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList("   ", false))
	assert.Equal(t, []string{"consent", "medical"}, SplitList("Consent, medical,CONSENT", true))
	assert.Equal(t, []string{"A", "a"}, SplitList("A,a", false))
}
