package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"Paris", "paris"},
		{"  New   York ", "new york"},
		{"new\tyork\n", "new york"},
		{"ÉCOLE", "école"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got := Normalize(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got, Normalize(got), "normalize must be idempotent")
		})
	}
}

func TestNormalizeValue_NonStrings(t *testing.T) {
	assert.Equal(t, "", NormalizeValue(nil))
	assert.Equal(t, "", NormalizeValue(42))
	assert.Equal(t, "", NormalizeValue(map[string]any{"a": "b"}))
	assert.Equal(t, "lyon", NormalizeValue(" Lyon "))
	assert.Equal(t, "lyon", NormalizeValue([]byte("LYON")))
}

func TestNormalizeSet_DedupesKeepingOrder(t *testing.T) {
	got := normalizeSet([]string{"B", " a", "b ", "", "A"})
	assert.Equal(t, []string{"b", "a"}, got)
}
