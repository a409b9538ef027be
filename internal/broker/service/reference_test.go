package service

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReferenceGenerator_Slugify(t *testing.T) {
	g := NewReferenceGenerator()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain alphanumeric", input: "ALERT1", expected: "ALERT1"},
		{name: "spaces and punctuation", input: "Alert #1 (June)", expected: "Alert_1_June"},
		{name: "run of separators collapses", input: "a--!!--b", expected: "a_b"},
		{name: "leading and trailing trimmed", input: "--alert--", expected: "alert"},
		{name: "only separators", input: "!!!", expected: ""},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, g.Slugify(tt.input))
		})
	}
}

func TestReferenceGenerator_New(t *testing.T) {
	g := NewReferenceGenerator()

	t.Run("combines slug and suffix", func(t *testing.T) {
		reference := g.New("Alert #1")

		parts := strings.SplitN(reference, "-", 2)
		assert.Equal(t, "Alert_1", parts[0])
		assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), parts[1])
	})

	t.Run("empty hint yields bare suffix", func(t *testing.T) {
		reference := g.New("")
		assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), reference)
	})

	t.Run("successive references differ", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			reference := g.New("ALERT1")
			assert.False(t, seen[reference], "duplicate reference %s", reference)
			seen[reference] = true
		}
	})
}
