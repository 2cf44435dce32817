package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"School of Health Sciences!", "school-of-health-sciences"},
		{" school   of Health Sciences!!! ", "school-of-health-sciences"},
		{"C++ & Go", "c-go"},
		{"--already-slugged--", "already-slugged"},
		{"2024 Research", "2024-research"},
		{"", ""},
		{"!!!", ""},
		{"Café", "caf"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestSlugifyNoDoubleHyphens(t *testing.T) {
	got := Slugify("a -- b __ c")
	assert.Equal(t, "a-b-c", got)
	assert.NotContains(t, got, "--")
}
