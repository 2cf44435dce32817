package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strptr(s string) *string { return &s }

func TestParseNames(t *testing.T) {
	tests := []struct {
		name string
		in   *string
		want []string
	}{
		{"nil", nil, []string{}},
		{"empty", strptr(""), []string{}},
		{"whitespace only", strptr(" ,  , "), []string{}},
		{"dedup trim and drop empty", strptr("a, b ,b,, c"), []string{"a", "b", "c"}},
		{"first spelling wins", strptr("Health, health ,Research"), []string{"Health", "Research"}},
		{"single", strptr("  Events "), []string{"Events"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.want, ParseNames(tt.in))
		})
	}
}

func TestNameSetUnion(t *testing.T) {
	set := NewNameSet()
	set.AddText("News, Events")
	set.AddText("events,Alumni")

	assert.Equal(t, []string{"News", "Events", "Alumni"}, set.Names())
	assert.True(t, set.Contains("ALUMNI"))
	assert.False(t, set.Contains("Sports"))
	assert.Equal(t, 3, set.Len())
}
