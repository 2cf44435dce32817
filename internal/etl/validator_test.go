package etl

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BartekS5/postmig/pkg/models"
)

func str(v string) *string { return &v }

func TestCheckPost(t *testing.T) {
	tests := []struct {
		name string
		post models.Post
		want []Issue
	}{
		{
			name: "no legacy data",
			post: models.Post{ID: "1"},
			want: nil,
		},
		{
			name: "everything missing",
			post: models.Post{ID: "1", CategoriesText: str("News"), TagsText: str("go"), ImageURL: str("/a.png")},
			want: []Issue{MissingCategoryRelations, MissingTagRelations, MissingImageRelations},
		},
		{
			name: "whitespace and delimiters only",
			post: models.Post{ID: "1", CategoriesText: str(" , "), TagsText: str("   "), ImageURL: str("  ")},
			want: nil,
		},
		{
			name: "relations present",
			post: models.Post{
				ID:             "1",
				CategoriesText: str("News"),
				TagsText:       str("go"),
				Categories:     []models.Relation{{TermName: "News"}},
			},
			want: []Issue{MissingTagRelations},
		},
		{
			name: "image present",
			post: models.Post{ID: "1", ImageURL: str("/a.png"), Images: []models.PostImage{{URL: "/a.png"}}},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckPost(&tt.post))
		})
	}
}

func TestInconsistencyEntry(t *testing.T) {
	inc := Inconsistency{
		Post:   &models.Post{ID: "42", Title: "Hello"},
		Issues: []Issue{MissingCategoryRelations, MissingImageRelations},
	}

	assert.True(t, inc.Has(MissingImageRelations))
	assert.False(t, inc.Has(MissingTagRelations))

	e := inc.Entry()
	assert.Equal(t, "42", e.PostID)
	assert.Equal(t, "Hello", e.Title)
	assert.Equal(t, []string{"missing category relations", "missing image relations"}, e.Issues)
}

func TestFeaturedCaption(t *testing.T) {
	assert.Equal(t, `Featured image for "Hello"`, FeaturedCaption("Hello"))
	assert.True(t, plausibleURL("https://cdn.example.com/a.png"))
	assert.True(t, plausibleURL("/uploads/a.png"))
	assert.False(t, plausibleURL("uploads/a.png"))
}
