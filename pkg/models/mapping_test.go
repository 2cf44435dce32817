package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDefaultsKeepsOverrides(t *testing.T) {
	custom := &MappingSchema{
		Tables:  map[Entity]string{EntityPost: "Post", EntityPostTag: "_PostToTag"},
		Columns: ColumnMapping{Categories: "categoriesText"},
	}

	m := custom.WithDefaults()

	assert.Equal(t, "Post", m.Table(EntityPost))
	assert.Equal(t, "_PostToTag", m.Table(EntityPostTag))
	assert.Equal(t, "categories", m.Table(EntityCategory))
	assert.Equal(t, "categoriesText", m.Column(FieldCategories))
	assert.Equal(t, "image_url", m.Column(FieldImage))
	assert.Equal(t, IDStrategyUUID, m.IDStrategy.Type)
	require.NoError(t, m.Validate())
}

func TestValidateRejectsInjection(t *testing.T) {
	m := DefaultMapping()
	m.Tables[EntityTag] = "tags; DROP TABLE posts"
	assert.Error(t, m.Validate())

	m = DefaultMapping()
	m.IDStrategy.Type = "sequence"
	assert.Error(t, m.Validate())
}

func TestPostConnected(t *testing.T) {
	p := &Post{Categories: []Relation{{TermID: "c1", TermName: "Health"}}}

	assert.True(t, p.Connected(Category, "c1", "other"))
	assert.True(t, p.Connected(Category, "x", " health "))
	assert.False(t, p.Connected(Category, "c2", "Research"))
	assert.False(t, p.Connected(Tag, "c1", "Health"))
}
