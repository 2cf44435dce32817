package models

import (
	"regexp"

	"github.com/pkg/errors"
)

// ID strategies for rows created by the migration.
const (
	// IDStrategyUUID has the migration generate string ids.
	IDStrategyUUID = "uuid"
	// IDStrategyAuto lets the database assign ids and reads them back.
	IDStrategyAuto = "auto"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// MappingSchema describes where each entity lives in the target store:
// SQL table or Mongo collection names, the legacy post columns and the
// id strategy for created rows.
type MappingSchema struct {
	Tables     map[Entity]string `json:"tables" yaml:"tables"`
	Columns    ColumnMapping     `json:"columns" yaml:"columns"`
	IDStrategy IDStrategy        `json:"idStrategy" yaml:"idStrategy"`
}

// ColumnMapping names the post columns (or document fields) the engine reads.
type ColumnMapping struct {
	PostTitle  string `json:"postTitle" yaml:"postTitle"`
	Categories string `json:"categories" yaml:"categories"`
	Tags       string `json:"tags" yaml:"tags"`
	ImageURL   string `json:"imageUrl" yaml:"imageUrl"`
}

type IDStrategy struct {
	Type string `json:"type" yaml:"type"`
}

// DefaultMapping returns the snake_case layout the stores assume when no
// mapping file is given.
func DefaultMapping() *MappingSchema {
	return &MappingSchema{
		Tables: map[Entity]string{
			EntityPost:         "posts",
			EntityCategory:     "categories",
			EntityTag:          "tags",
			EntityPostCategory: "post_categories",
			EntityPostTag:      "post_tags",
			EntityPostImage:    "post_images",
		},
		Columns: ColumnMapping{
			PostTitle:  "title",
			Categories: "categories",
			Tags:       "tags",
			ImageURL:   "image_url",
		},
		IDStrategy: IDStrategy{Type: IDStrategyUUID},
	}
}

// Table returns the table or collection name of an entity.
func (m *MappingSchema) Table(e Entity) string {
	return m.Tables[e]
}

// Column returns the post column holding a legacy field.
func (m *MappingSchema) Column(f LegacyField) string {
	switch f {
	case FieldCategories:
		return m.Columns.Categories
	case FieldTags:
		return m.Columns.Tags
	case FieldImage:
		return m.Columns.ImageURL
	}
	return ""
}

// WithDefaults fills every unset name from DefaultMapping.
func (m *MappingSchema) WithDefaults() *MappingSchema {
	def := DefaultMapping()
	out := &MappingSchema{
		Tables:     make(map[Entity]string, len(def.Tables)),
		Columns:    m.Columns,
		IDStrategy: m.IDStrategy,
	}
	for e, name := range def.Tables {
		out.Tables[e] = name
		if custom := m.Tables[e]; custom != "" {
			out.Tables[e] = custom
		}
	}
	if out.Columns.PostTitle == "" {
		out.Columns.PostTitle = def.Columns.PostTitle
	}
	if out.Columns.Categories == "" {
		out.Columns.Categories = def.Columns.Categories
	}
	if out.Columns.Tags == "" {
		out.Columns.Tags = def.Columns.Tags
	}
	if out.Columns.ImageURL == "" {
		out.Columns.ImageURL = def.Columns.ImageURL
	}
	if out.IDStrategy.Type == "" {
		out.IDStrategy.Type = def.IDStrategy.Type
	}
	return out
}

// Validate rejects names that cannot be spliced into a query as identifiers.
func (m *MappingSchema) Validate() error {
	for _, e := range Entities {
		name := m.Tables[e]
		if !identPattern.MatchString(name) {
			return errors.Errorf("invalid table name %q for %s", name, e)
		}
	}
	for _, col := range []string{m.Columns.PostTitle, m.Columns.Categories, m.Columns.Tags, m.Columns.ImageURL} {
		if !identPattern.MatchString(col) {
			return errors.Errorf("invalid column name %q", col)
		}
	}
	switch m.IDStrategy.Type {
	case IDStrategyUUID, IDStrategyAuto:
	default:
		return errors.Errorf("unknown id strategy %q", m.IDStrategy.Type)
	}
	return nil
}
