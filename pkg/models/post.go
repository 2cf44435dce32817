// Package models holds the rows the migration reads and writes, and the
// enumerations that name them.
package models

import "strings"

// Entity names a stored row kind.
type Entity string

const (
	EntityPost         Entity = "post"
	EntityCategory     Entity = "category"
	EntityTag          Entity = "tag"
	EntityPostCategory Entity = "postCategory"
	EntityPostTag      Entity = "postTag"
	EntityPostImage    Entity = "postImage"
)

// Entities lists every entity kind, in mapping order.
var Entities = []Entity{
	EntityPost, EntityCategory, EntityTag,
	EntityPostCategory, EntityPostTag, EntityPostImage,
}

// LegacyField names one of the denormalized columns on a post.
type LegacyField string

const (
	FieldCategories LegacyField = "categories"
	FieldTags       LegacyField = "tags"
	FieldImage      LegacyField = "imageUrl"
)

// LegacyFields lists the legacy columns in cleanup order.
var LegacyFields = []LegacyField{FieldCategories, FieldTags, FieldImage}

// Taxonomy is the kind of a first-class term extracted from legacy text.
// Categories and tags are handled by the same code, parameterized by this.
type Taxonomy string

const (
	Category Taxonomy = "category"
	Tag      Taxonomy = "tag"
)

// Entity is the row kind holding terms of this taxonomy.
func (t Taxonomy) Entity() Entity {
	if t == Tag {
		return EntityTag
	}
	return EntityCategory
}

// RelationEntity is the join row kind linking posts to terms of this taxonomy.
func (t Taxonomy) RelationEntity() Entity {
	if t == Tag {
		return EntityPostTag
	}
	return EntityPostCategory
}

// LegacyField is the post column the taxonomy is migrated from.
func (t Taxonomy) LegacyField() LegacyField {
	if t == Tag {
		return FieldTags
	}
	return FieldCategories
}

// Plural is used in log and report messages.
func (t Taxonomy) Plural() string {
	if t == Tag {
		return "tags"
	}
	return "categories"
}

// MatchMode controls how an existing term is looked up by name.
type MatchMode int

const (
	// MatchExact compares names byte for byte as stored.
	MatchExact MatchMode = iota
	// MatchFold compares names case-insensitively after trimming.
	MatchFold
)

// Post is a blog post carrying both the legacy and the normalized
// representation of its taxonomy and featured image.
type Post struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	CategoriesText *string `json:"categories,omitempty"`
	TagsText       *string `json:"tags,omitempty"`
	ImageURL       *string `json:"imageUrl,omitempty"`

	Categories []Relation  `json:"categoryRelations,omitempty"`
	Tags       []Relation  `json:"tagRelations,omitempty"`
	Images     []PostImage `json:"images,omitempty"`
}

// Legacy returns the raw value of a legacy field.
func (p *Post) Legacy(field LegacyField) *string {
	switch field {
	case FieldCategories:
		return p.CategoriesText
	case FieldTags:
		return p.TagsText
	case FieldImage:
		return p.ImageURL
	}
	return nil
}

// HasLegacy reports whether a legacy field holds anything besides whitespace.
func (p *Post) HasLegacy(field LegacyField) bool {
	v := p.Legacy(field)
	return v != nil && strings.TrimSpace(*v) != ""
}

// Relations returns the loaded join rows for a taxonomy.
func (p *Post) Relations(t Taxonomy) []Relation {
	if t == Tag {
		return p.Tags
	}
	return p.Categories
}

// AddRelation appends a join row to the loaded relations.
func (p *Post) AddRelation(t Taxonomy, r Relation) {
	if t == Tag {
		p.Tags = append(p.Tags, r)
		return
	}
	p.Categories = append(p.Categories, r)
}

// Connected reports whether the post already links to the term, by id or
// by case-insensitive name.
func (p *Post) Connected(t Taxonomy, termID, name string) bool {
	for _, r := range p.Relations(t) {
		if r.TermID == termID || strings.EqualFold(strings.TrimSpace(r.TermName), strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

// HasImageURL reports whether an image with the url is already attached.
func (p *Post) HasImageURL(url string) bool {
	for _, img := range p.Images {
		if img.URL == url {
			return true
		}
	}
	return false
}

// Term is a category or tag row.
type Term struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Relation is a post-to-term join row. TermName is filled when relations
// are loaded together with their post.
type Relation struct {
	ID       string `json:"id"`
	PostID   string `json:"postId"`
	TermID   string `json:"termId"`
	TermName string `json:"termName,omitempty"`
}

// PostImage is one entry of a post's ordered image collection.
// Order 0 is the featured image.
type PostImage struct {
	ID      string `json:"id"`
	PostID  string `json:"postId"`
	URL     string `json:"url"`
	Caption string `json:"caption"`
	Order   int    `json:"order"`
}

// Include selects the related rows loaded with a post.
type Include struct {
	Categories bool
	Tags       bool
	Images     bool
}

// IncludeAll loads every relation.
var IncludeAll = Include{Categories: true, Tags: true, Images: true}

// PostQuery filters a post listing.
type PostQuery struct {
	// Has restricts the listing to posts whose legacy field is not null.
	Has LegacyField
	// IDs restricts the listing to the given posts.
	IDs     []string
	Include Include
}
