package store

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/BartekS5/postmig/pkg/models"
	"github.com/BartekS5/postmig/pkg/utils"
)

// PlaceholderPrefix marks ids synthesized by a dry run.
const PlaceholderPrefix = "dry-run-"

// IsPlaceholder reports whether id was synthesized by a dry run.
func IsPlaceholder(id string) bool {
	return strings.HasPrefix(id, PlaceholderPrefix)
}

// Placeholder returns the deterministic id a dry run assigns to a row
// identified by parts.
func Placeholder(parts ...string) string {
	key := strings.Join(parts, "/")
	return PlaceholderPrefix + uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// DryRun serves reads from the wrapped store and keeps writes in memory.
// Rows "created" during the run are merged into later reads, so every
// phase sees the state a real run would have produced while the wrapped
// store is never modified.
type DryRun struct {
	base Store

	terms     map[models.Taxonomy][]models.Term
	relations map[models.Taxonomy]map[string][]models.Relation
	images    map[string][]models.PostImage
}

func NewDryRun(base Store) *DryRun {
	return &DryRun{
		base:  base,
		terms: map[models.Taxonomy][]models.Term{},
		relations: map[models.Taxonomy]map[string][]models.Relation{
			models.Category: {},
			models.Tag:      {},
		},
		images: map[string][]models.PostImage{},
	}
}

func (d *DryRun) ListPosts(ctx context.Context, q models.PostQuery) ([]*models.Post, error) {
	posts, err := d.base.ListPosts(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		d.merge(p, q.Include)
	}
	return posts, nil
}

func (d *DryRun) GetPost(ctx context.Context, id string) (*models.Post, error) {
	p, err := d.base.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	d.merge(p, models.IncludeAll)
	return p, nil
}

func (d *DryRun) merge(p *models.Post, inc models.Include) {
	if inc.Categories {
		p.Categories = append(p.Categories, d.relations[models.Category][p.ID]...)
	}
	if inc.Tags {
		p.Tags = append(p.Tags, d.relations[models.Tag][p.ID]...)
	}
	if inc.Images {
		p.Images = append(p.Images, d.images[p.ID]...)
	}
}

func (d *DryRun) FindTerm(ctx context.Context, t models.Taxonomy, name string, mode models.MatchMode) (*models.Term, error) {
	term, err := d.base.FindTerm(ctx, t, name, mode)
	if err == nil || !IsNotFound(err) {
		return term, err
	}
	for _, simulated := range d.terms[t] {
		if simulated.Name == name || (mode == models.MatchFold && utils.FoldName(simulated.Name) == utils.FoldName(name)) {
			found := simulated
			return &found, nil
		}
	}
	return nil, err
}

func (d *DryRun) Count(ctx context.Context, e models.Entity) (int64, error) {
	return d.base.Count(ctx, e)
}

func (d *DryRun) CreateTerm(_ context.Context, t models.Taxonomy, name, slug string) (*models.Term, error) {
	for _, simulated := range d.terms[t] {
		if simulated.Name == name {
			return nil, ErrDuplicateKey
		}
	}
	term := models.Term{ID: Placeholder(string(t), name), Name: name, Slug: slug}
	d.terms[t] = append(d.terms[t], term)
	return &term, nil
}

func (d *DryRun) CreateRelation(_ context.Context, t models.Taxonomy, postID, termID string) (*models.Relation, error) {
	for _, r := range d.relations[t][postID] {
		if r.TermID == termID {
			return nil, ErrDuplicateKey
		}
	}
	rel := models.Relation{
		ID:       Placeholder(string(t.RelationEntity()), postID, termID),
		PostID:   postID,
		TermID:   termID,
		TermName: d.termName(t, termID),
	}
	d.relations[t][postID] = append(d.relations[t][postID], rel)
	return &rel, nil
}

func (d *DryRun) termName(t models.Taxonomy, id string) string {
	for _, term := range d.terms[t] {
		if term.ID == id {
			return term.Name
		}
	}
	return ""
}

func (d *DryRun) CreateImage(_ context.Context, img models.PostImage) (*models.PostImage, error) {
	for _, existing := range d.images[img.PostID] {
		if existing.URL == img.URL {
			return nil, ErrDuplicateKey
		}
	}
	img.ID = Placeholder(string(models.EntityPostImage), img.PostID, img.URL)
	d.images[img.PostID] = append(d.images[img.PostID], img)
	return &img, nil
}

// ClearLegacyField counts the posts a real cleanup would change, without
// changing them.
func (d *DryRun) ClearLegacyField(ctx context.Context, f models.LegacyField) (int64, error) {
	inc := models.Include{
		Categories: f == models.FieldCategories,
		Tags:       f == models.FieldTags,
		Images:     f == models.FieldImage,
	}
	posts, err := d.ListPosts(ctx, models.PostQuery{Has: f, Include: inc})
	if err != nil {
		return 0, err
	}

	var n int64
	for _, p := range posts {
		switch f {
		case models.FieldCategories:
			if len(p.Categories) > 0 {
				n++
			}
		case models.FieldTags:
			if len(p.Tags) > 0 {
				n++
			}
		case models.FieldImage:
			if len(p.Images) > 0 {
				n++
			}
		}
	}
	return n, nil
}
