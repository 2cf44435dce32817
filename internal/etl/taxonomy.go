package etl

import (
	"context"

	"github.com/pkg/errors"

	"github.com/BartekS5/postmig/internal/report"
	"github.com/BartekS5/postmig/internal/store"
	"github.com/BartekS5/postmig/pkg/logger"
	"github.com/BartekS5/postmig/pkg/models"
	"github.com/BartekS5/postmig/pkg/utils"
)

// termIndex maps a folded term name to the id it resolved to in this run.
type termIndex map[string]string

func relationInclude(t models.Taxonomy) models.Include {
	return models.Include{Categories: t == models.Category, Tags: t == models.Tag}
}

// migrateTaxonomy runs one taxonomy phase: collect every distinct name from
// the legacy column, make sure a term exists for each, then link posts to
// their terms.
func (p *Pipeline) migrateTaxonomy(ctx context.Context, t models.Taxonomy) error {
	phase := report.TaxonomyPhase(t)
	p.Log.Info(logger.Normal, "starting "+t.Plural()+" phase", logger.Fields{"phase": phase})

	posts, err := p.Store.ListPosts(ctx, models.PostQuery{
		Has:     t.LegacyField(),
		Include: relationInclude(t),
	})
	if err != nil {
		return errors.Wrapf(err, "load posts with legacy %s", t.Plural())
	}

	names := utils.NewNameSet()
	for _, post := range posts {
		if text := post.Legacy(t.LegacyField()); text != nil {
			names.AddText(*text)
		}
	}
	p.Report.Counters.AddTerms(t, names.Len())
	p.Log.Info(logger.Normal, "collected unique names", logger.Fields{
		"phase": phase,
		"posts": len(posts),
		"names": names.Len(),
	})

	idx, err := p.upsertTerms(ctx, t, names.Names())
	if err != nil {
		return err
	}
	if err := p.materialize(ctx, t, posts, idx); err != nil {
		return err
	}

	c := p.Report.Counters
	created, relations := c.CategoriesCreated, c.CategoryRelationsCreated
	if t == models.Tag {
		created, relations = c.TagsCreated, c.TagRelationsCreated
	}
	p.Log.Success(logger.Minimal, t.Plural()+" phase finished", logger.Fields{
		"phase":            phase,
		"termsCreated":     created,
		"relationsCreated": relations,
	})
	return nil
}

// upsertTerms resolves every name to a term id. Only a cancelled context
// stops it early.
func (p *Pipeline) upsertTerms(ctx context.Context, t models.Taxonomy, names []string) (termIndex, error) {
	phase := report.TaxonomyPhase(t)
	idx := termIndex{}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return idx, err
		}
		id, err := p.ensureTerm(ctx, t, phase, name)
		if err != nil {
			p.fail(report.Entry{
				Phase:   phase,
				Entity:  string(t.Entity()),
				Message: "failed to upsert " + string(t) + " " + name,
			}, err)
			continue
		}
		idx[utils.FoldName(name)] = id
	}
	return idx, nil
}

// ensureTerm returns the id of the term called name, creating it when no
// such term exists yet. A duplicate key on create means someone else won
// the race or a case-insensitive unique index matched a differently cased
// name; the existing row is used.
func (p *Pipeline) ensureTerm(ctx context.Context, t models.Taxonomy, phase report.Phase, name string) (string, error) {
	fields := logger.Fields{"phase": phase, "entity": t.Entity(), "name": name}

	term, err := p.Store.FindTerm(ctx, t, name, p.matchMode())
	if err == nil {
		p.Log.Info(logger.Verbose, string(t)+" already exists", fields)
		return term.ID, nil
	}
	if !store.IsNotFound(err) {
		return "", err
	}

	term, err = p.Store.CreateTerm(ctx, t, name, utils.Slugify(name))
	if store.IsDuplicate(err) {
		term, err = p.Store.FindTerm(ctx, t, name, models.MatchExact)
		if store.IsNotFound(err) {
			term, err = p.Store.FindTerm(ctx, t, name, models.MatchFold)
		}
		if err != nil {
			return "", errors.Wrap(err, "refetch after duplicate key")
		}
		p.Log.Info(logger.Verbose, string(t)+" created concurrently, reusing it", fields)
		return term.ID, nil
	}
	if err != nil {
		return "", err
	}

	p.Report.Counters.TermCreated(t)
	fields["slug"] = term.Slug
	p.Log.Success(logger.Normal, p.verb("create")+" "+string(t), fields)
	return term.ID, nil
}

// materialize links every post to the terms named in its legacy column.
func (p *Pipeline) materialize(ctx context.Context, t models.Taxonomy, posts []*models.Post, idx termIndex) error {
	phase := report.TaxonomyPhase(t)
	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			return err
		}
		names := utils.ParseNames(post.Legacy(t.LegacyField()))
		if len(names) == 0 {
			continue
		}
		if t == models.Category || p.Options.CountTagPosts {
			p.Report.Counters.PostsProcessed++
		}
		for _, name := range names {
			id, ok := idx[utils.FoldName(name)]
			if !ok {
				// Upsert failed and was already reported.
				continue
			}
			p.connect(ctx, t, phase, post, name, id)
		}
	}
	return nil
}

// connect creates the join row between post and term unless the post is
// already linked to it. The loaded post is updated so later checks in the
// same run see the new row.
func (p *Pipeline) connect(ctx context.Context, t models.Taxonomy, phase report.Phase, post *models.Post, name, termID string) {
	fields := logger.Fields{"phase": phase, "postId": post.ID, "entity": t.RelationEntity(), "name": name}

	if post.Connected(t, termID, name) {
		p.Log.Info(logger.Verbose, "post already connected", fields)
		return
	}

	rel, err := p.Store.CreateRelation(ctx, t, post.ID, termID)
	switch {
	case store.IsDuplicate(err):
		post.AddRelation(t, models.Relation{PostID: post.ID, TermID: termID, TermName: name})
		p.Log.Info(logger.Verbose, "relation already exists", fields)
		return
	case err != nil:
		p.fail(report.Entry{
			Phase:   phase,
			PostID:  post.ID,
			Entity:  string(t.RelationEntity()),
			Message: "failed to connect " + string(t) + " " + name,
		}, err)
		return
	}

	rel.TermName = name
	post.AddRelation(t, *rel)
	p.Report.Counters.RelationCreated(t)
	p.Log.Success(logger.Verbose, p.verb("connect")+" "+string(t), fields)
}
