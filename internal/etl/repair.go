package etl

import (
	"context"

	"github.com/pkg/errors"

	"github.com/BartekS5/postmig/internal/report"
	"github.com/BartekS5/postmig/pkg/logger"
	"github.com/BartekS5/postmig/pkg/models"
	"github.com/BartekS5/postmig/pkg/utils"
)

// repair verifies every post and replays the migration steps for the ones
// that are still inconsistent. Running it again once everything is
// consistent changes nothing.
func (p *Pipeline) repair(ctx context.Context) error {
	p.Log.Info(logger.Normal, "starting repair phase", logger.Fields{"phase": report.PhaseRepair})

	found, err := Verify(ctx, p.Store)
	if err != nil {
		return errors.Wrap(err, "verify")
	}
	p.Report.Counters.InconsistentPosts += len(found)
	for _, inc := range found {
		p.Report.Inconsistencies = append(p.Report.Inconsistencies, inc.Entry())
	}

	if len(found) == 0 {
		p.Log.Success(logger.Minimal, "no inconsistencies found", logger.Fields{"phase": report.PhaseRepair})
		return nil
	}
	p.Log.Warning("found inconsistent posts", logger.Fields{"phase": report.PhaseRepair, "posts": len(found)})

	for _, inc := range found {
		if err := ctx.Err(); err != nil {
			return err
		}
		post, err := p.Store.GetPost(ctx, inc.Post.ID)
		if err != nil {
			p.fail(report.Entry{
				Phase:   report.PhaseRepair,
				PostID:  inc.Post.ID,
				Entity:  string(models.EntityPost),
				Message: "failed to reload post",
			}, err)
			continue
		}
		if p.repairPost(ctx, post, inc.Issues) {
			p.Report.Counters.RepairedPosts++
		}
	}

	p.Log.Success(logger.Minimal, "repair phase finished", logger.Fields{
		"phase":    report.PhaseRepair,
		"flagged":  len(found),
		"repaired": p.Report.Counters.RepairedPosts,
	})
	return nil
}

// repairPost replays the steps matching each issue for a single post and
// reports whether the post is consistent afterwards.
func (p *Pipeline) repairPost(ctx context.Context, post *models.Post, issues []Issue) bool {
	for _, issue := range issues {
		switch issue {
		case MissingCategoryRelations:
			p.repairTaxonomy(ctx, models.Category, post)
		case MissingTagRelations:
			p.repairTaxonomy(ctx, models.Tag, post)
		case MissingImageRelations:
			p.migrateImage(ctx, report.PhaseRepair, post)
		}
	}
	return len(CheckPost(post)) == 0
}

func (p *Pipeline) repairTaxonomy(ctx context.Context, t models.Taxonomy, post *models.Post) {
	for _, name := range utils.ParseNames(post.Legacy(t.LegacyField())) {
		id, err := p.ensureTerm(ctx, t, report.PhaseRepair, name)
		if err != nil {
			p.fail(report.Entry{
				Phase:   report.PhaseRepair,
				PostID:  post.ID,
				Entity:  string(t.Entity()),
				Message: "failed to upsert " + string(t) + " " + name,
			}, err)
			continue
		}
		p.connect(ctx, t, report.PhaseRepair, post, name, id)
	}
}
