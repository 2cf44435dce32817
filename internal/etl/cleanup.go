package etl

import (
	"context"

	"github.com/BartekS5/postmig/internal/report"
	"github.com/BartekS5/postmig/pkg/logger"
	"github.com/BartekS5/postmig/pkg/models"
)

// cleanup nulls each legacy field on posts that already have the matching
// normalized rows. It is the only destructive phase and only runs when
// CleanLegacyFields is set.
func (p *Pipeline) cleanup(ctx context.Context) error {
	if !p.Options.CleanLegacyFields {
		return nil
	}
	p.Log.Warning("clearing legacy fields", logger.Fields{"phase": report.PhaseCleanup, "dryRun": p.Options.DryRun})

	for _, f := range models.LegacyFields {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := p.Store.ClearLegacyField(ctx, f)
		if err != nil {
			p.fail(report.Entry{
				Phase:   report.PhaseCleanup,
				Entity:  string(f),
				Message: "failed to clear legacy field",
			}, err)
			continue
		}
		p.Report.Counters.Cleared(f, n)
		p.Log.Success(logger.Normal, p.verb("clear")+" legacy field", logger.Fields{
			"phase": report.PhaseCleanup,
			"field": f,
			"posts": n,
		})
	}
	return nil
}
