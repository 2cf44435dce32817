package etl

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/BartekS5/postmig/internal/config"
	"github.com/BartekS5/postmig/internal/metrics"
	"github.com/BartekS5/postmig/internal/report"
	"github.com/BartekS5/postmig/internal/store"
	"github.com/BartekS5/postmig/pkg/logger"
	"github.com/BartekS5/postmig/pkg/models"
)

// State is the position of a run in the pipeline.
type State string

const (
	StateNotStarted State = "NotStarted"
	StateCategories State = "CategoriesPhase"
	StateTags       State = "TagsPhase"
	StateImages     State = "ImagesPhase"
	StateRepair     State = "RepairPhase"
	StateCleanup    State = "CleanupPhase"
	StateReport     State = "ReportPhase"
	StateDone       State = "Done"
	StateFailed     State = "Failed"
)

// Pipeline migrates legacy taxonomy text and image urls on posts into
// normalized rows. Phases run one after another and each re-reads what
// it needs from the store, so an interrupted run can simply be repeated.
type Pipeline struct {
	Store   store.Store
	Options config.Options
	Log     *logger.Logger
	Report  *report.Report
	Sink    report.Sink

	state State
}

// NewPipeline prepares a run. With Options.DryRun the store is wrapped so
// that no write reaches it. sink may be nil when no report is wanted.
func NewPipeline(st store.Store, opts config.Options, log *logger.Logger, sink report.Sink) *Pipeline {
	if log == nil {
		log = logger.Discard()
	}
	if opts.DryRun {
		st = store.NewDryRun(st)
		log = log.With(logger.Fields{"dryRun": true})
	}
	return &Pipeline{
		Store:   st,
		Options: opts,
		Log:     log,
		Report:  report.New(opts),
		Sink:    sink,
		state:   StateNotStarted,
	}
}

// State returns the current pipeline state.
func (p *Pipeline) State() State { return p.state }

type step struct {
	state State
	run   func(ctx context.Context) error
}

// Run executes every phase and emits the report. Errors on single rows are
// recorded in the report and do not stop the run; an error escaping a
// phase moves the pipeline to Failed, flushes the partial report and is
// returned.
func (p *Pipeline) Run(ctx context.Context) (rep *report.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			rep, err = p.Report, p.abort(ctx, errors.Errorf("panic in %s: %v", p.state, r))
		}
	}()

	steps := []step{
		{StateCategories, func(ctx context.Context) error { return p.migrateTaxonomy(ctx, models.Category) }},
		{StateTags, func(ctx context.Context) error { return p.migrateTaxonomy(ctx, models.Tag) }},
		{StateImages, p.migrateImages},
		{StateRepair, p.repair},
	}
	if p.Options.CleanLegacyFields {
		steps = append(steps, step{StateCleanup, p.cleanup})
	}

	p.Log.Info(logger.Minimal, "migration started", logger.Fields{
		"dryRun":            p.Options.DryRun,
		"cleanLegacyFields": p.Options.CleanLegacyFields,
	})

	for _, s := range steps {
		p.state = s.state
		if err := s.run(ctx); err != nil {
			return p.Report, p.abort(ctx, errors.Wrapf(err, "%s", s.state))
		}
	}

	p.state = StateReport
	if err := p.emit(ctx, StateDone); err != nil {
		p.state = StateFailed
		return p.Report, err
	}
	p.state = StateDone
	return p.Report, nil
}

// abort records an orchestrator-level failure and still tries to flush the
// report gathered so far.
func (p *Pipeline) abort(ctx context.Context, cause error) error {
	p.state = StateFailed
	p.Report.Fail(report.Entry{Phase: report.PhasePipeline, Message: cause.Error()})
	p.Log.Error("migration failed", logger.Fields{"error": cause.Error()})

	if err := p.emit(ctx, StateFailed); err != nil {
		p.Log.Error("could not write partial report", logger.Fields{"error": err.Error()})
	}
	return cause
}

// emit finishes the report and hands it to the configured outputs. The
// report is still written when ctx was cancelled by an interrupt.
func (p *Pipeline) emit(ctx context.Context, final State) error {
	ctx = context.WithoutCancel(ctx)
	p.Report.Finish(string(final))
	c := p.Report.Counters

	p.Log.Info(logger.Minimal, "migration summary", logger.Fields{
		"state":             final,
		"categoriesCreated": c.CategoriesCreated,
		"tagsCreated":       c.TagsCreated,
		"relationsCreated":  c.CategoryRelationsCreated + c.TagRelationsCreated,
		"imagesCreated":     c.ImagesCreated,
		"postsProcessed":    c.PostsProcessed,
		"warnings":          len(p.Report.Warnings),
		"errors":            len(p.Report.Errors),
		"duration":          p.Report.Duration().String(),
	})

	if p.Options.GenerateReport && p.Sink != nil {
		if err := report.Write(ctx, p.Sink, p.Options.ReportPath, p.Report); err != nil {
			return errors.Wrap(err, "emit report")
		}
		p.Log.Info(logger.Normal, "report written", logger.Fields{"path": p.Options.ReportPath})
	}

	if p.Options.MetricsFile != "" {
		if err := metrics.WriteTextfile(p.Options.MetricsFile, p.Report); err != nil {
			return errors.Wrap(err, "emit metrics")
		}
	}
	return nil
}

func (p *Pipeline) matchMode() models.MatchMode {
	if p.Options.FoldCase {
		return models.MatchFold
	}
	return models.MatchExact
}

// verb turns "create" into "would create" during a dry run.
func (p *Pipeline) verb(v string) string {
	if p.Options.DryRun {
		return "would " + v
	}
	return v
}

// fail records a per-item error and logs it; the caller moves on to the
// next item.
func (p *Pipeline) fail(e report.Entry, err error) {
	if err != nil {
		e.Message = fmt.Sprintf("%s: %v", e.Message, err)
	}
	p.Report.Fail(e)
	p.Log.Error(e.Message, entryFields(e))
}

func (p *Pipeline) warn(e report.Entry) {
	p.Report.Warn(e)
	p.Log.Warning(e.Message, entryFields(e))
}

func entryFields(e report.Entry) logger.Fields {
	f := logger.Fields{"phase": e.Phase}
	if e.PostID != "" {
		f["postId"] = e.PostID
	}
	if e.Entity != "" {
		f["entity"] = e.Entity
	}
	if e.URL != "" {
		f["url"] = e.URL
	}
	return f
}
