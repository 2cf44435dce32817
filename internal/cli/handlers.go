package cli

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/BartekS5/postmig/internal/config"
	"github.com/BartekS5/postmig/internal/etl"
	"github.com/BartekS5/postmig/internal/report"
	"github.com/BartekS5/postmig/internal/store"
	"github.com/BartekS5/postmig/pkg/database"
	"github.com/BartekS5/postmig/pkg/logger"
	"github.com/BartekS5/postmig/pkg/models"
)

// openStore connects to the configured database and returns the store
// over it, plus a function releasing the connection.
func openStore(cfg *config.Config, mapping *models.MappingSchema) (store.Store, func(), error) {
	if cfg.IsSQL() {
		db, err := database.ConnectSQL(cfg.Driver, cfg.SQLConnString)
		if err != nil {
			return nil, nil, err
		}
		st, err := store.NewSQLStore(db, cfg.Driver, mapping)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return st, func() { db.Close() }, nil
	}

	client, err := database.ConnectMongo(cfg.MongoConnString)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}
	return store.NewMongoStore(client, cfg.MongoDatabase, mapping), closeFn, nil
}

// setup loads the environment config and the mapping, starts logging and
// opens the store.
func setup(global *GlobalOptions, level logger.Level) (*config.Config, *logger.Logger, store.Store, func(), error) {
	log, err := logger.InitLogger(global.LogFile, level)
	if err != nil {
		return nil, nil, nil, nil, errors.Wrap(err, "failed to open log file")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Close()
		return nil, nil, nil, nil, err
	}

	mapping, err := config.LoadMapping(global.MappingFile)
	if err != nil {
		logger.Close()
		return nil, nil, nil, nil, err
	}

	st, closeStore, err := openStore(cfg, mapping)
	if err != nil {
		logger.Close()
		return nil, nil, nil, nil, err
	}

	cleanup := func() {
		closeStore()
		logger.Close()
	}
	return cfg, log, st, cleanup, nil
}

func runMigration(ctx context.Context, global *GlobalOptions, opts config.Options) error {
	level, err := opts.Level()
	if err != nil {
		return err
	}

	cfg, log, st, cleanup, err := setup(global, level)
	if err != nil {
		return err
	}
	defer cleanup()

	var sink report.Sink
	if opts.GenerateReport {
		if sink, err = report.NewSink(opts.ReportPath, cfg.AWSRegion); err != nil {
			return err
		}
	}

	if opts.DryRun {
		log.Warning("dry run: nothing will be written", nil)
	}

	pipeline := etl.NewPipeline(st, opts, log, sink)
	if _, err := pipeline.Run(ctx); err != nil {
		return errors.Wrap(err, "migration failed")
	}
	return nil
}

func runVerify(ctx context.Context, opts *VerifyOptions) error {
	level, err := logger.ParseLevel(opts.LogLevel)
	if err != nil {
		return err
	}

	_, log, st, cleanup, err := setup(opts.GlobalOptions, level)
	if err != nil {
		return err
	}
	defer cleanup()

	found, err := etl.Verify(ctx, st)
	if err != nil {
		return err
	}

	for _, inc := range found {
		e := inc.Entry()
		log.Warning("inconsistent post", logger.Fields{
			"postId": e.PostID,
			"title":  e.Title,
			"issues": e.Issues,
		})
	}

	if len(found) == 0 {
		log.Success(logger.Minimal, "all posts are consistent", nil)
		return nil
	}
	log.Info(logger.Minimal, "verification finished", logger.Fields{"inconsistentPosts": len(found)})

	if opts.FailOnIssues {
		return errors.Errorf("%d inconsistent posts", len(found))
	}
	return nil
}
