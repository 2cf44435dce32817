package cli

import (
	"github.com/spf13/cobra"

	"github.com/BartekS5/postmig/internal/config"
)

type MigrateOptions struct {
	*GlobalOptions
	OptionsFile string

	// flags holds the values given on the command line. Only flags the
	// user actually set override the options file.
	flags config.Options
}

func NewMigrateCmd(global *GlobalOptions) *cobra.Command {
	return newMigrateCmd(&MigrateOptions{GlobalOptions: global})
}

func newMigrateCmd(opts *MigrateOptions) *cobra.Command {
	defaults := config.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run the full migration: categories, tags, images, repair and optional cleanup",
		RunE: func(c *cobra.Command, args []string) error {
			runOpts, err := opts.resolve(c)
			if err != nil {
				return err
			}
			return runMigration(c.Context(), opts.GlobalOptions, runOpts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.OptionsFile, "options", "o", "", "Path to a YAML or JSON options file")
	f.BoolVar(&opts.flags.DryRun, "dry-run", defaults.DryRun, "Simulate the run without writing anything")
	f.BoolVar(&opts.flags.GenerateReport, "generate-report", defaults.GenerateReport, "Write the run report at the end of the run")
	f.StringVar(&opts.flags.ReportPath, "report-path", defaults.ReportPath, "Report destination, a file path or s3://bucket/key")
	f.BoolVar(&opts.flags.CleanLegacyFields, "clean-legacy-fields", defaults.CleanLegacyFields, "Null the legacy columns once normalized rows exist (irreversible)")
	f.StringVarP(&opts.flags.LogLevel, "log-level", "l", defaults.LogLevel, "Log verbosity: minimal, normal or verbose")
	f.BoolVar(&opts.flags.CountTagPosts, "count-tag-posts", defaults.CountTagPosts, "Count processed posts in the tag phase too")
	f.BoolVar(&opts.flags.FoldCase, "fold-case", defaults.FoldCase, "Match existing categories and tags case-insensitively")
	f.StringVar(&opts.flags.MetricsFile, "metrics-file", defaults.MetricsFile, "Write run counters in Prometheus text format to this file")

	return cmd
}

// resolve layers explicitly set flags over the options file over the
// defaults.
func (o *MigrateOptions) resolve(cmd *cobra.Command) (config.Options, error) {
	opts := config.DefaultOptions()
	if o.OptionsFile != "" {
		var err error
		if opts, err = config.LoadOptions(o.OptionsFile); err != nil {
			return opts, err
		}
	}

	f := cmd.Flags()
	if f.Changed("dry-run") {
		opts.DryRun = o.flags.DryRun
	}
	if f.Changed("generate-report") {
		opts.GenerateReport = o.flags.GenerateReport
	}
	if f.Changed("report-path") {
		opts.ReportPath = o.flags.ReportPath
	}
	if f.Changed("clean-legacy-fields") {
		opts.CleanLegacyFields = o.flags.CleanLegacyFields
	}
	if f.Changed("log-level") {
		opts.LogLevel = o.flags.LogLevel
	}
	if f.Changed("count-tag-posts") {
		opts.CountTagPosts = o.flags.CountTagPosts
	}
	if f.Changed("fold-case") {
		opts.FoldCase = o.flags.FoldCase
	}
	if f.Changed("metrics-file") {
		opts.MetricsFile = o.flags.MetricsFile
	}

	return opts, opts.Validate()
}
