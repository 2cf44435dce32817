package config

import (
	"github.com/pkg/errors"

	"github.com/BartekS5/postmig/pkg/logger"
)

// DefaultReportPath is where the run report goes when no path is given.
const DefaultReportPath = "./migration-report.json"

// Options controls one migration run.
type Options struct {
	// DryRun skips every write and synthesizes placeholder ids instead.
	DryRun bool `json:"dryRun" yaml:"dryRun"`
	// GenerateReport writes the run report to ReportPath at the end of the run.
	GenerateReport bool   `json:"generateReport" yaml:"generateReport"`
	ReportPath     string `json:"reportPath" yaml:"reportPath"`
	// CleanLegacyFields nulls legacy columns once normalized rows exist.
	// It is the only irreversible phase.
	CleanLegacyFields bool   `json:"cleanLegacyFields" yaml:"cleanLegacyFields"`
	LogLevel          string `json:"logLevel" yaml:"logLevel"`

	// CountTagPosts makes the tag phase count processed posts as the
	// category phase does.
	CountTagPosts bool `json:"countTagPosts" yaml:"countTagPosts"`
	// FoldCase looks up existing terms case-insensitively instead of by
	// exact name.
	FoldCase bool `json:"foldCase" yaml:"foldCase"`
	// MetricsFile, when set, receives the run counters in Prometheus text format.
	MetricsFile string `json:"metricsFile,omitempty" yaml:"metricsFile"`
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		GenerateReport: true,
		ReportPath:     DefaultReportPath,
		LogLevel:       logger.Verbose.String(),
	}
}

// Level parses LogLevel.
func (o Options) Level() (logger.Level, error) {
	return logger.ParseLevel(o.LogLevel)
}

func (o Options) Validate() error {
	if _, err := o.Level(); err != nil {
		return err
	}
	if o.GenerateReport && o.ReportPath == "" {
		return errors.New("report path must be set when report generation is enabled")
	}
	return nil
}
