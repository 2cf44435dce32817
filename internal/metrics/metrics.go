// Package metrics exports the counters of a finished run in the Prometheus
// text format, for pickup by node_exporter's textfile collector.
package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/BartekS5/postmig/internal/report"
)

const namespace = "postmig"

// Registry builds a registry holding one gauge per report counter plus the
// run outcome.
func Registry(r *report.Report) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	c := r.Counters

	rows := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rows",
		Help:      "Rows counted or written by the last migration run.",
	}, []string{"counter"})
	for name, v := range map[string]float64{
		"categories_total":           float64(c.CategoriesTotal),
		"categories_created":         float64(c.CategoriesCreated),
		"tags_total":                 float64(c.TagsTotal),
		"tags_created":               float64(c.TagsCreated),
		"category_relations_created": float64(c.CategoryRelationsCreated),
		"tag_relations_created":      float64(c.TagRelationsCreated),
		"posts_processed":            float64(c.PostsProcessed),
		"images_created":             float64(c.ImagesCreated),
		"images_skipped":             float64(c.ImagesSkipped),
		"images_total":               float64(c.ImagesTotal),
		"inconsistent_posts":         float64(c.InconsistentPosts),
		"repaired_posts":             float64(c.RepairedPosts),
		"legacy_categories_cleared":  float64(c.LegacyCategoriesCleared),
		"legacy_tags_cleared":        float64(c.LegacyTagsCleared),
		"legacy_images_cleared":      float64(c.LegacyImagesCleared),
	} {
		rows.WithLabelValues(name).Set(v)
	}

	entries := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "report_entries",
		Help:      "Warnings and errors recorded by the last migration run.",
	}, []string{"severity"})
	entries.WithLabelValues("warning").Set(float64(len(r.Warnings)))
	entries.WithLabelValues("error").Set(float64(len(r.Errors)))

	success := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_success",
		Help:      "1 if the last migration run completed, 0 if it failed.",
	})
	if r.State == "Done" {
		success.Set(1)
	}

	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_duration_seconds",
		Help:      "Wall time of the last migration run.",
	})
	duration.Set(r.Duration().Seconds())

	reg.MustRegister(rows, entries, success, duration)
	return reg
}

// WriteTextfile writes the run metrics to path atomically.
func WriteTextfile(path string, r *report.Report) error {
	if err := prometheus.WriteToTextfile(path, Registry(r)); err != nil {
		return errors.Wrapf(err, "write metrics textfile %s", path)
	}
	return nil
}
