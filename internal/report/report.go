// Package report accumulates what a migration run did and writes it out as
// a JSON artifact.
package report

import (
	"encoding/json"
	"time"

	"github.com/BartekS5/postmig/pkg/models"
)

// Phase names the pipeline stage an entry was recorded in.
type Phase string

const (
	PhaseCategories Phase = "categories"
	PhaseTags       Phase = "tags"
	PhaseImages     Phase = "images"
	PhaseRepair     Phase = "repair"
	PhaseCleanup    Phase = "cleanup"
	PhasePipeline   Phase = "pipeline"
)

// TaxonomyPhase returns the phase a taxonomy is migrated in.
func TaxonomyPhase(t models.Taxonomy) Phase {
	if t == models.Tag {
		return PhaseTags
	}
	return PhaseCategories
}

// Entry is one warning or error, with enough context to find the row again.
type Entry struct {
	Phase   Phase     `json:"phase"`
	Message string    `json:"message"`
	PostID  string    `json:"postId,omitempty"`
	Entity  string    `json:"entity,omitempty"`
	URL     string    `json:"url,omitempty"`
	Time    time.Time `json:"timestamp"`
}

// Counters only ever grow during a run.
type Counters struct {
	CategoriesTotal          int   `json:"categoriesTotal"`
	CategoriesCreated        int   `json:"categoriesCreated"`
	TagsTotal                int   `json:"tagsTotal"`
	TagsCreated              int   `json:"tagsCreated"`
	CategoryRelationsCreated int   `json:"categoryRelationsCreated"`
	TagRelationsCreated      int   `json:"tagRelationsCreated"`
	PostsProcessed           int   `json:"postsProcessed"`
	ImagesCreated            int   `json:"imagesCreated"`
	ImagesSkipped            int   `json:"imagesSkipped"`
	InconsistentPosts        int   `json:"inconsistentPosts"`
	RepairedPosts            int   `json:"repairedPosts"`
	LegacyCategoriesCleared  int64 `json:"legacyCategoriesCleared"`
	LegacyTagsCleared        int64 `json:"legacyTagsCleared"`
	LegacyImagesCleared      int64 `json:"legacyImagesCleared"`
	ImagesTotal              int64 `json:"imagesTotal"`
}

// AddTerms records the size of a taxonomy's name set.
func (c *Counters) AddTerms(t models.Taxonomy, n int) {
	if t == models.Tag {
		c.TagsTotal += n
		return
	}
	c.CategoriesTotal += n
}

// TermCreated counts one new category or tag.
func (c *Counters) TermCreated(t models.Taxonomy) {
	if t == models.Tag {
		c.TagsCreated++
		return
	}
	c.CategoriesCreated++
}

// RelationCreated counts one new join row.
func (c *Counters) RelationCreated(t models.Taxonomy) {
	if t == models.Tag {
		c.TagRelationsCreated++
		return
	}
	c.CategoryRelationsCreated++
}

// Cleared records how many posts had a legacy field nulled.
func (c *Counters) Cleared(f models.LegacyField, n int64) {
	switch f {
	case models.FieldCategories:
		c.LegacyCategoriesCleared += n
	case models.FieldTags:
		c.LegacyTagsCleared += n
	case models.FieldImage:
		c.LegacyImagesCleared += n
	}
}

// Created sums every creation counter. It is zero on a run that found
// nothing left to migrate.
func (c *Counters) Created() int {
	return c.CategoriesCreated + c.TagsCreated + c.CategoryRelationsCreated +
		c.TagRelationsCreated + c.ImagesCreated
}

// Inconsistency is a post whose legacy and normalized data disagree.
type Inconsistency struct {
	PostID string   `json:"postId"`
	Title  string   `json:"title,omitempty"`
	Issues []string `json:"issues"`
}

// Report is threaded through every phase of one run. It is not safe for
// concurrent use.
type Report struct {
	StartedAt       time.Time       `json:"startedAt"`
	FinishedAt      *time.Time      `json:"finishedAt,omitempty"`
	State           string          `json:"state"`
	Config          interface{}     `json:"config"`
	Counters        Counters        `json:"counters"`
	Inconsistencies []Inconsistency `json:"inconsistencies"`
	Warnings        []Entry         `json:"warnings"`
	Errors          []Entry         `json:"errors"`

	now func() time.Time
}

// New starts a report. cfg is embedded verbatim in the artifact.
func New(cfg interface{}) *Report {
	return NewWithClock(cfg, time.Now)
}

// NewWithClock is New with an injectable clock.
func NewWithClock(cfg interface{}, now func() time.Time) *Report {
	return &Report{
		StartedAt:       now().UTC(),
		Config:          cfg,
		Inconsistencies: []Inconsistency{},
		Warnings:        []Entry{},
		Errors:          []Entry{},
		now:             now,
	}
}

// Warn appends a warning.
func (r *Report) Warn(e Entry) {
	e.Time = r.now().UTC()
	r.Warnings = append(r.Warnings, e)
}

// Fail appends an error.
func (r *Report) Fail(e Entry) {
	e.Time = r.now().UTC()
	r.Errors = append(r.Errors, e)
}

// Finish stamps the end time and the final pipeline state.
func (r *Report) Finish(state string) {
	t := r.now().UTC()
	r.FinishedAt = &t
	r.State = state
}

// Duration is the wall time of a finished run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Marshal encodes the report as indented JSON.
func (r *Report) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
