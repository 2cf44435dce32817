package etl

import (
	"context"

	"github.com/pkg/errors"

	"github.com/BartekS5/postmig/internal/report"
	"github.com/BartekS5/postmig/internal/store"
	"github.com/BartekS5/postmig/pkg/models"
	"github.com/BartekS5/postmig/pkg/utils"
)

// Issue is one way a post's legacy and normalized data can disagree.
type Issue int

const (
	MissingCategoryRelations Issue = iota
	MissingTagRelations
	MissingImageRelations
)

func (i Issue) String() string {
	switch i {
	case MissingCategoryRelations:
		return "missing category relations"
	case MissingTagRelations:
		return "missing tag relations"
	case MissingImageRelations:
		return "missing image relations"
	}
	return "unknown issue"
}

// Inconsistency is a flagged post together with what is wrong with it.
type Inconsistency struct {
	Post   *models.Post
	Issues []Issue
}

// Has reports whether the issue was found on the post.
func (i Inconsistency) Has(issue Issue) bool {
	for _, found := range i.Issues {
		if found == issue {
			return true
		}
	}
	return false
}

// Entry converts the inconsistency into its report form.
func (i Inconsistency) Entry() report.Inconsistency {
	issues := make([]string, len(i.Issues))
	for n, issue := range i.Issues {
		issues[n] = issue.String()
	}
	return report.Inconsistency{PostID: i.Post.ID, Title: i.Post.Title, Issues: issues}
}

// CheckPost lists the issues of a post loaded with all of its relations.
// Legacy taxonomy text holding only delimiters names nothing and is not
// flagged.
func CheckPost(p *models.Post) []Issue {
	var issues []Issue
	if len(utils.ParseNames(p.CategoriesText)) > 0 && len(p.Categories) == 0 {
		issues = append(issues, MissingCategoryRelations)
	}
	if len(utils.ParseNames(p.TagsText)) > 0 && len(p.Tags) == 0 {
		issues = append(issues, MissingTagRelations)
	}
	if p.HasLegacy(models.FieldImage) && len(p.Images) == 0 {
		issues = append(issues, MissingImageRelations)
	}
	return issues
}

// Verify scans every post and returns those with at least one issue. It
// only reads from r.
func Verify(ctx context.Context, r store.Reader) ([]Inconsistency, error) {
	posts, err := r.ListPosts(ctx, models.PostQuery{Include: models.IncludeAll})
	if err != nil {
		return nil, errors.Wrap(err, "load posts for verification")
	}

	var found []Inconsistency
	for _, p := range posts {
		if issues := CheckPost(p); len(issues) > 0 {
			found = append(found, Inconsistency{Post: p, Issues: issues})
		}
	}
	return found, nil
}
