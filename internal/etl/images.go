package etl

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/BartekS5/postmig/internal/report"
	"github.com/BartekS5/postmig/internal/store"
	"github.com/BartekS5/postmig/pkg/logger"
	"github.com/BartekS5/postmig/pkg/models"
)

// FeaturedCaption is the caption given to a migrated featured image.
func FeaturedCaption(title string) string {
	return `Featured image for "` + title + `"`
}

// plausibleURL accepts absolute http(s) urls and site-relative paths.
func plausibleURL(url string) bool {
	return strings.HasPrefix(url, "http") || strings.HasPrefix(url, "/")
}

func (p *Pipeline) migrateImages(ctx context.Context) error {
	p.Log.Info(logger.Normal, "starting images phase", logger.Fields{"phase": report.PhaseImages})

	posts, err := p.Store.ListPosts(ctx, models.PostQuery{
		Has:     models.FieldImage,
		Include: models.Include{Images: true},
	})
	if err != nil {
		return errors.Wrap(err, "load posts with legacy image url")
	}
	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.migrateImage(ctx, report.PhaseImages, post)
	}

	if !p.Options.DryRun {
		n, err := p.Store.Count(ctx, models.EntityPostImage)
		if err != nil {
			p.Log.Warning("could not count images", logger.Fields{"error": err.Error()})
		} else {
			p.Report.Counters.ImagesTotal = n
		}
	}

	c := p.Report.Counters
	p.Log.Success(logger.Minimal, "images phase finished", logger.Fields{
		"phase":   report.PhaseImages,
		"created": c.ImagesCreated,
		"skipped": c.ImagesSkipped,
		"total":   c.ImagesTotal,
	})
	return nil
}

// migrateImage turns the legacy image url of a post into its featured
// image. Posts that already carry an image with that url are skipped.
func (p *Pipeline) migrateImage(ctx context.Context, phase report.Phase, post *models.Post) {
	if post.ImageURL == nil {
		return
	}
	url := strings.TrimSpace(*post.ImageURL)
	fields := logger.Fields{"phase": phase, "postId": post.ID, "url": url}

	if url == "" {
		p.Report.Counters.ImagesSkipped++
		p.Log.Info(logger.Verbose, "empty image url", fields)
		return
	}
	if post.HasImageURL(url) || post.HasImageURL(*post.ImageURL) {
		p.Report.Counters.ImagesSkipped++
		p.Log.Info(logger.Verbose, "image already migrated", fields)
		return
	}
	if !plausibleURL(url) {
		p.warn(report.Entry{
			Phase:   phase,
			PostID:  post.ID,
			Entity:  string(models.EntityPostImage),
			URL:     url,
			Message: "suspicious image url",
		})
	}

	img, err := p.Store.CreateImage(ctx, models.PostImage{
		PostID:  post.ID,
		URL:     url,
		Caption: FeaturedCaption(post.Title),
		Order:   0,
	})
	switch {
	case store.IsDuplicate(err):
		post.Images = append(post.Images, models.PostImage{PostID: post.ID, URL: url})
		p.Report.Counters.ImagesSkipped++
		p.Log.Info(logger.Verbose, "image already exists", fields)
		return
	case err != nil:
		p.fail(report.Entry{
			Phase:   phase,
			PostID:  post.ID,
			Entity:  string(models.EntityPostImage),
			URL:     url,
			Message: "failed to create image",
		}, err)
		return
	}

	post.Images = append(post.Images, *img)
	p.Report.Counters.ImagesCreated++
	p.Log.Success(logger.Verbose, p.verb("create")+" image", fields)
}
