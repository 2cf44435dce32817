// Package store provides the persistence the migration runs against: SQL
// databases through database/sql, MongoDB, and a dry-run overlay that
// records writes in memory instead of performing them.
package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/BartekS5/postmig/pkg/models"
)

var (
	// ErrDuplicateKey indicates a unique constraint violation.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")
)

// IsDuplicate reports whether err is, or wraps, a uniqueness violation.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Reader is the read side of a store.
type Reader interface {
	// ListPosts returns posts matching q, with the requested relations loaded.
	ListPosts(ctx context.Context, q models.PostQuery) ([]*models.Post, error)
	// GetPost returns one post with every relation loaded.
	GetPost(ctx context.Context, id string) (*models.Post, error)
	// FindTerm returns the first term of the taxonomy whose name matches.
	FindTerm(ctx context.Context, t models.Taxonomy, name string, mode models.MatchMode) (*models.Term, error)
	Count(ctx context.Context, e models.Entity) (int64, error)
}

// Writer is the write side of a store. Every call is its own atomic unit;
// nothing spans calls.
type Writer interface {
	CreateTerm(ctx context.Context, t models.Taxonomy, name, slug string) (*models.Term, error)
	CreateRelation(ctx context.Context, t models.Taxonomy, postID, termID string) (*models.Relation, error)
	CreateImage(ctx context.Context, img models.PostImage) (*models.PostImage, error)
	// ClearLegacyField nulls a legacy field on every post that has at least
	// one normalized row for it, and returns how many posts changed.
	ClearLegacyField(ctx context.Context, f models.LegacyField) (int64, error)
}

// Store is everything the migration needs from persistence.
type Store interface {
	Reader
	Writer
}
