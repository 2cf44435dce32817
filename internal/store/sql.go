package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/BartekS5/postmig/pkg/models"
	"github.com/BartekS5/postmig/pkg/utils"
)

// inChunk bounds the number of ids bound into one IN clause; SQL Server
// refuses more than 2100 parameters per statement.
const inChunk = 500

// SQLStore reads and writes the blog schema through database/sql.
type SQLStore struct {
	DB      *sql.DB
	Mapping *models.MappingSchema
	dialect dialect
	newID   func() string
}

// NewSQLStore wraps an open connection. driver is the database/sql driver
// name the connection was opened with.
func NewSQLStore(db *sql.DB, driver string, mapping *models.MappingSchema) (*SQLStore, error) {
	d, err := newDialect(driver)
	if err != nil {
		return nil, err
	}
	if mapping == nil {
		mapping = models.DefaultMapping()
	}
	return &SQLStore{
		DB:      db,
		Mapping: mapping,
		dialect: d,
		newID:   uuid.NewString,
	}, nil
}

func (s *SQLStore) table(e models.Entity) string {
	return s.Mapping.Table(e)
}

// termColumn is the join-table column referencing the term.
func termColumn(t models.Taxonomy) string {
	if t == models.Tag {
		return "tag_id"
	}
	return "category_id"
}

func (s *SQLStore) ListPosts(ctx context.Context, q models.PostQuery) ([]*models.Post, error) {
	if q.IDs != nil && len(q.IDs) == 0 {
		return []*models.Post{}, nil
	}

	var posts []*models.Post
	if q.IDs == nil {
		batch, err := s.queryPosts(ctx, q.Has, nil)
		if err != nil {
			return nil, err
		}
		posts = batch
	} else {
		for _, ids := range chunk(q.IDs, inChunk) {
			batch, err := s.queryPosts(ctx, q.Has, ids)
			if err != nil {
				return nil, err
			}
			posts = append(posts, batch...)
		}
	}

	if err := s.include(ctx, posts, q.Include); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *SQLStore) queryPosts(ctx context.Context, has models.LegacyField, ids []string) ([]*models.Post, error) {
	cols := s.Mapping.Columns
	query := fmt.Sprintf("SELECT id, %s, %s, %s, %s FROM %s",
		cols.PostTitle, cols.Categories, cols.Tags, cols.ImageURL, s.table(models.EntityPost))

	var where []string
	var args []interface{}
	if has != "" {
		where = append(where, s.Mapping.Column(has)+" IS NOT NULL")
	}
	if len(ids) > 0 {
		where = append(where, fmt.Sprintf("id IN (%s)", s.dialect.args(1, len(ids))))
		for _, id := range ids {
			args = append(args, id)
		}
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query posts")
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		var (
			p                        models.Post
			title, cats, tags, image sql.NullString
		)
		if err := rows.Scan(&p.ID, &title, &cats, &tags, &image); err != nil {
			return nil, errors.Wrap(err, "scan post")
		}
		p.Title = title.String
		p.CategoriesText = nullable(cats)
		p.TagsText = nullable(tags)
		p.ImageURL = nullable(image)
		posts = append(posts, &p)
	}
	return posts, errors.Wrap(rows.Err(), "iterate posts")
}

// include loads the requested relations in one query per relation kind
// and id chunk, then attaches them to their posts.
func (s *SQLStore) include(ctx context.Context, posts []*models.Post, inc models.Include) error {
	if len(posts) == 0 {
		return nil
	}
	byID := make(map[string]*models.Post, len(posts))
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	for _, t := range []models.Taxonomy{models.Category, models.Tag} {
		if (t == models.Category && !inc.Categories) || (t == models.Tag && !inc.Tags) {
			continue
		}
		for _, part := range chunk(ids, inChunk) {
			if err := s.loadRelations(ctx, t, part, byID); err != nil {
				return err
			}
		}
	}

	if inc.Images {
		for _, part := range chunk(ids, inChunk) {
			if err := s.loadImages(ctx, part, byID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *SQLStore) loadRelations(ctx context.Context, t models.Taxonomy, ids []string, byID map[string]*models.Post) error {
	query := fmt.Sprintf(
		"SELECT j.id, j.post_id, j.%[1]s, t.name FROM %[2]s j JOIN %[3]s t ON t.id = j.%[1]s WHERE j.post_id IN (%[4]s) ORDER BY j.id",
		termColumn(t), s.table(t.RelationEntity()), s.table(t.Entity()), s.dialect.args(1, len(ids)))

	rows, err := s.DB.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return errors.Wrapf(err, "query %s relations", t)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.Relation
		if err := rows.Scan(&r.ID, &r.PostID, &r.TermID, &r.TermName); err != nil {
			return errors.Wrapf(err, "scan %s relation", t)
		}
		if p, ok := byID[r.PostID]; ok {
			p.AddRelation(t, r)
		}
	}
	return errors.Wrapf(rows.Err(), "iterate %s relations", t)
}

func (s *SQLStore) loadImages(ctx context.Context, ids []string, byID map[string]*models.Post) error {
	query := fmt.Sprintf(
		"SELECT id, post_id, url, caption, sort_order FROM %s WHERE post_id IN (%s) ORDER BY post_id, sort_order, id",
		s.table(models.EntityPostImage), s.dialect.args(1, len(ids)))

	rows, err := s.DB.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return errors.Wrap(err, "query post images")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			img     models.PostImage
			caption sql.NullString
		)
		if err := rows.Scan(&img.ID, &img.PostID, &img.URL, &caption, &img.Order); err != nil {
			return errors.Wrap(err, "scan post image")
		}
		img.Caption = caption.String
		if p, ok := byID[img.PostID]; ok {
			p.Images = append(p.Images, img)
		}
	}
	return errors.Wrap(rows.Err(), "iterate post images")
}

func (s *SQLStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	posts, err := s.ListPosts(ctx, models.PostQuery{IDs: []string{id}, Include: models.IncludeAll})
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "post %s", id)
	}
	return posts[0], nil
}

func (s *SQLStore) FindTerm(ctx context.Context, t models.Taxonomy, name string, mode models.MatchMode) (*models.Term, error) {
	cond, arg := "name = "+s.dialect.arg(1), name
	if mode == models.MatchFold {
		cond, arg = "LOWER(TRIM(name)) = "+s.dialect.arg(1), utils.FoldName(name)
	}
	query := fmt.Sprintf("SELECT id, name, slug FROM %s WHERE %s ORDER BY id", s.table(t.Entity()), cond)

	rows, err := s.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrapf(err, "find %s %q", t, name)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, errors.Wrapf(err, "find %s %q", t, name)
		}
		return nil, errors.Wrapf(ErrNotFound, "%s %q", t, name)
	}
	var (
		term models.Term
		slug sql.NullString
	)
	if err := rows.Scan(&term.ID, &term.Name, &slug); err != nil {
		return nil, errors.Wrapf(err, "scan %s", t)
	}
	term.Slug = slug.String
	return &term, nil
}

func (s *SQLStore) CreateTerm(ctx context.Context, t models.Taxonomy, name, slug string) (*models.Term, error) {
	id, err := s.insert(ctx, s.table(t.Entity()), []string{"name", "slug"}, name, slug)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s %q", t, name)
	}
	return &models.Term{ID: id, Name: name, Slug: slug}, nil
}

func (s *SQLStore) CreateRelation(ctx context.Context, t models.Taxonomy, postID, termID string) (*models.Relation, error) {
	id, err := s.insert(ctx, s.table(t.RelationEntity()), []string{"post_id", termColumn(t)}, postID, termID)
	if err != nil {
		return nil, errors.Wrapf(err, "connect post %s to %s %s", postID, t, termID)
	}
	return &models.Relation{ID: id, PostID: postID, TermID: termID}, nil
}

func (s *SQLStore) CreateImage(ctx context.Context, img models.PostImage) (*models.PostImage, error) {
	id, err := s.insert(ctx, s.table(models.EntityPostImage),
		[]string{"post_id", "url", "caption", "sort_order"},
		img.PostID, img.URL, img.Caption, img.Order)
	if err != nil {
		return nil, errors.Wrapf(err, "create image %q for post %s", img.URL, img.PostID)
	}
	img.ID = id
	return &img, nil
}

// insert adds one row and returns its id, generated here or by the
// database depending on the id strategy.
func (s *SQLStore) insert(ctx context.Context, table string, cols []string, vals ...interface{}) (string, error) {
	if s.Mapping.IDStrategy.Type == models.IDStrategyAuto {
		var id string
		err := s.DB.QueryRowContext(ctx, s.dialect.insert(table, cols, "id"), vals...).Scan(&id)
		return id, s.classify(err)
	}

	id := s.newID()
	cols = append([]string{"id"}, cols...)
	vals = append([]interface{}{id}, vals...)
	_, err := s.DB.ExecContext(ctx, s.dialect.insert(table, cols, ""), vals...)
	return id, s.classify(err)
}

func (s *SQLStore) classify(err error) error {
	if err != nil && s.dialect.isDuplicate(err) {
		return errors.Wrap(ErrDuplicateKey, err.Error())
	}
	return err
}

func (s *SQLStore) ClearLegacyField(ctx context.Context, f models.LegacyField) (int64, error) {
	posts := s.table(models.EntityPost)
	col := s.Mapping.Column(f)

	related := s.table(models.EntityPostImage)
	switch f {
	case models.FieldCategories:
		related = s.table(models.EntityPostCategory)
	case models.FieldTags:
		related = s.table(models.EntityPostTag)
	}

	query := fmt.Sprintf(
		"UPDATE %[1]s SET %[2]s = NULL WHERE %[2]s IS NOT NULL AND EXISTS (SELECT 1 FROM %[3]s r WHERE r.post_id = %[1]s.id)",
		posts, col, related)

	res, err := s.DB.ExecContext(ctx, query)
	if err != nil {
		return 0, errors.Wrapf(err, "clear legacy %s", f)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrapf(err, "clear legacy %s", f)
	}
	return n, nil
}

func (s *SQLStore) Count(ctx context.Context, e models.Entity) (int64, error) {
	var n int64
	err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.table(e)).Scan(&n)
	if err != nil {
		return 0, errors.Wrapf(err, "count %s", e)
	}
	return n, nil
}

func nullable(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func stringArgs(ids []string) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func chunk(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
