package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BartekS5/postmig/pkg/models"
	"github.com/BartekS5/postmig/pkg/utils"
)

// MongoStore keeps every entity in its own collection. Join documents
// carry postId plus categoryId or tagId.
type MongoStore struct {
	Client   *mongo.Client
	Database string
	Mapping  *models.MappingSchema
	newID    func() string
}

func NewMongoStore(client *mongo.Client, database string, mapping *models.MappingSchema) *MongoStore {
	if mapping == nil {
		mapping = models.DefaultMapping()
	}
	return &MongoStore{
		Client:   client,
		Database: database,
		Mapping:  mapping,
		newID:    uuid.NewString,
	}
}

func (m *MongoStore) coll(e models.Entity) *mongo.Collection {
	return m.Client.Database(m.Database).Collection(m.Mapping.Table(e))
}

// termField is the join-document field referencing the term.
func termField(t models.Taxonomy) string {
	if t == models.Tag {
		return "tagId"
	}
	return "categoryId"
}

type termDoc struct {
	ID   interface{} `bson:"_id"`
	Name string      `bson:"name"`
	Slug string      `bson:"slug"`
}

type imageDoc struct {
	ID      interface{} `bson:"_id"`
	PostID  string      `bson:"postId"`
	URL     string      `bson:"url"`
	Caption string      `bson:"caption"`
	Order   int         `bson:"order"`
}

func (m *MongoStore) ListPosts(ctx context.Context, q models.PostQuery) ([]*models.Post, error) {
	if q.IDs != nil && len(q.IDs) == 0 {
		return []*models.Post{}, nil
	}

	filter := bson.M{}
	if q.Has != "" {
		filter[m.Mapping.Column(q.Has)] = bson.M{"$ne": nil}
	}
	if q.IDs != nil {
		filter["_id"] = bson.M{"$in": utils.IDValues(q.IDs)}
	}

	findOpts := options.Find().SetSort(bson.M{"_id": 1})
	cursor, err := m.coll(models.EntityPost).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, errors.Wrap(err, "query posts")
	}
	defer cursor.Close(ctx)

	cols := m.Mapping.Columns
	var posts []*models.Post
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decode post")
		}
		posts = append(posts, &models.Post{
			ID:             utils.IDString(doc["_id"]),
			Title:          stringField(doc, cols.PostTitle),
			CategoriesText: optionalString(doc, cols.Categories),
			TagsText:       optionalString(doc, cols.Tags),
			ImageURL:       optionalString(doc, cols.ImageURL),
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate posts")
	}

	if err := m.include(ctx, posts, q.Include); err != nil {
		return nil, err
	}
	return posts, nil
}

func (m *MongoStore) include(ctx context.Context, posts []*models.Post, inc models.Include) error {
	if len(posts) == 0 {
		return nil
	}
	byID := make(map[string]*models.Post, len(posts))
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	if inc.Categories {
		if err := m.loadRelations(ctx, models.Category, ids, byID); err != nil {
			return err
		}
	}
	if inc.Tags {
		if err := m.loadRelations(ctx, models.Tag, ids, byID); err != nil {
			return err
		}
	}
	if inc.Images {
		findOpts := options.Find().SetSort(bson.D{{Key: "postId", Value: 1}, {Key: "order", Value: 1}})
		cursor, err := m.coll(models.EntityPostImage).Find(ctx, bson.M{"postId": bson.M{"$in": ids}}, findOpts)
		if err != nil {
			return errors.Wrap(err, "query post images")
		}
		defer cursor.Close(ctx)
		for cursor.Next(ctx) {
			var doc imageDoc
			if err := cursor.Decode(&doc); err != nil {
				return errors.Wrap(err, "decode post image")
			}
			if p, ok := byID[doc.PostID]; ok {
				p.Images = append(p.Images, models.PostImage{
					ID: utils.IDString(doc.ID), PostID: doc.PostID, URL: doc.URL, Caption: doc.Caption, Order: doc.Order,
				})
			}
		}
		if err := cursor.Err(); err != nil {
			return errors.Wrap(err, "iterate post images")
		}
	}
	return nil
}

func (m *MongoStore) loadRelations(ctx context.Context, t models.Taxonomy, ids []string, byID map[string]*models.Post) error {
	cursor, err := m.coll(t.RelationEntity()).Find(ctx, bson.M{"postId": bson.M{"$in": ids}})
	if err != nil {
		return errors.Wrapf(err, "query %s relations", t)
	}
	defer cursor.Close(ctx)

	var rels []models.Relation
	termIDs := map[string]struct{}{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return errors.Wrapf(err, "decode %s relation", t)
		}
		r := models.Relation{
			ID:     utils.IDString(doc["_id"]),
			PostID: stringField(doc, "postId"),
			TermID: stringField(doc, termField(t)),
		}
		termIDs[r.TermID] = struct{}{}
		rels = append(rels, r)
	}
	if err := cursor.Err(); err != nil {
		return errors.Wrapf(err, "iterate %s relations", t)
	}

	names, err := m.termNames(ctx, t, termIDs)
	if err != nil {
		return err
	}
	for _, r := range rels {
		r.TermName = names[r.TermID]
		if p, ok := byID[r.PostID]; ok {
			p.AddRelation(t, r)
		}
	}
	return nil
}

func (m *MongoStore) termNames(ctx context.Context, t models.Taxonomy, ids map[string]struct{}) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	list := make([]string, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}

	cursor, err := m.coll(t.Entity()).Find(ctx, bson.M{"_id": bson.M{"$in": utils.IDValues(list)}})
	if err != nil {
		return nil, errors.Wrapf(err, "query %s names", t)
	}
	defer cursor.Close(ctx)
	for cursor.Next(ctx) {
		var doc termDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, errors.Wrapf(err, "decode %s", t)
		}
		names[utils.IDString(doc.ID)] = doc.Name
	}
	return names, errors.Wrapf(cursor.Err(), "iterate %s names", t)
}

func (m *MongoStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	posts, err := m.ListPosts(ctx, models.PostQuery{IDs: []string{id}, Include: models.IncludeAll})
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "post %s", id)
	}
	return posts[0], nil
}

func (m *MongoStore) FindTerm(ctx context.Context, t models.Taxonomy, name string, mode models.MatchMode) (*models.Term, error) {
	filter := bson.M{"name": name}
	if mode == models.MatchFold {
		pattern := fmt.Sprintf(`^\s*%s\s*$`, regexp.QuoteMeta(strings.TrimSpace(name)))
		filter = bson.M{"name": primitive.Regex{Pattern: pattern, Options: "i"}}
	}

	var doc termDoc
	err := m.coll(t.Entity()).FindOne(ctx, filter, options.FindOne().SetSort(bson.M{"_id": 1})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Wrapf(ErrNotFound, "%s %q", t, name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find %s %q", t, name)
	}
	return &models.Term{ID: utils.IDString(doc.ID), Name: doc.Name, Slug: doc.Slug}, nil
}

func (m *MongoStore) CreateTerm(ctx context.Context, t models.Taxonomy, name, slug string) (*models.Term, error) {
	id, err := m.insert(ctx, t.Entity(), bson.M{"name": name, "slug": slug})
	if err != nil {
		return nil, errors.Wrapf(err, "create %s %q", t, name)
	}
	return &models.Term{ID: id, Name: name, Slug: slug}, nil
}

func (m *MongoStore) CreateRelation(ctx context.Context, t models.Taxonomy, postID, termID string) (*models.Relation, error) {
	id, err := m.insert(ctx, t.RelationEntity(), bson.M{"postId": postID, termField(t): termID})
	if err != nil {
		return nil, errors.Wrapf(err, "connect post %s to %s %s", postID, t, termID)
	}
	return &models.Relation{ID: id, PostID: postID, TermID: termID}, nil
}

func (m *MongoStore) CreateImage(ctx context.Context, img models.PostImage) (*models.PostImage, error) {
	id, err := m.insert(ctx, models.EntityPostImage, bson.M{
		"postId":  img.PostID,
		"url":     img.URL,
		"caption": img.Caption,
		"order":   img.Order,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create image %q for post %s", img.URL, img.PostID)
	}
	img.ID = id
	return &img, nil
}

// insert adds one document. With the auto id strategy the driver assigns
// an ObjectID.
func (m *MongoStore) insert(ctx context.Context, e models.Entity, doc bson.M) (string, error) {
	if m.Mapping.IDStrategy.Type != models.IDStrategyAuto {
		doc["_id"] = m.newID()
	}
	res, err := m.coll(e).InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", errors.Wrap(ErrDuplicateKey, err.Error())
		}
		return "", err
	}
	return utils.IDString(res.InsertedID), nil
}

func (m *MongoStore) ClearLegacyField(ctx context.Context, f models.LegacyField) (int64, error) {
	related := models.EntityPostImage
	switch f {
	case models.FieldCategories:
		related = models.EntityPostCategory
	case models.FieldTags:
		related = models.EntityPostTag
	}

	raw, err := m.coll(related).Distinct(ctx, "postId", bson.M{})
	if err != nil {
		return 0, errors.Wrapf(err, "list posts with %s rows", related)
	}
	if len(raw) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		ids = append(ids, utils.IDString(v))
	}

	col := m.Mapping.Column(f)
	res, err := m.coll(models.EntityPost).UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": utils.IDValues(ids)}, col: bson.M{"$ne": nil}},
		bson.M{"$set": bson.M{col: nil}},
	)
	if err != nil {
		return 0, errors.Wrapf(err, "clear legacy %s", f)
	}
	return res.ModifiedCount, nil
}

func (m *MongoStore) Count(ctx context.Context, e models.Entity) (int64, error) {
	n, err := m.coll(e).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, errors.Wrapf(err, "count %s", e)
	}
	return n, nil
}

func stringField(doc bson.M, key string) string {
	if s := utils.OptionalString(doc[key]); s != nil {
		return *s
	}
	return ""
}

func optionalString(doc bson.M, key string) *string {
	return utils.OptionalString(doc[key])
}
