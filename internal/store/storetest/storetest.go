// Package storetest creates throwaway SQLite stores for tests.
package storetest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/BartekS5/postmig/internal/store"
	"github.com/BartekS5/postmig/pkg/models"
)

// Schema is the default-mapping blog schema. The migration never creates
// tables itself; tests need them to exist.
const Schema = `
CREATE TABLE posts (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	categories TEXT,
	tags TEXT,
	image_url TEXT
);
CREATE TABLE categories (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	slug TEXT NOT NULL
);
CREATE TABLE tags (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	slug TEXT NOT NULL
);
CREATE TABLE post_categories (
	id TEXT PRIMARY KEY,
	post_id TEXT NOT NULL REFERENCES posts(id),
	category_id TEXT NOT NULL REFERENCES categories(id),
	UNIQUE (post_id, category_id)
);
CREATE TABLE post_tags (
	id TEXT PRIMARY KEY,
	post_id TEXT NOT NULL REFERENCES posts(id),
	tag_id TEXT NOT NULL REFERENCES tags(id),
	UNIQUE (post_id, tag_id)
);
CREATE TABLE post_images (
	id TEXT PRIMARY KEY,
	post_id TEXT NOT NULL REFERENCES posts(id),
	url TEXT NOT NULL,
	caption TEXT,
	sort_order INTEGER NOT NULL DEFAULT 0,
	UNIQUE (post_id, url)
);
`

// AutoIDSchema is Schema with database-assigned integer ids.
const AutoIDSchema = `
CREATE TABLE posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL DEFAULT '',
	categories TEXT,
	tags TEXT,
	image_url TEXT
);
CREATE TABLE categories (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL UNIQUE, slug TEXT NOT NULL);
CREATE TABLE tags (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL UNIQUE, slug TEXT NOT NULL);
CREATE TABLE post_categories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id INTEGER NOT NULL,
	category_id INTEGER NOT NULL,
	UNIQUE (post_id, category_id)
);
CREATE TABLE post_tags (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id INTEGER NOT NULL,
	tag_id INTEGER NOT NULL,
	UNIQUE (post_id, tag_id)
);
CREATE TABLE post_images (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id INTEGER NOT NULL,
	url TEXT NOT NULL,
	caption TEXT,
	sort_order INTEGER NOT NULL DEFAULT 0,
	UNIQUE (post_id, url)
);
`

// TempDB opens a SQLite database in t.TempDir() and applies schema.
func TempDB(t *testing.T, schema string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "blog.db")+"?_foreign_keys=on")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}
	return db
}

// New returns a SQLStore over a fresh database with the default mapping.
func New(t *testing.T) (*store.SQLStore, *sql.DB) {
	t.Helper()

	db := TempDB(t, Schema)
	s, err := store.NewSQLStore(db, "sqlite3", models.DefaultMapping())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s, db
}

// Str returns a pointer to v, for nullable legacy fields.
func Str(v string) *string { return &v }

// InsertPost stores a post row. An empty id gets a random one, which is
// returned.
func InsertPost(t *testing.T, db *sql.DB, p models.Post) string {
	t.Helper()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := db.Exec("INSERT INTO posts (id, title, categories, tags, image_url) VALUES (?, ?, ?, ?, ?)",
		p.ID, p.Title, p.CategoriesText, p.TagsText, p.ImageURL)
	if err != nil {
		t.Fatalf("Failed to insert post %s: %v", p.ID, err)
	}
	return p.ID
}

// Counts snapshots the row count of every entity.
func Counts(t *testing.T, s store.Reader) map[models.Entity]int64 {
	t.Helper()

	out := make(map[models.Entity]int64, len(models.Entities))
	for _, e := range models.Entities {
		n, err := s.Count(context.Background(), e)
		if err != nil {
			t.Fatalf("Failed to count %s: %v", e, err)
		}
		out[e] = n
	}
	return out
}
