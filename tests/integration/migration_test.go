package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/BartekS5/postmig/internal/config"
	"github.com/BartekS5/postmig/internal/etl"
	"github.com/BartekS5/postmig/internal/report"
	"github.com/BartekS5/postmig/internal/store"
	"github.com/BartekS5/postmig/pkg/database"
	"github.com/BartekS5/postmig/pkg/logger"
	"github.com/BartekS5/postmig/pkg/models"
)

// suffixedMapping gives every table a per-test suffix so runs against a
// shared server do not collide.
func suffixedMapping() *models.MappingSchema {
	suffix := uuid.NewString()[:8]
	m := models.DefaultMapping()
	for e, name := range m.Tables {
		m.Tables[e] = name + "_" + suffix
	}
	return m
}

func createSQLSchema(t *testing.T, db *sql.DB, m *models.MappingSchema) {
	ddl := []string{
		fmt.Sprintf(`CREATE TABLE %s (id VARCHAR(64) PRIMARY KEY, title VARCHAR(255) NOT NULL,
			categories VARCHAR(1000) NULL, tags VARCHAR(1000) NULL, image_url VARCHAR(1000) NULL)`, m.Table(models.EntityPost)),
		fmt.Sprintf(`CREATE TABLE %s (id VARCHAR(64) PRIMARY KEY, name VARCHAR(255) NOT NULL UNIQUE, slug VARCHAR(255) NOT NULL)`, m.Table(models.EntityCategory)),
		fmt.Sprintf(`CREATE TABLE %s (id VARCHAR(64) PRIMARY KEY, name VARCHAR(255) NOT NULL UNIQUE, slug VARCHAR(255) NOT NULL)`, m.Table(models.EntityTag)),
		fmt.Sprintf(`CREATE TABLE %s (id VARCHAR(64) PRIMARY KEY, post_id VARCHAR(64) NOT NULL, category_id VARCHAR(64) NOT NULL,
			UNIQUE (post_id, category_id))`, m.Table(models.EntityPostCategory)),
		fmt.Sprintf(`CREATE TABLE %s (id VARCHAR(64) PRIMARY KEY, post_id VARCHAR(64) NOT NULL, tag_id VARCHAR(64) NOT NULL,
			UNIQUE (post_id, tag_id))`, m.Table(models.EntityPostTag)),
		fmt.Sprintf(`CREATE TABLE %s (id VARCHAR(64) PRIMARY KEY, post_id VARCHAR(64) NOT NULL, url VARCHAR(1000) NOT NULL,
			caption VARCHAR(1000) NULL, sort_order INT NOT NULL, UNIQUE (post_id, url))`, m.Table(models.EntityPostImage)),
	}
	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("Failed to create schema: %v", err)
		}
	}
	t.Cleanup(func() {
		for _, e := range models.Entities {
			db.Exec("DROP TABLE " + m.Table(e))
		}
	})
}

func runTwice(t *testing.T, st store.Store) (*report.Report, *report.Report) {
	opts := config.DefaultOptions()
	opts.ReportPath = filepath.Join(t.TempDir(), "report.json")
	opts.CleanLegacyFields = true

	var reports []*report.Report
	for i := 0; i < 2; i++ {
		p := etl.NewPipeline(st, opts, logger.Discard(), report.FileSink{})
		rep, err := p.Run(context.Background())
		if err != nil {
			t.Fatalf("Pipeline run %d failed: %v", i+1, err)
		}
		reports = append(reports, rep)
	}
	return reports[0], reports[1]
}

func checkReports(t *testing.T, first, second *report.Report) {
	if first.Counters.CategoriesCreated != 2 {
		t.Errorf("Expected 2 categories created, got %d", first.Counters.CategoriesCreated)
	}
	if first.Counters.ImagesCreated != 1 {
		t.Errorf("Expected 1 image created, got %d", first.Counters.ImagesCreated)
	}
	if first.Counters.LegacyCategoriesCleared != 1 {
		t.Errorf("Expected legacy categories cleared on 1 post, got %d", first.Counters.LegacyCategoriesCleared)
	}
	if len(first.Errors) != 0 {
		t.Errorf("Unexpected errors: %+v", first.Errors)
	}
	if n := second.Counters.Created(); n != 0 {
		t.Errorf("Second run created %d rows, want 0", n)
	}
}

func TestSQLMigration(t *testing.T) {
	if os.Getenv("SQL_CONNECTION_STRING") == "" {
		t.Skip("SQL_CONNECTION_STRING not set")
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if !cfg.IsSQL() {
		t.Skip("STORE_DRIVER is not a SQL driver")
	}

	db, err := database.ConnectSQL(cfg.Driver, cfg.SQLConnString)
	if err != nil {
		t.Fatalf("Failed to connect to SQL: %v", err)
	}
	defer db.Close()

	mapping := suffixedMapping()
	createSQLSchema(t, db, mapping)

	st, err := store.NewSQLStore(db, cfg.Driver, mapping)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	values := "?, ?, ?, ?, ?"
	switch cfg.Driver {
	case config.DriverSQLServer:
		values = "@p1, @p2, @p3, @p4, @p5"
	case config.DriverPostgres:
		values = "$1, $2, $3, $4, $5"
	}
	insert := fmt.Sprintf("INSERT INTO %s (id, title, categories, tags, image_url) VALUES (%s)",
		mapping.Table(models.EntityPost), values)
	if _, err := db.Exec(insert, "it-1", "Integration", "News, Go", "go", " /img/it.png "); err != nil {
		t.Fatalf("Failed to insert test post: %v", err)
	}

	first, second := runTwice(t, st)
	checkReports(t, first, second)

	post, err := st.GetPost(context.Background(), "it-1")
	if err != nil {
		t.Fatalf("Failed to load migrated post: %v", err)
	}
	if len(post.Images) != 1 || post.Images[0].URL != "/img/it.png" {
		t.Errorf("Expected one image /img/it.png, got %+v", post.Images)
	}
	if post.CategoriesText != nil {
		t.Errorf("Expected legacy categories to be cleared, got %q", *post.CategoriesText)
	}
}

func TestMongoMigration(t *testing.T) {
	connString := os.Getenv("MONGO_CONNECTION_STRING")
	if connString == "" {
		t.Skip("MONGO_CONNECTION_STRING not set")
	}

	client, err := database.ConnectMongo(connString)
	if err != nil {
		t.Fatalf("Failed to connect to Mongo: %v", err)
	}
	defer client.Disconnect(context.Background())

	dbName := "postmig_it_" + uuid.NewString()[:8]
	defer client.Database(dbName).Drop(context.Background())

	insertMongoPost(t, client, dbName)

	st := store.NewMongoStore(client, dbName, models.DefaultMapping())
	first, second := runTwice(t, st)
	checkReports(t, first, second)

	found, err := etl.Verify(context.Background(), st)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("Expected no inconsistencies, got %d", len(found))
	}
}

func insertMongoPost(t *testing.T, client *mongo.Client, dbName string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Database(dbName).Collection("posts").InsertOne(ctx, bson.M{
		"_id":        "it-1",
		"title":      "Integration",
		"categories": "News, Go",
		"tags":       "go",
		"image_url":  " /img/it.png ",
	})
	if err != nil {
		t.Fatalf("Failed to insert test post: %v", err)
	}
}
