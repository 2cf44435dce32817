package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/postmig/pkg/models"
)

func fixedClock() func() time.Time {
	t := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestReportJSONShape(t *testing.T) {
	r := NewWithClock(map[string]bool{"dryRun": true}, fixedClock())
	r.Counters.TermCreated(models.Category)
	r.Counters.TermCreated(models.Tag)
	r.Counters.RelationCreated(models.Tag)
	r.Counters.Cleared(models.FieldImage, 3)
	r.Warn(Entry{Phase: PhaseImages, Message: "possible malformed url", PostID: "p2", URL: "img/a.png"})
	r.Fail(Entry{Phase: PhaseCategories, Message: "boom", Entity: "Health"})
	r.Finish("Done")

	data, err := r.Marshal()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "2026-10-16T09:00:01Z", doc["startedAt"])
	assert.Equal(t, "2026-10-16T09:00:04Z", doc["finishedAt"])
	assert.Equal(t, "Done", doc["state"])
	assert.Equal(t, true, doc["config"].(map[string]interface{})["dryRun"])

	counters := doc["counters"].(map[string]interface{})
	assert.EqualValues(t, 1, counters["categoriesCreated"])
	assert.EqualValues(t, 1, counters["tagsCreated"])
	assert.EqualValues(t, 1, counters["tagRelationsCreated"])
	assert.EqualValues(t, 3, counters["legacyImagesCleared"])

	warnings := doc["warnings"].([]interface{})
	require.Len(t, warnings, 1)
	w := warnings[0].(map[string]interface{})
	assert.Equal(t, "images", w["phase"])
	assert.Equal(t, "p2", w["postId"])
	assert.NotContains(t, w, "entity")

	errs := doc["errors"].([]interface{})
	require.Len(t, errs, 1)
	assert.Equal(t, "Health", errs[0].(map[string]interface{})["entity"])
	assert.Equal(t, 3, r.Counters.Created())
	assert.Equal(t, 3*time.Second, r.Duration())
}

func TestEmptyListsEncodeAsArrays(t *testing.T) {
	data, err := New(nil).Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"warnings": []`)
	assert.Contains(t, string(data), `"errors": []`)
}

func TestFileSinkCreatesDirectories(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "reports", "run.json")
	r := New(nil)
	r.Finish("Done")

	require.NoError(t, Write(context.Background(), FileSink{}, dest, r))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state": "Done"`)
}

func TestParseS3Path(t *testing.T) {
	bucket, key, err := ParseS3Path("s3://ops-reports/migrations/run.json")
	require.NoError(t, err)
	assert.Equal(t, "ops-reports", bucket)
	assert.Equal(t, "migrations/run.json", key)

	_, _, err = ParseS3Path("s3://bucket-only")
	assert.Error(t, err)
	_, _, err = ParseS3Path("./migration-report.json")
	assert.Error(t, err)

	sink, err := NewSink("./migration-report.json", "us-west-1")
	require.NoError(t, err)
	assert.IsType(t, FileSink{}, sink)
}
