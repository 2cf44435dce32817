package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"minimal": Minimal, "Normal": Normal, " verbose ": Verbose} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseLevel("debug")
	assert.Error(t, err)
}

func TestLogFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Normal)

	l.Info(Verbose, "already connected", nil)
	assert.Empty(t, buf.String())

	l.Success(Normal, "created category", Fields{"entity": "Health"})
	assert.Contains(t, buf.String(), "created category")
	assert.Contains(t, buf.String(), "entity=Health")
	assert.Contains(t, buf.String(), "status=ok")
}

func TestWarningsAndErrorsAlwaysWritten(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Minimal).With(Fields{"phase": "images"})

	l.Warning("possible malformed url", Fields{"postId": "p1"})
	l.Error("create failed", nil)

	out := buf.String()
	assert.Contains(t, out, "level=warning")
	assert.Contains(t, out, "level=error")
	assert.Contains(t, out, "phase=images")
	assert.Contains(t, out, "postId=p1")
}

func TestInfofGoesToInitializedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postmig.log")
	_, err := InitLogger(path, Minimal)
	require.NoError(t, err)
	t.Cleanup(func() {
		Close()
		std = New(os.Stdout, Verbose)
	})

	Infof("Connected to %s", "sqlite3")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Connected to sqlite3")
}
