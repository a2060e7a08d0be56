package gtfs

import (
	"archive/zip"
	"context"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtract(t *testing.T) {
	files := map[string]string{"agency.txt": "agency_id\nOC\n"}
	for name, body := range testFeed {
		files["feed/"+name] = body
	}
	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, Extract(writeZip(t, files), dir))

	for name, body := range testFeed {
		got, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Equal(t, body, string(got))
	}
	_, err := os.Stat(filepath.Join(dir, "agency.txt"))
	assert.True(t, os.IsNotExist(err), "files outside the feed set are skipped")

	db := newStore(t)
	_, err = NewImporter(db, testLogger()).Import(context.Background(), dir)
	require.NoError(t, err)
}

func TestExtractReplacesPreviousFeed(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, Extract(writeZip(t, testFeed), dir))

	files := make(map[string]string, len(testFeed))
	for name, body := range testFeed {
		files[name] = body
	}
	delete(files, "calendar_dates.txt")
	require.NoError(t, Extract(writeZip(t, files), dir))

	_, err := os.Stat(filepath.Join(dir, "calendar_dates.txt"))
	assert.True(t, os.IsNotExist(err), "files from the earlier archive are gone")

	_, err = NewImporter(newStore(t), testLogger()).Import(context.Background(), dir)
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestDownloader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte("zipdata"))
	}))
	defer srv.Close()

	d := NewDownloader(srv.URL, t.TempDir(), testLogger())
	ctx := context.Background()

	changed, err := d.Changed(ctx, "", "")
	require.NoError(t, err)
	assert.True(t, changed)

	archive, err := d.Download(ctx)
	require.NoError(t, err)
	assert.Equal(t, `"v1"`, archive.ETag)
	body, err := os.ReadFile(archive.Path)
	require.NoError(t, err)
	assert.Equal(t, "zipdata", string(body))

	changed, err = d.Changed(ctx, "", archive.ETag)
	require.NoError(t, err)
	assert.False(t, changed)
}
