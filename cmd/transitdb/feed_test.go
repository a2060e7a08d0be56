package main

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transitdb/internal/config"
	"transitdb/internal/storage"
)

var feed = map[string]string{
	"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
		"WEEK,1,1,1,1,1,0,0,20230101,20231231\n",
	"calendar_dates.txt": "service_id,date,exception_type\n",
	"stops.txt":          "stop_id,stop_code,stop_name,stop_lat,stop_lon\nAB123,1234,BANK/SLATER,45.42,-75.70\n",
	"routes.txt":         "route_id,route_short_name,route_long_name,route_type\nR95,95,Orleans,3\n",
	"trips.txt":          "route_id,service_id,trip_id,trip_headsign,block_id\nR95,WEEK,T1,Orleans,\n",
	"stop_times.txt":     "trip_id,arrival_time,departure_time,stop_id,stop_sequence\nT1,08:00:00,08:00:00,AB123,1\n",
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func testConfig(t *testing.T) *config.Config {
	cfg := config.Defaults()
	dir := t.TempDir()
	cfg.DBPath = filepath.Join(dir, "transit.db")
	cfg.FeedDir = filepath.Join(dir, "data")
	cfg.FeedVersion = 3
	return cfg
}

func zipFeed(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range feed {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func counts(t *testing.T, path string) map[string]int {
	t.Helper()
	db, err := storage.Open(path, quiet())
	require.NoError(t, err)
	defer db.Close()
	c, err := db.Counts(context.Background())
	require.NoError(t, err)
	return c
}

func TestRebuildFromDir(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	for name, body := range feed {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	ctx := context.Background()

	require.NoError(t, rebuildFromDir(ctx, cfg, dir, dir, quiet()))
	require.NoError(t, rebuildFromDir(ctx, cfg, dir, dir, quiet()))
	assert.Equal(t, 1, counts(t, cfg.DBPath)["pickups"], "a rebuild replaces the previous store")

	db, err := storage.Open(cfg.DBPath, quiet())
	require.NoError(t, err)
	defer db.Close()
	v, err := db.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, &storage.Version{APIVersion: 1, FeedVersion: 3}, v)
}

func TestRebuildFromZip(t *testing.T) {
	cfg := testConfig(t)
	zipPath := filepath.Join(t.TempDir(), "feed.zip")
	require.NoError(t, os.WriteFile(zipPath, zipFeed(t), 0o644))

	require.NoError(t, rebuildFromZip(context.Background(), cfg, zipPath, quiet()))
	assert.Equal(t, 1, counts(t, cfg.DBPath)["stops"])
}

func TestRebuildFromURLSkipsUnchangedFeed(t *testing.T) {
	const lastModified = "Wed, 01 Mar 2023 00:00:00 GMT"
	body := zipFeed(t)
	gets := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-Modified-Since") == lastModified {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Last-Modified", lastModified)
		if r.Method == http.MethodGet {
			gets++
			w.Write(body)
		}
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.FeedURL = srv.URL
	ctx := context.Background()

	require.NoError(t, rebuildFromURL(ctx, cfg, quiet()))
	assert.Equal(t, 1, gets)
	assert.Equal(t, 1, counts(t, cfg.DBPath)["trips"])

	lm, etag, err := previousValidators(ctx, cfg.DBPath, quiet())
	require.NoError(t, err)
	assert.Equal(t, lastModified, lm)
	assert.Empty(t, etag)

	require.NoError(t, rebuildFromURL(ctx, cfg, quiet()))
	assert.Equal(t, 1, gets, "an unchanged feed is not downloaded again")
}

func TestStartupImportReplacesIncompleteStore(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	// Without trips.txt the import stops after stops and routes are committed.
	dir := t.TempDir()
	for name, body := range feed {
		if name == "trips.txt" {
			continue
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	require.Error(t, rebuildFromDir(ctx, cfg, dir, dir, quiet()))
	require.Equal(t, 1, counts(t, cfg.DBPath)["stops"])

	body := zipFeed(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()
	cfg.FeedURL = srv.URL

	db, ready, err := openForServe(ctx, cfg, quiet())
	require.NoError(t, err)
	defer db.Close()
	assert.False(t, ready)
	c, err := db.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, c["stops"], "the incomplete store is recreated")

	require.NoError(t, importOnStartup(ctx, cfg, db, nil, quiet()))
	c, err = db.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, c["stops"])
	assert.Equal(t, 1, c["routes"])
	assert.Equal(t, 1, c["pickups"])
}

func TestOpenForServeKeepsCompleteStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.FeedURL = "http://feeds.example.com/gtfs.zip"
	dir := t.TempDir()
	for name, body := range feed {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	ctx := context.Background()
	require.NoError(t, rebuildFromDir(ctx, cfg, dir, dir, quiet()))

	db, ready, err := openForServe(ctx, cfg, quiet())
	require.NoError(t, err)
	defer db.Close()
	assert.True(t, ready)
	assert.True(t, db.HasData(ctx))
}

func TestRebuildFromURLNeedsURL(t *testing.T) {
	assert.Error(t, rebuildFromURL(context.Background(), testConfig(t), quiet()))
}

func TestMode(t *testing.T) {
	tests := []struct {
		opts options
		want string
	}{
		{options{}, "serve"},
		{options{importDir: "feed"}, "import"},
		{options{zipPath: "feed.zip"}, "zip"},
		{options{download: true}, "download"},
		{options{enrichPath: "stops.xml"}, "enrich"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.opts.mode(); got != tt.want {
				t.Errorf("mode() = %q, want %q", got, tt.want)
			}
		})
	}
}
