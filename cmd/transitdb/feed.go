package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"transitdb/internal/config"
	"transitdb/internal/gtfs"
	"transitdb/internal/metrics"
	"transitdb/internal/storage"
)

// Metadata keys holding the HTTP validators of the last downloaded archive.
const (
	metaLastModified = "last_modified"
	metaETag         = "etag"
)

// rebuildFromDir replaces the store with a fresh import of dir.
func rebuildFromDir(ctx context.Context, cfg *config.Config, dir, source string, logger *slog.Logger) error {
	db, err := storage.Create(cfg.DBPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = importInto(ctx, cfg, db, dir, source, nil, logger)
	return err
}

// rebuildFromZip extracts the archive into the feed directory and imports it.
func rebuildFromZip(ctx context.Context, cfg *config.Config, zipPath string, logger *slog.Logger) error {
	dir := filepath.Join(cfg.FeedDir, "extracted")
	if err := gtfs.Extract(zipPath, dir); err != nil {
		return err
	}
	return rebuildFromDir(ctx, cfg, dir, zipPath, logger)
}

// rebuildFromURL downloads the configured feed and rebuilds the store, unless the
// server reports the archive unchanged since the last download.
func rebuildFromURL(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.FeedURL == "" {
		return fmt.Errorf("no feed URL configured")
	}
	d := gtfs.NewDownloader(cfg.FeedURL, cfg.FeedDir, logger)

	lastModified, etag, err := previousValidators(ctx, cfg.DBPath, logger)
	if err != nil {
		return err
	}
	changed, err := d.Changed(ctx, lastModified, etag)
	if err != nil {
		return err
	}
	if !changed {
		logger.Info("store is current, nothing to do")
		return nil
	}

	archive, dir, err := fetchArchive(ctx, d, cfg.FeedDir)
	if err != nil {
		return err
	}
	defer os.Remove(archive.Path)

	db, err := storage.Create(cfg.DBPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := importInto(ctx, cfg, db, dir, cfg.FeedURL, nil, logger); err != nil {
		return err
	}
	return saveValidators(ctx, db, archive)
}

// openForServe opens the store for serving and reports whether it holds a complete
// import. A store without pickups is what an interrupted import leaves behind; when a
// feed URL is configured it is recreated so the startup import begins from nothing.
func openForServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage.DB, bool, error) {
	db, err := storage.Open(cfg.DBPath, logger)
	if err != nil {
		return nil, false, err
	}
	if db.HasData(ctx) {
		return db, true, nil
	}
	if cfg.FeedURL == "" {
		return db, false, nil
	}
	if err := db.Close(); err != nil {
		return nil, false, err
	}
	db, err = storage.Create(cfg.DBPath, logger)
	if err != nil {
		return nil, false, err
	}
	return db, false, nil
}

// importOnStartup fills a freshly created store from the configured feed URL.
func importOnStartup(ctx context.Context, cfg *config.Config, db *storage.DB, c *metrics.Collector, logger *slog.Logger) error {
	archive, dir, err := fetchArchive(ctx, gtfs.NewDownloader(cfg.FeedURL, cfg.FeedDir, logger), cfg.FeedDir)
	if err != nil {
		return err
	}
	defer os.Remove(archive.Path)

	if _, err := importInto(ctx, cfg, db, dir, cfg.FeedURL, c, logger); err != nil {
		return err
	}
	return saveValidators(ctx, db, archive)
}

func fetchArchive(ctx context.Context, d *gtfs.Downloader, feedDir string) (*gtfs.Archive, string, error) {
	archive, err := d.Download(ctx)
	if err != nil {
		return nil, "", err
	}
	dir := filepath.Join(feedDir, "extracted")
	if err := gtfs.Extract(archive.Path, dir); err != nil {
		os.Remove(archive.Path)
		return nil, "", err
	}
	return archive, dir, nil
}

func importInto(ctx context.Context, cfg *config.Config, db *storage.DB, dir, source string, c *metrics.Collector, logger *slog.Logger) (*gtfs.Summary, error) {
	imp := gtfs.NewImporter(db, logger,
		gtfs.WithProgress(progressFor(logger, c)),
		gtfs.WithFeedVersion(cfg.FeedVersion),
		gtfs.WithSource(source),
	)
	return imp.Import(ctx, dir)
}

// previousValidators reads the validators stored by the last download, if a store exists.
func previousValidators(ctx context.Context, path string, logger *slog.Logger) (lastModified, etag string, err error) {
	if _, err := os.Stat(path); err != nil {
		return "", "", nil
	}
	db, err := storage.Open(path, logger)
	if err != nil {
		return "", "", err
	}
	defer db.Close()

	if !db.HasData(ctx) {
		return "", "", nil
	}
	if lastModified, err = db.GetMetadata(ctx, metaLastModified); err != nil {
		return "", "", err
	}
	if etag, err = db.GetMetadata(ctx, metaETag); err != nil {
		return "", "", err
	}
	return lastModified, etag, nil
}

func saveValidators(ctx context.Context, db *storage.DB, a *gtfs.Archive) error {
	if err := db.SetMetadata(ctx, metaLastModified, a.LastModified); err != nil {
		return err
	}
	return db.SetMetadata(ctx, metaETag, a.ETag)
}
