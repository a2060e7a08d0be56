package gtfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

// Downloader fetches a feed archive, using conditional requests to skip unchanged feeds.
type Downloader struct {
	client *http.Client
	url    string
	dir    string
	logger *slog.Logger
}

func NewDownloader(url, dir string, logger *slog.Logger) *Downloader {
	return &Downloader{
		client: &http.Client{},
		url:    url,
		dir:    dir,
		logger: logger,
	}
}

// Archive is a downloaded feed zip and the validators the server sent with it.
type Archive struct {
	Path         string
	LastModified string
	ETag         string
}

// Changed sends a HEAD request with the validators from the previous download and
// reports whether the feed has been modified since.
func (d *Downloader) Changed(ctx context.Context, lastModified, etag string) (bool, error) {
	if lastModified == "" && etag == "" {
		return true, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, d.url, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("HEAD request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		d.logger.Info("feed not modified", "url", d.url)
		return false, nil
	}
	return true, nil
}

// Download fetches the feed zip into a temp file under the downloader's directory.
func (d *Downloader) Download(ctx context.Context) (*Archive, error) {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return nil, fmt.Errorf("create dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	d.logger.Info("downloading feed", "url", d.url)
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp(d.dir, "feed-*.zip")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer tmpFile.Close()

	written, err := io.Copy(tmpFile, resp.Body)
	if err != nil {
		os.Remove(tmpFile.Name())
		return nil, fmt.Errorf("write file: %w", err)
	}

	d.logger.Info("feed downloaded",
		"path", filepath.Base(tmpFile.Name()),
		"size_mb", fmt.Sprintf("%.1f", float64(written)/(1024*1024)),
	)
	return &Archive{
		Path:         tmpFile.Name(),
		LastModified: resp.Header.Get("Last-Modified"),
		ETag:         resp.Header.Get("ETag"),
	}, nil
}
