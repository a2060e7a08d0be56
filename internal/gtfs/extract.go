package gtfs

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// Extract unpacks the feed files from a zip archive into dir. Entries are matched by
// base name so archives that nest the files in a folder still work; other entries
// are ignored. Anything already in dir is removed first, so a file missing from the
// archive is missing from dir too.
func Extract(zipPath, dir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	wanted := make(map[string]bool, len(feedFiles))
	for _, ef := range feedFiles {
		wanted[ef.name] = true
	}

	for _, f := range r.File {
		name := path.Base(f.Name)
		if f.FileInfo().IsDir() || !wanted[name] {
			continue
		}
		if err := extractFile(f, filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("extract %s: %w", name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
