package gtfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"transitdb/internal/storage"
)

// APIVersion is the schema version recorded in the versions table.
const APIVersion = 1

// Importer loads a feed directory into the store.
type Importer struct {
	db          *storage.DB
	logger      *slog.Logger
	progress    Progress
	feedVersion int
	source      string
}

// Option configures an Importer.
type Option func(*Importer)

// WithProgress sets the observer notified as records are ingested.
func WithProgress(p Progress) Option {
	return func(imp *Importer) { imp.progress = p }
}

// WithFeedVersion sets the feed version recorded after import.
func WithFeedVersion(v int) Option {
	return func(imp *Importer) { imp.feedVersion = v }
}

// WithSource sets the feed origin recorded in the store metadata.
func WithSource(s string) Option {
	return func(imp *Importer) { imp.source = s }
}

// NewImporter creates an Importer.
func NewImporter(db *storage.DB, logger *slog.Logger, opts ...Option) *Importer {
	imp := &Importer{db: db, logger: logger, progress: NopProgress{}}
	for _, o := range opts {
		o(imp)
	}
	return imp
}

// Summary reports what an import stored.
type Summary struct {
	Counts   map[string]int
	Duration time.Duration
}

// Import ingests the feed files in dir in dependency order. Each file is loaded in its
// own transaction; a fatal error leaves earlier files committed.
func (imp *Importer) Import(ctx context.Context, dir string) (*Summary, error) {
	start := time.Now()
	res := NewResolver()
	sum := &Summary{Counts: make(map[string]int, len(feedFiles))}

	for _, ef := range feedFiles {
		n, err := imp.importFile(ctx, filepath.Join(dir, ef.name), ef, res)
		if err != nil {
			return nil, err
		}
		sum.Counts[ef.entity] = n
	}

	if err := imp.db.CreateIndexes(ctx); err != nil {
		return nil, err
	}
	if err := imp.finish(ctx); err != nil {
		return nil, err
	}

	sum.Duration = time.Since(start)
	imp.logger.Info("feed import complete",
		"duration", sum.Duration.Round(time.Millisecond),
		"stops", sum.Counts[Stops],
		"routes", sum.Counts[Routes],
		"trips", sum.Counts[Trips],
		"pickups", sum.Counts[Pickups],
	)
	return sum, nil
}

func (imp *Importer) importFile(ctx context.Context, path string, ef entityFile, res *Resolver) (int, error) {
	t, err := openTable(path, ef.name, ef.required)
	if err != nil {
		return 0, err
	}
	defer t.Close()

	total, err := countRecords(path)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", ef.name, err)
	}

	in, err := imp.db.BeginInsert(ctx)
	if err != nil {
		return 0, err
	}
	defer in.Rollback()

	start := time.Now()
	imp.progress.Begin(ef.entity, total)
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		rec, err := t.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
		if err := ef.handle(ctx, in, res, rec); err != nil {
			return 0, &RecordError{File: ef.name, Line: t.line, Err: err}
		}
		count++
		imp.progress.Step(Event{Entity: ef.entity, Index: count, Total: total})
	}

	if err := in.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", ef.name, err)
	}
	imp.progress.Finish(ef.entity, count, time.Since(start))
	return count, nil
}

// finish records the schema and feed versions plus import metadata.
func (imp *Importer) finish(ctx context.Context) error {
	in, err := imp.db.BeginInsert(ctx)
	if err != nil {
		return err
	}
	defer in.Rollback()

	if err := in.Version(ctx, storage.Version{APIVersion: APIVersion, FeedVersion: imp.feedVersion}); err != nil {
		return err
	}
	if err := in.SetMetadata(ctx, "imported_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if imp.source != "" {
		if err := in.SetMetadata(ctx, "source", imp.source); err != nil {
			return err
		}
	}
	return in.Commit()
}
