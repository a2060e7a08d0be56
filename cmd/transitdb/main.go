package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/getsentry/sentry-go"

	"transitdb/internal/config"
	"transitdb/internal/enrich"
	"transitdb/internal/gtfs"
	"transitdb/internal/handler"
	"transitdb/internal/metrics"
	"transitdb/internal/realtime"
	"transitdb/internal/report"
	"transitdb/internal/schedule"
	"transitdb/internal/server"
	"transitdb/internal/storage"
)

var version = "dev"

type options struct {
	importDir  string
	zipPath    string
	download   bool
	enrichPath string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var opts options
	flag.StringVar(&opts.importDir, "import", "", "Rebuild the store from an extracted feed directory, then exit")
	flag.StringVar(&opts.zipPath, "zip", "", "Rebuild the store from a feed zip archive, then exit")
	flag.BoolVar(&opts.download, "download", false, "Download the feed from the configured URL and rebuild the store if it changed, then exit")
	flag.StringVar(&opts.enrichPath, "enrich", "", "Assign stop numbers from a points-of-interest XML file, then exit")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path of the SQLite store")
	flag.StringVar(&cfg.FeedDir, "feed-dir", cfg.FeedDir, "Directory for downloaded and extracted feed files")
	flag.IntVar(&cfg.FeedVersion, "feed-version", cfg.FeedVersion, "Feed version recorded with the import")
	flag.StringVar(&cfg.Timezone, "tz", cfg.Timezone, "Time zone of the service day")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := newLogger(cfg)

	if err := report.Setup(cfg.SentryDSN, cfg.Env, version); err != nil {
		logger.Warn("sentry disabled", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, opts, logger)
	stop()

	if err != nil && ctx.Err() == nil {
		logger.Error("fatal", "error", err)
		report.ReportError(err, sentry.LevelFatal, map[string]string{"mode": opts.mode()})
		report.Flush()
		os.Exit(1)
	}
	report.Flush()
}

func (o options) mode() string {
	switch {
	case o.importDir != "":
		return "import"
	case o.zipPath != "":
		return "zip"
	case o.download:
		return "download"
	case o.enrichPath != "":
		return "enrich"
	}
	return "serve"
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, hopts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, hopts))
}

func run(ctx context.Context, cfg *config.Config, opts options, logger *slog.Logger) error {
	switch opts.mode() {
	case "import":
		return rebuildFromDir(ctx, cfg, opts.importDir, opts.importDir, logger)
	case "zip":
		return rebuildFromZip(ctx, cfg, opts.zipPath, logger)
	case "download":
		return rebuildFromURL(ctx, cfg, logger)
	case "enrich":
		return enrichStops(ctx, cfg, opts.enrichPath, logger)
	}
	return serve(ctx, cfg, logger)
}

func enrichStops(ctx context.Context, cfg *config.Config, path string, logger *slog.Logger) error {
	db, err := storage.Open(cfg.DBPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open markers: %w", err)
	}
	defer f.Close()

	rep, err := enrich.New(db, logger).StopNumbers(ctx, f)
	if err != nil {
		return err
	}
	stats, err := db.StopNumberStats(ctx)
	if err != nil {
		return err
	}
	logger.Info("enrichment complete",
		"updated", rep.Updated, "skipped", rep.NotFound+rep.Invalid,
		"numbered", stats.Numbered, "stops", stats.Total)
	return nil
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, ready, err := openForServe(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	collector := metrics.NewCollector()

	alerts := realtime.NewStore()
	if cfg.AlertsURL != "" {
		go realtime.NewFetcher(cfg.AlertsURL, cfg.AlertsInterval, alerts, logger).Start(ctx)
	}

	h := handler.New(schedule.New(db, loc), alerts, logger, handler.Options{
		UpcomingMinutes: cfg.UpcomingMinutes,
		CacheTTL:        cfg.CacheTTL,
		Metrics:         collector,
	})
	go h.Run(ctx, time.Minute)

	srv := server.New(cfg, h, collector, logger, ready)

	if !ready {
		if cfg.FeedURL == "" {
			logger.Warn("store is empty and no feed URL is configured")
		} else {
			go func() {
				if err := importOnStartup(ctx, cfg, db, collector, logger); err != nil {
					logger.Error("startup import failed", "error", err)
					report.ReportError(err, sentry.LevelError, map[string]string{"mode": "serve"})
					return
				}
				srv.SetReady()
			}()
		}
	}

	return srv.ListenAndServe(ctx)
}

// progressFor logs every 100000 records and, when c is set, feeds the import metrics.
func progressFor(logger *slog.Logger, c *metrics.Collector) gtfs.Progress {
	lp := &gtfs.LogProgress{Logger: logger, Every: 100000}
	if c == nil {
		return lp
	}
	return gtfs.MultiProgress{lp, c}
}
