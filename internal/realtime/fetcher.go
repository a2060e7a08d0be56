package realtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// Fetcher polls a GTFS-realtime alerts feed and replaces the store's alerts.
type Fetcher struct {
	url      string
	interval time.Duration
	store    *Store
	client   *http.Client
	logger   *slog.Logger
}

func NewFetcher(url string, interval time.Duration, store *Store, logger *slog.Logger) *Fetcher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Fetcher{
		url:      url,
		interval: interval,
		store:    store,
		client:   &http.Client{Timeout: 15 * time.Second},
		logger:   logger,
	}
}

// Start polls the feed until ctx is cancelled. Failed polls are logged and retried
// on the next tick.
func (f *Fetcher) Start(ctx context.Context) {
	if err := f.Fetch(ctx); err != nil {
		f.logger.Warn("fetch alerts failed", "error", err)
	}

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := f.Fetch(ctx); err != nil {
				f.logger.Warn("fetch alerts failed", "error", err)
			}
		case <-ctx.Done():
			f.logger.Info("alerts fetcher stopped")
			return
		}
	}
}

// Fetch downloads the feed once and stores its alerts.
func (f *Fetcher) Fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return fmt.Errorf("create alerts request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("alerts feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read alerts body: %w", err)
	}

	alerts, err := Decode(body)
	if err != nil {
		return err
	}
	f.store.SetAlerts(alerts)
	f.logger.Info("alerts updated", "count", len(alerts))
	return nil
}

// Decode parses a GTFS-realtime FeedMessage and returns its alerts.
func Decode(body []byte) ([]Alert, error) {
	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("parse alerts protobuf: %w", err)
	}

	var alerts []Alert
	for _, entity := range feed.GetEntity() {
		a := entity.GetAlert()
		if a == nil {
			continue
		}

		alert := Alert{
			ID:         entity.GetId(),
			HeaderText: translation(a.GetHeaderText()),
			DescText:   translation(a.GetDescriptionText()),
			Effect:     a.GetEffect().String(),
			Cause:      a.GetCause().String(),
		}

		// Collect affected routes and stops (deduplicated)
		routeSet := make(map[string]bool)
		stopSet := make(map[string]bool)
		for _, ie := range a.GetInformedEntity() {
			if rid := ie.GetRouteId(); rid != "" && !routeSet[rid] {
				alert.RouteIDs = append(alert.RouteIDs, rid)
				routeSet[rid] = true
			}
			if sid := ie.GetStopId(); sid != "" && !stopSet[sid] {
				alert.StopIDs = append(alert.StopIDs, sid)
				stopSet[sid] = true
			}
		}

		alerts = append(alerts, alert)
	}
	return alerts, nil
}

func translation(ts *gtfs.TranslatedString) string {
	for _, t := range ts.GetTranslation() {
		if text := t.GetText(); text != "" {
			return text
		}
	}
	return ""
}
