// Package enrich assigns rider-facing stop numbers from a points-of-interest file:
//
//	<stops>
//	  <marker stopid="AB123" id="1234" name="BANK/SLATER"/>
//	</stops>
package enrich

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"transitdb/internal/storage"
)

// Report counts the outcome of an enrichment run.
type Report struct {
	Total    int
	Updated  int
	NotFound int // no stop with the marker's label
	Invalid  int // marker id is not a number
}

type marker struct {
	StopID string `xml:"stopid,attr"`
	ID     string `xml:"id,attr"`
	Name   string `xml:"name,attr"`
}

// Enricher applies marker files to a store.
type Enricher struct {
	db     *storage.DB
	logger *slog.Logger
}

func New(db *storage.DB, logger *slog.Logger) *Enricher {
	return &Enricher{db: db, logger: logger}
}

// StopNumbers reads markers from r and sets the number of each stop whose label
// matches the marker's stopid. Unknown labels and non-numeric ids are counted and
// skipped. All updates are applied in one transaction.
func (e *Enricher) StopNumbers(ctx context.Context, r io.Reader) (*Report, error) {
	markers, err := readMarkers(r)
	if err != nil {
		return nil, err
	}

	rep := &Report{Total: len(markers)}
	var updates []storage.StopNumber
	for i, m := range markers {
		number, err := strconv.Atoi(strings.TrimSpace(m.ID))
		if err != nil {
			rep.Invalid++
			e.logger.Warn("invalid stop number", "label", m.StopID, "id", m.ID, "index", i+1, "total", rep.Total)
			continue
		}
		stop, err := e.db.StopByLabel(ctx, strings.TrimSpace(m.StopID))
		if err != nil {
			return nil, err
		}
		if stop == nil {
			rep.NotFound++
			e.logger.Warn("stop not found", "label", m.StopID, "name", m.Name, "index", i+1, "total", rep.Total)
			continue
		}
		updates = append(updates, storage.StopNumber{StopID: stop.ID, Number: number})
	}

	if err := e.db.UpdateStopNumbers(ctx, updates); err != nil {
		return nil, err
	}
	rep.Updated = len(updates)
	e.logger.Info("stop numbers updated",
		"total", rep.Total, "updated", rep.Updated,
		"not_found", rep.NotFound, "invalid", rep.Invalid)
	return rep, nil
}

// readMarkers collects the marker elements directly under a stops root.
func readMarkers(r io.Reader) ([]marker, error) {
	dec := xml.NewDecoder(r)
	var markers []marker
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse markers: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 && t.Name.Local != "stops" {
				return nil, fmt.Errorf("parse markers: root element is %q, want stops", t.Name.Local)
			}
			if depth == 1 && t.Name.Local == "marker" {
				var m marker
				if err := dec.DecodeElement(&m, &t); err != nil {
					return nil, fmt.Errorf("parse marker: %w", err)
				}
				markers = append(markers, m)
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return markers, nil
}
