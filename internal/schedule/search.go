package schedule

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"transitdb/internal/storage"
)

// SearchKind names how free text was interpreted.
type SearchKind string

const (
	SearchIntersection SearchKind = "intersection"
	SearchNumber       SearchKind = "number"
	SearchLabel        SearchKind = "label"
	SearchName         SearchKind = "name"
)

// Search is a parsed stop search.
type Search struct {
	Kind  SearchKind
	Terms []string
}

// Key identifies the search for caching. Terms are compared without case, like the
// lookups they feed.
func (s Search) Key() string {
	return string(s.Kind) + ":" + strings.ToUpper(strings.Join(s.Terms, "/"))
}

type searchPattern struct {
	re   *regexp.Regexp
	kind SearchKind
}

// Patterns are tried in order and only need to match a prefix of the input. The
// first match decides the interpretation even if a later one would be more precise:
// "12345" is read as stop number 1234.
var searchPatterns = []searchPattern{
	{regexp.MustCompile(`^(\w+) and (\w+)`), SearchIntersection},
	{regexp.MustCompile(`^(\w+)\s*/\s*(\w+)`), SearchIntersection},
	{regexp.MustCompile(`^([0-9]{4})`), SearchNumber},
	{regexp.MustCompile(`^([a-zA-Z]{2}[0-9]{3})`), SearchLabel},
	{regexp.MustCompile(`^(\w+)`), SearchName},
}

// ParseSearch interprets free text. It reports false when no pattern matches.
func ParseSearch(text string) (Search, bool) {
	for _, p := range searchPatterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			return Search{Kind: p.kind, Terms: m[1:]}, true
		}
	}
	return Search{}, false
}

// SearchStops returns the stops matching text, ordered by id.
func (e *Engine) SearchStops(ctx context.Context, text string) ([]storage.Stop, error) {
	s, ok := ParseSearch(text)
	if !ok {
		return nil, nil
	}
	switch s.Kind {
	case SearchIntersection:
		return e.db.StopsAtIntersection(ctx, s.Terms[0], s.Terms[1])
	case SearchNumber:
		n, err := strconv.Atoi(s.Terms[0])
		if err != nil {
			return nil, nil
		}
		return e.db.StopsByNumber(ctx, n)
	case SearchLabel:
		return e.db.StopsByLabel(ctx, s.Terms[0])
	default:
		return e.db.StopsByName(ctx, s.Terms[0])
	}
}

// StopsByName returns stops whose name contains name, ignoring case.
func (e *Engine) StopsByName(ctx context.Context, name string) ([]storage.Stop, error) {
	return e.db.StopsByName(ctx, name)
}
