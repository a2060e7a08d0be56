// Package gtfstime converts the time and calendar encodings used by transit feeds.
//
// Feed times are "H:MM:SS" strings measured from the start of the service day. The hour
// may run past 23 for trips that finish after midnight, so values are kept as plain
// seconds and never folded into a time.Time.
package gtfstime

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the YYYYMMDD layout used by calendar files and stored in the database.
const DateLayout = "20060102"

// ToSeconds converts "HH:MM:SS" (hour may exceed 23) to seconds since service-day start.
func ToSeconds(text string) (int, error) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("time %q: want H:MM:SS", text)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("time %q: bad component %q", text, p)
		}
		v[i] = n
	}
	return v[0]*3600 + v[1]*60 + v[2], nil
}

// ToText renders seconds as "HH:MM:SS" without wrapping the hour at 24.
func ToText(seconds int) string {
	if seconds < 0 {
		return "-" + ToText(-seconds)
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// ElapsedSeconds returns the seconds elapsed since midnight of t in t's location.
func ElapsedSeconds(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// ParseDate parses a YYYYMMDD feed date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: want YYYYMMDD", s)
	}
	return d, nil
}

// FormatDate formats t's calendar date as YYYYMMDD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
