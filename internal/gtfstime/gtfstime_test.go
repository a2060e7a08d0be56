package gtfstime

import (
	"reflect"
	"testing"
	"time"
)

func TestToSeconds(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"00:00:00", 0},
		{"08:00:00", 28800},
		{"8:10:00", 29400},
		{"08:30:00", 30600},
		{"23:59:59", 86399},
		// Post-midnight service on the same service day
		{"24:00:00", 86400},
		{"25:30:15", 91815},
		{" 06:05:04 ", 21904},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ToSeconds(tt.input)
			if err != nil {
				t.Fatalf("ToSeconds(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ToSeconds(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestToSeconds_Malformed(t *testing.T) {
	for _, input := range []string{"", "08:00", "08:00:00:00", "ab:00:00", "08:-1:00", "08::00"} {
		if _, err := ToSeconds(input); err == nil {
			t.Errorf("ToSeconds(%q) should fail", input)
		}
	}
}

func TestToText(t *testing.T) {
	tests := []struct {
		input int
		want  string
	}{
		{0, "00:00:00"},
		{28860, "08:01:00"},
		{86399, "23:59:59"},
		{86400, "24:00:00"},
		{91815, "25:30:15"},
		{360000, "100:00:00"},
	}
	for _, tt := range tests {
		if got := ToText(tt.input); got != tt.want {
			t.Errorf("ToText(%d) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	// Every second up to hour 99, stepping by a prime to keep it quick.
	for s := 0; s < 100*3600; s += 7 {
		got, err := ToSeconds(ToText(s))
		if err != nil {
			t.Fatalf("ToSeconds(ToText(%d)) error: %v", s, err)
		}
		if got != s {
			t.Fatalf("ToSeconds(ToText(%d)) = %d", s, got)
		}
	}
}

func TestElapsedSeconds(t *testing.T) {
	now := time.Date(2023, 3, 15, 8, 1, 0, 0, time.UTC)
	if got := ElapsedSeconds(now); got != 28860 {
		t.Errorf("ElapsedSeconds(08:01) = %d, want 28860", got)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("20230315")
	if err != nil {
		t.Fatalf("ParseDate error: %v", err)
	}
	if d.Year() != 2023 || d.Month() != time.March || d.Day() != 15 {
		t.Errorf("ParseDate = %s", d)
	}
	if FormatDate(d) != "20230315" {
		t.Errorf("FormatDate = %q", FormatDate(d))
	}
	for _, bad := range []string{"2023-03-15", "20231340", "abc", ""} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) should fail", bad)
		}
	}
}

func TestWeekdays(t *testing.T) {
	// Monday and Wednesday
	w := FromFlags([7]bool{true, false, true, false, false, false, false})
	if w != 5 {
		t.Fatalf("FromFlags(Mon, Wed) = %d, want 5", w)
	}
	if !w.Has(time.Wednesday) || !w.Has(time.Monday) {
		t.Error("mask should include Monday and Wednesday")
	}
	if w.Has(time.Tuesday) || w.Has(time.Sunday) {
		t.Error("mask should not include Tuesday or Sunday")
	}
	if got := w.Names(); !reflect.DeepEqual(got, []string{"mon", "wed"}) {
		t.Errorf("Names() = %v", got)
	}
}

func TestWeekdayBit(t *testing.T) {
	tests := []struct {
		day  time.Weekday
		want Weekdays
	}{
		{time.Monday, 1},
		{time.Tuesday, 2},
		{time.Wednesday, 4},
		{time.Saturday, 32},
		{time.Sunday, 64},
	}
	for _, tt := range tests {
		if got := WeekdayBit(tt.day); got != tt.want {
			t.Errorf("WeekdayBit(%s) = %d, want %d", tt.day, got, tt.want)
		}
	}
}
