package gtfstime

import "time"

// Weekdays is a 7-bit service day mask: bit 0 is Monday through bit 6 Sunday,
// the same order as the day columns of calendar.txt.
type Weekdays int

var dayNames = [7]string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// FromFlags folds the Monday..Sunday flags into a mask, least-significant bit first.
func FromFlags(flags [7]bool) Weekdays {
	var w Weekdays
	for i, on := range flags {
		if on {
			w |= 1 << i
		}
	}
	return w
}

// WeekdayBit returns the mask bit for d.
func WeekdayBit(d time.Weekday) Weekdays {
	// time.Weekday counts from Sunday = 0.
	return 1 << ((int(d) + 6) % 7)
}

// Has reports whether service runs on d.
func (w Weekdays) Has(d time.Weekday) bool {
	return w&WeekdayBit(d) != 0
}

// Names lists the short names of the days in the mask, Monday first.
func (w Weekdays) Names() []string {
	names := []string{}
	for i, n := range dayNames {
		if w&(1<<i) != 0 {
			names = append(names, n)
		}
	}
	return names
}
