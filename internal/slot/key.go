package slot

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Mode selects the granularity of a pulse's grid.
type Mode string

const (
	// ModeTimes buckets availability per hour of day.
	ModeTimes Mode = "times"
	// ModeDates buckets availability per calendar day.
	ModeDates Mode = "dates"
)

// Valid reports whether the mode is one of the known values.
func (m Mode) Valid() bool {
	return m == ModeTimes || m == ModeDates
}

// ViewType describes the duration window a pulse spans.
type ViewType string

const (
	View1Day    ViewType = "1-day"
	View7Day    ViewType = "7-day"
	View14Day   ViewType = "14-day"
	ViewMonth   ViewType = "month"
	View3Months ViewType = "3-months"
)

// Days returns the number of consecutive calendar days covered by the view.
func (v ViewType) Days() int {
	switch v {
	case View1Day:
		return 1
	case View14Day:
		return 14
	case ViewMonth:
		return 30
	case View3Months:
		return 90
	default:
		return 7
	}
}

// Valid reports whether the view type is one of the known values.
func (v ViewType) Valid() bool {
	switch v {
	case View1Day, View7Day, View14Day, ViewMonth, View3Months:
		return true
	}
	return false
}

// Key addresses one discrete slot of a pulse grid. Two keys are equal iff
// all four components are equal; the hour is always zero in dates mode.
type Key struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
	Hour  int        `json:"hour"`
}

// KeyOf derives the slot key for an instant. The instant's location decides
// the calendar bucket, so the same absolute instant yields different keys
// for viewers in different time zones.
func KeyOf(t time.Time, mode Mode) Key {
	hour := t.Hour()
	if mode == ModeDates {
		hour = 0
	}
	return Key{Year: t.Year(), Month: t.Month(), Day: t.Day(), Hour: hour}
}

// String renders the key in its canonical "year-month-day-hour" form.
func (k Key) String() string {
	return fmt.Sprintf("%d-%d-%d-%d", k.Year, int(k.Month), k.Day, k.Hour)
}

// ParseKey parses the canonical "year-month-day-hour" form.
func ParseKey(raw string) (Key, error) {
	parts := strings.Split(raw, "-")
	if len(parts) != 4 {
		return Key{}, fmt.Errorf("slot: malformed key %q", raw)
	}
	nums := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Key{}, fmt.Errorf("slot: malformed key %q: %w", raw, err)
		}
		nums[i] = n
	}
	k := Key{Year: nums[0], Month: time.Month(nums[1]), Day: nums[2], Hour: nums[3]}
	if k.Month < time.January || k.Month > time.December || k.Day < 1 || k.Day > 31 || k.Hour < 0 || k.Hour > 23 {
		return Key{}, fmt.Errorf("slot: key %q out of range", raw)
	}
	return k, nil
}

// Interval is one absolute [Start, End] span.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Interval computes the absolute span addressed by the key in the given
// location. Times mode spans [h:00, h+1:00); dates mode spans the whole
// local day, 00:00:00.000 through 23:59:59.999.
func (k Key) Interval(mode Mode, loc *time.Location) Interval {
	if loc == nil {
		loc = time.Local
	}
	if mode == ModeDates {
		start := time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, loc)
		end := time.Date(k.Year, k.Month, k.Day, 23, 59, 59, 999_000_000, loc)
		return Interval{Start: start, End: end}
	}
	start := time.Date(k.Year, k.Month, k.Day, k.Hour, 0, 0, 0, loc)
	return Interval{Start: start, End: start.Add(time.Hour)}
}

// DateRange generates the contiguous run of calendar days a pulse covers.
func DateRange(start time.Time, view ViewType) []time.Time {
	days := view.Days()
	dates := make([]time.Time, 0, days)
	base := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	for i := 0; i < days; i++ {
		dates = append(dates, base.AddDate(0, 0, i))
	}
	return dates
}
