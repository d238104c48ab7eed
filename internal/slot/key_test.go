package slot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyOfDeterministic(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	instant := time.Date(2025, time.March, 14, 14, 30, 12, 0, loc)

	first := KeyOf(instant, ModeTimes)
	second := KeyOf(instant, ModeTimes)
	assert.Equal(t, first, second)
	assert.Equal(t, Key{Year: 2025, Month: time.March, Day: 14, Hour: 14}, first)
}

func TestKeyOfDatesModePinsHour(t *testing.T) {
	instant := time.Date(2025, time.March, 14, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, Key{Year: 2025, Month: time.March, Day: 14, Hour: 0}, KeyOf(instant, ModeDates))
}

func TestIntervalRoundTrip(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	cases := []struct {
		name string
		key  Key
		mode Mode
	}{
		{"morning hour", Key{2025, time.January, 2, 9}, ModeTimes},
		{"last hour of day", Key{2025, time.June, 30, 23}, ModeTimes},
		{"whole day", Key{2025, time.December, 31, 0}, ModeDates},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			iv := tc.key.Interval(tc.mode, loc)
			assert.Equal(t, tc.key, KeyOf(iv.Start, tc.mode))
			assert.True(t, iv.End.After(iv.Start))
		})
	}
}

func TestIntervalTimesModeSpansOneHour(t *testing.T) {
	iv := Key{2025, time.May, 10, 14}.Interval(ModeTimes, time.UTC)
	assert.Equal(t, time.Hour, iv.End.Sub(iv.Start))
	assert.Equal(t, 14, iv.Start.Hour())
}

func TestIntervalDatesModeSpansFullDay(t *testing.T) {
	iv := Key{2025, time.May, 10, 0}.Interval(ModeDates, time.UTC)
	assert.Equal(t, time.Date(2025, time.May, 10, 0, 0, 0, 0, time.UTC), iv.Start)
	assert.Equal(t, time.Date(2025, time.May, 10, 23, 59, 59, 999_000_000, time.UTC), iv.End)
}

func TestParseKeyRoundTrip(t *testing.T) {
	key := Key{Year: 2025, Month: time.November, Day: 3, Hour: 19}
	parsed, err := ParseKey(key.String())
	require.NoError(t, err)
	assert.Equal(t, key, parsed)
}

func TestParseKeyRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "2025-3-14", "2025-13-1-0", "2025-1-0-0", "2025-1-1-24", "a-b-c-d"} {
		_, err := ParseKey(raw)
		assert.Error(t, err, raw)
	}
}

func TestDateRangeLengths(t *testing.T) {
	start := time.Date(2025, time.February, 27, 10, 0, 0, 0, time.UTC)

	cases := map[ViewType]int{
		View1Day:    1,
		View7Day:    7,
		View14Day:   14,
		ViewMonth:   30,
		View3Months: 90,
	}
	for view, want := range cases {
		dates := DateRange(start, view)
		require.Len(t, dates, want, view)
		assert.Equal(t, time.Date(2025, time.February, 27, 0, 0, 0, 0, time.UTC), dates[0])
		if want > 1 {
			// Contiguous days across the month boundary.
			assert.Equal(t, dates[0].AddDate(0, 0, want-1), dates[want-1])
		}
	}
}

func TestTierForMonotonic(t *testing.T) {
	const maxCount = 10
	prev := TierEmpty
	for count := 0; count <= maxCount; count++ {
		tier := TierFor(count, maxCount)
		assert.GreaterOrEqual(t, tier, prev, "count %d", count)
		prev = tier
	}
}

func TestTierForSingleRespondentNeverSaturates(t *testing.T) {
	// One participant, one mark: ratio is 1/2, below the high threshold.
	assert.Equal(t, TierMid, TierFor(1, 1))
	assert.Equal(t, TierEmpty, TierFor(0, 1))
}

func TestTierForBreakPoints(t *testing.T) {
	assert.Equal(t, TierLow, TierFor(3, 10))
	assert.Equal(t, TierMid, TierFor(5, 10))
	assert.Equal(t, TierHigh, TierFor(7, 10))
	assert.Equal(t, TierHigh, TierFor(10, 10))
}
