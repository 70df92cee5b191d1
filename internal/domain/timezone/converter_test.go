package timezone

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToAbsoluteToLocalRoundTrip(t *testing.T) {
	conv := NewConverter(DefaultOffsetMinutes)

	cases := []struct {
		year  int
		month time.Month
		day   int
		clock string
	}{
		{2024, time.January, 1, "09:00"},
		{2024, time.February, 29, "23:59"}, // leap day
		{2024, time.December, 31, "00:00"},
		{2025, time.June, 15, "13:37"},
	}

	for _, tc := range cases {
		instant, err := conv.ToAbsolute(tc.year, tc.month, tc.day, tc.clock)
		require.NoError(t, err)

		local := conv.ToLocal(instant)
		assert.Equal(t, tc.year, local.Year())
		assert.Equal(t, tc.month, local.Month())
		assert.Equal(t, tc.day, local.Day())
		assert.Equal(t, tc.clock, local.Format("15:04"))
	}
}

func TestToAbsoluteAppliesFixedOffset(t *testing.T) {
	conv := NewConverter(330) // UTC+5:30

	instant, err := conv.ToAbsolute(2024, time.January, 1, "09:00")
	require.NoError(t, err)

	// 09:00 IST is 03:30 UTC.
	assert.True(t, instant.Equal(time.Date(2024, time.January, 1, 3, 30, 0, 0, time.UTC)))
}

func TestParseClockRejectsMalformedInput(t *testing.T) {
	conv := NewConverter(DefaultOffsetMinutes)

	for _, clock := range []string{"", "9", "25:00", "09:60", "ab:cd", "09:00:00"} {
		_, _, err := conv.ParseClock(clock)
		assert.True(t, errors.Is(err, ErrInvalidTime), "clock %q should be rejected", clock)
	}
}

func TestToAbsoluteRejectsImpossibleDate(t *testing.T) {
	conv := NewConverter(DefaultOffsetMinutes)

	_, err := conv.ToAbsolute(2023, time.February, 29, "09:00") // not a leap year
	assert.True(t, errors.Is(err, ErrInvalidTime))

	_, err = conv.ToAbsolute(2024, time.April, 31, "09:00")
	assert.True(t, errors.Is(err, ErrInvalidTime))
}

func TestParseDate(t *testing.T) {
	conv := NewConverter(DefaultOffsetMinutes)

	d, err := conv.ParseDate("2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.January, d.Month())
	assert.Equal(t, 1, d.Day())

	_, err = conv.ParseDate("01/01/2024")
	assert.True(t, errors.Is(err, ErrInvalidTime))
}
