package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	for _, v := range []string{
		"2024-06-01T10:00:00Z",
		"2024-06-01T12:00:00+02:00",
		"2024-06-01T10:00:00",
		"2024-06-01 10:00:00",
		"2024-06-01T10:00:00.000000",
	} {
		t.Run(v, func(t *testing.T) {
			got, err := ParseTimestamp(v)
			require.NoError(t, err)
			assert.True(t, want.Equal(got))
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseTimestamp_DateOnly(t *testing.T) {
	got, err := ParseTimestamp("2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestParseTimestamp_Invalid(t *testing.T) {
	_, err := ParseTimestamp("yesterday")
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
	_, err = ParseTimestamp("")
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestFormatTimestamp(t *testing.T) {
	loc := time.FixedZone("x", 3600)
	assert.Equal(t, "2024-06-01T09:00:00Z", FormatTimestamp(time.Date(2024, 6, 1, 10, 0, 0, 0, loc)))
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("123456789012345678901234567890")
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678901234567890", d.String())

	d, err = ParseAmount("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ParseAmount("lots")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestParseAmount_Fractional(t *testing.T) {
	for _, v := range []string{"1.5", "0.1", "1e-3", "-2.25"} {
		t.Run(v, func(t *testing.T) {
			_, err := ParseAmount(v)
			assert.ErrorIs(t, err, ErrInvalidAmount)
		})
	}

	// integral values written with a fraction or exponent are accepted
	for v, want := range map[string]string{"1e3": "1000", "2.000": "2", "7": "7"} {
		t.Run(v, func(t *testing.T) {
			d, err := ParseAmount(v)
			require.NoError(t, err)
			assert.Equal(t, want, d.String())
		})
	}
}
