package transform_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/transform"
)

func TestCountNumbers(t *testing.T) {
	total, err := transform.CountNumbers([]model.NumberRange{
		{Start: "5512345670", End: "5512345679"},
		{Start: "5598765432", End: "5598765432"},
	})
	require.NoError(t, err)
	assert.Equal(t, 11, total)
}

func TestRangeSizeRejectsInvalidRanges(t *testing.T) {
	tests := []struct {
		name string
		r    model.NumberRange
	}{
		{name: "empty start", r: model.NumberRange{End: "5512345678"}},
		{name: "reversed", r: model.NumberRange{Start: "5512345679", End: "5512345670"}},
		{name: "not numeric", r: model.NumberRange{Start: "55ABC", End: "55ABD"}},
		{name: "length mismatch", r: model.NumberRange{Start: "551234567", End: "5512345679"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := transform.RangeSize(tt.r)
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrValidation))
		})
	}
}

func TestExpandRangesKeepsLeadingZeros(t *testing.T) {
	numbers, err := transform.ExpandRanges([]model.NumberRange{{Start: "0012345678", End: "0012345680"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"0012345678", "0012345679", "0012345680"}, numbers)
}

func TestCompactNumbers(t *testing.T) {
	ranges := transform.CompactNumbers([]string{"5512345670", "5512345671", "5512345672", "5598765432", "5598765433"})

	assert.Equal(t, []model.NumberRange{
		{Start: "5512345670", End: "5512345672"},
		{Start: "5598765432", End: "5598765433"},
	}, ranges)

	expanded, err := transform.ExpandRanges(ranges)
	require.NoError(t, err)
	assert.Len(t, expanded, 5)
}

func TestParseProtocolTime(t *testing.T) {
	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)

	ts, err := transform.ParseProtocolTime("20250318120000", loc)
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 3, 18, 12, 0, 0, 0, loc).Equal(ts))
	assert.Equal(t, "20250318120000", transform.FormatProtocolTime(ts))

	_, err = transform.ParseProtocolTime("tomorrow", loc)
	require.Error(t, err)
}
