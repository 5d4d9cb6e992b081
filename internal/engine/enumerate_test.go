package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnumerateDailyWindow(t *testing.T) {
	start := utc(2024, time.January, 1, 0, 0)
	end := utc(2024, time.January, 3, 0, 0)

	got, valid, err := Enumerate("0 8 * * *", start, end)
	require.NoError(t, err)
	require.True(t, valid)
	require.Equal(t, []time.Time{
		utc(2024, time.January, 1, 8, 0),
		utc(2024, time.January, 2, 8, 0),
	}, got)
}

func TestEnumerateIncludesMatchingStart(t *testing.T) {
	start := utc(2024, time.January, 3, 0, 0)
	end := utc(2024, time.January, 5, 0, 0)

	got, valid, err := Enumerate("0 0 * * *", start, end)
	require.NoError(t, err)
	require.True(t, valid)
	require.Equal(t, []time.Time{
		utc(2024, time.January, 3, 0, 0),
		utc(2024, time.January, 4, 0, 0),
	}, got)
}

func TestEnumerateEndExclusive(t *testing.T) {
	start := utc(2024, time.January, 1, 0, 0)
	end := utc(2024, time.January, 2, 0, 0)

	got, valid, err := Enumerate("0 0 * * *", start, end)
	require.NoError(t, err)
	require.True(t, valid)
	require.Equal(t, []time.Time{utc(2024, time.January, 1, 0, 0)}, got)
}

func TestEnumerateEmptyWindow(t *testing.T) {
	start := utc(2024, time.January, 1, 8, 30)
	end := utc(2024, time.January, 1, 9, 0)

	got, valid, err := Enumerate("0 8 * * *", start, end)
	require.NoError(t, err)
	require.True(t, valid)
	require.Empty(t, got)
}

func TestEnumerateMalformedExpression(t *testing.T) {
	_, valid, err := Enumerate("xx", utc(2024, time.January, 1, 0, 0), utc(2024, time.January, 2, 0, 0))
	require.False(t, valid)
	require.Error(t, err)

	var cronErr *InvalidCronError
	require.True(t, errors.As(err, &cronErr))
	require.Equal(t, "xx", cronErr.Expr)
}

func TestEnumerateRespectsOccurrenceCap(t *testing.T) {
	start := utc(2024, time.January, 1, 0, 0)
	end := utc(2024, time.February, 1, 0, 0)

	got, valid, err := Enumerate("* * * * *", start, end)
	require.NoError(t, err)
	require.True(t, valid)
	require.Len(t, got, maxOccurrencesPerWindow)
}
