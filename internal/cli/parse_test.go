package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/taskflow/internal/constants"
	"github.com/mrz1836/taskflow/internal/errors"
)

func TestParseStatus(t *testing.T) {
	t.Parallel()

	s, err := parseStatus("IN_REVIEW")
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusInReview, s)

	_, err = parseStatus("shipped")
	require.ErrorIs(t, err, errors.ErrInvalidStatus)
	assert.True(t, errors.IsExitCode2Error(err))
	assert.Contains(t, err.Error(), "in_progress")
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    time.Time
		wantErr bool
	}{
		{name: "empty clears", raw: "", want: time.Time{}},
		{name: "short form", raw: "2026-11-01", want: time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)},
		{name: "rfc3339 normalized to utc", raw: "2026-11-01T10:00:00+02:00", want: time.Date(2026, 11, 1, 8, 0, 0, 0, time.UTC)},
		{name: "garbage", raw: "tomorrow", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseDate(tc.raw)
			if tc.wantErr {
				require.ErrorIs(t, err, errors.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "got %s", got)
		})
	}
}

func TestParseOptionalDate(t *testing.T) {
	t.Parallel()

	got, err := parseOptionalDate("  ")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseOptionalDate("2026-01-02")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.Day())
}

func TestParseDependencyType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, constants.DependencyStartToFinish, parseDependencyType(" Start-To-Finish "))
	assert.Equal(t, constants.DependencyFinishToStart, parseDependencyType("finish_to_start"))
}

func TestParseLimitPair(t *testing.T) {
	t.Parallel()

	status, n, err := parseLimitPair("In_Progress=3")
	require.NoError(t, err)
	assert.Equal(t, "in_progress", status)
	require.NotNil(t, n)
	assert.Equal(t, 3, *n)

	status, n, err = parseLimitPair("todo=none")
	require.NoError(t, err)
	assert.Equal(t, "todo", status)
	assert.Nil(t, n)

	for _, bad := range []string{"todo", "=3", "todo=x"} {
		_, _, err := parseLimitPair(bad)
		require.ErrorIs(t, err, errors.ErrInvalidArgument, bad)
	}
}
