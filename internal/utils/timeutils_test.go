package utils

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookback(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	start, end := Lookback(now, 50)

	assert.True(t, end.Equal(now))
	assert.True(t, start.Equal(now.AddDate(0, 0, -50)))

	// Non-positive windows clamp to one day.
	start, end = Lookback(now, 0)
	assert.True(t, start.Equal(now.AddDate(0, 0, -1)))
	assert.True(t, end.Equal(now))
}

func TestParseAnomalyTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		raw     string
		want    time.Time
		wantErr bool
	}{
		{name: "epoch millis", raw: "1786790000000", want: time.UnixMilli(1786790000000).UTC()},
		{name: "rfc3339", raw: `"2026-08-15T10:30:00Z"`, want: want},
		{name: "rfc3339 with offset", raw: `"2026-08-15T12:30:00+02:00"`, want: want},
		{name: "missing", raw: "", wantErr: true},
		{name: "garbage", raw: `"not-a-time"`, wantErr: true},
		{name: "object", raw: `{}`, wantErr: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseAnomalyTimestamp(json.RawMessage(tc.raw))
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tc.want), "got %s want %s", got, tc.want)
		})
	}
}

func TestEpochMillis(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, ts.UnixMilli(), EpochMillis(ts))
}
