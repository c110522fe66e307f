package utils

import (
	"encoding/json"
	"fmt"
	"time"
)

// Lookback converts a day count into a [start, end] window anchored at now.
func Lookback(now time.Time, days int) (start, end time.Time) {
	if days <= 0 {
		days = 1
	}
	end = now
	start = end.AddDate(0, 0, -days)
	return start, end
}

// EpochMillis returns the millisecond epoch representation used by the
// results index timestamp range filter.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// ParseAnomalyTimestamp accepts the timestamp shapes the results index emits:
// epoch milliseconds (number) or an RFC 3339 string. Returns an error when the
// raw value is absent or unusable.
func ParseAnomalyTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}

	var millis int64
	if err := json.Unmarshal(raw, &millis); err == nil {
		return time.UnixMilli(millis).UTC(), nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return time.Time{}, fmt.Errorf("unusable timestamp %s", string(raw))
	}
	t, err := time.Parse(time.RFC3339, text)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp: %w", err)
	}
	return t.UTC(), nil
}
