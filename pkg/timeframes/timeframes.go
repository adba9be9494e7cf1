// Package timeframes provides interval parsing and bucket alignment helpers.
package timeframes

import (
	"fmt"
	"regexp"
	"strconv"
)

var intervalRe = regexp.MustCompile(`^(\d+)(m|h|d|w)$`)

// Canonical is the ordered list of intervals the system works with.
var Canonical = []string{"1m", "5m", "15m", "1h", "4h", "1d", "1w"}

// IntervalSeconds converts an interval label like 1m/5m/1h/1d/1w into seconds.
func IntervalSeconds(interval string) (int64, error) {
	m := intervalRe.FindStringSubmatch(interval)
	if m == nil {
		return 0, fmt.Errorf("unsupported interval %q: use forms like 1m, 5m, 1h, 1d, 1w", interval)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("unsupported interval %q", interval)
	}
	switch m[2] {
	case "m":
		return n * 60, nil
	case "h":
		return n * 3600, nil
	case "d":
		return n * 86400, nil
	case "w":
		return n * 7 * 86400, nil
	}
	return 0, fmt.Errorf("unsupported interval unit in %q", interval)
}

// IsValid reports whether interval is a parseable interval label.
func IsValid(interval string) bool {
	_, err := IntervalSeconds(interval)
	return err == nil
}

// BucketStart returns the start of the bucket containing ts for an interval
// of the given length in seconds. Buckets are anchored to the Unix epoch in
// UTC; weekly buckets therefore start on the epoch weekday (Thursday).
func BucketStart(ts, intervalSecs int64) int64 {
	return (ts / intervalSecs) * intervalSecs
}
