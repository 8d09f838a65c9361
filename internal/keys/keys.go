// Package keys defines the flat key-value key space shared by the
// ingestion and query paths. The formats below are the on-disk schema;
// a drop-in replacement must reproduce them byte for byte:
//
//	event:{user}:{timestamp}:{event}
//	metric:{day}:{event}            (aggregate)
//	metric:{day}:{event}:{user}     (per-user)
//	session:{user}:{timestamp}
//
// Timestamps are ISO-8601 strings, so lexical key order coincides with
// chronological order for a fixed user and prefix listing approximates a
// chronological scan.
package keys

import (
	"fmt"
	"strings"
)

const (
	kindEvent   = "event"
	kindMetric  = "metric"
	kindSession = "session"
)

// MetricPrefix is the prefix covering every counter key, both shapes.
const MetricPrefix = kindMetric + ":"

// SessionPrefix is the prefix covering every session key.
const SessionPrefix = kindSession + ":"

// Event returns the storage key for a raw event record.
func Event(userID, timestamp, event string) string {
	return kindEvent + ":" + userID + ":" + timestamp + ":" + event
}

// Metric returns the counter key for (day, event) or, when userID is
// non-empty, for (day, event, user). The two shapes share the "metric:"
// prefix but are not prefix-compatible with each other; ParseMetric
// distinguishes them by segment count.
func Metric(day, event, userID string) string {
	if userID == "" {
		return kindMetric + ":" + day + ":" + event
	}
	return kindMetric + ":" + day + ":" + event + ":" + userID
}

// Session returns the key for one play interval of a user.
func Session(userID, timestamp string) string {
	return kindSession + ":" + userID + ":" + timestamp
}

// SessionUserPrefix returns the prefix under which all of a user's
// sessions sort, oldest first.
func SessionUserPrefix(userID string) string {
	return kindSession + ":" + userID + ":"
}

// MetricKey is a decoded counter key. UserID is empty for the aggregate
// (3-segment) shape.
type MetricKey struct {
	Day    string
	Event  string
	UserID string
}

// Aggregate reports whether the key carries no user segment.
func (k MetricKey) Aggregate() bool { return k.UserID == "" }

// ParseMetric decodes a counter key. Keys that are not metric keys, or
// whose segment count is neither 3 nor 4, are rejected; callers scanning
// the full "metric:" prefix skip such entries.
func ParseMetric(key string) (MetricKey, error) {
	parts := strings.Split(key, ":")
	if len(parts) < 3 || parts[0] != kindMetric {
		return MetricKey{}, fmt.Errorf("not a metric key: %q", key)
	}
	switch len(parts) {
	case 3:
		return MetricKey{Day: parts[1], Event: parts[2]}, nil
	case 4:
		return MetricKey{Day: parts[1], Event: parts[2], UserID: parts[3]}, nil
	default:
		return MetricKey{}, fmt.Errorf("malformed metric key: %q", key)
	}
}
