// Package query implements the read path: re-grouping stored counters
// and sessions into day, week, or month buckets on demand.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/PratikDhanave/kv-analytics-service/internal/keys"
	"github.com/PratikDhanave/kv-analytics-service/internal/models"
	"github.com/PratikDhanave/kv-analytics-service/internal/store"
)

// Params bounds an aggregation query. Start and End are inclusive
// calendar dates; UserID optionally restricts results to one user.
type Params struct {
	Start   time.Time
	End     time.Time
	GroupBy Interval
	UserID  string
}

// inRange reports whether a calendar date falls inside [Start, End].
func (p Params) inRange(d time.Time) bool {
	return !d.Before(p.Start) && !d.After(p.End)
}

// Aggregator serves metric and session aggregations from the KV store.
// Every query scans the full relevant prefix; the store offers no range
// queries beyond prefix listing.
type Aggregator struct {
	kv store.KV
}

// New creates an Aggregator over kv.
func New(kv store.KV) *Aggregator {
	return &Aggregator{kv: kv}
}

// Metrics lists every counter key, keeps those whose day falls in range
// and whose user matches the filter, and reduces them into one row per
// bucket with a total per event name. Rows sort ascending by bucket
// date. Aggregate-shape keys (no user segment) only count when no user
// filter is supplied.
func (a *Aggregator) Metrics(ctx context.Context, p Params) ([]models.MetricRow, error) {
	keyList, err := a.kv.List(ctx, keys.MetricPrefix, 0)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}

	buckets := make(map[string]map[string]int)
	for _, key := range keyList {
		mk, err := keys.ParseMetric(key)
		if err != nil {
			continue
		}
		if p.UserID != "" && mk.UserID != p.UserID {
			continue
		}

		day, err := time.Parse("2006-01-02", mk.Day)
		if err != nil || !p.inRange(day) {
			continue
		}

		value, found, err := a.kv.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read counter %q: %w", key, err)
		}
		count := 0
		if found {
			if n, err := strconv.Atoi(value); err == nil {
				count = n
			}
		}

		bucket := Bucket(day, p.GroupBy)
		if buckets[bucket] == nil {
			buckets[bucket] = make(map[string]int)
		}
		buckets[bucket][mk.Event] += count
	}

	rows := make([]models.MetricRow, 0, len(buckets))
	for _, bucket := range sortedBucketKeys(buckets) {
		row := models.MetricRow{"date": bucket}
		for event, total := range buckets[bucket] {
			row[event] = total
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type sessionBucket struct {
	totalDuration float64
	sessionCount  int
}

// Sessions lists session records (for one user, or all users), keeps
// closed sessions whose start date falls in range, and reduces them
// into per-bucket duration totals. Open or malformed records are
// skipped silently; they never contribute to aggregates.
func (a *Aggregator) Sessions(ctx context.Context, p Params) ([]models.SessionRow, error) {
	prefix := keys.SessionPrefix
	if p.UserID != "" {
		prefix = keys.SessionUserPrefix(p.UserID)
	}

	keyList, err := a.kv.List(ctx, prefix, 0)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	buckets := make(map[string]*sessionBucket)
	for _, key := range keyList {
		raw, found, err := a.kv.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read session %q: %w", key, err)
		}
		if !found {
			continue
		}

		var s models.Session
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			continue
		}
		if s.Duration == nil || s.StartTime == "" || s.EndTime == "" {
			continue
		}

		start, err := time.Parse(time.RFC3339, s.StartTime)
		if err != nil {
			continue
		}
		startDay := start.UTC().Truncate(24 * time.Hour)
		if !p.inRange(startDay) {
			continue
		}

		bucket := Bucket(start, p.GroupBy)
		b := buckets[bucket]
		if b == nil {
			b = &sessionBucket{}
			buckets[bucket] = b
		}
		b.totalDuration += *s.Duration
		b.sessionCount++
	}

	rows := make([]models.SessionRow, 0, len(buckets))
	for _, bucket := range sortedBucketKeys(buckets) {
		b := buckets[bucket]
		rows = append(rows, models.SessionRow{
			Date:            bucket,
			TotalDuration:   int64(math.Round(b.totalDuration)),
			SessionCount:    b.sessionCount,
			AverageDuration: int64(math.Round(b.totalDuration / float64(b.sessionCount))),
		})
	}
	return rows, nil
}

// sortedBucketKeys returns map keys ascending; bucket keys are ISO
// dates, so lexical order is chronological.
func sortedBucketKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
