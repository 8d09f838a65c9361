package query

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PratikDhanave/kv-analytics-service/internal/keys"
	"github.com/PratikDhanave/kv-analytics-service/internal/models"
	"github.com/PratikDhanave/kv-analytics-service/internal/store"
)

func newTestAggregator() (*Aggregator, *store.MemoryKV) {
	kv := store.NewMemoryKV(clockwork.NewRealClock())
	return New(kv), kv
}

func putCounter(t *testing.T, kv store.KV, day, event, user, value string) {
	t.Helper()
	require.NoError(t, kv.Put(context.Background(), keys.Metric(day, event, user), value, 0))
}

func putSession(t *testing.T, kv store.KV, user, start string, s models.Session) {
	t.Helper()
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	require.NoError(t, kv.Put(context.Background(), keys.Session(user, start), string(raw), 0))
}

func closedSession(start, end string, duration float64) models.Session {
	return models.Session{StartTime: start, EndTime: end, Duration: &duration}
}

func params(t *testing.T, start, end string, groupBy Interval, user string) Params {
	t.Helper()
	return Params{
		Start:   mustDate(t, start),
		End:     mustDate(t, end),
		GroupBy: groupBy,
		UserID:  user,
	}
}

func TestMetrics_MonthGroupingSumsAcrossDays(t *testing.T) {
	agg, kv := newTestAggregator()

	// 3 days, 2 occurrences of "x" each.
	putCounter(t, kv, "2024-03-01", "x", "u1", "2")
	putCounter(t, kv, "2024-03-02", "x", "u1", "2")
	putCounter(t, kv, "2024-03-03", "x", "u1", "2")

	rows, err := agg.Metrics(context.Background(), params(t, "2024-03-01", "2024-03-31", IntervalMonth, ""))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-03-01", rows[0]["date"])
	assert.Equal(t, 6, rows[0]["x"])
}

func TestMetrics_UserFilter(t *testing.T) {
	agg, kv := newTestAggregator()

	putCounter(t, kv, "2024-03-01", "click", "u1", "3")
	putCounter(t, kv, "2024-03-01", "click", "u2", "5")
	// Aggregate-shape key, written by a collaborator with no user scope.
	putCounter(t, kv, "2024-03-01", "click", "", "7")

	rows, err := agg.Metrics(context.Background(), params(t, "2024-03-01", "2024-03-01", IntervalDay, "u1"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0]["click"])

	// No filter counts every shape, aggregate keys included.
	rows, err = agg.Metrics(context.Background(), params(t, "2024-03-01", "2024-03-01", IntervalDay, ""))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 15, rows[0]["click"])
}

func TestMetrics_DateRangeIsInclusive(t *testing.T) {
	agg, kv := newTestAggregator()

	putCounter(t, kv, "2024-02-29", "click", "u1", "1")
	putCounter(t, kv, "2024-03-01", "click", "u1", "1")
	putCounter(t, kv, "2024-03-05", "click", "u1", "1")
	putCounter(t, kv, "2024-03-06", "click", "u1", "1")

	rows, err := agg.Metrics(context.Background(), params(t, "2024-03-01", "2024-03-05", IntervalDay, ""))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-03-01", rows[0]["date"])
	assert.Equal(t, "2024-03-05", rows[1]["date"])
}

func TestMetrics_RowsSortedAscending(t *testing.T) {
	agg, kv := newTestAggregator()

	putCounter(t, kv, "2024-03-09", "click", "u1", "1")
	putCounter(t, kv, "2024-03-02", "click", "u1", "1")
	putCounter(t, kv, "2024-03-25", "click", "u1", "1")

	rows, err := agg.Metrics(context.Background(), params(t, "2024-03-01", "2024-03-31", IntervalDay, ""))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	var prev string
	for _, row := range rows {
		date := row["date"].(string)
		assert.Greater(t, date, prev)
		prev = date
	}
}

func TestMetrics_MultipleEventsPerBucket(t *testing.T) {
	agg, kv := newTestAggregator()

	putCounter(t, kv, "2024-03-01", "play", "u1", "4")
	putCounter(t, kv, "2024-03-01", "stop", "u1", "3")

	rows, err := agg.Metrics(context.Background(), params(t, "2024-03-01", "2024-03-01", IntervalDay, ""))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 4, rows[0]["play"])
	assert.Equal(t, 3, rows[0]["stop"])
}

func TestSessions_SingleClosedSession(t *testing.T) {
	agg, kv := newTestAggregator()

	putSession(t, kv, "u1", "2024-03-10T10:00:00Z",
		closedSession("2024-03-10T10:00:00Z", "2024-03-10T10:02:00Z", 120))

	rows, err := agg.Sessions(context.Background(), params(t, "2024-03-01", "2024-03-31", IntervalDay, ""))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.SessionRow{
		Date:            "2024-03-10",
		TotalDuration:   120,
		SessionCount:    1,
		AverageDuration: 120,
	}, rows[0])
}

func TestSessions_OpenAndMalformedSkipped(t *testing.T) {
	agg, kv := newTestAggregator()

	// Open session: no endTime, no duration.
	putSession(t, kv, "u1", "2024-03-10T10:00:00Z", models.Session{StartTime: "2024-03-10T10:00:00Z"})
	// Malformed record.
	require.NoError(t, kv.Put(context.Background(), keys.Session("u2", "2024-03-10T11:00:00Z"), "{not json", 0))

	rows, err := agg.Sessions(context.Background(), params(t, "2024-03-01", "2024-03-31", IntervalDay, ""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSessions_AverageRoundsToNearest(t *testing.T) {
	agg, kv := newTestAggregator()

	putSession(t, kv, "u1", "2024-03-10T10:00:00Z",
		closedSession("2024-03-10T10:00:00Z", "2024-03-10T10:01:40Z", 100))
	putSession(t, kv, "u1", "2024-03-10T12:00:00Z",
		closedSession("2024-03-10T12:00:00Z", "2024-03-10T12:01:41Z", 101))

	rows, err := agg.Sessions(context.Background(), params(t, "2024-03-10", "2024-03-10", IntervalDay, ""))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(201), rows[0].TotalDuration)
	assert.Equal(t, 2, rows[0].SessionCount)
	assert.Equal(t, int64(101), rows[0].AverageDuration) // round(100.5)
}

func TestSessions_UserFilterUsesPrefix(t *testing.T) {
	agg, kv := newTestAggregator()

	putSession(t, kv, "u1", "2024-03-10T10:00:00Z",
		closedSession("2024-03-10T10:00:00Z", "2024-03-10T10:01:00Z", 60))
	putSession(t, kv, "u2", "2024-03-10T10:00:00Z",
		closedSession("2024-03-10T10:00:00Z", "2024-03-10T10:05:00Z", 300))

	rows, err := agg.Sessions(context.Background(), params(t, "2024-03-01", "2024-03-31", IntervalDay, "u1"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(60), rows[0].TotalDuration)
	assert.Equal(t, 1, rows[0].SessionCount)
}

func TestSessions_StartDateOutsideRangeSkipped(t *testing.T) {
	agg, kv := newTestAggregator()

	putSession(t, kv, "u1", "2024-02-28T10:00:00Z",
		closedSession("2024-02-28T10:00:00Z", "2024-02-28T10:01:00Z", 60))
	// Late on the final day of the range still counts.
	putSession(t, kv, "u1", "2024-03-31T23:30:00Z",
		closedSession("2024-03-31T23:30:00Z", "2024-03-31T23:45:00Z", 900))

	rows, err := agg.Sessions(context.Background(), params(t, "2024-03-01", "2024-03-31", IntervalDay, ""))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-03-31", rows[0].Date)
}

func TestSessions_WeekGroupingBucketsBySunday(t *testing.T) {
	agg, kv := newTestAggregator()

	// Wednesday and Friday of the same Sunday-started week.
	putSession(t, kv, "u1", "2024-01-10T10:00:00Z",
		closedSession("2024-01-10T10:00:00Z", "2024-01-10T10:01:00Z", 60))
	putSession(t, kv, "u1", "2024-01-12T10:00:00Z",
		closedSession("2024-01-12T10:00:00Z", "2024-01-12T10:01:00Z", 60))

	rows, err := agg.Sessions(context.Background(), params(t, "2024-01-01", "2024-01-31", IntervalWeek, ""))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-01-07", rows[0].Date)
	assert.Equal(t, 2, rows[0].SessionCount)
}

func TestSessions_ZeroDurationClosedSessionCounts(t *testing.T) {
	agg, kv := newTestAggregator()

	putSession(t, kv, "u1", "2024-03-10T10:00:00Z",
		closedSession("2024-03-10T10:00:00Z", "2024-03-10T10:00:00Z", 0))

	rows, err := agg.Sessions(context.Background(), params(t, "2024-03-10", "2024-03-10", IntervalDay, ""))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].SessionCount)
	assert.Equal(t, int64(0), rows[0].TotalDuration)
}
