package query

import "time"

// Interval selects the calendar grouping for aggregation rows.
type Interval string

const (
	IntervalDay   Interval = "day"
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
)

// ParseInterval validates a group_by query value. Empty defaults to day.
func ParseInterval(s string) (Interval, bool) {
	switch Interval(s) {
	case "":
		return IntervalDay, true
	case IntervalDay, IntervalWeek, IntervalMonth:
		return Interval(s), true
	default:
		return "", false
	}
}

// Bucket maps a time to its calendar bucket key, formatted YYYY-MM-DD.
// Weeks start on Sunday: a date rolls back to the most recent Sunday
// (or itself, if it already is one). Months truncate to the 1st.
func Bucket(t time.Time, interval Interval) string {
	t = t.UTC()
	switch interval {
	case IntervalMonth:
		return t.Format("2006-01") + "-01"
	case IntervalWeek:
		return t.AddDate(0, 0, -int(t.Weekday())).Format("2006-01-02")
	default:
		return t.Format("2006-01-02")
	}
}
