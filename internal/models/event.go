package models

// TrackRequest is the POST /track payload. Event and UserID are
// mandatory; Timestamp is optional and, when present, must be RFC 3339
// (enforced by the handler before the ingestor runs).
type TrackRequest struct {
	Event     string                 `json:"event" binding:"required"`
	UserID    string                 `json:"user_id" binding:"required"`
	Timestamp string                 `json:"timestamp,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// StoredEvent is the durable record written under an event key.
// Immutable once stored; expires with the event retention window.
type StoredEvent struct {
	Event     string                 `json:"event"`
	UserID    string                 `json:"user_id"`
	Timestamp string                 `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Session is one open-or-closed play interval for a user. A session is
// open while EndTime and Duration are unset; closing it sets both,
// exactly once. Duration is a pointer so that an absent value is
// distinguishable from a legitimate zero-second session.
type Session struct {
	StartTime string                 `json:"startTime"`
	EndTime   string                 `json:"endTime,omitempty"`
	Duration  *float64               `json:"duration,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Closed reports whether the session has been completed by a stop event.
func (s Session) Closed() bool { return s.EndTime != "" }

// SessionRow is one bucket of the GET /sessions response. Durations are
// rounded to the nearest whole second.
type SessionRow struct {
	Date            string `json:"date"`
	TotalDuration   int64  `json:"totalDuration"`
	SessionCount    int    `json:"sessionCount"`
	AverageDuration int64  `json:"averageDuration"`
}

// MetricRow is one bucket of the GET /metrics response: a "date" field
// plus one field per event name observed in that bucket.
type MetricRow map[string]interface{}
