// Package ingest implements the write path: persisting raw events,
// bumping per-day counters, and bracketing play/stop sessions.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/PratikDhanave/kv-analytics-service/internal/keys"
	"github.com/PratikDhanave/kv-analytics-service/internal/models"
	"github.com/PratikDhanave/kv-analytics-service/internal/store"
)

const (
	// EventRetention is how long raw event records are kept.
	EventRetention = 30 * 24 * time.Hour

	// MaxMetadataBytes bounds the serialized metadata size. Oversized
	// payloads are replaced, not rejected.
	MaxMetadataBytes = 4 * 1024

	// EventPlay opens a session; EventStop closes the oldest open one.
	EventPlay = "play"
	EventStop = "stop"
)

// metadataWarning replaces oversized metadata payloads.
const metadataWarning = "Metadata truncated due to size limit"

// Ingestor records incoming events against the KV store. It is
// stateless; all state lives in the store.
type Ingestor struct {
	kv    store.KV
	clock clockwork.Clock
}

// New creates an Ingestor reading time from clock.
func New(kv store.KV, clock clockwork.Clock) *Ingestor {
	return &Ingestor{kv: kv, clock: clock}
}

// Record persists one event: the raw record (with retention expiry), a
// counter increment for its (day, event, user) bucket, and any session
// side effect its name carries. A store failure at any step aborts with
// an error; writes that already completed stay committed.
func (ing *Ingestor) Record(ctx context.Context, req models.TrackRequest) error {
	ts, err := ing.resolveTimestamp(req.Timestamp)
	if err != nil {
		return fmt.Errorf("resolve timestamp: %w", err)
	}

	metadata := GuardMetadata(req.Metadata)

	stored := models.StoredEvent{
		Event:     req.Event,
		UserID:    req.UserID,
		Timestamp: ts,
		Metadata:  metadata,
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := ing.kv.Put(ctx, keys.Event(req.UserID, ts, req.Event), string(raw), EventRetention); err != nil {
		return fmt.Errorf("store event: %w", err)
	}

	if err := ing.incrementCounter(ctx, ts, req.Event, req.UserID); err != nil {
		return err
	}

	switch req.Event {
	case EventPlay:
		if err := ing.openSession(ctx, req.UserID, ts, metadata); err != nil {
			return err
		}
	case EventStop:
		if err := ing.closeOldestSession(ctx, req.UserID, ts); err != nil {
			return err
		}
	}

	return nil
}

// resolveTimestamp applies the anti-future-timestamp policy: a supplied
// timestamp strictly after the current clock reading is clamped to now;
// otherwise it is stored verbatim. Absent timestamps get now.
func (ing *Ingestor) resolveTimestamp(supplied string) (string, error) {
	now := ing.clock.Now().UTC()
	if supplied == "" {
		return now.Format(time.RFC3339), nil
	}

	t, err := time.Parse(time.RFC3339, supplied)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", supplied, err)
	}
	if t.After(now) {
		return now.Format(time.RFC3339), nil
	}
	return supplied, nil
}

// incrementCounter bumps the per-user counter for the event's UTC
// calendar day. The get-then-put is not atomic: two concurrent
// increments of the same key can lose one update. That matches the
// store contract, which has no atomic increment; counters are kept
// without expiry.
func (ing *Ingestor) incrementCounter(ctx context.Context, ts, event, userID string) error {
	day, err := dayOf(ts)
	if err != nil {
		return fmt.Errorf("day bucket: %w", err)
	}
	key := keys.Metric(day, event, userID)

	current := 0
	if v, found, err := ing.kv.Get(ctx, key); err != nil {
		return fmt.Errorf("read counter: %w", err)
	} else if found {
		if n, err := strconv.Atoi(v); err == nil {
			current = n
		}
	}

	if err := ing.kv.Put(ctx, key, strconv.Itoa(current+1), 0); err != nil {
		return fmt.Errorf("write counter: %w", err)
	}
	return nil
}

// openSession unconditionally creates a new open session for the user.
// Multiple play events without stops leave multiple open sessions.
func (ing *Ingestor) openSession(ctx context.Context, userID, ts string, metadata map[string]interface{}) error {
	s := models.Session{
		StartTime: ts,
		Metadata:  metadata,
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := ing.kv.Put(ctx, keys.Session(userID, ts), string(raw), 0); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// closeOldestSession closes the lexically-first session under the
// user's prefix, which by ISO timestamp ordering is the oldest one. If
// the user has no sessions, or that session is already closed, this is
// a no-op; later open sessions are not considered.
func (ing *Ingestor) closeOldestSession(ctx context.Context, userID, stopTS string) error {
	found, err := ing.kv.List(ctx, keys.SessionUserPrefix(userID), 1)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(found) == 0 {
		return nil
	}
	key := found[0]

	raw, ok, err := ing.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	if !ok {
		return nil
	}

	var s models.Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return fmt.Errorf("decode session %q: %w", key, err)
	}
	if s.Closed() {
		return nil
	}

	start, err := time.Parse(time.RFC3339, s.StartTime)
	if err != nil {
		return fmt.Errorf("parse session start %q: %w", s.StartTime, err)
	}
	stop, err := time.Parse(time.RFC3339, stopTS)
	if err != nil {
		return fmt.Errorf("parse stop time %q: %w", stopTS, err)
	}

	duration := stop.Sub(start).Seconds()
	s.EndTime = stopTS
	s.Duration = &duration

	updated, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := ing.kv.Put(ctx, key, string(updated), 0); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// dayOf returns the UTC calendar day of an RFC 3339 timestamp.
func dayOf(ts string) (string, error) {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return "", err
	}
	return t.UTC().Format("2006-01-02"), nil
}
