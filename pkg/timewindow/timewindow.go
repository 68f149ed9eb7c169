// Package timewindow classifies timestamps against the capture windows.
//
// A Snapshot pins a single "now" for the whole job invocation so every
// comparison made during one run agrees with every other.
package timewindow

import (
	"time"

	"github.com/vignesh-goutham/artemis-capture/pkg/types"
)

// Windows holds the named durations the capture jobs classify against
type Windows struct {
	Lookback          time.Duration
	Lookahead         time.Duration
	DueSoon           time.Duration
	LivenessTimeout   time.Duration
	EstimatedDuration time.Duration
	Stale             time.Duration
}

// DefaultWindows returns the production window set
func DefaultWindows() Windows {
	return Windows{
		Lookback:          30 * time.Minute,
		Lookahead:         24 * time.Hour,
		DueSoon:           15 * time.Minute,
		LivenessTimeout:   5 * time.Minute,
		EstimatedDuration: time.Hour,
		Stale:             2 * time.Hour,
	}
}

// Snapshot is a Windows bound to one captured instant
type Snapshot struct {
	Windows
	now time.Time
}

// At binds the windows to now. All classification uses whole epoch seconds.
func (w Windows) At(now time.Time) Snapshot {
	return Snapshot{Windows: w, now: now.Truncate(time.Second)}
}

// Now returns the captured instant
func (s Snapshot) Now() time.Time {
	return s.now
}

// Unix returns the captured instant in epoch seconds
func (s Snapshot) Unix() int64 {
	return s.now.Unix()
}

// DiscoveryBounds returns the inclusive [now-lookback, now+lookahead] range in epoch seconds
func (s Snapshot) DiscoveryBounds() (int64, int64) {
	return s.now.Add(-s.Lookback).Unix(), s.now.Add(s.Lookahead).Unix()
}

// StrikeBounds returns the strike-time range that can hold an event whose
// effective start lands in the discovery window. Events are assumed to start
// no later than their strike and no earlier than the estimated duration
// before it.
func (s Snapshot) StrikeBounds() (int64, int64) {
	lo, hi := s.DiscoveryBounds()
	return lo, hi + int64(s.EstimatedDuration/time.Second)
}

// InDiscoveryWindow reports whether t falls inside the discovery bounds
func (s Snapshot) InDiscoveryWindow(t int64) bool {
	lo, hi := s.DiscoveryBounds()
	return t >= lo && t <= hi
}

// DueSoonThreshold returns now+due-soon in epoch seconds
func (s Snapshot) DueSoonThreshold() int64 {
	return s.now.Add(s.DueSoon).Unix()
}

// IsDueSoon reports whether a scheduled start is at or before the due-soon threshold
func (s Snapshot) IsDueSoon(scheduledStart int64) bool {
	return scheduledStart <= s.DueSoonThreshold()
}

// IsStale reports whether a scheduled start passed more than the stale threshold ago
func (s Snapshot) IsStale(scheduledStart int64) bool {
	return s.now.Unix()-scheduledStart > int64(s.Stale/time.Second)
}

// EffectiveStart returns the event's own scheduled start when set, otherwise
// its strike time minus the estimated duration.
func (s Snapshot) EffectiveStart(event types.Event) int64 {
	return EffectiveStart(event, s.EstimatedDuration)
}

// EffectiveStart is the snapshot-free form of Snapshot.EffectiveStart
func EffectiveStart(event types.Event, estimated time.Duration) int64 {
	if event.ScheduledStart != nil && *event.ScheduledStart != 0 {
		return *event.ScheduledStart
	}
	return event.StrikeTime - int64(estimated/time.Second)
}

// IsLive reports whether the liveness record shows a worker that heartbeated
// within the liveness timeout. A nil record or an unparseable heartbeat is
// never live.
func (s Snapshot) IsLive(rec *types.Liveness) bool {
	if rec == nil || rec.Status != types.WorkerStatusRunning {
		return false
	}
	beat, ok := ParseHeartbeat(rec.LastHeartbeat)
	if !ok {
		return false
	}
	return s.now.Sub(beat) < s.LivenessTimeout
}

// HeartbeatAge returns how long ago the record heartbeated, or false when it can't tell
func (s Snapshot) HeartbeatAge(rec *types.Liveness) (time.Duration, bool) {
	if rec == nil {
		return 0, false
	}
	beat, ok := ParseHeartbeat(rec.LastHeartbeat)
	if !ok {
		return 0, false
	}
	return s.now.Sub(beat), true
}

var heartbeatLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
}

// ParseHeartbeat accepts RFC 3339 timestamps and the zone-less ISO forms the
// worker has written historically (read as UTC).
func ParseHeartbeat(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range heartbeatLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
