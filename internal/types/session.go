package types

import (
	"time"

	"github.com/google/uuid"
)

// SyncStatus tracks whether a locally written record has been reconciled
// with the remote store by the external sync collaborator.
type SyncStatus int

const (
	SyncPending SyncStatus = iota
	SyncSynced
	SyncConflict
)

func (s SyncStatus) String() string {
	switch s {
	case SyncPending:
		return "pending"
	case SyncSynced:
		return "synced"
	case SyncConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// UsageSession is a single foreground stay in a tracked app. Created on the
// open event, closed on the close event or a forced end. Immutable once
// closed except for sync metadata.
type UsageSession struct {
	ID             uuid.UUID  `json:"id"`
	AppID          string     `json:"appId"`
	AppName        string     `json:"appName"`
	StartTime      time.Time  `json:"startTime"`
	EndTime        time.Time  `json:"endTime"` // zero while the session is open
	WasInterrupted bool       `json:"wasInterrupted"`
	SyncStatus     SyncStatus `json:"syncStatus"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// IsClosed reports whether the session has an end timestamp.
func (s *UsageSession) IsClosed() bool {
	return !s.EndTime.IsZero()
}

// Duration returns the session length, zero while the session is open.
func (s *UsageSession) Duration() time.Duration {
	if !s.IsClosed() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// DurationMinutes returns the session length in fractional minutes.
func (s *UsageSession) DurationMinutes() float64 {
	return s.Duration().Minutes()
}

// DateOf normalizes a timestamp to midnight of its calendar day in its own
// location. All per-day records are keyed by this value.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
