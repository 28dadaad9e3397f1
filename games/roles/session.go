/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package roles

import (
	"time"

	"github.com/samber/lo"
)

const (
	// DefaultHistoryLimit is the number of history rows kept when no limit is given.
	DefaultHistoryLimit = 20
	// MaxHistoryLimit is the largest limit a session accepts.
	MaxHistoryLimit = 1000

	// TimestampFormat is the layout used for history timestamps.
	TimestampFormat = "2006-01-02 15:04:05"

	// NoName fills the name column for draws made without names.
	NoName = "-"
)

// Entry is one row of draw history.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Name      string `json:"name"`
	Role      string `json:"role"`
}

// Session is the state of one user's draws: the history, newest first, and
// the most recent result. Sessions are values; every operation returns the
// updated session and leaves the receiver untouched.
type Session struct {
	history []Entry
	last    *Result
	limit   int
}

// NewSession returns an empty session keeping at most limit history rows.
// A non-positive limit falls back to DefaultHistoryLimit and anything above
// MaxHistoryLimit is clamped.
func NewSession(limit int) Session {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	return Session{limit: limit}
}

// Limit returns the history cap.
func (s Session) Limit() int {
	if s.limit <= 0 {
		return DefaultHistoryLimit
	}

	return s.limit
}

// Record puts the rows for r in front of the existing history, in the
// result's order, then drops the oldest rows past the limit. r becomes the
// last result.
func (s Session) Record(r Result, timestamp string) Session {
	var rows []Entry
	if r.IsSolo() {
		rows = []Entry{{Timestamp: timestamp, Name: NoName, Role: r.Role}}
	} else {
		rows = lo.Map(r.Assignments, func(a Assignment, _ int) Entry {
			return Entry{Timestamp: timestamp, Name: a.Name, Role: a.Role}
		})
	}

	limit := s.Limit()

	history := make([]Entry, 0, min(len(rows)+len(s.history), limit))
	history = append(history, rows...)
	history = append(history, s.history...)
	if len(history) > limit {
		history = history[:limit]
	}

	last := r

	return Session{
		history: history,
		last:    &last,
		limit:   limit,
	}
}

// Clear empties the history and forgets the last result.
func (s Session) Clear() Session {
	return Session{limit: s.Limit()}
}

// Snapshot returns a copy of the history, newest first.
func (s Session) Snapshot() []Entry {
	out := make([]Entry, len(s.history))
	copy(out, s.history)

	return out
}

// Len returns the number of history rows.
func (s Session) Len() int {
	return len(s.history)
}

// Last returns the most recent result, if any draw has happened since the
// session was created or cleared.
func (s Session) Last() (Result, bool) {
	if s.last == nil {
		return Result{}, false
	}

	return *s.last, true
}

// DrawAssignment assigns roles to names, records the draw at time now and
// returns the result together with the updated session.
func DrawAssignment(names []string, s Session, src Source, now time.Time) (Result, Session) {
	r := Assign(names, Default(), src)

	return r, s.Record(r, now.Format(TimestampFormat))
}

// ClearSession returns s with its history and last result reset.
func ClearSession(s Session) Session {
	return s.Clear()
}
