package roles

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"default when 0", 0, DefaultHistoryLimit},
		{"default when negative", -5, DefaultHistoryLimit},
		{"custom", 100, 100},
		{"clamped", MaxHistoryLimit + 1, MaxHistoryLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(tt.limit)
			assert.Equal(t, tt.want, s.Limit())
			assert.Zero(t, s.Len())

			_, ok := s.Last()
			assert.False(t, ok)
		})
	}
}

func TestZeroSessionUsesDefaultLimit(t *testing.T) {
	var s Session
	assert.Equal(t, DefaultHistoryLimit, s.Limit())
}

func TestRecordSolo(t *testing.T) {
	s := NewSession(5).Record(Result{Role: "Leader"}, "2026-01-02 03:04:05")

	assert.Equal(t, []Entry{{Timestamp: "2026-01-02 03:04:05", Name: NoName, Role: "Leader"}}, s.Snapshot())

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, "Leader", last.Role)
}

func TestRecordBatchGoesInFrontInOrder(t *testing.T) {
	s := NewSession(10).Record(Result{Role: "Leader"}, "t1")

	batch := Result{Assignments: []Assignment{
		{Name: "Ann", Role: "Recorder"},
		{Name: "Ben", Role: "Presenter"},
	}}
	s = s.Record(batch, "t2")

	want := []Entry{
		{Timestamp: "t2", Name: "Ann", Role: "Recorder"},
		{Timestamp: "t2", Name: "Ben", Role: "Presenter"},
		{Timestamp: "t1", Name: NoName, Role: "Leader"},
	}
	assert.Equal(t, want, s.Snapshot())

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, batch, last)
}

func TestRecordEvictsOldest(t *testing.T) {
	const limit = 4

	s := NewSession(limit)
	for i := 1; i <= 10; i++ {
		s = s.Record(Result{Role: fmt.Sprintf("r%d", i)}, fmt.Sprintf("t%d", i))
		require.LessOrEqual(t, s.Len(), limit)
	}

	got := s.Snapshot()
	require.Len(t, got, limit)
	for i, e := range got {
		assert.Equal(t, fmt.Sprintf("r%d", 10-i), e.Role)
	}
}

func TestRecordBatchLargerThanLimit(t *testing.T) {
	s := NewSession(3).Record(Result{Role: "Leader"}, "t1")

	batch := Result{Assignments: []Assignment{
		{Name: "a", Role: "x"},
		{Name: "b", Role: "x"},
		{Name: "c", Role: "x"},
		{Name: "d", Role: "x"},
	}}
	s = s.Record(batch, "t2")

	got := s.Snapshot()
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "c", got[2].Name)
}

func TestRecordLeavesReceiverUntouched(t *testing.T) {
	base := NewSession(3)
	for i := range 3 {
		base = base.Record(Result{Role: fmt.Sprintf("r%d", i)}, "t")
	}
	before := base.Snapshot()

	_ = base.Record(Result{Role: "new"}, "t")
	_ = base.Clear()

	assert.Equal(t, before, base.Snapshot())
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewSession(3).Record(Result{Role: "Leader"}, "t")

	snap := s.Snapshot()
	snap[0].Role = "changed"

	assert.Equal(t, "Leader", s.Snapshot()[0].Role)
}

func TestClear(t *testing.T) {
	s := NewSession(7).Record(Result{Role: "Leader"}, "t")

	s = ClearSession(s)

	assert.Empty(t, s.Snapshot())
	assert.Equal(t, 7, s.Limit())
	_, ok := s.Last()
	assert.False(t, ok)

	again := ClearSession(s)
	assert.Equal(t, s, again)
}

func TestDrawAssignment(t *testing.T) {
	now := time.Date(2026, 3, 4, 9, 15, 30, 0, time.UTC)

	r, s := DrawAssignment([]string{"Ann", "Ben", "Cal"}, NewSession(0), &scriptedSource{}, now)

	require.Len(t, r.Assignments, 3)
	want := []Entry{
		{Timestamp: "2026-03-04 09:15:30", Name: "Cal", Role: "Quality Checker"},
		{Timestamp: "2026-03-04 09:15:30", Name: "Ben", Role: "Encourager"},
		{Timestamp: "2026-03-04 09:15:30", Name: "Ann", Role: "Organizer"},
	}
	assert.Equal(t, want, s.Snapshot())
}

func TestDrawAssignmentSolo(t *testing.T) {
	r, s := DrawAssignment(ParseNames("  ,, \n "), NewSession(0), &scriptedSource{ints: []int{0}}, time.Now())

	require.True(t, r.IsSolo())
	assert.Equal(t, "Leader", r.Role)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, NoName, s.Snapshot()[0].Name)
}

func TestDrawHistoryCapAcrossManyDraws(t *testing.T) {
	src := NewSeededSource(5)
	s := NewSession(DefaultHistoryLimit)

	var results []Result
	for range DefaultHistoryLimit + 15 {
		var r Result
		r, s = DrawAssignment([]string{"only"}, s, src, time.Now())
		results = append(results, r)
	}

	got := s.Snapshot()
	require.Len(t, got, DefaultHistoryLimit)
	for i, e := range got {
		assert.Equal(t, results[len(results)-1-i].Assignments[0].Role, e.Role)
	}
}
