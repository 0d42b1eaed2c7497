package incident

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/erdispatch/core/model"
	"github.com/kilianp07/erdispatch/core/roadnet"
)

func report(t *testing.T, q *Queue, loc int, p model.Priority) model.Incident {
	t.Helper()
	inc, err := q.Report(roadnet.NodeID(loc), p, "test")
	require.NoError(t, err)
	return inc
}

func TestReportAllocatesIncreasingIDs(t *testing.T) {
	q := NewQueue()
	a := report(t, q, 1, model.PriorityLow)
	b := report(t, q, 2, model.PriorityHigh)
	assert.Equal(t, 1, a.ID)
	assert.Equal(t, 2, b.ID)
	assert.Equal(t, 2, q.LiveCount())
	assert.Len(t, q.History(), 2)
	assert.False(t, a.Resolved)
}

func TestReportRejectsInvalidPriority(t *testing.T) {
	q := NewQueue()
	_, err := q.Report(1, model.Priority(0), "x")
	require.ErrorIs(t, err, model.ErrInvalidPriority)
	assert.True(t, q.IsEmpty())
	assert.Empty(t, q.History())
}

func TestInjectedAllocatorAndClock(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	q := NewQueue(WithAllocator(NewSequenceAllocator(100)), WithClock(func() time.Time { return at }))
	inc := report(t, q, 0, model.PriorityMedium)
	assert.Equal(t, 100, inc.ID)
	assert.Equal(t, at, inc.ReportedAt)
}

func TestPopHighestOrdersByPriority(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	prios := []model.Priority{model.PriorityLow, model.PriorityMedium, model.PriorityHigh}
	q := NewQueue()
	for i := 0; i < 60; i++ {
		report(t, q, i, prios[rng.Intn(len(prios))])
	}
	last := model.PriorityHigh
	lastID := 0
	for !q.IsEmpty() {
		inc, ok := q.PopHighest()
		require.True(t, ok)
		require.LessOrEqual(t, inc.Priority, last)
		if inc.Priority == last {
			require.Greater(t, inc.ID, lastID, "equal priorities are served in report order")
		}
		last, lastID = inc.Priority, inc.ID
	}
	_, ok := q.PopHighest()
	assert.False(t, ok)
}

func TestReinsertKeepsID(t *testing.T) {
	q := NewQueue()
	report(t, q, 1, model.PriorityLow)
	high := report(t, q, 2, model.PriorityHigh)

	got, ok := q.PopHighest()
	require.True(t, ok)
	require.Equal(t, high.ID, got.ID)
	assert.Equal(t, 1, q.LiveCount())
	assert.Equal(t, 2, q.ActiveCount())

	require.NoError(t, q.Reinsert(got.ID))
	assert.ErrorIs(t, q.Reinsert(got.ID), ErrAlreadyQueued)
	assert.ErrorIs(t, q.Reinsert(99), ErrUnknownIncident)
	assert.Len(t, q.History(), 2)

	again, _ := q.PopHighest()
	assert.Equal(t, high.ID, again.ID)
}

func TestMarkResolvedLeavesQueue(t *testing.T) {
	q := NewQueue()
	a := report(t, q, 1, model.PriorityHigh)
	b := report(t, q, 2, model.PriorityLow)

	require.NoError(t, q.MarkResolved(a.ID))
	assert.Equal(t, 1, q.LiveCount())
	assert.Equal(t, 1, q.ActiveCount())
	assert.ErrorIs(t, q.Reinsert(a.ID), ErrResolved)
	assert.ErrorIs(t, q.MarkResolved(42), ErrUnknownIncident)

	got, _ := q.Get(a.ID)
	assert.True(t, got.Resolved)
	next, _ := q.PopHighest()
	assert.Equal(t, b.ID, next.ID)
	assert.Len(t, q.History(), 2)
	assert.Len(t, q.Unresolved(), 1)
}

func TestDrainRequeuesKeptIncidents(t *testing.T) {
	q := NewQueue()
	low := report(t, q, 1, model.PriorityLow)
	high := report(t, q, 2, model.PriorityHigh)
	med := report(t, q, 3, model.PriorityMedium)

	var order []int
	q.Drain(func(drained []model.Incident) []int {
		for _, inc := range drained {
			order = append(order, inc.ID)
		}
		return []int{low.ID, high.ID}
	})
	assert.Equal(t, []int{high.ID, med.ID, low.ID}, order)
	assert.Equal(t, 2, q.LiveCount())
	assert.Equal(t, 3, q.ActiveCount())
}

func TestClearAllKeepsIDsUnique(t *testing.T) {
	q := NewQueue()
	report(t, q, 1, model.PriorityLow)
	report(t, q, 1, model.PriorityLow)
	q.ClearAll()
	assert.True(t, q.IsEmpty())
	assert.Empty(t, q.History())
	assert.Zero(t, q.ActiveCount())
	inc := report(t, q, 1, model.PriorityLow)
	assert.Equal(t, 3, inc.ID)
}

func TestConcurrentReport(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(loc int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = q.Report(roadnet.NodeID(loc), model.PriorityMedium, "c")
			}
		}(i)
	}
	wg.Wait()
	seen := map[int]bool{}
	for _, inc := range q.History() {
		assert.False(t, seen[inc.ID])
		seen[inc.ID] = true
	}
	assert.Equal(t, 400, q.LiveCount())
}
