// Package incident keeps reported incidents ordered by priority.
//
// Every incident lives in an append-only history for the lifetime of the
// queue. The live priority heap only holds handles into that history, so an
// incident can leave and re-enter the heap without being copied or
// re-allocated.
package incident

import (
	"container/heap"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/erdispatch/core/logger"
	"github.com/kilianp07/erdispatch/core/model"
	"github.com/kilianp07/erdispatch/core/roadnet"
)

const notQueued = -1

var (
	ErrUnknownIncident = errors.New("incident: unknown incident")
	ErrResolved        = errors.New("incident: incident already resolved")
	ErrAlreadyQueued   = errors.New("incident: incident already queued")
)

// Queue is a priority queue of incidents plus their full history. It is
// safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	alloc   IDAllocator
	history []model.Incident
	index   map[int]int // incident id -> history slot
	pos     []int       // history slot -> heap position or notQueued
	live    liveHeap
	now     func() time.Time
	log     logger.Logger
}

// Option configures a Queue.
type Option func(*Queue)

// WithAllocator sets the identifier source. The default starts at 1.
func WithAllocator(a IDAllocator) Option {
	return func(q *Queue) {
		if a != nil {
			q.alloc = a
		}
	}
}

// WithLogger sets the queue logger.
func WithLogger(l logger.Logger) Option {
	return func(q *Queue) {
		if l != nil {
			q.log = l
		}
	}
}

// WithClock overrides the time source used for ReportedAt.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// NewQueue returns an empty queue.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		alloc: NewSequenceAllocator(1),
		index: make(map[int]int),
		now:   time.Now,
		log:   logger.NopLogger{},
	}
	q.live.q = q
	for _, o := range opts {
		o(q)
	}
	return q
}

// Report records a new incident and queues it. The location is not checked
// against any road network. Descriptions with line breaks or other control
// characters are rejected.
func (q *Queue) Report(loc roadnet.NodeID, p model.Priority, desc string) (model.Incident, error) {
	if !p.Valid() {
		return model.Incident{}, fmt.Errorf("incident: %w: %d", model.ErrInvalidPriority, p)
	}
	if err := model.ValidateDescription(desc); err != nil {
		return model.Incident{}, fmt.Errorf("incident: %w", err)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	inc := model.Incident{
		ID:          q.alloc.Next(),
		Location:    loc,
		Priority:    p,
		Description: desc,
		ReportedAt:  q.now(),
	}
	slot := len(q.history)
	q.history = append(q.history, inc)
	q.pos = append(q.pos, notQueued)
	q.index[inc.ID] = slot
	heap.Push(&q.live, slot)
	q.log.Debugw("incident reported", map[string]any{
		"incident_id": inc.ID, "location": int(loc), "priority": p.String(),
	})
	return inc, nil
}

// PopHighest removes and returns the most urgent queued incident.
func (q *Queue) PopHighest() (model.Incident, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.live.Len() == 0 {
		return model.Incident{}, false
	}
	slot := heap.Pop(&q.live).(int)
	return q.history[slot], true
}

// Reinsert puts a previously popped incident back in the queue under its
// original id.
func (q *Queue) Reinsert(id int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.reinsert(id)
}

func (q *Queue) reinsert(id int) error {
	slot, ok := q.index[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownIncident, id)
	}
	if q.history[slot].Resolved {
		return fmt.Errorf("%w: %d", ErrResolved, id)
	}
	if q.pos[slot] != notQueued {
		return fmt.Errorf("%w: %d", ErrAlreadyQueued, id)
	}
	heap.Push(&q.live, slot)
	return nil
}

// MarkResolved flags the incident as resolved. It stays in the history and
// leaves the live queue if it was queued.
func (q *Queue) MarkResolved(id int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	slot, ok := q.index[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownIncident, id)
	}
	q.history[slot].Resolved = true
	if p := q.pos[slot]; p != notQueued {
		heap.Remove(&q.live, p)
	}
	return nil
}

// Drain removes every queued incident in priority order and passes them to
// fn. The incidents whose ids fn returns are queued again, unless resolved.
// The queue stays locked while fn runs, so fn must not call back into q.
func (q *Queue) Drain(fn func(drained []model.Incident) (keep []int)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	drained := make([]model.Incident, 0, q.live.Len())
	for q.live.Len() > 0 {
		drained = append(drained, q.history[heap.Pop(&q.live).(int)])
	}
	for _, id := range fn(drained) {
		if err := q.reinsert(id); err != nil {
			q.log.Warnf("drain: cannot requeue incident %d: %v", id, err)
		}
	}
}

// IsEmpty reports whether no incident is queued.
func (q *Queue) IsEmpty() bool { return q.LiveCount() == 0 }

// LiveCount returns the number of queued incidents.
func (q *Queue) LiveCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.live.Len()
}

// ActiveCount returns the number of unresolved incidents in the history,
// queued or not.
func (q *Queue) ActiveCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, inc := range q.history {
		if !inc.Resolved {
			n++
		}
	}
	return n
}

// Get returns the incident with the given id.
func (q *Queue) Get(id int) (model.Incident, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	slot, ok := q.index[id]
	if !ok {
		return model.Incident{}, false
	}
	return q.history[slot], true
}

// History returns every incident ever reported, oldest first.
func (q *Queue) History() []model.Incident {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]model.Incident(nil), q.history...)
}

// Unresolved returns the unresolved incidents, oldest first.
func (q *Queue) Unresolved() []model.Incident {
	q.mu.Lock()
	defer q.mu.Unlock()
	var res []model.Incident
	for _, inc := range q.history {
		if !inc.Resolved {
			res = append(res, inc)
		}
	}
	return res
}

// ClearAll forgets every incident. Identifiers are not reused afterwards.
func (q *Queue) ClearAll() {
	q.mu.Lock()
	q.history = nil
	q.pos = nil
	q.index = make(map[int]int)
	q.live.slots = nil
	q.mu.Unlock()
	q.log.Infof("incidents cleared")
}
