package escalation

import (
	"container/heap"
	"time"

	"github.com/jwalitptl/reminderd/pkg/delivery"
)

type eventKind int

const (
	eventEmit eventKind = iota
	eventLevelUp
	eventResume
	eventAutoResolve
)

// event is one scheduled wakeup in a session: a channel emission, a level
// climb, a cool-down expiry, or the optional auto-resolve ceiling.
type event struct {
	kind    eventKind
	channel delivery.Channel
	at      time.Time
}

// eventQueue is a min-heap keyed by fire time. One queue per session replaces
// the source's pile of independent repeating timers, which makes the
// floor/cadence invariants enforceable in one place.
type eventQueue struct {
	items []event
}

func (q *eventQueue) Len() int            { return len(q.items) }
func (q *eventQueue) Less(i, j int) bool  { return q.items[i].at.Before(q.items[j].at) }
func (q *eventQueue) Swap(i, j int)       { q.items[i], q.items[j] = q.items[j], q.items[i] }
func (q *eventQueue) Push(x interface{})  { q.items = append(q.items, x.(event)) }
func (q *eventQueue) Pop() interface{} {
	old := q.items
	n := len(old)
	it := old[n-1]
	q.items = old[:n-1]
	return it
}

func (q *eventQueue) push(e event) {
	heap.Push(q, e)
}

func (q *eventQueue) peek() (event, bool) {
	if len(q.items) == 0 {
		return event{}, false
	}
	return q.items[0], true
}

func (q *eventQueue) popDue(now time.Time) []event {
	var due []event
	for len(q.items) > 0 && !q.items[0].at.After(now) {
		due = append(due, heap.Pop(q).(event))
	}
	return due
}

// removeKind drops every queued event of the given kind.
func (q *eventQueue) removeKind(kinds ...eventKind) {
	drop := make(map[eventKind]bool, len(kinds))
	for _, k := range kinds {
		drop[k] = true
	}
	kept := q.items[:0]
	for _, it := range q.items {
		if !drop[it.kind] {
			kept = append(kept, it)
		}
	}
	q.items = kept
	heap.Init(q)
}

func (q *eventQueue) clear() {
	q.items = q.items[:0]
}
