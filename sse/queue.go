package sse

import (
	"container/heap"
	"context"
	"time"
)

// phase orders timers that fall due at the same instant.
type phase int

const (
	phaseStart phase = iota
	phaseTimer
	phaseKeepAlive
	phaseExecLimit
)

type timer struct {
	due    time.Time
	phase  phase
	order  uint64
	seq    uint64
	period time.Duration
	fire   func(ctx context.Context) error

	canceled bool
	index    int
}

func (t *timer) cancel() { t.canceled = true }

// timerQueue is a min-heap by due time, then phase, then registration order.
type timerQueue []*timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	a, b := q[i], q[j]
	if !a.due.Equal(b.due) {
		return a.due.Before(b.due)
	}
	if a.phase != b.phase {
		return a.phase < b.phase
	}
	if a.order != b.order {
		return a.order < b.order
	}
	return a.seq < b.seq
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*timer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

// head drops canceled timers and returns the earliest live one, or nil.
func (q *timerQueue) head() *timer {
	for q.Len() > 0 {
		t := (*q)[0]
		if !t.canceled {
			return t
		}
		heap.Pop(q)
	}
	return nil
}

func (q *timerQueue) reset() {
	for _, t := range *q {
		t.canceled = true
	}
	*q = nil
}
