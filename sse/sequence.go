package sse

import (
	"math"
	"sync/atomic"
)

// Sequence hands out strictly increasing event ids. Only the scheduler
// loop advances it; any goroutine may read it.
type Sequence struct {
	next atomic.Int64
}

// NewSequence starts at 1.
func NewSequence() *Sequence {
	return NewSequenceAfter(0)
}

// NewSequenceAfter resumes after lastID, so the first id is lastID+1.
// A lastID that is negative or has no successor starts over at 1.
func NewSequenceAfter(lastID int64) *Sequence {
	if lastID < 0 || lastID == math.MaxInt64 {
		lastID = 0
	}
	s := &Sequence{}
	s.next.Store(lastID + 1)
	return s
}

// Current returns the id the next emitted event will carry.
func (s *Sequence) Current() int64 {
	return s.next.Load()
}

// Advance moves past the current id and returns the new current one.
func (s *Sequence) Advance() int64 {
	return s.next.Add(1)
}
