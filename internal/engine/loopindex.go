package engine

import "sync"

// loopIndex hands out event indices to the replicas of one Analyze call.
//
// Indices are issued strictly increasing from 0. With a non-negative limit
// exactly limit indices are issued in total, whichever replica takes them.
// Stop ends issuing for every replica; that is how QUIT_ALL and critical
// errors reach the other replicas.
//
// Thread-safety: safe for concurrent use.
type loopIndex struct {
	mu      sync.Mutex
	next    int64
	limit   int64
	stopped bool
}

// newLoopIndex creates an index source; a negative limit is unbounded.
func newLoopIndex(limit int64) *loopIndex {
	return &loopIndex{limit: limit}
}

// Next returns the next event index, or false when the loop is over.
func (l *loopIndex) Next() (int64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped || (l.limit >= 0 && l.next >= l.limit) {
		return 0, false
	}
	i := l.next
	l.next++
	return i, true
}

// Stop prevents any further index from being issued.
func (l *loopIndex) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopped = true
}

// Issued returns how many indices have been handed out.
func (l *loopIndex) Issued() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next
}
