package conn

import (
	"sync"
	"time"
)

// ErrorRecord is one captured transport failure.
type ErrorRecord struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// errorRing keeps the most recent transport errors in a fixed-size ring.
type errorRing struct {
	mu      sync.Mutex
	entries []ErrorRecord
	next    int
	filled  bool
}

func newErrorRing(size int) *errorRing {
	if size <= 0 {
		size = 25
	}
	return &errorRing{entries: make([]ErrorRecord, size)}
}

func (r *errorRing) add(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.next] = ErrorRecord{Time: time.Now(), Message: err.Error()}
	r.next++
	if r.next == len(r.entries) {
		r.next = 0
		r.filled = true
	}
}

func (r *errorRing) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.filled {
		return len(r.entries)
	}
	return r.next
}

// snapshot returns captured errors, newest first.
func (r *errorRing) snapshot() []ErrorRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := r.next
	if r.filled {
		count = len(r.entries)
	}
	out := make([]ErrorRecord, 0, count)
	for i := 1; i <= count; i++ {
		idx := r.next - i
		if idx < 0 {
			idx += len(r.entries)
		}
		out = append(out, r.entries[idx])
	}
	return out
}
