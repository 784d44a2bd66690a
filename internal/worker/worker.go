// Package worker is a typed façade over the ring engine: callers register
// operation values instead of hand-building submissions, the worker
// allocates the correlation identifiers, and raw completions come back as
// typed results. Single-owner like the ring itself; no internal threading.
package worker

import (
	"fmt"

	"github.com/dl/goring/internal/uring"
)

// Completion pairs an operation identifier with its typed outcome. Exactly
// one of Result and Err is set.
type Completion struct {
	ID     uint64
	Result Result
	Err    error
}

// Worker owns a ring and tracks which operation is in flight under which
// identifier.
type Worker struct {
	ring     *uring.Ring
	next     uint64
	inflight map[uint64]Operation
}

// New creates a worker over a fresh ring of the given depth and enters it.
func New(depth uint32) (*Worker, error) {
	w := &Worker{
		ring:     uring.NewRing(depth),
		inflight: make(map[uint64]Operation),
	}
	if err := w.ring.Enter(); err != nil {
		return nil, err
	}
	return w, nil
}

// Close tears the ring down. Operations still in flight are abandoned.
func (w *Worker) Close() {
	clear(w.inflight)
	w.ring.Exit()
}

// Register queues op on the ring under a fresh identifier and returns the
// identifier. Identifiers are a monotonically increasing counter starting
// at 1, so they never collide with an in-flight operation.
func (w *Worker) Register(op Operation) (uint64, error) {
	id := w.next + 1
	if err := op.prep(w.ring, id); err != nil {
		return 0, err
	}
	w.next = id
	w.inflight[id] = op
	return id, nil
}

// Submit flushes all registered-but-unsubmitted operations to the kernel.
func (w *Worker) Submit() (int, error) {
	return w.ring.Submit()
}

// Wait blocks until one completion is available and returns its typed
// outcome.
func (w *Worker) Wait() (Completion, error) {
	c, err := w.ring.Wait()
	if err != nil {
		return Completion{}, err
	}
	return w.resolve(c), nil
}

// Peek returns a typed completion if one is ready, without blocking.
func (w *Worker) Peek() (Completion, bool, error) {
	c, ok, err := w.ring.Peek()
	if err != nil || !ok {
		return Completion{}, ok, err
	}
	return w.resolve(c), true, nil
}

// Pending returns the number of operations registered but not yet
// completed.
func (w *Worker) Pending() int {
	return len(w.inflight)
}

func (w *Worker) resolve(c uring.Completion) Completion {
	op, ok := w.inflight[c.UserData]
	delete(w.inflight, c.UserData)
	if !ok {
		return Completion{
			ID:  c.UserData,
			Err: fmt.Errorf("completion for unknown operation id %d", c.UserData),
		}
	}
	return op.complete(c)
}
