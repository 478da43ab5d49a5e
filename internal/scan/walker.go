package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// FileInfo is a regular file emitted by the walker.
type FileInfo struct {
	Path string
	Size int64
}

// dirQueue is an unbounded, concurrency-safe queue of directory paths.
// It tracks a pending counter so that Walk knows when all work is done.
//
// Termination protocol:
//   - Push increments pending BEFORE enqueuing (caller must own the increment).
//   - Done decrements pending AFTER all children of a directory have been
//     pushed. When pending reaches 0, Done closes the queue and broadcasts.
//   - abort closes the queue immediately and drops queued directories.
type dirQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []string
	head    int // index of the next item to pop
	pending atomic.Int64
	closed  bool
}

func newDirQueue() *dirQueue {
	q := &dirQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues a directory. Must be called after incrementing pending.
func (q *dirQueue) Push(dir string) {
	q.mu.Lock()
	q.items = append(q.items, dir)
	q.mu.Unlock()
	q.cond.Signal()
}

// Pop blocks until an item is available or the queue is closed.
// Returns ("", false) when the queue is closed and empty.
func (q *dirQueue) Pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.head >= len(q.items) && !q.closed {
		q.cond.Wait()
	}
	if q.head >= len(q.items) {
		return "", false
	}
	item := q.items[q.head]
	q.items[q.head] = ""
	q.head++
	// Compact once at least 1 000 items were consumed and head passed the midpoint.
	if q.head >= 1000 && q.head >= len(q.items)/2 {
		q.items = append(q.items[:0], q.items[q.head:]...)
		q.head = 0
	}
	return item, true
}

// Done must be called once per directory after all its child directories have
// been pushed. Decrements pending; if pending reaches 0, closes the queue.
func (q *dirQueue) Done() {
	if q.pending.Add(-1) == 0 {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		q.cond.Broadcast()
	}
}

// abort closes the queue regardless of pending work and wakes every waiter.
func (q *dirQueue) abort() {
	q.mu.Lock()
	q.closed = true
	q.items = nil
	q.head = 0
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Walk traverses root concurrently using numWorkers goroutines and sends
// every regular file it finds to out. Symbolic links and other non-regular
// entries are skipped without being reported. Walk closes out when done,
// including after ctx is cancelled.
func Walk(ctx context.Context, root string, numWorkers int, out chan<- FileInfo, report ErrorReporter) {
	defer close(out)
	if numWorkers < 1 {
		numWorkers = 1
	}

	q := newDirQueue()
	q.pending.Add(1)
	q.Push(root)

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			q.abort()
		case <-finished:
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			walkerWorker(ctx, q, out, report)
		}()
	}
	wg.Wait()
}

// walkerWorker pops directories from q, reads their entries, enqueues
// sub-directories (incrementing pending first), sends files to out, then
// calls q.Done() to decrement pending.
func walkerWorker(ctx context.Context, q *dirQueue, out chan<- FileInfo, report ErrorReporter) {
	for {
		dir, ok := q.Pop()
		if !ok {
			return
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			report(dir, fmt.Errorf("%w: %s: %v", ErrMetadataRead, dir, err))
		}

		for _, entry := range entries {
			if ctx.Err() != nil {
				q.Done()
				return
			}
			path := filepath.Join(dir, entry.Name())

			if entry.IsDir() {
				// Increment BEFORE pushing so pending is never zero prematurely.
				q.pending.Add(1)
				q.Push(path)
				continue
			}
			if !entry.Type().IsRegular() {
				continue
			}

			info, err := entry.Info()
			if err != nil {
				report(path, fmt.Errorf("%w: %s: %v", ErrMetadataRead, path, err))
				continue
			}

			select {
			case <-ctx.Done():
				q.Done()
				return
			case out <- FileInfo{Path: path, Size: info.Size()}:
			}
		}

		q.Done()
	}
}
