package processor

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// frontierItem is one queued URL with its priority score. Equal scores
// pop in insertion order via the sequence number.
type frontierItem struct {
	url      string
	depth    int
	score    float64
	sequence uint64
}

// itemHeap orders by score descending, then FIFO
type itemHeap []*frontierItem

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score > h[j].score
	}
	return h[i].sequence < h[j].sequence
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x interface{}) {
	*h = append(*h, x.(*frontierItem))
}

func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// frontier is the priority queue the workers drain. Pop blocks until an
// item arrives, the frontier closes, or ctx ends.
type frontier struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    *itemHeap
	sequence uint64
	closed   bool
}

func newFrontier() *frontier {
	f := &frontier{items: &itemHeap{}}
	heap.Init(f.items)
	f.cond = sync.NewCond(&f.mu)
	return f
}

// push enqueues a URL. Returns false once the frontier is closed.
func (f *frontier) push(url string, depth int, score float64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}

	f.sequence++
	heap.Push(f.items, &frontierItem{
		url:      url,
		depth:    depth,
		score:    score,
		sequence: f.sequence,
	})
	f.cond.Signal()
	return true
}

// pop removes the highest priority URL, blocking until one is available.
// A nil item means the frontier closed. The wait re-checks ctx on a
// short timer so cancellation cannot strand a worker.
func (f *frontier) pop(ctx context.Context) (*frontierItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const wakeInterval = time.Second

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if f.items.Len() > 0 {
			return heap.Pop(f.items).(*frontierItem), nil
		}
		if f.closed {
			return nil, nil
		}

		timer := time.AfterFunc(wakeInterval, f.cond.Broadcast)
		f.cond.Wait()
		timer.Stop()
	}
}

// length returns the number of queued items
func (f *frontier) length() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items.Len()
}

// close wakes every blocked pop; queued items still drain
func (f *frontier) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.cond.Broadcast()
}
