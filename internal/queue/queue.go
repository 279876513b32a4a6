// Package queue is the shared work queue drained by the download workers.
package queue

import "sync"

// Item is one chapter to download. Ordinal is its 1-based position in the
// input list.
type Item struct {
	URL     string
	Ordinal int
}

// Queue is an unbounded FIFO safe for concurrent producers and consumers.
// Every Put must be matched by a Done once the item has been processed;
// Join blocks until that has happened for all items.
type Queue struct {
	mu      sync.Mutex
	items   []Item
	pending sync.WaitGroup
}

func New() *Queue {
	return &Queue{}
}

func (q *Queue) Put(it Item) {
	q.pending.Add(1)

	q.mu.Lock()
	q.items = append(q.items, it)
	q.mu.Unlock()
}

// Get removes the next item. ok is false when the queue is empty; it never
// blocks.
func (q *Queue) Get() (it Item, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Item{}, false
	}

	it = q.items[0]
	q.items[0] = Item{}
	q.items = q.items[1:]

	return it, true
}

// Len is the number of items not yet taken.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Done marks one taken item as processed.
func (q *Queue) Done() {
	q.pending.Done()
}

// Join waits until every item put so far has been marked done. It returns
// immediately for an empty queue.
func (q *Queue) Join() {
	q.pending.Wait()
}
