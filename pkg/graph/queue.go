package graph

import "container/heap"

// item orders by distance, then by push sequence so that ties pop in the
// order they were discovered.
type item struct {
	dist float64
	seq  int
	pred int
	node int
}

type queue struct {
	items []item
	seq   int
}

func (q *queue) Len() int { return len(q.items) }

func (q *queue) Less(i, j int) bool {
	if q.items[i].dist != q.items[j].dist {
		return q.items[i].dist < q.items[j].dist
	}
	return q.items[i].seq < q.items[j].seq
}

func (q *queue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *queue) Push(x any) { q.items = append(q.items, x.(item)) }

func (q *queue) Pop() any {
	old := q.items
	n := len(old)
	it := old[n-1]
	q.items = old[:n-1]
	return it
}

func (q *queue) push(dist float64, pred, node int) {
	heap.Push(q, item{dist: dist, seq: q.seq, pred: pred, node: node})
	q.seq++
}

func (q *queue) pop() item {
	return heap.Pop(q).(item)
}
